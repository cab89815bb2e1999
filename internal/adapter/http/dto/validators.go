package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("decimal_amount", validateDecimalAmount)
	}
}

// validateDecimalAmount accepts a strictly positive decimal string.
// Zero and negative amounts are rejected at the binding layer; domain
// validation re-checks so the rule holds for non-HTTP callers too.
func validateDecimalAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive()
}
