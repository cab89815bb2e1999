package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type amountPayload struct {
	Amount string `binding:"required,decimal_amount"`
}

func validate(t *testing.T, payload interface{}) error {
	t.Helper()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	return v.Struct(payload)
}

func TestDecimalAmount_Valid(t *testing.T) {
	for _, amount := range []string{"1", "0.01", "1500.75", "999999999.99"} {
		assert.NoError(t, validate(t, amountPayload{Amount: amount}), amount)
	}
}

func TestDecimalAmount_Invalid(t *testing.T) {
	for _, amount := range []string{"0", "-5", "abc", "1.2.3", ""} {
		assert.Error(t, validate(t, amountPayload{Amount: amount}), amount)
	}
}
