package handler

import (
	"vendor-ledger/internal/adapter/http/dto"
	"vendor-ledger/internal/core/ports"
	"vendor-ledger/pkg/apperror"
	"vendor-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PayoutHandler serves the vendor side of the withdrawal workflow.
type PayoutHandler struct {
	payoutSvc ports.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutSvc ports.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc}
}

// Request handles POST /api/v1/payouts.
func (h *PayoutHandler) Request(c *gin.Context) {
	vendorID, ok := subjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PayoutCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.payoutSvc.Request(c.Request.Context(), vendorID, amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPayoutResponse(result))
}

// History handles GET /api/v1/payouts.
func (h *PayoutHandler) History(c *gin.Context) {
	vendorID, ok := subjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := pagination(c)
	requests, total, err := h.payoutSvc.History(c.Request.Context(), vendorID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PayoutResponse, 0, len(requests))
	for i := range requests {
		items = append(items, toPayoutResponse(&requests[i]))
	}

	response.OK(c, dto.PayoutListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}
