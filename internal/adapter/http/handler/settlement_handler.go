package handler

import (
	"time"

	"vendor-ledger/internal/adapter/http/dto"
	"vendor-ledger/internal/core/domain"
	"vendor-ledger/internal/core/ports"
	"vendor-ledger/pkg/apperror"
	"vendor-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementHandler is the HMAC-authenticated ingress for order lifecycle
// events. A 2xx acknowledges the event (including duplicates and parked
// events); 5xx tells the collaborator to redeliver.
type SettlementHandler struct {
	consumer ports.SettlementConsumer
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(consumer ports.SettlementConsumer) *SettlementHandler {
	return &SettlementHandler{consumer: consumer}
}

// IngestEvent handles POST /api/v1/settlement/events.
func (h *SettlementHandler) IngestEvent(c *gin.Context) {
	var req dto.SettlementEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid vendor id"))
		return
	}
	gross, err := decimal.NewFromString(req.GrossAmount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	rate := decimal.Zero
	if req.CommissionRate != "" {
		rate, err = decimal.NewFromString(req.CommissionRate)
		if err != nil {
			response.Error(c, apperror.Validation("invalid commission rate"))
			return
		}
	}

	event := domain.SettlementEvent{
		Reference:      req.Reference,
		VendorID:       vendorID,
		GrossAmount:    gross,
		CommissionRate: rate,
		Kind:           domain.SettlementEventKind(req.EventType),
		OccurredAt:     time.Unix(req.OccurredAt, 0).UTC(),
	}

	if err := h.consumer.Handle(c.Request.Context(), event); err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.AcceptedEventResponse{
		Reference: event.Reference,
		Status:    "accepted",
	})
}
