package handler

import (
	"vendor-ledger/internal/adapter/http/dto"
	"vendor-ledger/internal/core/ports"
	"vendor-ledger/pkg/apperror"
	"vendor-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves the back-office surface: payout decisions, the parked
// event queue, and the audit replay.
type AdminHandler struct {
	payoutSvc    ports.PayoutService
	reportingSvc ports.ReportingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(payoutSvc ports.PayoutService, reportingSvc ports.ReportingService) *AdminHandler {
	return &AdminHandler{payoutSvc: payoutSvc, reportingSvc: reportingSvc}
}

// ListPendingPayouts handles GET /api/v1/admin/payouts/pending.
func (h *AdminHandler) ListPendingPayouts(c *gin.Context) {
	page, pageSize := pagination(c)
	requests, total, err := h.payoutSvc.ListPending(c.Request.Context(), page, pageSize)
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

// ApprovePayout handles POST /api/v1/admin/payouts/:id/approve.
func (h *AdminHandler) ApprovePayout(c *gin.Context) {
	adminID, ok := subjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payout request id"))
		return
	}

	result, err := h.payoutSvc.Approve(c.Request.Context(), requestID, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPayoutResponse(result))
}

// RejectPayout handles POST /api/v1/admin/payouts/:id/reject.
func (h *AdminHandler) RejectPayout(c *gin.Context) {
	adminID, ok := subjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payout request id"))
		return
	}

	var req dto.PayoutRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.payoutSvc.Reject(c.Request.Context(), requestID, adminID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPayoutResponse(result))
}

// ListParkedEvents handles GET /api/v1/admin/settlement/parked.
func (h *AdminHandler) ListParkedEvents(c *gin.Context) {
	page, pageSize := pagination(c)
	events, total, err := h.reportingSvc.ListParkedEvents(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ParkedEventResponse, 0, len(events))
	for i := range events {
		items = append(items, toParkedEventResponse(&events[i]))
	}

	response.OK(c, dto.ParkedEventListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

// ReplayWallet handles GET /api/v1/admin/wallets/:vendorID/replay.
func (h *AdminHandler) ReplayWallet(c *gin.Context) {
	vendorID, err := uuid.Parse(c.Param("vendorID"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid vendor id"))
		return
	}

	report, err := h.reportingSvc.ReplayCheck(c.Request.Context(), vendorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ReplayResponse{
		VendorID:   report.VendorID.String(),
		EntryCount: report.EntryCount,
		Consistent: report.Consistent,
		Snapshot:   toWalletResponse(report.Snapshot),
	})
}
