package handler

import (
	"strconv"
	"time"

	"vendor-ledger/internal/adapter/http/dto"
	"vendor-ledger/internal/adapter/http/middleware"
	"vendor-ledger/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const timeFormat = time.RFC3339

// subjectID pulls the authenticated subject off the context.
func subjectID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxSubjectID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// pagination parses page/page_size query params with sane defaults. Services
// clamp again, so out-of-range values degrade instead of erroring.
func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		VendorID:        w.VendorID.String(),
		Available:       w.Available.String(),
		Pending:         w.Pending.String(),
		Reserved:        w.Reserved.String(),
		TotalEarned:     w.TotalEarned.String(),
		TotalCommission: w.TotalCommission.String(),
		TotalWithdrawn:  w.TotalWithdrawn.String(),
		TotalRefunded:   w.TotalRefunded.String(),
		Flagged:         w.Flagged,
		UpdatedAt:       w.UpdatedAt.Format(timeFormat),
	}
}

func toEntryResponse(e *domain.LedgerEntry) dto.EntryResponse {
	resp := dto.EntryResponse{
		ID:             e.ID.String(),
		Type:           string(e.Type),
		Category:       string(e.Category),
		Amount:         e.Amount.String(),
		AvailableAfter: e.AvailableAfter.String(),
		PendingAfter:   e.PendingAfter.String(),
		ReservedAfter:  e.ReservedAfter.String(),
		Reference:      e.Reference,
		Bucket:         string(e.Bucket),
		CreatedAt:      e.CreatedAt.Format(timeFormat),
	}
	if e.MaturesAt != nil {
		s := e.MaturesAt.Format(timeFormat)
		resp.MaturesAt = &s
	}
	if e.OriginalEntryID != nil {
		s := e.OriginalEntryID.String()
		resp.OriginalEntryID = &s
	}
	return resp
}

func toPayoutResponse(p *domain.PayoutRequest) dto.PayoutResponse {
	resp := dto.PayoutResponse{
		ID:          p.ID.String(),
		VendorID:    p.VendorID.String(),
		Amount:      p.Amount.String(),
		Status:      string(p.Status),
		Reason:      p.Reason,
		RequestedAt: p.RequestedAt.Format(timeFormat),
	}
	if p.DecidedAt != nil {
		s := p.DecidedAt.Format(timeFormat)
		resp.DecidedAt = &s
	}
	if p.DecidedBy != nil {
		s := p.DecidedBy.String()
		resp.DecidedBy = &s
	}
	return resp
}

func toParkedEventResponse(e *domain.ParkedEvent) dto.ParkedEventResponse {
	return dto.ParkedEventResponse{
		ID:        e.ID.String(),
		Reference: e.Reference,
		VendorID:  e.VendorID.String(),
		Kind:      string(e.Kind),
		Amount:    e.Amount.String(),
		Reason:    e.Reason,
		ParkedAt:  e.ParkedAt.Format(timeFormat),
	}
}
