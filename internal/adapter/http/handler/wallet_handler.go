package handler

import (
	"strconv"

	"vendor-ledger/internal/adapter/http/dto"
	"vendor-ledger/internal/core/domain"
	"vendor-ledger/internal/core/ports"
	"vendor-ledger/pkg/apperror"
	"vendor-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler serves the vendor's read-only balance and ledger views.
type WalletHandler struct {
	reportingSvc ports.ReportingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(reportingSvc ports.ReportingService) *WalletHandler {
	return &WalletHandler{reportingSvc: reportingSvc}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	vendorID, ok := subjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.reportingSvc.WalletSummary(c.Request.Context(), vendorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// ListTransactions handles GET /api/v1/wallet/transactions.
// Query params: page, page_size, type, category, from, to.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	vendorID, ok := subjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := pagination(c)
	params := ports.EntryListParams{
		VendorID: vendorID,
		Page:     page,
		PageSize: pageSize,
	}
	if t := c.Query("type"); t != "" {
		et := domain.EntryType(t)
		params.Type = &et
	}
	if cat := c.Query("category"); cat != "" {
		ec := domain.EntryCategory(cat)
		params.Category = &ec
	}
	if from := c.Query("from"); from != "" {
		ts, err := strconv.ParseInt(from, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation("from must be a unix timestamp"))
			return
		}
		params.From = &ts
	}
	if to := c.Query("to"); to != "" {
		ts, err := strconv.ParseInt(to, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation("to must be a unix timestamp"))
			return
		}
		params.To = &ts
	}

	entries, total, err := h.reportingSvc.ListEntries(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryResponse(&entries[i]))
	}

	response.OK(c, dto.EntryListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}
