package service

import (
	"context"
	"fmt"

	"vendor-ledger/internal/core/domain"
	"vendor-ledger/internal/core/ports"
	"vendor-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReportingServiceImpl implements ports.ReportingService: the read-only
// vendor and admin surfaces over the ledger store.
type ReportingServiceImpl struct {
	walletRepo ports.WalletRepository
	entryRepo  ports.LedgerEntryRepository
	parkedRepo ports.ParkedEventRepository
	log        zerolog.Logger
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(
	walletRepo ports.WalletRepository,
	entryRepo ports.LedgerEntryRepository,
	parkedRepo ports.ParkedEventRepository,
	log zerolog.Logger,
) *ReportingServiceImpl {
	return &ReportingServiceImpl{
		walletRepo: walletRepo,
		entryRepo:  entryRepo,
		parkedRepo: parkedRepo,
		log:        log,
	}
}

// WalletSummary returns the vendor's balance snapshot. A vendor with no
// settlements yet sees a zeroed wallet rather than an error.
func (s *ReportingServiceImpl) WalletSummary(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByVendorID(ctx, vendorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return domain.NewWallet(vendorID), nil
	}
	return w, nil
}

// ListEntries returns a filtered page of the vendor's ledger entries.
func (s *ReportingServiceImpl) ListEntries(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	entries, total, err := s.entryRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list entries: %w", err))
	}
	return entries, total, nil
}

// ListParkedEvents returns the manual-review queue, oldest first.
func (s *ReportingServiceImpl) ListParkedEvents(ctx context.Context, page, pageSize int) ([]domain.ParkedEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	events, total, err := s.parkedRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list parked events: %w", err))
	}
	return events, total, nil
}

// ReplayCheck replays the vendor's full entry log from zero and compares the
// result against the stored snapshot.
func (s *ReportingServiceImpl) ReplayCheck(ctx context.Context, vendorID uuid.UUID) (*ports.ReplayReport, error) {
	w, err := s.walletRepo.GetByVendorID(ctx, vendorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	// Pull the complete log oldest-first in pages.
	var entries []domain.LedgerEntry
	const pageSize = 1000
	for page := 1; ; page++ {
		batch, total, err := s.entryRepo.List(ctx, ports.EntryListParams{
			VendorID: vendorID,
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("list entries for replay: %w", err))
		}
		entries = append(entries, batch...)
		if int64(len(entries)) >= total || len(batch) == 0 {
			break
		}
	}

	// List returns newest first; replay needs chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	consistent := domain.ReplayMatches(w, entries)
	if !consistent {
		s.log.Error().
			Str("vendor_id", vendorID.String()).
			Int("entries", len(entries)).
			Msg("replay does not reproduce wallet snapshot")
	}

	return &ports.ReplayReport{
		VendorID:   vendorID,
		EntryCount: len(entries),
		Consistent: consistent,
		Snapshot:   w,
	}, nil
}
