package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vendor-ledger/internal/core/domain"
	"vendor-ledger/internal/core/ports"
	"vendor-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BalanceEngineImpl implements ports.BalanceEngine. Every operation runs as a
// single database transaction guarded by the wallet version: read snapshot,
// mutate in memory, append entries, write snapshot with the version it read.
// A version conflict rolls the whole attempt back and the operation re-runs
// from a fresh read, up to maxAttempts.
type BalanceEngineImpl struct {
	walletRepo    ports.WalletRepository
	entryRepo     ports.LedgerEntryRepository
	transactor    ports.DBTransactor
	holdingPeriod time.Duration
	maxAttempts   int
	log           zerolog.Logger
}

// NewBalanceEngine creates a new BalanceEngineImpl.
func NewBalanceEngine(
	walletRepo ports.WalletRepository,
	entryRepo ports.LedgerEntryRepository,
	transactor ports.DBTransactor,
	holdingPeriod time.Duration,
	maxAttempts int,
	log zerolog.Logger,
) *BalanceEngineImpl {
	return &BalanceEngineImpl{
		walletRepo:    walletRepo,
		entryRepo:     entryRepo,
		transactor:    transactor,
		holdingPeriod: holdingPeriod,
		maxAttempts:   maxAttempts,
		log:           log,
	}
}

// run executes apply inside a transaction, retrying on version conflicts.
func (s *BalanceEngineImpl) run(ctx context.Context, op string, apply func(ctx context.Context, tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.attempt(ctx, apply)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		lastErr = err
		s.log.Debug().
			Str("op", op).
			Int("attempt", attempt).
			Msg("wallet version conflict, retrying")
	}
	s.log.Error().Str("op", op).Int("attempts", s.maxAttempts).Msg("optimistic retries exhausted")
	return apperror.ErrStorage(fmt.Errorf("%s: retries exhausted: %w", op, lastErr))
}

func (s *BalanceEngineImpl) attempt(ctx context.Context, apply func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := apply(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// loadWallet reads the vendor's wallet inside the transaction, creating a
// zeroed one when createIfMissing is set. A creation race surfaces as
// domain.ErrVersionConflict and folds into the retry loop.
func (s *BalanceEngineImpl) loadWallet(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID, createIfMissing bool) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByVendorIDTx(ctx, tx, vendorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w != nil {
		return w, nil
	}
	if !createIfMissing {
		return nil, apperror.ErrNotFound("wallet")
	}

	w = domain.NewWallet(vendorID)
	if err := s.walletRepo.Create(ctx, tx, w); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	return w, nil
}

// commitSnapshot verifies the invariants and persists the mutated wallet.
func (s *BalanceEngineImpl) commitSnapshot(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) error {
	if !w.NonNegative() {
		return apperror.InternalError(fmt.Errorf("wallet %s: negative bucket after mutation", w.ID))
	}
	if !w.IdentityHolds() {
		return apperror.InternalError(fmt.Errorf("wallet %s: ledger identity violated", w.ID))
	}
	if err := s.walletRepo.UpdateSnapshot(ctx, tx, w, expectedVersion); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return apperror.InternalError(fmt.Errorf("update snapshot: %w", err))
	}
	w.Version = expectedVersion + 1
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// CreditSale recognizes a fulfilled sub-order. The net lands in pending under
// a holding period; the commission raises the lifetime counters and is
// discarded, never held in any bucket.
func (s *BalanceEngineImpl) CreditSale(ctx context.Context, vendorID uuid.UUID, gross, rate decimal.Decimal, reference string) (*domain.Wallet, error) {
	if !gross.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, apperror.ErrInvalidAmount()
	}

	commission := gross.Mul(rate)
	net := gross.Sub(commission)

	var result *domain.Wallet
	err := s.run(ctx, "credit_sale", func(ctx context.Context, tx pgx.Tx) error {
		w, err := s.loadWallet(ctx, tx, vendorID, true)
		if err != nil {
			return err
		}
		expectedVersion := w.Version

		w.Pending = w.Pending.Add(net)
		w.TotalEarned = w.TotalEarned.Add(gross)
		w.TotalCommission = w.TotalCommission.Add(commission)

		now := time.Now().UTC()
		maturesAt := now.Add(s.holdingPeriod)
		credit := &domain.LedgerEntry{
			ID:             uuid.New(),
			WalletID:       w.ID,
			VendorID:       vendorID,
			Type:           domain.EntryTypeCredit,
			Category:       domain.CategorySale,
			Amount:         net,
			AvailableAfter: w.Available,
			PendingAfter:   w.Pending,
			ReservedAfter:  w.Reserved,
			Reference:      reference,
			MaturesAt:      &maturesAt,
			CreatedAt:      now,
		}
		if err := s.entryRepo.Append(ctx, tx, credit); err != nil {
			return apperror.InternalError(fmt.Errorf("append sale credit: %w", err))
		}

		if commission.IsPositive() {
			commissionEntry := &domain.LedgerEntry{
				ID:              uuid.New(),
				WalletID:        w.ID,
				VendorID:        vendorID,
				Type:            domain.EntryTypeDebit,
				Category:        domain.CategoryCommission,
				Amount:          commission,
				AvailableAfter:  w.Available,
				PendingAfter:    w.Pending,
				ReservedAfter:   w.Reserved,
				Reference:       reference,
				OriginalEntryID: &credit.ID,
				CreatedAt:       now,
			}
			if err := s.entryRepo.Append(ctx, tx, commissionEntry); err != nil {
				return apperror.InternalError(fmt.Errorf("append commission debit: %w", err))
			}
		}

		if err := s.commitSnapshot(ctx, tx, w, expectedVersion); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Str("reference", reference).
		Str("net", net.String()).
		Str("commission", commission.String()).
		Msg("sale credited")
	return result, nil
}

// MatureHold moves a matured sale credit from pending to available by
// appending a release entry linked to the original credit.
func (s *BalanceEngineImpl) MatureHold(ctx context.Context, vendorID uuid.UUID, entryID uuid.UUID) (*domain.Wallet, error) {
	entry, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get entry: %w", err))
	}
	if entry == nil || entry.VendorID != vendorID {
		return nil, apperror.ErrNotFound("ledger entry")
	}
	if entry.Type != domain.EntryTypeCredit || entry.Category != domain.CategorySale {
		return nil, apperror.Validation("entry is not a sale credit")
	}
	if !entry.Matured(time.Now().UTC()) {
		return nil, apperror.ErrNotMatureYet()
	}

	var result *domain.Wallet
	var releasable decimal.Decimal
	err = s.run(ctx, "mature_hold", func(ctx context.Context, tx pgx.Tx) error {
		released, err := s.entryRepo.ReleaseExists(ctx, entry.ID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("check release exists: %w", err))
		}
		if released {
			return apperror.ErrAlreadyMatured()
		}

		// Refunds taken while the credit was still pending shrink what is
		// left to release. A fully refunded credit has nothing to move.
		refunded, err := s.entryRepo.RefundedFromPending(ctx, entry.ID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("sum pending refunds: %w", err))
		}
		releasable = entry.Amount.Sub(refunded)
		if !releasable.IsPositive() {
			return apperror.ErrAlreadyMatured()
		}

		w, err := s.loadWallet(ctx, tx, vendorID, false)
		if err != nil {
			return err
		}
		expectedVersion := w.Version

		w.Pending = w.Pending.Sub(releasable)
		w.Available = w.Available.Add(releasable)

		now := time.Now().UTC()
		release := &domain.LedgerEntry{
			ID:              uuid.New(),
			WalletID:        w.ID,
			VendorID:        vendorID,
			Type:            domain.EntryTypeRelease,
			Category:        domain.CategorySale,
			Amount:          releasable,
			AvailableAfter:  w.Available,
			PendingAfter:    w.Pending,
			ReservedAfter:   w.Reserved,
			Reference:       entry.Reference,
			OriginalEntryID: &entry.ID,
			CreatedAt:       now,
		}
		if err := s.entryRepo.Append(ctx, tx, release); err != nil {
			return apperror.InternalError(fmt.Errorf("append release: %w", err))
		}

		if err := s.commitSnapshot(ctx, tx, w, expectedVersion); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Str("entry_id", entryID.String()).
		Str("amount", releasable.String()).
		Msg("hold matured")
	return result, nil
}

// ReserveForPayout locks amount from available into reserved.
func (s *BalanceEngineImpl) ReserveForPayout(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	var result *domain.Wallet
	err := s.run(ctx, "reserve_for_payout", func(ctx context.Context, tx pgx.Tx) error {
		w, err := s.loadWallet(ctx, tx, vendorID, false)
		if err != nil {
			return err
		}
		expectedVersion := w.Version

		if w.Available.LessThan(amount) {
			return apperror.ErrInsufficientFunds()
		}
		w.Available = w.Available.Sub(amount)
		w.Reserved = w.Reserved.Add(amount)

		if err := s.appendMovement(ctx, tx, w, domain.EntryTypeHold, domain.CategoryPayout, amount, reference); err != nil {
			return err
		}
		if err := s.commitSnapshot(ctx, tx, w, expectedVersion); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Str("reference", reference).
		Str("amount", amount.String()).
		Msg("funds reserved for payout")
	return result, nil
}

// CompletePayout removes amount from reserved and counts it as withdrawn.
func (s *BalanceEngineImpl) CompletePayout(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	var result *domain.Wallet
	err := s.run(ctx, "complete_payout", func(ctx context.Context, tx pgx.Tx) error {
		w, err := s.loadWallet(ctx, tx, vendorID, false)
		if err != nil {
			return err
		}
		expectedVersion := w.Version

		if w.Reserved.LessThan(amount) {
			return apperror.ErrInsufficientReserved()
		}
		w.Reserved = w.Reserved.Sub(amount)
		w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)

		if err := s.appendMovement(ctx, tx, w, domain.EntryTypeDebit, domain.CategoryPayout, amount, reference); err != nil {
			return err
		}
		if err := s.commitSnapshot(ctx, tx, w, expectedVersion); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Str("reference", reference).
		Str("amount", amount.String()).
		Msg("payout completed")
	return result, nil
}

// ReleaseReservation is the inverse of ReserveForPayout: reserved funds flow
// back to available when a payout is rejected or the transfer fails.
func (s *BalanceEngineImpl) ReleaseReservation(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	var result *domain.Wallet
	err := s.run(ctx, "release_reservation", func(ctx context.Context, tx pgx.Tx) error {
		w, err := s.loadWallet(ctx, tx, vendorID, false)
		if err != nil {
			return err
		}
		expectedVersion := w.Version

		if w.Reserved.LessThan(amount) {
			return apperror.ErrInsufficientReserved()
		}
		w.Reserved = w.Reserved.Sub(amount)
		w.Available = w.Available.Add(amount)

		if err := s.appendMovement(ctx, tx, w, domain.EntryTypeRelease, domain.CategoryPayout, amount, reference); err != nil {
			return err
		}
		if err := s.commitSnapshot(ctx, tx, w, expectedVersion); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Str("reference", reference).
		Str("amount", amount.String()).
		Msg("reservation released")
	return result, nil
}

// Refund debits a previously credited amount. The debit comes from pending
// while the original sale credit is still unmatured, from available once it
// has matured. A bucket that cannot cover the amount flags the wallet for
// manual reconciliation and fails the operation.
func (s *BalanceEngineImpl) Refund(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	credit, err := s.entryRepo.GetSaleCredit(ctx, vendorID, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find sale credit: %w", err))
	}

	var result *domain.Wallet
	err = s.run(ctx, "refund", func(ctx context.Context, tx pgx.Tx) error {
		w, err := s.loadWallet(ctx, tx, vendorID, false)
		if err != nil {
			return err
		}
		expectedVersion := w.Version

		bucket := domain.BucketAvailable
		var originalID *uuid.UUID
		if credit != nil {
			originalID = &credit.ID
			released, err := s.entryRepo.ReleaseExists(ctx, credit.ID)
			if err != nil {
				return apperror.InternalError(fmt.Errorf("check release exists: %w", err))
			}
			if !released {
				bucket = domain.BucketPending
			}
		}

		switch bucket {
		case domain.BucketPending:
			if w.Pending.LessThan(amount) {
				return s.flagShortfall(ctx, w, reference)
			}
			w.Pending = w.Pending.Sub(amount)
		default:
			if w.Available.LessThan(amount) {
				return s.flagShortfall(ctx, w, reference)
			}
			w.Available = w.Available.Sub(amount)
		}
		w.TotalRefunded = w.TotalRefunded.Add(amount)

		now := time.Now().UTC()
		debit := &domain.LedgerEntry{
			ID:              uuid.New(),
			WalletID:        w.ID,
			VendorID:        vendorID,
			Type:            domain.EntryTypeDebit,
			Category:        domain.CategoryRefund,
			Amount:          amount,
			AvailableAfter:  w.Available,
			PendingAfter:    w.Pending,
			ReservedAfter:   w.Reserved,
			Reference:       reference,
			Bucket:          bucket,
			OriginalEntryID: originalID,
			CreatedAt:       now,
		}
		if err := s.entryRepo.Append(ctx, tx, debit); err != nil {
			return apperror.InternalError(fmt.Errorf("append refund debit: %w", err))
		}

		if err := s.commitSnapshot(ctx, tx, w, expectedVersion); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Str("reference", reference).
		Str("amount", amount.String()).
		Msg("refund debited")
	return result, nil
}

// flagShortfall marks the wallet for reconciliation outside the failing
// transaction and surfaces InsufficientFunds.
func (s *BalanceEngineImpl) flagShortfall(ctx context.Context, w *domain.Wallet, reference string) error {
	if err := s.walletRepo.SetFlagged(ctx, w.VendorID, true); err != nil {
		s.log.Error().Err(err).Str("vendor_id", w.VendorID.String()).Msg("failed to flag wallet")
	}
	s.log.Warn().
		Str("vendor_id", w.VendorID.String()).
		Str("reference", reference).
		Msg("refund exceeds bucket balance, wallet flagged")
	return apperror.ErrInsufficientFunds()
}

// appendMovement appends a simple bucket-to-bucket entry with the wallet's
// post-mutation balances.
func (s *BalanceEngineImpl) appendMovement(ctx context.Context, tx pgx.Tx, w *domain.Wallet, entryType domain.EntryType, category domain.EntryCategory, amount decimal.Decimal, reference string) error {
	entry := &domain.LedgerEntry{
		ID:             uuid.New(),
		WalletID:       w.ID,
		VendorID:       w.VendorID,
		Type:           entryType,
		Category:       category,
		Amount:         amount,
		AvailableAfter: w.Available,
		PendingAfter:   w.Pending,
		ReservedAfter:  w.Reserved,
		Reference:      reference,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.entryRepo.Append(ctx, tx, entry); err != nil {
		return apperror.InternalError(fmt.Errorf("append %s/%s entry: %w", entryType, category, err))
	}
	return nil
}
