package ports

import (
	"context"
	"time"

	"vendor-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository is the snapshot side of the ledger store. Snapshot writes
// happen only inside a balance-engine transaction, guarded by the wallet
// version.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error
	GetByVendorID(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error)
	// GetByVendorIDTx reads the snapshot inside a transaction block.
	GetByVendorIDTx(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (*domain.Wallet, error)
	// UpdateSnapshot persists the new balances and bumps the version. Returns
	// domain.ErrVersionConflict when expectedVersion no longer matches.
	UpdateSnapshot(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) error
	// SetFlagged marks or clears the manual-reconciliation flag.
	SetFlagged(ctx context.Context, vendorID uuid.UUID, flagged bool) error
}

// LedgerEntryRepository is the append-only entry log. There is deliberately
// no update or delete operation.
type LedgerEntryRepository interface {
	Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	// GetSaleCredit finds the credit entry a settlement reference produced.
	GetSaleCredit(ctx context.Context, vendorID uuid.UUID, reference string) (*domain.LedgerEntry, error)
	// ExistsByReference checks whether an entry of the given shape was already
	// appended for a reference. Used for settlement idempotency.
	ExistsByReference(ctx context.Context, vendorID uuid.UUID, entryType domain.EntryType, category domain.EntryCategory, reference string) (bool, error)
	// ReleaseExists reports whether a RELEASE entry referencing the given sale
	// credit exists, i.e. whether the credit has already matured.
	ReleaseExists(ctx context.Context, originalEntryID uuid.UUID) (bool, error)
	// RefundedFromPending sums the refund debits taken out of pending against
	// the given sale credit. Maturation releases only the remainder.
	RefundedFromPending(ctx context.Context, originalEntryID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, params EntryListParams) ([]domain.LedgerEntry, int64, error)
	// ListMaturable returns pending sale credits whose holding window elapsed
	// at asOf, have no release entry yet, and are not fully refunded.
	ListMaturable(ctx context.Context, asOf time.Time, limit int) ([]domain.LedgerEntry, error)
}

// EntryListParams holds filter + pagination for listing ledger entries.
type EntryListParams struct {
	VendorID uuid.UUID
	Type     *domain.EntryType
	Category *domain.EntryCategory
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// PayoutRepository persists payout requests. Create must enforce the
// one-open-request-per-vendor rule atomically and return
// domain.ErrOpenPayoutExists when violated.
type PayoutRepository interface {
	Create(ctx context.Context, p *domain.PayoutRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error)
	GetOpenByVendor(ctx context.Context, vendorID uuid.UUID) (*domain.PayoutRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PayoutStatus, decidedBy *uuid.UUID, reason *string) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID, page, pageSize int) ([]domain.PayoutRequest, int64, error)
	ListByStatus(ctx context.Context, status domain.PayoutStatus, page, pageSize int) ([]domain.PayoutRequest, int64, error)
}

// ParkedEventRepository stores settlement events awaiting manual review.
type ParkedEventRepository interface {
	Create(ctx context.Context, e *domain.ParkedEvent) error
	List(ctx context.Context, page, pageSize int) ([]domain.ParkedEvent, int64, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
