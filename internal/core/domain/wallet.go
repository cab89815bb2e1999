package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrVersionConflict is returned by the wallet repository when a snapshot
// update races with another writer. The balance engine retries on it; it is
// never surfaced to callers directly.
var ErrVersionConflict = errors.New("wallet version conflict")

// Wallet is the per-vendor aggregate of balances and lifetime counters.
// It is a derived snapshot of the vendor's ledger entries: replaying the full
// entry log from zero must reproduce it exactly.
type Wallet struct {
	ID       uuid.UUID `json:"id"`
	VendorID uuid.UUID `json:"vendor_id"`

	// Balance buckets. All non-negative, same currency.
	Available decimal.Decimal `json:"available_balance"` // matured, withdrawable
	Pending   decimal.Decimal `json:"pending_balance"`   // inside the holding period
	Reserved  decimal.Decimal `json:"reserved_balance"`  // locked against an open payout

	// Lifetime counters. Monotonically non-decreasing.
	TotalEarned     decimal.Decimal `json:"total_earned"`
	TotalCommission decimal.Decimal `json:"total_commission_paid"`
	TotalWithdrawn  decimal.Decimal `json:"total_withdrawn"`
	TotalRefunded   decimal.Decimal `json:"total_refunded"`

	// Flagged marks a wallet that needs manual reconciliation (a refund the
	// buckets could not cover). The flag is cleared by an operator, never by
	// the engine.
	Flagged bool `json:"flagged"`

	// Version guards optimistic snapshot updates.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWallet returns a zeroed wallet for a vendor. Wallets are created lazily
// on the vendor's first settlement event.
func NewWallet(vendorID uuid.UUID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		VendorID:  vendorID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IdentityHolds reports whether the ledger identity holds:
//
//	Available + Pending + Reserved == TotalEarned - TotalCommission - TotalWithdrawn - TotalRefunded
//
// For a wallet that has never seen a refund this is exactly the classic
// three-counter identity.
func (w *Wallet) IdentityHolds() bool {
	left := w.Available.Add(w.Pending).Add(w.Reserved)
	right := w.TotalEarned.Sub(w.TotalCommission).Sub(w.TotalWithdrawn).Sub(w.TotalRefunded)
	return left.Equal(right)
}

// NonNegative reports whether every balance bucket and counter is >= 0.
func (w *Wallet) NonNegative() bool {
	for _, d := range []decimal.Decimal{
		w.Available, w.Pending, w.Reserved,
		w.TotalEarned, w.TotalCommission, w.TotalWithdrawn, w.TotalRefunded,
	} {
		if d.IsNegative() {
			return false
		}
	}
	return true
}
