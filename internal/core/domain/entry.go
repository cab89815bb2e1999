package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType is the kind of balance movement a ledger entry records.
type EntryType string

const (
	EntryTypeCredit  EntryType = "CREDIT"
	EntryTypeDebit   EntryType = "DEBIT"
	EntryTypeHold    EntryType = "HOLD"
	EntryTypeRelease EntryType = "RELEASE"
)

// EntryCategory is the business reason behind a ledger entry.
type EntryCategory string

const (
	CategorySale       EntryCategory = "SALE"
	CategoryCommission EntryCategory = "COMMISSION"
	CategoryPayout     EntryCategory = "PAYOUT"
	CategoryRefund     EntryCategory = "REFUND"
	CategoryAdjustment EntryCategory = "ADJUSTMENT"
)

// Bucket names the balance bucket a debit was taken from. Recorded on refund
// entries so replay stays deterministic.
type Bucket string

const (
	BucketPending   Bucket = "PENDING"
	BucketAvailable Bucket = "AVAILABLE"
)

// LedgerEntry is an immutable, append-only record of a single balance
// mutation. Entries are never updated or deleted; corrections happen through
// compensating entries.
type LedgerEntry struct {
	ID       uuid.UUID `json:"id"`
	WalletID uuid.UUID `json:"wallet_id"`
	VendorID uuid.UUID `json:"vendor_id"`

	Type     EntryType     `json:"type"`
	Category EntryCategory `json:"category"`

	// Amount is always positive; Type decides the direction.
	Amount decimal.Decimal `json:"amount"`

	// Bucket snapshot immediately after this entry was applied. Required for
	// audit replay.
	AvailableAfter decimal.Decimal `json:"available_after"`
	PendingAfter   decimal.Decimal `json:"pending_after"`
	ReservedAfter  decimal.Decimal `json:"reserved_after"`

	// Reference identifies the triggering sub-order or payout request.
	Reference string `json:"reference"`

	// Bucket is set on refund debits only: the bucket the amount came from.
	Bucket Bucket `json:"bucket,omitempty"`

	// MaturesAt is set on pending sale credits: the end of the holding period.
	MaturesAt *time.Time `json:"matures_at,omitempty"`

	// OriginalEntryID links a maturation release or a refund back to the sale
	// credit it acts on. A sale credit is matured iff a RELEASE entry
	// referencing it exists.
	OriginalEntryID *uuid.UUID `json:"original_entry_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Matured reports whether the holding period of a pending sale credit has
// elapsed at the given instant.
func (e *LedgerEntry) Matured(at time.Time) bool {
	return e.MaturesAt != nil && !at.Before(*e.MaturesAt)
}

// Replay folds a wallet's full entry log, oldest first, into the balances it
// implies. Lifetime counters are rebuilt alongside the buckets so the result
// can be compared field by field against the stored snapshot.
func Replay(entries []LedgerEntry) (available, pending, reserved, earned, commission, withdrawn, refunded decimal.Decimal) {
	available, pending, reserved = decimal.Zero, decimal.Zero, decimal.Zero
	earned, commission, withdrawn, refunded = decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero

	for _, e := range entries {
		switch {
		case e.Type == EntryTypeCredit && e.Category == CategorySale:
			pending = pending.Add(e.Amount)
			earned = earned.Add(e.Amount)
		case e.Type == EntryTypeDebit && e.Category == CategoryCommission:
			// Commission is recognized against gross and never held in a
			// bucket: it raises both earned and commission by the same amount.
			earned = earned.Add(e.Amount)
			commission = commission.Add(e.Amount)
		case e.Type == EntryTypeRelease && e.Category == CategorySale:
			pending = pending.Sub(e.Amount)
			available = available.Add(e.Amount)
		case e.Type == EntryTypeHold && e.Category == CategoryPayout:
			available = available.Sub(e.Amount)
			reserved = reserved.Add(e.Amount)
		case e.Type == EntryTypeRelease && e.Category == CategoryPayout:
			reserved = reserved.Sub(e.Amount)
			available = available.Add(e.Amount)
		case e.Type == EntryTypeDebit && e.Category == CategoryPayout:
			reserved = reserved.Sub(e.Amount)
			withdrawn = withdrawn.Add(e.Amount)
		case e.Type == EntryTypeDebit && e.Category == CategoryRefund:
			if e.Bucket == BucketPending {
				pending = pending.Sub(e.Amount)
			} else {
				available = available.Sub(e.Amount)
			}
			refunded = refunded.Add(e.Amount)
		}
	}
	return
}

// ReplayMatches reports whether replaying the entry log reproduces the stored
// wallet snapshot exactly.
func ReplayMatches(w *Wallet, entries []LedgerEntry) bool {
	available, pending, reserved, earned, commission, withdrawn, refunded := Replay(entries)
	return available.Equal(w.Available) &&
		pending.Equal(w.Pending) &&
		reserved.Equal(w.Reserved) &&
		earned.Equal(w.TotalEarned) &&
		commission.Equal(w.TotalCommission) &&
		withdrawn.Equal(w.TotalWithdrawn) &&
		refunded.Equal(w.TotalRefunded)
}
