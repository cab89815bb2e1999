package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementEventKind is the order lifecycle signal delivered by the
// order-fulfillment collaborator.
type SettlementEventKind string

const (
	EventFulfilled SettlementEventKind = "FULFILLED"
	EventCancelled SettlementEventKind = "CANCELLED"
	EventReturned  SettlementEventKind = "RETURNED"
)

// SettlementEvent is the inbound signal that drives earnings credits and
// refund debits. Reference identifies the sub-order and is the idempotency
// anchor: the same event delivered twice must not move money twice.
type SettlementEvent struct {
	Reference      string              `json:"sub_order_reference"`
	VendorID       uuid.UUID           `json:"vendor_id"`
	GrossAmount    decimal.Decimal     `json:"gross_amount"`
	CommissionRate decimal.Decimal     `json:"commission_rate"`
	Kind           SettlementEventKind `json:"event_type"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

// DedupKey is the cache key used for fast-path duplicate detection.
func (e *SettlementEvent) DedupKey() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.Reference)
}

// ParkedEvent is a settlement event that failed validation and awaits manual
// review. Parking instead of dropping keeps the failure visible; parking
// instead of retrying keeps a poisoned event from looping forever.
type ParkedEvent struct {
	ID        uuid.UUID           `json:"id"`
	Reference string              `json:"reference"`
	VendorID  uuid.UUID           `json:"vendor_id"`
	Kind      SettlementEventKind `json:"kind"`
	Amount    decimal.Decimal     `json:"amount"`
	Reason    string              `json:"reason"`
	ParkedAt  time.Time           `json:"parked_at"`
}
