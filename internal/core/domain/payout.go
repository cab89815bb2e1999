package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrOpenPayoutExists is returned by the payout repository when a vendor
// already has a request in a non-terminal state. The workflow maps it to
// RequestAlreadyPending.
var ErrOpenPayoutExists = errors.New("open payout request exists")

// PayoutStatus is the lifecycle state of a withdrawal request.
type PayoutStatus string

const (
	PayoutStatusRequested PayoutStatus = "REQUESTED"
	PayoutStatusReserved  PayoutStatus = "RESERVED"
	PayoutStatusApproved  PayoutStatus = "APPROVED"
	PayoutStatusCompleted PayoutStatus = "COMPLETED"
	PayoutStatusRejected  PayoutStatus = "REJECTED"
)

// PayoutRequest is a vendor-initiated withdrawal moving through
// requested -> reserved -> {approved -> completed | rejected}.
type PayoutRequest struct {
	ID          uuid.UUID       `json:"id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      PayoutStatus    `json:"status"`
	Reason      *string         `json:"reason,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	DecidedBy   *uuid.UUID      `json:"decided_by,omitempty"`
}

// IsTerminal returns true once the request reached a final state.
func (p *PayoutRequest) IsTerminal() bool {
	return p.Status == PayoutStatusCompleted || p.Status == PayoutStatusRejected
}

// IsOpen returns true while the request still ties up (or may tie up) funds.
// At most one open request per vendor is permitted.
func (p *PayoutRequest) IsOpen() bool {
	return !p.IsTerminal()
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (p *PayoutRequest) CanTransitionTo(next PayoutStatus) bool {
	switch p.Status {
	case PayoutStatusRequested:
		return next == PayoutStatusReserved || next == PayoutStatusRejected
	case PayoutStatusReserved:
		return next == PayoutStatusApproved || next == PayoutStatusRejected
	case PayoutStatusApproved:
		return next == PayoutStatusCompleted || next == PayoutStatusRejected
	default:
		return false
	}
}
