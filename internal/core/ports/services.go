package ports

import (
	"context"
	"time"

	"vendor-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceEngine is the only authority for legal balance transitions. Every
// operation is a single atomic unit against the ledger store and leaves the
// ledger identity invariant holding.
type BalanceEngine interface {
	// CreditSale recognizes a fulfilled sub-order: net = gross - gross*rate
	// lands in pending, the commission is recorded and discarded.
	CreditSale(ctx context.Context, vendorID uuid.UUID, gross, rate decimal.Decimal, reference string) (*domain.Wallet, error)
	// MatureHold moves a matured sale credit from pending to available.
	MatureHold(ctx context.Context, vendorID uuid.UUID, entryID uuid.UUID) (*domain.Wallet, error)
	// ReserveForPayout locks amount from available into reserved.
	ReserveForPayout(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Wallet, error)
	// CompletePayout removes amount from reserved and counts it as withdrawn.
	CompletePayout(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Wallet, error)
	// ReleaseReservation is the inverse of ReserveForPayout.
	ReleaseReservation(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Wallet, error)
	// Refund debits a previously credited amount from the bucket holding it.
	Refund(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Wallet, error)
}

// SettlementConsumer adapts order lifecycle signals into engine calls.
type SettlementConsumer interface {
	Handle(ctx context.Context, event domain.SettlementEvent) error
}

// PayoutService orchestrates the withdrawal request lifecycle.
type PayoutService interface {
	Request(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (*domain.PayoutRequest, error)
	Approve(ctx context.Context, requestID, adminID uuid.UUID) (*domain.PayoutRequest, error)
	Reject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (*domain.PayoutRequest, error)
	ListPending(ctx context.Context, page, pageSize int) ([]domain.PayoutRequest, int64, error)
	History(ctx context.Context, vendorID uuid.UUID, page, pageSize int) ([]domain.PayoutRequest, int64, error)
}

// ReportingService serves the read-only vendor and admin surfaces.
type ReportingService interface {
	WalletSummary(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error)
	ListEntries(ctx context.Context, params EntryListParams) ([]domain.LedgerEntry, int64, error)
	ListParkedEvents(ctx context.Context, page, pageSize int) ([]domain.ParkedEvent, int64, error)
	// ReplayCheck replays the vendor's full entry log from zero and compares
	// the result against the stored snapshot.
	ReplayCheck(ctx context.Context, vendorID uuid.UUID) (*ReplayReport, error)
}

// ReplayReport is the outcome of an audit replay.
type ReplayReport struct {
	VendorID   uuid.UUID      `json:"vendor_id"`
	EntryCount int            `json:"entry_count"`
	Consistent bool           `json:"consistent"`
	Snapshot   *domain.Wallet `json:"snapshot"`
}

// MoneyMover is the external money-movement collaborator (bank transfer,
// wallet provider). Failure triggers the compensating release path.
type MoneyMover interface {
	Transfer(ctx context.Context, req TransferRequest) error
}

// TransferRequest describes a disbursement order.
type TransferRequest struct {
	PayoutID uuid.UUID
	VendorID uuid.UUID
	Amount   decimal.Decimal
}

// CommissionResolver supplies the commission rate for a vendor when the
// settlement event does not carry one.
type CommissionResolver interface {
	RateFor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
}

// EventDedupCache is the Redis-layer duplicate check for settlement events
// (fast path; the ledger existence check is the durable layer).
type EventDedupCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention on the
// settlement ingress.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// SignatureService handles HMAC-SHA256 signing and verification for the
// settlement ingress and outbound disbursement orders.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// TokenService handles JWT token operations for the vendor and admin
// surfaces.
type TokenService interface {
	Generate(subjectID uuid.UUID, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	SubjectID uuid.UUID
	Role      string // "vendor" or "admin"
}
