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
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettlementConsumerImpl implements ports.SettlementConsumer. It adapts order
// lifecycle signals into balance-engine calls with two idempotency layers:
// the Redis dedup cache as the fast path and the ledger existence check as
// the durable one.
type SettlementConsumerImpl struct {
	engine     ports.BalanceEngine
	entryRepo  ports.LedgerEntryRepository
	parkedRepo ports.ParkedEventRepository
	dedupCache ports.EventDedupCache
	commission ports.CommissionResolver
	dedupTTL   time.Duration
	log        zerolog.Logger
}

// NewSettlementConsumer creates a new SettlementConsumerImpl.
func NewSettlementConsumer(
	engine ports.BalanceEngine,
	entryRepo ports.LedgerEntryRepository,
	parkedRepo ports.ParkedEventRepository,
	dedupCache ports.EventDedupCache,
	commission ports.CommissionResolver,
	dedupTTL time.Duration,
	log zerolog.Logger,
) *SettlementConsumerImpl {
	return &SettlementConsumerImpl{
		engine:     engine,
		entryRepo:  entryRepo,
		parkedRepo: parkedRepo,
		dedupCache: dedupCache,
		commission: commission,
		dedupTTL:   dedupTTL,
		log:        log,
	}
}

// Handle processes one settlement event. A duplicate is acknowledged without
// moving money; an event the engine rejects is parked for manual review and
// acknowledged so it cannot poison the stream.
func (s *SettlementConsumerImpl) Handle(ctx context.Context, event domain.SettlementEvent) error {
	if err := s.validate(event); err != nil {
		return s.park(ctx, event, err.Error())
	}

	dedupKey := event.DedupKey()

	// Layer 1: Redis dedup check (best-effort)
	seen, err := s.dedupCache.Seen(ctx, dedupKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", dedupKey).Msg("redis dedup check failed, falling through to ledger")
	}
	if seen {
		s.log.Debug().Str("key", dedupKey).Msg("duplicate settlement event, cached")
		return nil
	}

	// Layer 2: durable ledger existence check
	duplicate, err := s.alreadyApplied(ctx, event)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("settlement dedup check: %w", err))
	}
	if duplicate {
		s.markSeen(ctx, dedupKey)
		s.log.Debug().Str("key", dedupKey).Msg("duplicate settlement event, already in ledger")
		return nil
	}

	switch event.Kind {
	case domain.EventFulfilled:
		err = s.creditSale(ctx, event)
	case domain.EventCancelled, domain.EventReturned:
		err = s.refund(ctx, event)
	default:
		if perr := s.park(ctx, event, fmt.Sprintf("unknown event kind: %s", event.Kind)); perr != nil {
			return perr
		}
		s.markSeen(ctx, dedupKey)
		return nil
	}
	if err != nil {
		// Engine-level rejections (bad amounts, shortfalls, missing wallet)
		// park the event; infrastructure errors propagate so the transport
		// can signal retry.
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
			if perr := s.park(ctx, event, appErr.Message); perr != nil {
				return perr
			}
			// Redelivery of a parked event must not create a second row for
			// manual review.
			s.markSeen(ctx, dedupKey)
			return nil
		}
		return err
	}

	s.markSeen(ctx, dedupKey)
	return nil
}

func (s *SettlementConsumerImpl) validate(event domain.SettlementEvent) error {
	if event.Reference == "" {
		return fmt.Errorf("missing sub-order reference")
	}
	if event.VendorID == uuid.Nil {
		return fmt.Errorf("missing vendor id")
	}
	if !event.GrossAmount.IsPositive() {
		return fmt.Errorf("non-positive gross amount")
	}
	return nil
}

// alreadyApplied checks the ledger for the entry this event would produce.
func (s *SettlementConsumerImpl) alreadyApplied(ctx context.Context, event domain.SettlementEvent) (bool, error) {
	switch event.Kind {
	case domain.EventFulfilled:
		return s.entryRepo.ExistsByReference(ctx, event.VendorID, domain.EntryTypeCredit, domain.CategorySale, event.Reference)
	case domain.EventCancelled, domain.EventReturned:
		return s.entryRepo.ExistsByReference(ctx, event.VendorID, domain.EntryTypeDebit, domain.CategoryRefund, event.Reference)
	}
	return false, nil
}

func (s *SettlementConsumerImpl) creditSale(ctx context.Context, event domain.SettlementEvent) error {
	rate := event.CommissionRate
	if rate.IsZero() {
		resolved, err := s.commission.RateFor(ctx, event.VendorID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("resolve commission rate: %w", err))
		}
		rate = resolved
	}

	_, err := s.engine.CreditSale(ctx, event.VendorID, event.GrossAmount, rate, event.Reference)
	return err
}

// refund debits the net that the fulfillment credit produced. An event for a
// reference that never credited parks instead.
func (s *SettlementConsumerImpl) refund(ctx context.Context, event domain.SettlementEvent) error {
	credit, err := s.entryRepo.GetSaleCredit(ctx, event.VendorID, event.Reference)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find sale credit: %w", err))
	}
	if credit == nil {
		return apperror.Validation("no sale credit found for reference")
	}

	_, err = s.engine.Refund(ctx, event.VendorID, credit.Amount, event.Reference)
	return err
}

// park stores the event for manual review and acknowledges it.
func (s *SettlementConsumerImpl) park(ctx context.Context, event domain.SettlementEvent, reason string) error {
	parked := &domain.ParkedEvent{
		ID:        uuid.New(),
		Reference: event.Reference,
		VendorID:  event.VendorID,
		Kind:      event.Kind,
		Amount:    event.GrossAmount,
		Reason:    reason,
		ParkedAt:  time.Now().UTC(),
	}
	if err := s.parkedRepo.Create(ctx, parked); err != nil {
		return apperror.InternalError(fmt.Errorf("park settlement event: %w", err))
	}

	s.log.Warn().
		Str("reference", event.Reference).
		Str("kind", string(event.Kind)).
		Str("reason", reason).
		Msg("settlement event parked")
	return nil
}

func (s *SettlementConsumerImpl) markSeen(ctx context.Context, key string) {
	if err := s.dedupCache.Mark(ctx, key, s.dedupTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to mark settlement event in dedup cache")
	}
}

// StaticCommissionResolver implements ports.CommissionResolver with a single
// platform-wide rate.
type StaticCommissionResolver struct {
	rate decimal.Decimal
}

// NewStaticCommissionResolver creates a resolver returning a fixed rate.
func NewStaticCommissionResolver(rate decimal.Decimal) *StaticCommissionResolver {
	return &StaticCommissionResolver{rate: rate}
}

// RateFor returns the configured platform rate for any vendor.
func (r *StaticCommissionResolver) RateFor(_ context.Context, _ uuid.UUID) (decimal.Decimal, error) {
	return r.rate, nil
}
