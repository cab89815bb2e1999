package service

import (
	"context"
	"testing"
	"time"

	"vendor-ledger/internal/core/domain"
	"vendor-ledger/internal/core/ports/mocks"
	"vendor-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type consumerTestDeps struct {
	consumer   *SettlementConsumerImpl
	engine     *mocks.MockBalanceEngine
	entryRepo  *mocks.MockLedgerEntryRepository
	parkedRepo *mocks.MockParkedEventRepository
	dedupCache *mocks.MockEventDedupCache
	commission *mocks.MockCommissionResolver
	ctrl       *gomock.Controller
}

func setupConsumer(t *testing.T) *consumerTestDeps {
	ctrl := gomock.NewController(t)
	d := &consumerTestDeps{
		engine:     mocks.NewMockBalanceEngine(ctrl),
		entryRepo:  mocks.NewMockLedgerEntryRepository(ctrl),
		parkedRepo: mocks.NewMockParkedEventRepository(ctrl),
		dedupCache: mocks.NewMockEventDedupCache(ctrl),
		commission: mocks.NewMockCommissionResolver(ctrl),
		ctrl:       ctrl,
	}
	d.consumer = NewSettlementConsumer(
		d.engine, d.entryRepo, d.parkedRepo, d.dedupCache, d.commission,
		24*time.Hour, zerolog.Nop(),
	)
	return d
}

func fulfilledEvent(vendorID uuid.UUID, reference string) domain.SettlementEvent {
	return domain.SettlementEvent{
		Reference:      reference,
		VendorID:       vendorID,
		GrossAmount:    dec("1000"),
		CommissionRate: dec("0.1"),
		Kind:           domain.EventFulfilled,
		OccurredAt:     time.Now().UTC(),
	}
}

func TestSettlementConsumer_Fulfilled_CreditsSale(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-100")

	d.dedupCache.EXPECT().Seen(ctx, "FULFILLED:order-100").Return(false, nil)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeCredit, domain.CategorySale, "order-100").Return(false, nil)
	d.engine.EXPECT().CreditSale(ctx, vendorID, dec("1000"), dec("0.1"), "order-100").Return(&domain.Wallet{}, nil)
	d.dedupCache.EXPECT().Mark(ctx, "FULFILLED:order-100", 24*time.Hour).Return(nil)

	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err)
}

func TestSettlementConsumer_Fulfilled_ResolvesMissingRate(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-101")
	event.CommissionRate = dec("0")

	d.dedupCache.EXPECT().Seen(ctx, "FULFILLED:order-101").Return(false, nil)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeCredit, domain.CategorySale, "order-101").Return(false, nil)
	d.commission.EXPECT().RateFor(ctx, vendorID).Return(dec("0.15"), nil)
	d.engine.EXPECT().CreditSale(ctx, vendorID, dec("1000"), dec("0.15"), "order-101").Return(&domain.Wallet{}, nil)
	d.dedupCache.EXPECT().Mark(ctx, "FULFILLED:order-101", 24*time.Hour).Return(nil)

	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err)
}

func TestSettlementConsumer_DuplicateInCache(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := fulfilledEvent(uuid.New(), "order-102")

	d.dedupCache.EXPECT().Seen(ctx, "FULFILLED:order-102").Return(true, nil)

	// No engine call, no park: duplicate is simply acknowledged.
	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err)
}

func TestSettlementConsumer_DuplicateInLedger(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-103")

	d.dedupCache.EXPECT().Seen(ctx, "FULFILLED:order-103").Return(false, nil)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeCredit, domain.CategorySale, "order-103").Return(true, nil)
	// Cold cache gets backfilled.
	d.dedupCache.EXPECT().Mark(ctx, "FULFILLED:order-103", 24*time.Hour).Return(nil)

	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err)
}

func TestSettlementConsumer_CacheFailureFallsThrough(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-104")

	d.dedupCache.EXPECT().Seen(ctx, "FULFILLED:order-104").Return(false, assert.AnError)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeCredit, domain.CategorySale, "order-104").Return(false, nil)
	d.engine.EXPECT().CreditSale(ctx, vendorID, dec("1000"), dec("0.1"), "order-104").Return(&domain.Wallet{}, nil)
	d.dedupCache.EXPECT().Mark(ctx, "FULFILLED:order-104", 24*time.Hour).Return(nil)

	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err)
}

func TestSettlementConsumer_InvalidEventParked(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event := fulfilledEvent(uuid.New(), "order-105")
	event.GrossAmount = dec("-10")

	d.parkedRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.ParkedEvent) error {
			assert.Equal(t, "order-105", p.Reference)
			assert.Contains(t, p.Reason, "gross amount")
			return nil
		})

	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err, "parked events are acknowledged")
}

func TestSettlementConsumer_Returned_RefundsNet(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-106")
	event.Kind = domain.EventReturned

	credit := &domain.LedgerEntry{
		ID:       uuid.New(),
		VendorID: vendorID,
		Type:     domain.EntryTypeCredit,
		Category: domain.CategorySale,
		Amount:   dec("900"),
	}

	d.dedupCache.EXPECT().Seen(ctx, "RETURNED:order-106").Return(false, nil)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeDebit, domain.CategoryRefund, "order-106").Return(false, nil)
	d.entryRepo.EXPECT().GetSaleCredit(ctx, vendorID, "order-106").Return(credit, nil)
	d.engine.EXPECT().Refund(ctx, vendorID, dec("900"), "order-106").Return(&domain.Wallet{}, nil)
	d.dedupCache.EXPECT().Mark(ctx, "RETURNED:order-106", 24*time.Hour).Return(nil)

	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err)
}

func TestSettlementConsumer_RefundWithoutCreditParked(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-107")
	event.Kind = domain.EventCancelled

	d.dedupCache.EXPECT().Seen(ctx, "CANCELLED:order-107").Return(false, nil)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeDebit, domain.CategoryRefund, "order-107").Return(false, nil)
	d.entryRepo.EXPECT().GetSaleCredit(ctx, vendorID, "order-107").Return(nil, nil)
	d.parkedRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.dedupCache.EXPECT().Mark(ctx, "CANCELLED:order-107", 24*time.Hour).Return(nil)

	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err)
}

func TestSettlementConsumer_EngineRejectionParked(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-108")
	event.Kind = domain.EventReturned

	credit := &domain.LedgerEntry{
		ID:       uuid.New(),
		VendorID: vendorID,
		Amount:   dec("900"),
	}

	d.dedupCache.EXPECT().Seen(ctx, "RETURNED:order-108").Return(false, nil)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeDebit, domain.CategoryRefund, "order-108").Return(false, nil)
	d.entryRepo.EXPECT().GetSaleCredit(ctx, vendorID, "order-108").Return(credit, nil)
	d.engine.EXPECT().Refund(ctx, vendorID, dec("900"), "order-108").Return(nil, apperror.ErrInsufficientFunds())
	d.parkedRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.dedupCache.EXPECT().Mark(ctx, "RETURNED:order-108", 24*time.Hour).Return(nil)

	err := d.consumer.Handle(ctx, event)
	assert.NoError(t, err)
}

func TestSettlementConsumer_RedeliveredParkedEventNotParkedTwice(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-110")
	event.Kind = domain.EventCancelled

	// First delivery: no sale credit, event parks and the key is marked.
	d.dedupCache.EXPECT().Seen(ctx, "CANCELLED:order-110").Return(false, nil)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeDebit, domain.CategoryRefund, "order-110").Return(false, nil)
	d.entryRepo.EXPECT().GetSaleCredit(ctx, vendorID, "order-110").Return(nil, nil)
	d.parkedRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.dedupCache.EXPECT().Mark(ctx, "CANCELLED:order-110", 24*time.Hour).Return(nil)
	require.NoError(t, d.consumer.Handle(ctx, event))

	// Redelivery hits the cache and stops: no second parked row.
	d.dedupCache.EXPECT().Seen(ctx, "CANCELLED:order-110").Return(true, nil)
	require.NoError(t, d.consumer.Handle(ctx, event))
}

func TestSettlementConsumer_InfrastructureErrorPropagates(t *testing.T) {
	d := setupConsumer(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	event := fulfilledEvent(vendorID, "order-109")

	d.dedupCache.EXPECT().Seen(ctx, "FULFILLED:order-109").Return(false, nil)
	d.entryRepo.EXPECT().ExistsByReference(ctx, vendorID, domain.EntryTypeCredit, domain.CategorySale, "order-109").Return(false, nil)
	d.engine.EXPECT().CreditSale(ctx, vendorID, dec("1000"), dec("0.1"), "order-109").
		Return(nil, apperror.ErrStorage(assert.AnError))

	err := d.consumer.Handle(ctx, event)
	require.Error(t, err)
	assertAppError(t, err, "SYS_001")
}
