package postgres

import (
	"context"
	"testing"
	"time"

	"vendor-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayout(vendorID uuid.UUID) *domain.PayoutRequest {
	return &domain.PayoutRequest{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Amount:      decimal.RequireFromString("150"),
		Status:      domain.PayoutStatusRequested,
		RequestedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func payoutColumnNames() []string {
	return []string{"id", "vendor_id", "amount", "status", "reason",
		"requested_at", "decided_at", "decided_by"}
}

func payoutRow(p *domain.PayoutRequest) *pgxmock.Rows {
	return pgxmock.NewRows(payoutColumnNames()).AddRow(
		p.ID, p.VendorID, p.Amount, p.Status, p.Reason,
		p.RequestedAt, p.DecidedAt, p.DecidedBy,
	)
}

func TestPayoutRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	p := newTestPayout(uuid.New())

	mock.ExpectExec("INSERT INTO payout_requests").
		WithArgs(p.ID, p.VendorID, p.Amount, p.Status, p.Reason,
			p.RequestedAt, p.DecidedAt, p.DecidedBy).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_Create_OpenRequestExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	p := newTestPayout(uuid.New())

	mock.ExpectExec("INSERT INTO payout_requests").
		WithArgs(p.ID, p.VendorID, p.Amount, p.Status, p.Reason,
			p.RequestedAt, p.DecidedAt, p.DecidedBy).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payout_requests_vendor_open_idx"})

	err = repo.Create(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrOpenPayoutExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_GetOpenByVendor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	p := newTestPayout(uuid.New())
	p.Status = domain.PayoutStatusReserved

	mock.ExpectQuery("SELECT .+ FROM payout_requests").
		WithArgs(p.VendorID).
		WillReturnRows(payoutRow(p))

	result, err := repo.GetOpenByVendor(context.Background(), p.VendorID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.PayoutStatusReserved, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_GetOpenByVendor_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	vendorID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM payout_requests").
		WithArgs(vendorID).
		WillReturnRows(pgxmock.NewRows(payoutColumnNames()))

	result, err := repo.GetOpenByVendor(context.Background(), vendorID)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	id := uuid.New()
	adminID := uuid.New()
	reason := "verified against bank statement"

	mock.ExpectExec("UPDATE payout_requests SET status").
		WithArgs(domain.PayoutStatusCompleted, pgxmock.AnyArg(), &adminID, &reason, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateStatus(context.Background(), id, domain.PayoutStatusCompleted, &adminID, &reason)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE payout_requests SET status").
		WithArgs(domain.PayoutStatusRejected, pgxmock.AnyArg(), (*uuid.UUID)(nil), (*string)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), id, domain.PayoutStatusRejected, nil, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "payout request not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_ListByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	p := newTestPayout(uuid.New())
	p.Status = domain.PayoutStatusReserved

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM payout_requests").
		WithArgs(domain.PayoutStatusReserved).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	mock.ExpectQuery("SELECT .+ FROM payout_requests .+ ORDER BY requested_at ASC").
		WithArgs(domain.PayoutStatusReserved, 20, 0).
		WillReturnRows(payoutRow(p))

	requests, total, err := repo.ListByStatus(context.Background(), domain.PayoutStatusReserved, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, requests, 1)
	assert.Equal(t, p.ID, requests[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
