package postgres

import (
	"context"
	"testing"
	"time"

	"vendor-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(vendorID uuid.UUID) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:              uuid.New(),
		VendorID:        vendorID,
		Available:       decimal.RequireFromString("400"),
		Pending:         decimal.RequireFromString("900"),
		Reserved:        decimal.Zero,
		TotalEarned:     decimal.RequireFromString("1500"),
		TotalCommission: decimal.RequireFromString("200"),
		TotalWithdrawn:  decimal.Zero,
		TotalRefunded:   decimal.Zero,
		Version:         3,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func walletColumnNames() []string {
	return []string{"id", "vendor_id", "available", "pending", "reserved",
		"total_earned", "total_commission", "total_withdrawn", "total_refunded",
		"flagged", "version", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumnNames()).AddRow(
		w.ID, w.VendorID, w.Available, w.Pending, w.Reserved,
		w.TotalEarned, w.TotalCommission, w.TotalWithdrawn, w.TotalRefunded,
		w.Flagged, w.Version, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.VendorID, w.Available, w.Pending, w.Reserved,
			w.TotalEarned, w.TotalCommission, w.TotalWithdrawn, w.TotalRefunded,
			w.Flagged, w.Version, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByVendorID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE vendor_id").
		WithArgs(w.VendorID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByVendorID(context.Background(), w.VendorID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.True(t, w.Pending.Equal(result.Pending))
	assert.Equal(t, int64(3), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByVendorID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	vendorID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE vendor_id").
		WithArgs(vendorID).
		WillReturnRows(pgxmock.NewRows(walletColumnNames()))

	result, err := repo.GetByVendorID(context.Background(), vendorID)
	require.NoError(t, err)
	assert.Nil(t, result, "missing wallet is nil, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET").
		WithArgs(w.Available, w.Pending, w.Reserved,
			w.TotalEarned, w.TotalCommission, w.TotalWithdrawn, w.TotalRefunded,
			w.Flagged, w.ID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateSnapshot(context.Background(), tx, w, 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateSnapshot_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET").
		WithArgs(w.Available, w.Pending, w.Reserved,
			w.TotalEarned, w.TotalCommission, w.TotalWithdrawn, w.TotalRefunded,
			w.Flagged, w.ID, int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateSnapshot(context.Background(), tx, w, 2)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_SetFlagged(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	vendorID := uuid.New()

	mock.ExpectExec("UPDATE wallets SET flagged").
		WithArgs(true, vendorID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.SetFlagged(context.Background(), vendorID, true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
