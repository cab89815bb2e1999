package postgres

import (
	"context"
	"errors"
	"fmt"

	"vendor-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, vendor_id, available, pending, reserved,
	total_earned, total_commission, total_withdrawn, total_refunded,
	flagged, version, created_at, updated_at`

// Create inserts a zeroed wallet within a transaction block. A concurrent
// first-settlement race surfaces as a unique violation on vendor_id, which
// the engine folds into its retry loop.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.VendorID, w.Available, w.Pending, w.Reserved,
		w.TotalEarned, w.TotalCommission, w.TotalWithdrawn, w.TotalRefunded,
		w.Flagged, w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByVendorID fetches a wallet snapshot (non-transactional read).
func (r *WalletRepo) GetByVendorID(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE vendor_id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, vendorID))
}

// GetByVendorIDTx fetches a wallet snapshot inside a transaction block.
func (r *WalletRepo) GetByVendorIDTx(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE vendor_id = $1`
	return scanWallet(tx.QueryRow(ctx, query, vendorID))
}

// UpdateSnapshot persists the mutated balances guarded by the version the
// caller read. Zero rows affected means another writer got there first.
func (r *WalletRepo) UpdateSnapshot(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) error {
	query := `UPDATE wallets SET
		available = $1, pending = $2, reserved = $3,
		total_earned = $4, total_commission = $5, total_withdrawn = $6, total_refunded = $7,
		flagged = $8, version = version + 1, updated_at = NOW()
		WHERE id = $9 AND version = $10`

	tag, err := tx.Exec(ctx, query,
		w.Available, w.Pending, w.Reserved,
		w.TotalEarned, w.TotalCommission, w.TotalWithdrawn, w.TotalRefunded,
		w.Flagged, w.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update wallet snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// SetFlagged marks or clears the manual-reconciliation flag.
func (r *WalletRepo) SetFlagged(ctx context.Context, vendorID uuid.UUID, flagged bool) error {
	query := `UPDATE wallets SET flagged = $1, updated_at = NOW() WHERE vendor_id = $2`

	tag, err := r.pool.Exec(ctx, query, flagged, vendorID)
	if err != nil {
		return fmt.Errorf("set wallet flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found for vendor: %s", vendorID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.VendorID, &w.Available, &w.Pending, &w.Reserved,
		&w.TotalEarned, &w.TotalCommission, &w.TotalWithdrawn, &w.TotalRefunded,
		&w.Flagged, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
