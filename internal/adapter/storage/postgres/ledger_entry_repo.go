package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vendor-ledger/internal/core/domain"
	"vendor-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerEntryRepo implements ports.LedgerEntryRepository. The table is
// append-only: this type carries no UPDATE or DELETE statement.
type LedgerEntryRepo struct {
	pool Pool
}

// NewLedgerEntryRepo creates a new LedgerEntryRepo.
func NewLedgerEntryRepo(pool Pool) *LedgerEntryRepo {
	return &LedgerEntryRepo{pool: pool}
}

const entryColumns = `id, wallet_id, vendor_id, type, category, amount,
	available_after, pending_after, reserved_after,
	reference, bucket, matures_at, original_entry_id, created_at`

// Append inserts a ledger entry within a transaction block.
func (r *LedgerEntryRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	var bucket *string
	if e.Bucket != "" {
		s := string(e.Bucket)
		bucket = &s
	}

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, e.VendorID, e.Type, e.Category, e.Amount,
		e.AvailableAfter, e.PendingAfter, e.ReservedAfter,
		e.Reference, bucket, e.MaturesAt, e.OriginalEntryID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches an entry by UUID.
func (r *LedgerEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`
	return scanEntry(r.pool.QueryRow(ctx, query, id))
}

// GetSaleCredit finds the credit entry produced for a settlement reference.
func (r *LedgerEntryRepo) GetSaleCredit(ctx context.Context, vendorID uuid.UUID, reference string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE vendor_id = $1 AND reference = $2 AND type = 'CREDIT' AND category = 'SALE'`
	return scanEntry(r.pool.QueryRow(ctx, query, vendorID, reference))
}

// ExistsByReference checks whether an entry of the given shape was already
// appended for a reference.
func (r *LedgerEntryRepo) ExistsByReference(ctx context.Context, vendorID uuid.UUID, entryType domain.EntryType, category domain.EntryCategory, reference string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ledger_entries
		WHERE vendor_id = $1 AND type = $2 AND category = $3 AND reference = $4)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, vendorID, entryType, category, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("check entry exists: %w", err)
	}
	return exists, nil
}

// ReleaseExists reports whether a RELEASE entry referencing the sale credit
// exists, i.e. whether the credit has already matured.
func (r *LedgerEntryRepo) ReleaseExists(ctx context.Context, originalEntryID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ledger_entries
		WHERE original_entry_id = $1 AND type = 'RELEASE')`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, originalEntryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check release exists: %w", err)
	}
	return exists, nil
}

// RefundedFromPending sums refund debits taken out of pending against the
// given sale credit.
func (r *LedgerEntryRepo) RefundedFromPending(ctx context.Context, originalEntryID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE original_entry_id = $1 AND type = 'DEBIT' AND category = 'REFUND' AND bucket = 'PENDING'`

	var refunded decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, originalEntryID).Scan(&refunded); err != nil {
		return decimal.Zero, fmt.Errorf("sum pending refunds: %w", err)
	}
	return refunded, nil
}

// List fetches entries with filtering and pagination, newest first.
func (r *LedgerEntryRepo) List(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("vendor_id = $%d", argIdx))
	args = append(args, params.VendorID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, *params.Category)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT `+entryColumns+` FROM ledger_entries %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListMaturable returns pending sale credits whose holding window elapsed at
// asOf and that no release entry references yet. Credits whose pending money
// was fully refunded carry nothing left to release and are skipped. Oldest
// first so the sweep drains the backlog in arrival order.
func (r *LedgerEntryRepo) ListMaturable(ctx context.Context, asOf time.Time, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries e
		WHERE e.type = 'CREDIT' AND e.category = 'SALE'
		  AND e.matures_at IS NOT NULL AND e.matures_at <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM ledger_entries r
			WHERE r.original_entry_id = e.id AND r.type = 'RELEASE'
		  )
		  AND e.amount > COALESCE((
			SELECT SUM(rf.amount) FROM ledger_entries rf
			WHERE rf.original_entry_id = e.id
			  AND rf.type = 'DEBIT' AND rf.category = 'REFUND' AND rf.bucket = 'PENDING'
		  ), 0)
		ORDER BY e.created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list maturable entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	var bucket *string
	err := row.Scan(
		&e.ID, &e.WalletID, &e.VendorID, &e.Type, &e.Category, &e.Amount,
		&e.AvailableAfter, &e.PendingAfter, &e.ReservedAfter,
		&e.Reference, &bucket, &e.MaturesAt, &e.OriginalEntryID, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	if bucket != nil {
		e.Bucket = domain.Bucket(*bucket)
	}
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		var bucket *string
		err := rows.Scan(
			&e.ID, &e.WalletID, &e.VendorID, &e.Type, &e.Category, &e.Amount,
			&e.AvailableAfter, &e.PendingAfter, &e.ReservedAfter,
			&e.Reference, &bucket, &e.MaturesAt, &e.OriginalEntryID, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry row: %w", err)
		}
		if bucket != nil {
			e.Bucket = domain.Bucket(*bucket)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
