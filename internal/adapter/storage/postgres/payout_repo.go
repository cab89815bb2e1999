package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vendor-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PayoutRepo implements ports.PayoutRepository. The one-open-request rule is
// enforced by a partial unique index on vendor_id over non-terminal statuses,
// so concurrent requests race safely at the database.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

const payoutColumns = `id, vendor_id, amount, status, reason, requested_at, decided_at, decided_by`

// Create inserts a payout request. Returns domain.ErrOpenPayoutExists when
// the vendor already holds an open request.
func (r *PayoutRepo) Create(ctx context.Context, p *domain.PayoutRequest) error {
	query := `INSERT INTO payout_requests (` + payoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.VendorID, p.Amount, p.Status, p.Reason,
		p.RequestedAt, p.DecidedAt, p.DecidedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrOpenPayoutExists
		}
		return fmt.Errorf("insert payout request: %w", err)
	}
	return nil
}

// GetByID fetches a payout request by UUID.
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	return scanPayout(r.pool.QueryRow(ctx, query, id))
}

// GetOpenByVendor fetches the vendor's open (non-terminal) request, if any.
func (r *PayoutRepo) GetOpenByVendor(ctx context.Context, vendorID uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests
		WHERE vendor_id = $1 AND status NOT IN ('COMPLETED', 'REJECTED')`
	return scanPayout(r.pool.QueryRow(ctx, query, vendorID))
}

// UpdateStatus moves a request to the given status, stamping the decision.
func (r *PayoutRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PayoutStatus, decidedBy *uuid.UUID, reason *string) error {
	var decidedAt *time.Time
	if status != domain.PayoutStatusRequested && status != domain.PayoutStatusReserved {
		now := time.Now().UTC()
		decidedAt = &now
	}

	query := `UPDATE payout_requests SET status = $1, decided_at = $2, decided_by = $3, reason = COALESCE($4, reason)
		WHERE id = $5`

	tag, err := r.pool.Exec(ctx, query, status, decidedAt, decidedBy, reason, id)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout request not found: %s", id)
	}
	return nil
}

// ListByVendor fetches a vendor's payout history, newest first.
func (r *PayoutRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, page, pageSize int) ([]domain.PayoutRequest, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM payout_requests WHERE vendor_id = $1`, vendorID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payout requests: %w", err)
	}

	query := `SELECT ` + payoutColumns + ` FROM payout_requests
		WHERE vendor_id = $1 ORDER BY requested_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, vendorID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list payout requests: %w", err)
	}
	defer rows.Close()

	requests, err := collectPayouts(rows)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// ListByStatus fetches requests in a given status, oldest first so admins
// work the queue in arrival order.
func (r *PayoutRepo) ListByStatus(ctx context.Context, status domain.PayoutStatus, page, pageSize int) ([]domain.PayoutRequest, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM payout_requests WHERE status = $1`, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payout requests: %w", err)
	}

	query := `SELECT ` + payoutColumns + ` FROM payout_requests
		WHERE status = $1 ORDER BY requested_at ASC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list payout requests by status: %w", err)
	}
	defer rows.Close()

	requests, err := collectPayouts(rows)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func scanPayout(row pgx.Row) (*domain.PayoutRequest, error) {
	p := &domain.PayoutRequest{}
	err := row.Scan(&p.ID, &p.VendorID, &p.Amount, &p.Status, &p.Reason,
		&p.RequestedAt, &p.DecidedAt, &p.DecidedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payout request: %w", err)
	}
	return p, nil
}

func collectPayouts(rows pgx.Rows) ([]domain.PayoutRequest, error) {
	var requests []domain.PayoutRequest
	for rows.Next() {
		p := domain.PayoutRequest{}
		err := rows.Scan(&p.ID, &p.VendorID, &p.Amount, &p.Status, &p.Reason,
			&p.RequestedAt, &p.DecidedAt, &p.DecidedBy)
		if err != nil {
			return nil, fmt.Errorf("scan payout request row: %w", err)
		}
		requests = append(requests, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payout requests: %w", err)
	}
	return requests, nil
}
