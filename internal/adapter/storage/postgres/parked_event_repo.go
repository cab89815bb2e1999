package postgres

import (
	"context"
	"fmt"

	"vendor-ledger/internal/core/domain"
)

// ParkedEventRepo implements ports.ParkedEventRepository. Parked events are
// the manual-review queue for settlement signals the engine rejected.
type ParkedEventRepo struct {
	pool Pool
}

// NewParkedEventRepo creates a new ParkedEventRepo.
func NewParkedEventRepo(pool Pool) *ParkedEventRepo {
	return &ParkedEventRepo{pool: pool}
}

// Create stores a parked event.
func (r *ParkedEventRepo) Create(ctx context.Context, e *domain.ParkedEvent) error {
	query := `INSERT INTO parked_events (id, reference, vendor_id, kind, amount, reason, parked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.Reference, e.VendorID, e.Kind, e.Amount, e.Reason, e.ParkedAt,
	)
	if err != nil {
		return fmt.Errorf("insert parked event: %w", err)
	}
	return nil
}

// List fetches parked events, oldest first.
func (r *ParkedEventRepo) List(ctx context.Context, page, pageSize int) ([]domain.ParkedEvent, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM parked_events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count parked events: %w", err)
	}

	query := `SELECT id, reference, vendor_id, kind, amount, reason, parked_at
		FROM parked_events ORDER BY parked_at ASC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list parked events: %w", err)
	}
	defer rows.Close()

	var events []domain.ParkedEvent
	for rows.Next() {
		e := domain.ParkedEvent{}
		if err := rows.Scan(&e.ID, &e.Reference, &e.VendorID, &e.Kind, &e.Amount, &e.Reason, &e.ParkedAt); err != nil {
			return nil, 0, fmt.Errorf("scan parked event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate parked events: %w", err)
	}
	return events, total, nil
}
