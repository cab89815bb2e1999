package service

import (
	"context"
	"errors"
	"time"

	"vendor-ledger/internal/core/ports"
	"vendor-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// MaturationJob periodically releases pending sale credits whose holding
// period has elapsed. The sweep is idempotent: a credit already released
// (by a previous run or a concurrent instance) is skipped, so overlapping
// runs never double-release.
type MaturationJob struct {
	engine    ports.BalanceEngine
	entryRepo ports.LedgerEntryRepository
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

// NewMaturationJob creates a new MaturationJob.
func NewMaturationJob(
	engine ports.BalanceEngine,
	entryRepo ports.LedgerEntryRepository,
	interval time.Duration,
	batchSize int,
	log zerolog.Logger,
) *MaturationJob {
	return &MaturationJob{
		engine:    engine,
		entryRepo: entryRepo,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Run blocks, sweeping on every tick until the context is cancelled.
func (j *MaturationJob) Run(ctx context.Context) {
	j.log.Info().
		Dur("interval", j.interval).
		Int("batch_size", j.batchSize).
		Msg("maturation job started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("maturation job stopped")
			return
		case <-ticker.C:
			matured, failed := j.Sweep(ctx)
			if matured > 0 || failed > 0 {
				j.log.Info().Int("matured", matured).Int("failed", failed).Msg("maturation sweep finished")
			}
		}
	}
}

// Sweep runs one pass: list maturable credits and release each. A failure on
// one entry does not stop the rest; the entry is retried on the next tick.
func (j *MaturationJob) Sweep(ctx context.Context) (matured, failed int) {
	entries, err := j.entryRepo.ListMaturable(ctx, time.Now().UTC(), j.batchSize)
	if err != nil {
		j.log.Error().Err(err).Msg("maturation sweep: listing maturable entries failed")
		return 0, 0
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return matured, failed
		}
		_, err := j.engine.MatureHold(ctx, entry.VendorID, entry.ID)
		switch {
		case err == nil:
			matured++
		case isAlreadyMatured(err):
			// Another run got there first. Nothing to do.
		default:
			failed++
			j.log.Error().Err(err).
				Str("entry_id", entry.ID.String()).
				Str("vendor_id", entry.VendorID.String()).
				Msg("maturation sweep: release failed")
		}
	}
	return matured, failed
}

func isAlreadyMatured(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == "LED_005"
}
