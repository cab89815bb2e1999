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

// PayoutServiceImpl implements ports.PayoutService: the
// requested -> reserved -> {approved -> completed | rejected} lifecycle.
// The request row is the claim: its partial unique index decides racing
// requests, and only the winner touches the wallet.
type PayoutServiceImpl struct {
	payoutRepo ports.PayoutRepository
	engine     ports.BalanceEngine
	mover      ports.MoneyMover
	minimum    decimal.Decimal
	log        zerolog.Logger
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(
	payoutRepo ports.PayoutRepository,
	engine ports.BalanceEngine,
	mover ports.MoneyMover,
	minimum decimal.Decimal,
	log zerolog.Logger,
) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		payoutRepo: payoutRepo,
		engine:     engine,
		mover:      mover,
		minimum:    minimum,
		log:        log,
	}
}

// Request creates a payout request and reserves its amount. The claim row is
// created first; if the reservation then fails, the request is rejected in
// place so the vendor's single open slot frees immediately.
func (s *PayoutServiceImpl) Request(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (*domain.PayoutRequest, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if amount.LessThan(s.minimum) {
		return nil, apperror.ErrBelowMinimum()
	}

	req := &domain.PayoutRequest{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Amount:      amount,
		Status:      domain.PayoutStatusRequested,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.payoutRepo.Create(ctx, req); err != nil {
		if errors.Is(err, domain.ErrOpenPayoutExists) {
			return nil, apperror.ErrRequestAlreadyPending()
		}
		return nil, apperror.InternalError(fmt.Errorf("create payout request: %w", err))
	}

	if _, err := s.engine.ReserveForPayout(ctx, vendorID, amount, req.ID.String()); err != nil {
		reason := "reservation failed"
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			reason = appErr.Message
		}
		if updErr := s.payoutRepo.UpdateStatus(ctx, req.ID, domain.PayoutStatusRejected, nil, &reason); updErr != nil {
			s.log.Error().Err(updErr).Str("payout_id", req.ID.String()).Msg("failed to reject payout after reservation failure")
		}
		return nil, err
	}

	if err := s.payoutRepo.UpdateStatus(ctx, req.ID, domain.PayoutStatusReserved, nil, nil); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark payout reserved: %w", err))
	}
	req.Status = domain.PayoutStatusReserved

	s.log.Info().
		Str("payout_id", req.ID.String()).
		Str("vendor_id", vendorID.String()).
		Str("amount", amount.String()).
		Msg("payout requested and reserved")
	return req, nil
}

// Approve moves a reserved request through the money mover. On transfer
// success the reservation is consumed and counted as withdrawn; on failure
// the reservation is released and the request rejected.
func (s *PayoutServiceImpl) Approve(ctx context.Context, requestID, adminID uuid.UUID) (*domain.PayoutRequest, error) {
	req, err := s.payoutRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payout request: %w", err))
	}
	if req == nil {
		return nil, apperror.ErrNotFound("payout request")
	}
	if !req.CanTransitionTo(domain.PayoutStatusApproved) {
		return nil, apperror.ErrInvalidPayoutState()
	}

	if err := s.payoutRepo.UpdateStatus(ctx, req.ID, domain.PayoutStatusApproved, &adminID, nil); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark payout approved: %w", err))
	}
	req.Status = domain.PayoutStatusApproved

	transferErr := s.mover.Transfer(ctx, ports.TransferRequest{
		PayoutID: req.ID,
		VendorID: req.VendorID,
		Amount:   req.Amount,
	})
	if transferErr != nil {
		return s.compensate(ctx, req, adminID, transferErr)
	}

	if _, err := s.engine.CompletePayout(ctx, req.VendorID, req.Amount, req.ID.String()); err != nil {
		return nil, err
	}
	if err := s.payoutRepo.UpdateStatus(ctx, req.ID, domain.PayoutStatusCompleted, &adminID, nil); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark payout completed: %w", err))
	}
	req.Status = domain.PayoutStatusCompleted

	s.log.Info().
		Str("payout_id", req.ID.String()).
		Str("vendor_id", req.VendorID.String()).
		Str("amount", req.Amount.String()).
		Msg("payout approved and completed")
	return req, nil
}

// compensate rolls an approved request back after a failed transfer: the
// reservation flows back to available and the request ends rejected.
func (s *PayoutServiceImpl) compensate(ctx context.Context, req *domain.PayoutRequest, adminID uuid.UUID, transferErr error) (*domain.PayoutRequest, error) {
	s.log.Warn().Err(transferErr).
		Str("payout_id", req.ID.String()).
		Msg("transfer failed, releasing reservation")

	if _, err := s.engine.ReleaseReservation(ctx, req.VendorID, req.Amount, req.ID.String()); err != nil {
		s.log.Error().Err(err).
			Str("payout_id", req.ID.String()).
			Msg("compensating release failed, reservation stuck")
		return nil, err
	}

	reason := fmt.Sprintf("transfer failed: %v", transferErr)
	if err := s.payoutRepo.UpdateStatus(ctx, req.ID, domain.PayoutStatusRejected, &adminID, &reason); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark payout rejected: %w", err))
	}
	req.Status = domain.PayoutStatusRejected
	req.Reason = &reason

	return nil, apperror.ErrTransferFailed(transferErr)
}

// Reject declines a request. A reserved request releases its funds back to
// available; a request that never reserved just closes.
func (s *PayoutServiceImpl) Reject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (*domain.PayoutRequest, error) {
	req, err := s.payoutRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payout request: %w", err))
	}
	if req == nil {
		return nil, apperror.ErrNotFound("payout request")
	}
	if !req.CanTransitionTo(domain.PayoutStatusRejected) {
		return nil, apperror.ErrInvalidPayoutState()
	}

	if req.Status == domain.PayoutStatusReserved || req.Status == domain.PayoutStatusApproved {
		if _, err := s.engine.ReleaseReservation(ctx, req.VendorID, req.Amount, req.ID.String()); err != nil {
			return nil, err
		}
	}

	if err := s.payoutRepo.UpdateStatus(ctx, req.ID, domain.PayoutStatusRejected, &adminID, &reason); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark payout rejected: %w", err))
	}
	req.Status = domain.PayoutStatusRejected
	req.Reason = &reason

	s.log.Info().
		Str("payout_id", req.ID.String()).
		Str("vendor_id", req.VendorID.String()).
		Str("reason", reason).
		Msg("payout rejected")
	return req, nil
}

// ListPending returns reserved requests awaiting an admin decision, oldest
// first.
func (s *PayoutServiceImpl) ListPending(ctx context.Context, page, pageSize int) ([]domain.PayoutRequest, int64, error) {
	requests, total, err := s.payoutRepo.ListByStatus(ctx, domain.PayoutStatusReserved, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list pending payouts: %w", err))
	}
	return requests, total, nil
}

// History returns a vendor's payout requests, newest first.
func (s *PayoutServiceImpl) History(ctx context.Context, vendorID uuid.UUID, page, pageSize int) ([]domain.PayoutRequest, int64, error) {
	requests, total, err := s.payoutRepo.ListByVendor(ctx, vendorID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list payout history: %w", err))
	}
	return requests, total, nil
}
