package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vendor-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// transferOrder is the JSON body posted to the disbursement collaborator.
type transferOrder struct {
	PayoutID  string `json:"payout_id"`
	VendorID  string `json:"vendor_id"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// HTTPMoneyMover implements ports.MoneyMover against the disbursement
// collaborator's HTTP endpoint. Orders are signed with HMAC-SHA256 over the
// request body; a non-2xx response or transport error is a failed transfer
// and triggers the caller's compensating release.
type HTTPMoneyMover struct {
	url        string
	secret     string
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	timeout    time.Duration
	log        zerolog.Logger
}

// NewHTTPMoneyMover creates a new HTTPMoneyMover.
func NewHTTPMoneyMover(
	url string,
	secret string,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	timeout time.Duration,
	log zerolog.Logger,
) *HTTPMoneyMover {
	return &HTTPMoneyMover{
		url:        url,
		secret:     secret,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		timeout:    timeout,
		log:        log,
	}
}

// Transfer posts a signed disbursement order. The call is synchronous: the
// payout workflow needs the outcome before it can settle the reservation.
func (m *HTTPMoneyMover) Transfer(ctx context.Context, req ports.TransferRequest) error {
	order := transferOrder{
		PayoutID:  req.PayoutID.String(),
		VendorID:  req.VendorID.String(),
		Amount:    req.Amount.String(),
		Timestamp: time.Now().Unix(),
	}
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal transfer order: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Signature", m.sigSvc.Sign(m.secret, string(body)))

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("deliver transfer order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transfer order rejected: status %d", resp.StatusCode)
	}

	m.log.Info().
		Str("payout_id", order.PayoutID).
		Str("amount", order.Amount).
		Msg("transfer order accepted")
	return nil
}
