package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// HMACSignatureService implements ports.SignatureService for the two signed
// surfaces of this system: the settlement ingress (events arriving from the
// order-fulfillment collaborator) and outbound disbursement orders sent to
// the treasury endpoint. Both sides share the canonical-string shape, each
// with its own secret.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the lowercase hex HMAC-SHA256 of payload under secretKey.
func (s *HMACSignatureService) Sign(secretKey string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches payload under secretKey, in
// constant time.
func (s *HMACSignatureService) Verify(secretKey string, payload string, signature string) bool {
	expected := s.Sign(secretKey, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// BuildCanonicalString assembles the signed portion of a request as
// METHOD|PATH|TIMESTAMP|NONCE|BODY. Timestamp and nonce bind the signature
// to one delivery, so a captured settlement event cannot be replayed.
func (s *HMACSignatureService) BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string {
	return strings.Join([]string{method, path, strconv.FormatInt(timestamp, 10), nonce, body}, "|")
}
