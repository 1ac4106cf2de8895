// Package crypto holds the cryptographic helpers the application needs.
// Currently that is webhook body authentication: payment-gateway webhook
// deliveries carry an HMAC-SHA256 signature over the raw body which must be
// checked before the payload is trusted.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidSignature is returned when a webhook signature does not match
// the configured secret.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// SignBody computes the hex-encoded HMAC-SHA256 of body under secret.
func SignBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the signature header value against the raw
// request body. The comparison is constant time. A "sha256=" prefix on the
// header value is accepted and stripped.
func VerifyWebhookSignature(body []byte, signature, secret string) error {
	if secret == "" {
		return errors.New("webhook secret is not configured")
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	expected, err := hex.DecodeString(SignBody(body, secret))
	if err != nil {
		return err
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(expected, provided) {
		return ErrInvalidSignature
	}
	return nil
}
