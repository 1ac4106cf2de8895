// Package gateway is the HTTP client for the external payment gateway. Only
// the two calls the reconciliation pipeline depends on are implemented:
// checkout initialization and payment verification.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when the gateway base URL or API key is
// missing from configuration.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// CheckoutParams describes a checkout to initialize with the gateway.
type CheckoutParams struct {
	// ConversationID is set to the purchaser's user id so identity can be
	// recovered from the verification response later.
	ConversationID string  `json:"conversationId"`
	ItemID         string  `json:"itemId"`
	Price          float64 `json:"price"`
	Locale         string  `json:"locale,omitempty"`
	CallbackURL    string  `json:"callbackUrl"`
}

// CheckoutResult is the gateway's answer to Initialize.
type CheckoutResult struct {
	Token          string `json:"token"`
	PaymentPageURL string `json:"paymentPageUrl,omitempty"`
}

// ItemTransaction is one purchased line item in a verification response.
type ItemTransaction struct {
	ItemID string `json:"itemId"`
}

// PaymentDetail is the gateway's verification response for a token.
type PaymentDetail struct {
	PaymentStatus    string            `json:"paymentStatus"`
	ItemTransactions []ItemTransaction `json:"itemTransactions"`
	ConversationID   string            `json:"conversationId,omitempty"`
	// Raw is the verbatim response body, journaled with the transaction.
	Raw map[string]interface{} `json:"-"`
}

// PaymentStatusSuccess is the gateway's vocabulary for a settled payment.
const PaymentStatusSuccess = "SUCCESS"

// Client talks to the payment gateway over HTTP with bearer auth.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a gateway client. An empty baseURL or apiKey yields a
// client whose calls fail with ErrNotConfigured.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger,
	}
}

// Configured reports whether the client can make live calls.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Initialize creates a checkout with the gateway and returns the opaque
// token identifying it.
func (c *Client) Initialize(ctx context.Context, params CheckoutParams) (*CheckoutResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout params: %w", err)
	}

	raw, err := c.post(ctx, "/v1/checkout/initialize", body)
	if err != nil {
		return nil, err
	}

	var result CheckoutResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	if result.Token == "" {
		return nil, errors.New("gateway returned an empty checkout token")
	}
	c.log.Info("Checkout initialized with payment gateway", zap.String("itemId", params.ItemID))
	return &result, nil
}

// Verify asks the gateway for the payment detail behind a token. The
// verbatim body is preserved in PaymentDetail.Raw for the journal.
func (c *Client) Verify(ctx context.Context, token, conversationID string) (*PaymentDetail, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	reqBody, err := json.Marshal(map[string]string{
		"token":          token,
		"conversationId": conversationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	raw, err := c.post(ctx, "/v1/payment/detail", reqBody)
	if err != nil {
		return nil, err
	}

	var detail PaymentDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	if err := json.Unmarshal(raw, &detail.Raw); err != nil {
		return nil, fmt.Errorf("decode verify response body: %w", err)
	}
	return &detail, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		c.log.Error("Payment gateway call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(raw, 512)),
		)
		return nil, fmt.Errorf("gateway error: status=%d path=%s", resp.StatusCode, path)
	}
	return raw, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
