// Package generation is the HTTP client for the external music generation
// provider. Songs are generated asynchronously: StartTask submits the
// composition and the provider later POSTs a callback carrying the task id.
package generation

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

// ErrNotConfigured is returned when the provider base URL or API key is
// missing from configuration.
var ErrNotConfigured = errors.New("generation provider is not configured")

// TaskParams describes a composition task.
type TaskParams struct {
	Prompt          string `json:"prompt"`
	Style           string `json:"style"`
	Title           string `json:"title"`
	CelebrationType string `json:"celebrationType"`
	CallbackURL     string `json:"callBackUrl"`
}

// Client talks to the generation provider over HTTP with bearer auth.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a generation provider client. An empty baseURL or apiKey
// yields a client whose calls fail with ErrNotConfigured.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        logger,
	}
}

// Configured reports whether the client can make live calls.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// StartTask submits a composition task and returns the provider task id used
// to correlate the asynchronous completion callback.
func (c *Client) StartTask(ctx context.Context, params TaskParams) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal task params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post generate: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		c.log.Error("Generation provider call failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(raw, 512)),
		)
		return "", fmt.Errorf("generation provider error: status=%d", resp.StatusCode)
	}

	var createResp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &createResp); err != nil {
		return "", fmt.Errorf("decode create task response: %w", err)
	}
	if createResp.Code != 200 {
		return "", fmt.Errorf("create task failed: code=%d msg=%s", createResp.Code, createResp.Msg)
	}
	if createResp.Data.TaskID == "" {
		return "", errors.New("empty taskId in create task response")
	}

	c.log.Info("Generation task created", zap.String("taskId", createResp.Data.TaskID))
	return createResp.Data.TaskID, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
