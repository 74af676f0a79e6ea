package client

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

	"nftclaim/internal/domain/distribution"
	"nftclaim/internal/ledger"
	"nftclaim/internal/pubkey"
)

// ErrUnexpectedResponse marks a reply that is neither a result nor an API error.
var ErrUnexpectedResponse = errors.New("unexpected api response")

// APIError is a non-2xx reply from the API.
type APIError struct {
	Status  int
	Message string `json:"error"`
	Code    *int   `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("api %d: %s (code %d)", e.Status, e.Message, *e.Code)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// SubmitResult is the reply to a committed transaction.
type SubmitResult struct {
	Status    string              `json:"status"`
	Event     *distribution.Event `json:"event,omitempty"`
	Published bool                `json:"published"`
}

// Client talks to the distributor API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New returns a client for baseURL. A nil httpClient uses a 10s timeout client.
func New(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, logger: logger}
}

// Submit posts a signed transaction.
func (c *Client) Submit(ctx context.Context, tx *ledger.Transaction) (*SubmitResult, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	var res SubmitResult
	if err := c.do(ctx, http.MethodPost, "/transactions", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Distributor fetches the decoded distributor record at key.
func (c *Client) Distributor(ctx context.Context, key pubkey.Pubkey) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/distributors/"+key.String(), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Receipt fetches the claim receipt for an asset mint.
func (c *Client) Receipt(ctx context.Context, mint pubkey.Pubkey) (*distribution.Receipt, error) {
	var res distribution.Receipt
	if err := c.do(ctx, http.MethodGet, "/receipts/"+mint.String(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	c.logger.Debug("api response", zap.String("path", path), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
		}
		return apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}
