package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultWalletTimeout bounds one wallet-service round trip.
const DefaultWalletTimeout = 10 * time.Second

// HTTPWalletClient implements WalletClient against the wallet service's
// REST surface: GET /wallet/info and POST /wallet/trade-execution.
type HTTPWalletClient struct {
	baseURL string
	client  *http.Client
}

// WalletClientOption configures HTTPWalletClient.
type WalletClientOption func(*HTTPWalletClient)

// WithWalletHTTPClient sets a custom http.Client.
func WithWalletHTTPClient(client *http.Client) WalletClientOption {
	return func(c *HTTPWalletClient) {
		c.client = client
	}
}

// NewHTTPWalletClient creates a wallet-service client for the given base
// URL, e.g. "http://localhost:8080".
func NewHTTPWalletClient(baseURL string, opts ...WalletClientOption) *HTTPWalletClient {
	c := &HTTPWalletClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultWalletTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ WalletClient = (*HTTPWalletClient)(nil)

// GetWalletInfo fetches the current server-wallet snapshot.
func (c *HTTPWalletClient) GetWalletInfo(ctx context.Context) (WalletInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/wallet/info", nil)
	if err != nil {
		return WalletInfo{}, fmt.Errorf("build wallet info request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return WalletInfo{}, fmt.Errorf("wallet info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return WalletInfo{}, fmt.Errorf("wallet info: unexpected status %d: %s", resp.StatusCode, body)
	}

	var info WalletInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return WalletInfo{}, fmt.Errorf("decode wallet info: %w", err)
	}
	return info, nil
}

// HandleTradeExecution reports a completed copy trade to the wallet
// service.
func (c *HTTPWalletClient) HandleTradeExecution(ctx context.Context, reqBody TradeExecutionRequest) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal trade execution: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wallet/trade-execution", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build trade execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("trade execution request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trade execution: unexpected status %d: %s", resp.StatusCode, msg)
	}
	return nil
}
