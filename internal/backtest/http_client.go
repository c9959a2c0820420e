package backtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/results"

	log "github.com/sirupsen/logrus"
)

// HTTPClient posts backtest requests as JSON.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Run posts req to /api/backtest.
func (c *HTTPClient) Run(ctx context.Context, req Request) (*results.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/backtest", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read backtest response (status %d): %w", res.StatusCode, err)
	}
	var out results.Response
	if err := json.Unmarshal(body, &out); err != nil {
		if res.StatusCode >= 300 {
			return nil, fmt.Errorf("backtest status %d: %s", res.StatusCode, string(body))
		}
		return nil, fmt.Errorf("decode backtest response: %w", err)
	}
	if res.StatusCode >= 300 && out.Error == "" {
		out.Error = fmt.Sprintf("backtest service returned status %d", res.StatusCode)
	}
	if out.Error != "" {
		log.Warnf("[BACKTEST] %s %s..%s: %s", req.Symbol, req.StartDate, req.EndDate, out.Error)
	}
	return &out, nil
}

// Ping checks that the service answers on /health.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("%w: health status %d", ErrServiceUnavailable, res.StatusCode)
	}
	return nil
}

func (c *HTTPClient) Close() error { return nil }
