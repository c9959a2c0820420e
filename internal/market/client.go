package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	statusTTL = 30 * time.Second
	assetsTTL = 15 * time.Minute
)

// Config configures the brokerage data client.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	// RequestsPerSecond caps outbound calls; zero means 3/s.
	RequestsPerSecond float64
}

// Client reads the market clock and asset list from a brokerage REST API
// (Alpaca v2 layout). Responses are cached and outbound calls rate limited.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *cache.Cache
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache.New(statusTTL, 10*time.Minute),
		limiter:    rate.NewLimiter(rate.Limit(rps), 5),
	}
}

func cacheKey(function string, params ...string) string {
	return fmt.Sprintf("%s:%s", function, strings.Join(params, ","))
}

// Status returns the market clock.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	key := cacheKey("Clock")
	if v, found := c.cache.Get(key); found {
		st := v.(Status)
		return &st, nil
	}

	var out struct {
		IsOpen    bool      `json:"is_open"`
		NextOpen  time.Time `json:"next_open"`
		NextClose time.Time `json:"next_close"`
	}
	if err := c.get(ctx, "/v2/clock", &out); err != nil {
		log.Errorf("[MARKET] clock: %v", err)
		return nil, err
	}
	st := Status{IsOpen: out.IsOpen, NextOpen: out.NextOpen, NextClose: out.NextClose}
	c.cache.Set(key, st, cache.DefaultExpiration)
	return &st, nil
}

// Assets returns the active, tradable US equities.
func (c *Client) Assets(ctx context.Context) ([]Symbol, error) {
	key := cacheKey("Assets", "active")
	if v, found := c.cache.Get(key); found {
		return v.([]Symbol), nil
	}

	var raw []struct {
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Class    string `json:"class"`
		Tradable bool   `json:"tradable"`
	}
	if err := c.get(ctx, "/v2/assets?status=active", &raw); err != nil {
		log.Errorf("[MARKET] assets: %v", err)
		return nil, err
	}
	out := make([]Symbol, 0, len(raw))
	for _, a := range raw {
		if a.Tradable && a.Class == "us_equity" {
			out = append(out, Symbol{Symbol: a.Symbol, Name: a.Name})
		}
	}
	c.cache.Set(key, out, assetsTTL)
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("APCA-API-KEY-ID", c.cfg.APIKey)
		req.Header.Set("APCA-API-SECRET-KEY", c.cfg.APISecret)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("market data %s status %d: %s", path, res.StatusCode, string(b))
	}
	return json.NewDecoder(res.Body).Decode(out)
}
