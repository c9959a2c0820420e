package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/anjaninandan001/algo-tinker/internal/backtest"
	"github.com/anjaninandan001/algo-tinker/internal/editor"
	"github.com/anjaninandan001/algo-tinker/internal/engine"
	"github.com/anjaninandan001/algo-tinker/internal/market"
	"github.com/anjaninandan001/algo-tinker/internal/monitor"
	"github.com/anjaninandan001/algo-tinker/internal/papertrade"
	"github.com/anjaninandan001/algo-tinker/internal/persist"
	"github.com/anjaninandan001/algo-tinker/internal/results"
	"github.com/anjaninandan001/algo-tinker/pkg/i18n"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type pageQuery struct {
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
	Query   string `form:"query"`
}

func (q *pageQuery) normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 50
	}
	if q.PerPage > 500 {
		q.PerPage = 500
	}
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// respondEngineError maps engine and domain sentinels to {code, error}.
func (s *Server) respondEngineError(c *gin.Context, err error) {
	m := i18n.M()
	var orderErr bool
	for _, e := range []error{papertrade.ErrSymbolRequired, papertrade.ErrQuantity, papertrade.ErrSide, papertrade.ErrOrderType, papertrade.ErrLimitPrice} {
		if errors.Is(err, e) {
			orderErr = true
			break
		}
	}

	switch {
	case errors.Is(err, editor.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", m.SessionNotFound)
	case errors.Is(err, engine.ErrBlockNotFound):
		respondError(c, http.StatusNotFound, "BLOCK_NOT_FOUND", m.BlockNotFound)
	case errors.Is(err, editor.ErrInvalidBlockType):
		respondError(c, http.StatusBadRequest, "INVALID_BLOCK_TYPE", m.InvalidBlockType)
	case errors.Is(err, engine.ErrEmptyStrategy):
		respondError(c, http.StatusBadRequest, "EMPTY_STRATEGY", m.EmptyStrategy)
	case errors.Is(err, engine.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "INVALID_SETTINGS", fmt.Sprintf(m.InvalidSettings, err))
	case errors.Is(err, editor.ErrStale):
		respondError(c, http.StatusConflict, "STALE_RESULT", m.StaleResult)
	case errors.Is(err, engine.ErrNoReport), errors.Is(err, results.ErrNoEquity):
		respondError(c, http.StatusNotFound, "NO_RESULTS", m.NoResults)
	case errors.Is(err, persist.ErrOwnerRequired):
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", m.LoginRequired)
	case errors.Is(err, papertrade.ErrInsufficientFunds):
		respondError(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", m.InsufficientFunds)
	case orderErr:
		respondError(c, http.StatusBadRequest, "INVALID_ORDER", err.Error())
	case errors.Is(err, backtest.ErrServiceUnavailable):
		respondError(c, http.StatusServiceUnavailable, "BACKTEST_UNAVAILABLE", fmt.Sprintf(m.BacktestFailed, err))
	case errors.Is(err, engine.ErrUnavailable):
		respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error())
	default:
		log.Errorf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// getSystemStatus exposes runtime configuration for the editor UI.
func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.GetSystemStatus(c.Request.Context()))
}

func (s *Server) getPalette(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Palette())
}

// --- Market data ---

func (s *Server) getMarketStatus(c *gin.Context) {
	if s.Market == nil {
		respondError(c, http.StatusServiceUnavailable, "MARKET_UNAVAILABLE", i18n.M().MarketUnavailable)
		return
	}
	st, err := s.Market.Status(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "MARKET_UNAVAILABLE", err.Error())
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) assets(c *gin.Context) ([]market.Symbol, bool) {
	if s.Market == nil {
		respondError(c, http.StatusServiceUnavailable, "MARKET_UNAVAILABLE", i18n.M().MarketUnavailable)
		return nil, false
	}
	assets, err := s.Market.Assets(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "MARKET_UNAVAILABLE", err.Error())
		return nil, false
	}
	return assets, true
}

// listSymbols pages through tradable tickers. A page past the end returns
// the last page.
func (s *Server) listSymbols(c *gin.Context) {
	var q pageQuery
	_ = c.ShouldBindQuery(&q)
	q.normalize()
	assets, ok := s.assets(c)
	if !ok {
		return
	}
	tickers := make([]string, len(assets))
	for i, a := range assets {
		tickers[i] = a.Symbol
	}
	c.JSON(http.StatusOK, market.Paginate(tickers, q.Page, q.PerPage, true))
}

func (s *Server) searchSymbols(c *gin.Context) {
	var q pageQuery
	_ = c.ShouldBindQuery(&q)
	q.normalize()
	assets, ok := s.assets(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, market.Paginate(market.Search(assets, q.Query), q.Page, q.PerPage, false))
}

// --- Paper trading ---

func (s *Server) paperTrade(c *gin.Context) {
	s.executePaperTrade(c, "")
}

// sessionPaperTrade trades the session's symbol unless the order names one.
func (s *Server) sessionPaperTrade(c *gin.Context) {
	s.executePaperTrade(c, c.Param("id"))
}

func (s *Server) executePaperTrade(c *gin.Context, sessionID string) {
	var order papertrade.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}
	fill, err := s.Engine.PaperTrade(c.Request.Context(), CurrentUserID(c), sessionID, order)
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": i18n.M().TradeExecuted,
		"trade":   fill,
	})
}

func (s *Server) getPortfolio(c *gin.Context) {
	p, err := s.Engine.Portfolio(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- Metrics ---

// getMetrics returns system performance metrics.
func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "metrics not available")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

// getPromMetrics returns a minimal Prometheus text exposition of key metrics.
func (s *Server) getPromMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.String(http.StatusServiceUnavailable, "# metrics not available\n")
		return
	}
	snapshot := s.Metrics.GetSnapshot()

	var b strings.Builder
	// Counters
	fmt.Fprintf(&b, "algoblocks_api_requests_total %d\n", snapshot.RequestsServed)
	fmt.Fprintf(&b, "algoblocks_errors_total %d\n", snapshot.ErrorsCount)
	fmt.Fprintf(&b, "algoblocks_backtests_total %d\n", snapshot.BacktestsRun)
	fmt.Fprintf(&b, "algoblocks_backtests_failed_total %d\n", snapshot.BacktestsFailed)
	fmt.Fprintf(&b, "algoblocks_backtests_stale_total %d\n", snapshot.StaleDiscards)
	fmt.Fprintf(&b, "algoblocks_paper_trades_total %d\n", snapshot.PaperTrades)

	topics := make([]string, 0, len(snapshot.EventCounts))
	for topic := range snapshot.EventCounts {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		fmt.Fprintf(&b, "algoblocks_events_total{topic=%s} %d\n", strconv.Quote(topic), snapshot.EventCounts[topic])
	}

	// Gauges for latency (ms)
	writeLatency := func(prefix string, ls monitor.LatencyStats) {
		if ls.Count == 0 {
			return
		}
		fmt.Fprintf(&b, "algoblocks_%s_latency_ms_avg %f\n", prefix, ls.Avg)
		fmt.Fprintf(&b, "algoblocks_%s_latency_ms_p50 %f\n", prefix, ls.P50)
		fmt.Fprintf(&b, "algoblocks_%s_latency_ms_p95 %f\n", prefix, ls.P95)
		fmt.Fprintf(&b, "algoblocks_%s_latency_ms_p99 %f\n", prefix, ls.P99)
	}
	writeLatency("api", snapshot.APILatency)
	writeLatency("backtest", snapshot.BacktestLatency)
	writeLatency("db", snapshot.DBLatency)

	fmt.Fprintf(&b, "algoblocks_active_sessions %d\n", snapshot.ActiveSessions)
	fmt.Fprintf(&b, "algoblocks_goroutines %d\n", snapshot.GoroutineCount)
	fmt.Fprintf(&b, "algoblocks_heap_alloc_bytes %d\n", snapshot.HeapAlloc)
	fmt.Fprintf(&b, "algoblocks_heap_sys_bytes %d\n", snapshot.HeapSys)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, b.String())
}
