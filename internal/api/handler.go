package api

import (
	"net/http"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/engine"
	"github.com/anjaninandan001/algo-tinker/internal/events"
	"github.com/anjaninandan001/algo-tinker/internal/market"
	"github.com/anjaninandan001/algo-tinker/internal/monitor"
	"github.com/anjaninandan001/algo-tinker/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the workbench engine.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	DB        *db.Database
	Engine    engine.Service
	Market    market.Provider
	Metrics   *monitor.SystemMetrics
	JWTSecret string
}

// Options configures optional server behaviour.
type Options struct {
	// CORSOrigins lists allowed origins; empty or "*" allows any.
	CORSOrigins    []string
	RequestTimeout time.Duration
	// Per-IP request rate; defaults to 20/s with a burst of 50.
	RateLimit float64
	RateBurst int
}

func NewServer(bus *events.Bus, database *db.Database, eng engine.Service, provider market.Provider, metrics *monitor.SystemMetrics, jwtSecret string, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 75 * time.Second
	}
	if opts.RateLimit <= 0 || opts.RateBurst <= 0 {
		opts.RateLimit, opts.RateBurst = 20, 50
	}
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware(opts.RateLimit, opts.RateBurst))
	r.Use(TimeoutMiddleware(opts.RequestTimeout))
	r.Use(CORSMiddleware(opts.CORSOrigins))

	s := &Server{
		Router:    r,
		Bus:       bus,
		DB:        database,
		Engine:    eng,
		Market:    provider,
		Metrics:   metrics,
		JWTSecret: jwtSecret,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws/sessions/:id", s.sessionStream)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)
		api.GET("/metrics/prom", s.getPromMetrics)
		api.GET("/palette", s.getPalette)

		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Market data
		api.GET("/markets", s.getMarketStatus)
		api.GET("/search-symbols", s.searchSymbols)
		api.GET("/symbols", s.listSymbols)

		// Editor sessions
		api.POST("/sessions", s.createSession)
		sess := api.Group("/sessions/:id")
		{
			sess.GET("", s.getSession)
			sess.DELETE("", s.closeSession)
			sess.PUT("/settings", s.updateSettings)
			sess.POST("/blocks", s.addBlock)
			sess.DELETE("/blocks/:blockId", s.removeBlock)
			sess.POST("/select", s.selectBlock)
			sess.POST("/commit", s.commitBlock)
			sess.POST("/cancel", s.cancelEdit)
			sess.POST("/clear", s.clearStrategy)
			sess.GET("/request", s.getRequest)
			sess.GET("/references", s.getReferences)
			sess.POST("/backtest", s.runBacktest)
			sess.GET("/report", s.getReport)
			sess.GET("/equity-chart", s.getEquityChart)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("/sessions/:id/save", s.saveStrategy)
			protected.POST("/sessions/:id/load", s.loadStrategy)
			protected.POST("/sessions/:id/paper-trade", s.sessionPaperTrade)

			protected.GET("/strategies", s.listStrategies)
			protected.GET("/strategies/:name", s.getStrategy)
			protected.DELETE("/strategies/:name", s.deleteStrategy)

			protected.POST("/paper-trade", s.paperTrade)
			protected.GET("/portfolio", s.getPortfolio)
		}
	}
}

// health reports ok plus the state of external dependencies. A failing
// dependency degrades the status without failing the probe.
func (s *Server) health(c *gin.Context) {
	checks := gin.H{}
	status := "ok"
	for name, err := range s.Engine.Ping(c.Request.Context()) {
		if err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}
	if s.DB != nil {
		if err := s.DB.Ping(c.Request.Context()); err != nil {
			checks["database"] = err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "checks": checks})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
