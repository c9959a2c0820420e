package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/monitor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ipLimiters hands out one token bucket per client IP. The whole set is
// dropped every reset interval so idle IPs do not accumulate.
type ipLimiters struct {
	mu      sync.Mutex
	perIP   map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	resetAt time.Time
}

const limiterReset = 5 * time.Minute

func newIPLimiters(perSecond float64, burst int) *ipLimiters {
	return &ipLimiters{
		perIP:   make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		resetAt: time.Now().Add(limiterReset),
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now := time.Now(); now.After(l.resetAt) {
		l.perIP = make(map[string]*rate.Limiter)
		l.resetAt = now.Add(limiterReset)
	}
	limiter, ok := l.perIP[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.perIP[ip] = limiter
	}
	return limiter
}

// CORSMiddleware handles Cross-Origin Resource Sharing. An empty list or a
// "*" entry allows every origin.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	anyOrigin := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case anyOrigin:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware adds unique request ID for tracking
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("RequestID", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// RateLimitMiddleware prevents API abuse with per-IP rate limiting
func RateLimitMiddleware(perSecond float64, burst int) gin.HandlerFunc {
	limiters := newIPLimiters(perSecond, burst)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := limiters.get(ip)

		if !limiter.Allow() {
			log.Warnf("[RATE_LIMIT] IP %s exceeded rate limit", ip)
			respondError(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}

// TimeoutMiddleware bounds request processing time. Websocket upgrades are
// long-lived and skip it.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		out := c.Writer
		tw := &timeoutWriter{ResponseWriter: out, header: make(http.Header)}
		c.Writer = tw

		done := make(chan any, 1)
		go func() {
			defer func() { done <- recover() }()
			c.Next()
		}()

		select {
		case p := <-done:
			c.Writer = out
			if p != nil {
				log.Errorf("[API] panic: %v", p)
				respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}
			tw.flush(out)
		case <-ctx.Done():
			tw.expire()
			log.Warnf("[TIMEOUT] Request timeout: %s %s", c.Request.Method, c.Request.URL.Path)
			out.Header().Set("Content-Type", "application/json; charset=utf-8")
			out.WriteHeader(http.StatusRequestTimeout)
			_ = json.NewEncoder(out).Encode(gin.H{"code": "REQUEST_TIMEOUT", "error": "request took too long to process"})
			// The handler still owns c until it returns.
			if p := <-done; p != nil {
				log.Errorf("[API] panic after timeout: %v", p)
			}
			c.Writer = out
		}
	}
}

// timeoutWriter buffers a handler's response. Writes after expire are
// dropped.
type timeoutWriter struct {
	gin.ResponseWriter
	mu      sync.Mutex
	header  http.Header
	body    bytes.Buffer
	status  int
	expired bool
}

func (w *timeoutWriter) Header() http.Header { return w.header }

func (w *timeoutWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.expired && w.status == 0 {
		w.status = code
	}
}

func (w *timeoutWriter) WriteHeaderNow() {}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired {
		return 0, http.ErrHandlerTimeout
	}
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *timeoutWriter) WriteString(s string) (int, error) { return w.Write([]byte(s)) }

func (w *timeoutWriter) Status() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *timeoutWriter) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == 0 {
		return -1
	}
	return w.body.Len()
}

func (w *timeoutWriter) Written() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status != 0
}

func (w *timeoutWriter) Flush() {}

func (w *timeoutWriter) expire() {
	w.mu.Lock()
	w.expired = true
	w.mu.Unlock()
}

func (w *timeoutWriter) flush(out gin.ResponseWriter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, v := range w.header {
		out.Header()[k] = v
	}
	if w.status == 0 {
		return
	}
	out.WriteHeader(w.status)
	if w.body.Len() > 0 {
		_, _ = out.Write(w.body.Bytes())
	}
}

// RequestLogger logs all API requests with timing and status; optionally records metrics.
func RequestLogger(metrics *monitor.SystemMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		requestID := c.GetString("RequestID")
		if len(requestID) > 8 {
			requestID = requestID[:8]
		}

		if metrics != nil {
			metrics.IncrementRequests()
			metrics.APILatency.RecordDuration(latency)
			if statusCode >= 500 {
				metrics.IncrementErrors()
			}
		}

		log.WithFields(log.Fields{
			"request_id": requestID,
			"status":     statusCode,
			"latency":    latency,
			"client_ip":  c.ClientIP(),
		}).Infof("[API] %s %s", method, path)
	}
}
