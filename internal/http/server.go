// Package http exposes the decision engine, regime detector, and dashboard
// reports over a small JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/regime"
	"finboard/internal/reports"
)

const (
	handlerTimeout = 7 * time.Second

	cacheSize = 64
	cacheTTL  = 5 * time.Minute
)

// DecisionComputer produces the strategic decision record.
type DecisionComputer interface {
	Compute(ctx context.Context, now time.Time) (core.StrategicMetrics, error)
}

// RegimeAnalyzer produces the spending regime report.
type RegimeAnalyzer interface {
	Analyze(ctx context.Context, now time.Time) (regime.Report, error)
}

// DashboardBuilder produces the dashboard aggregates.
type DashboardBuilder interface {
	Build(ctx context.Context, now time.Time) (reports.DashboardStats, error)
}

// Server wires the API routes over the three read models.
type Server struct {
	http.Server

	decisions DecisionComputer
	regimes   RegimeAnalyzer
	dashboard DashboardBuilder

	rateLimiter *rateLimiter

	// Report reads are cached briefly; decisions are always computed fresh.
	regimeCache    *cache.LRU[regime.Report]
	dashboardCache *cache.LRU[reports.DashboardStats]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Options carries the listener address and timeouts.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(opts Options, dc DecisionComputer, ra RegimeAnalyzer, db DashboardBuilder) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         opts.Addr,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		decisions:        dc,
		regimes:          ra,
		dashboard:        db,
		rateLimiter:      newRateLimiter(),
		regimeCache:      cache.NewLRU[regime.Report](cacheSize, cacheTTL),
		dashboardCache:   cache.NewLRU[reports.DashboardStats](cacheSize, cacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}
	go s.startCacheCleanup()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/decision", s.handleDecision)
	mux.HandleFunc("/api/analytics", s.handleAnalytics)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)

	s.Handler = s.withTracing(s.withRateLimit(mux))
	return s
}

// Shutdown stops the request-side cleanup goroutines before closing the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := s.regimeCache.CleanExpired() + s.dashboardCache.CleanExpired()
			if removed > 0 {
				slog.Debug("cache cleanup completed", "entries_removed", removed)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	now, err := requestTime(r)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	metrics, err := s.decisions.Compute(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "decision computation failed", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, fmt.Errorf("compute decision: %w", err))
		return
	}
	writeJSON(ctx, w, http.StatusOK, metrics)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	now, err := requestTime(r)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	key := now.Format("2006-01-02")
	if report, ok := s.regimeCache.Get(key); ok {
		writeJSON(ctx, w, http.StatusOK, report)
		return
	}

	report, err := s.regimes.Analyze(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "regime analysis failed", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, fmt.Errorf("analyze regime: %w", err))
		return
	}
	s.regimeCache.Set(key, report)
	writeJSON(ctx, w, http.StatusOK, report)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	now, err := requestTime(r)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	key := now.Format("2006-01-02")
	if stats, ok := s.dashboardCache.Get(key); ok {
		writeJSON(ctx, w, http.StatusOK, stats)
		return
	}

	stats, err := s.dashboard.Build(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "dashboard build failed", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, fmt.Errorf("build dashboard: %w", err))
		return
	}
	s.dashboardCache.Set(key, stats)
	writeJSON(ctx, w, http.StatusOK, stats)
}

// requestTime returns the reference time for the request, honoring an
// optional date=YYYY-MM-DD query parameter so past months stay queryable.
func requestTime(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	return t, nil
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "response encoding failed", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	writeJSON(ctx, w, status, map[string]string{"error": err.Error()})
}

// withTracing logs every request with a generated ID and its outcome.
func (s *Server) withTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		ctx := r.Context()
		slog.InfoContext(ctx, "request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"client_ip", clientIP(r))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(clientIP(r)) {
			writeError(r.Context(), w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
