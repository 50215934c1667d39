// Package http exposes the ledger as a JSON API plus the printable report.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"gastos/internal/core"
	"gastos/internal/ledger"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/report"
)

// Ledger is the subset of the ledger service the API depends on.
type Ledger interface {
	AddExpense(ctx context.Context, in ledger.NewExpense) (core.Expense, error)
	SettleDebt(ctx context.Context, debt core.Debt) (bool, error)
	Expenses() []core.Expense
	Balance() core.BalanceState
	Nets() []core.NetPosition
	Roster() core.Roster
}

// Config holds the server settings taken from the application config.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	ReportPeriodDays   int

	Logger      *applog.Logger
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	// HTTPMetrics records per-route request counters when set.
	HTTPMetrics *metrics.HTTP
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready       func(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger      Ledger
	limiter     *ratelimit.Limiter
	httpMetrics *metrics.HTTP
	periodDays  int
	ready       func(ctx context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, l Ledger) *Server {
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	if cfg.ReportPeriodDays <= 0 {
		cfg.ReportPeriodDays = report.DefaultPeriodDays
	}

	s := &Server{
		ledger:      l,
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		httpMetrics: cfg.HTTPMetrics,
		periodDays:  cfg.ReportPeriodDays,
		ready:       cfg.Ready,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(applog.Middleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware)
	}
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.limiter.Middleware(applog.ClientIP, s.handleRateLimited))

		r.Get("/roster", s.handleRoster)
		r.Get("/expenses", s.handleListExpenses)
		r.Post("/expenses", s.handleCreateExpense)
		r.Get("/balance", s.handleBalance)
		r.Post("/debts/settle", s.handleSettleDebt)
		r.Get("/report", s.handleReport)
		r.Get("/report.html", s.handleReportHTML)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	s.Server = http.Server{
		Addr: cfg.Addr,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
			AllowCredentials: false,
		}).Handler(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the server and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, applog.ClientIP(r),
		applog.FieldPath, r.URL.Path)
	if s.httpMetrics != nil {
		s.httpMetrics.RateLimited.Inc()
	}
	Error(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, please try again later")
}
