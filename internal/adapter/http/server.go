package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/couchcryptid/hazard-report-service/internal/reports"
)

// ReportService is the report use-case surface consumed by the handlers.
type ReportService interface {
	Create(ctx context.Context, callerID string, in domain.ReportInput) (domain.Report, error)
	Update(ctx context.Context, callerID string, id int64, in domain.ReportInput) error
	Delete(ctx context.Context, callerID string, id int64) error
	Get(ctx context.Context, id int64) (domain.Report, error)
	ListAll(ctx context.Context) ([]domain.Report, error)
	ListMine(ctx context.Context, callerID string) ([]domain.Report, error)
	ListNearby(ctx context.Context, lat, lon, radiusKm float64) ([]reports.NearbyReport, error)
}

// AuthService registers users, logs them in, and resolves bearer tokens to user ids.
type AuthService interface {
	Register(ctx context.Context, c domain.Credentials) (string, error)
	Login(ctx context.Context, c domain.Credentials) (string, error)
	Authenticate(ctx context.Context, token string) (string, error)
}

// Server exposes the report API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	reports    ReportService
	auth       AuthService
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API routes and /healthz, /readyz, /metrics.
func NewServer(addr string, reportSvc ReportService, authSvc AuthService, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		reports: reportSvc,
		auth:    authSvc,
		metrics: metrics,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.instrument)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleListAll)
		r.Post("/", s.handleCreate)
		r.Get("/me", s.handleListMine)
		r.Get("/nearby", s.handleListNearby)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
