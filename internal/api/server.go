// Package api implements the HTTP layer for the mystery-shopper service.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nyashahama/mystery-shopper-backend/internal/cache"
	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/db"
	"github.com/nyashahama/mystery-shopper-backend/internal/registry"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
	"github.com/nyashahama/mystery-shopper-backend/internal/store"
	"github.com/nyashahama/mystery-shopper-backend/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// AdminAPIKeys are accepted in the X-API-Key header on /api/admin routes.
	AdminAPIKeys []string
}

// SubmissionStore is the slice of *store.Store the handlers use.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, p store.CreateSubmissionParams) (db.Submission, error)
	GetReport(ctx context.Context, submissionID int64) (store.StoredReport, error)
	ListSubmissions(ctx context.Context, limit, offset int32) ([]store.SubmissionSummary, error)
	Metrics(ctx context.Context) (scoring.Metrics, error)
}

// Catalogs is the slice of *registry.Registry the handlers use.
type Catalogs interface {
	Current() *registry.Snapshot
	Reload(ctx context.Context) (*registry.Snapshot, error)
	Source(name string) (catalog.Source, bool)
	SourceNames() []string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	store    SubmissionStore
	catalogs Catalogs

	// reports is optional; nil means every report read goes to the store.
	reports cache.ReportCache

	// worker enqueues scoring jobs for accepted submissions.
	worker worker.Enqueuer

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(
	st SubmissionStore,
	catalogs Catalogs,
	reports cache.ReportCache,
	enqueuer worker.Enqueuer,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		store:    st,
		catalogs: catalogs,
		reports:  reports,
		worker:   enqueuer,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {

		// Shopper-facing routes, no auth.
		r.Post("/survey/submit", s.handleSubmitSurvey)
		r.Get("/submissions/{submissionID}/report", s.handleGetReport)

		r.Get("/questions", s.handleListQuestions)
		r.Get("/questions/by-category", s.handleQuestionsByCategory)
		r.Get("/questions/{questionID}/dependents", s.handleQuestionDependents)

		r.Post("/score/preview", s.handlePreviewScore)

		// Admin routes, X-API-Key required.
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdminKey)
			r.Get("/submissions", s.handleListSubmissions)
			r.Get("/metrics", s.handleMetrics)
			r.Get("/diagnostics", s.handleDiagnostics)
			r.Get("/dependencies", s.handleDependencies)
			r.Post("/catalog/reload", s.handleReloadCatalog)
		})
	})

	return r
}

// handleHealth returns 200 once a catalog snapshot is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.catalogs.Current()
	if snap == nil {
		respondErr(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"catalog_version": snap.Version,
		"catalog_source":  snap.Source,
		"degraded":        snap.Degraded,
	})
}
