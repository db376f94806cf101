package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nyashahama/mystery-shopper-backend/internal/audit"
	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
)

// ─── GET /api/admin/metrics ───────────────────────────────────────────────────

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.Metrics(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, m)
}

// ─── GET /api/admin/diagnostics?a=&b=&target= ─────────────────────────────────

// handleDiagnostics compares two catalog sources. Defaults: a=curated,
// b=tabular, no target.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nameA := strings.ToLower(q.Get("a"))
	if nameA == "" {
		nameA = catalog.SourceCurated
	}
	nameB := strings.ToLower(q.Get("b"))
	if nameB == "" {
		nameB = catalog.SourceTabular
	}
	target := ""
	if raw := q.Get("target"); raw != "" {
		target = catalog.NormalizeID(raw)
		if !catalog.ValidID(target) {
			respondErr(w, http.StatusBadRequest, "invalid target question id")
			return
		}
	}

	a, ok := s.loadSource(w, r, nameA)
	if !ok {
		return
	}
	b, ok := s.loadSource(w, r, nameB)
	if !ok {
		return
	}

	respond(w, http.StatusOK, audit.Audit(a, b, target))
}

// loadSource loads a named catalog source for the auditor. Writes the error
// response itself and returns false on failure.
func (s *Server) loadSource(w http.ResponseWriter, r *http.Request, name string) (audit.Named, bool) {
	src, ok := s.catalogs.Source(name)
	if !ok {
		respondErr(w, http.StatusBadRequest,
			fmt.Sprintf("unknown source %q (known: %s)", name, strings.Join(s.catalogs.SourceNames(), ", ")))
		return audit.Named{}, false
	}
	cat, err := src.Load(r.Context())
	if errors.Is(err, catalog.ErrCatalogUnavailable) {
		respondErr(w, http.StatusServiceUnavailable, fmt.Sprintf("source %q is unavailable", name))
		return audit.Named{}, false
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("load source %s: %w", name, err))
		return audit.Named{}, false
	}
	return audit.Named{Name: name, Catalog: cat}, true
}

// ─── GET /api/admin/dependencies ──────────────────────────────────────────────

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"catalog_version":       snap.Version,
		"conditional_questions": len(snap.Catalog.Conditional()),
		"triggers":              snap.Dependencies.Triggers(snap.Catalog),
		"groups":                snap.Dependencies.Groups(),
	})
}

// ─── POST /api/admin/catalog/reload ───────────────────────────────────────────

func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalogs.Reload(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("reload catalog: %w", err))
		return
	}
	s.logger.Info("admin: catalog reloaded", logField(r), "version", snap.Version, "source", snap.Source)
	respond(w, http.StatusOK, map[string]any{
		"version":   snap.Version,
		"source":    snap.Source,
		"degraded":  snap.Degraded,
		"loaded_at": snap.LoadedAt,
		"questions": snap.Catalog.Len(),
	})
}
