// Package registry owns the active catalog snapshot. A reload builds a
// complete new Snapshot and swaps it in with one atomic store, so a request
// that already holds a *Snapshot keeps a consistent view for its whole life.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/dependency"
	"github.com/nyashahama/mystery-shopper-backend/internal/weights"
)

// Snapshot is one immutable catalog generation plus everything derived from
// it. Never modify a Snapshot after Current returns it.
type Snapshot struct {
	Version      uuid.UUID
	Source       string
	LoadedAt     time.Time
	Degraded     bool // true when serving the built-in fallback
	Catalog      *catalog.Catalog
	Dependencies dependency.Index
	Weights      *weights.Map
}

// Registry serves the current Snapshot and rebuilds it on demand.
type Registry struct {
	active  catalog.Source
	sources map[string]catalog.Source
	weights *weights.Map
	logger  *slog.Logger

	current atomic.Pointer[Snapshot]
	reload  sync.Mutex // serializes Reload; readers never take it
}

// New builds a Registry whose snapshots come from active. Every source in
// others (plus active) is addressable by name for the auditor.
func New(active catalog.Source, wm *weights.Map, logger *slog.Logger, others ...catalog.Source) *Registry {
	r := &Registry{
		active:  active,
		sources: map[string]catalog.Source{active.Name(): active},
		weights: wm,
		logger:  logger,
	}
	for _, s := range others {
		r.sources[s.Name()] = s
	}
	return r
}

// Current returns the active snapshot, or nil before the first Reload.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Reload loads the active source (falling back to the built-in catalog when
// it is unavailable), derives the dependency index, and publishes the result.
func (r *Registry) Reload(ctx context.Context) (*Snapshot, error) {
	r.reload.Lock()
	defer r.reload.Unlock()

	cat, degraded, err := catalog.LoadWithFallback(ctx, r.active, r.logger)
	if err != nil {
		return nil, fmt.Errorf("registry: load %s: %w", r.active.Name(), err)
	}

	source := r.active.Name()
	if degraded {
		source = catalog.SourceFallback
	}

	snap := &Snapshot{
		Version:      uuid.New(),
		Source:       source,
		LoadedAt:     time.Now().UTC(),
		Degraded:     degraded,
		Catalog:      cat,
		Dependencies: dependency.Analyze(cat),
		Weights:      r.weights,
	}

	var sectionNames []string
	for _, s := range cat.Sections() {
		sectionNames = append(sectionNames, s.Name)
	}
	if unmapped := r.weights.UnmappedSections(sectionNames); len(unmapped) > 0 {
		r.logger.Warn("registry: sections without weight entry are excluded from scoring",
			"sections", unmapped,
		)
	}

	r.current.Store(snap)
	r.logger.Info("registry: catalog loaded",
		"version", snap.Version,
		"source", snap.Source,
		"degraded", snap.Degraded,
		"questions", cat.Len(),
		"conditional", len(cat.Conditional()),
	)
	return snap, nil
}

// Source returns a named catalog source.
func (r *Registry) Source(name string) (catalog.Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// SourceNames lists the addressable sources, sorted.
func (r *Registry) SourceNames() []string {
	out := make([]string, 0, len(r.sources))
	for name := range r.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
