package registry_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/registry"
	"github.com/nyashahama/mystery-shopper-backend/internal/weights"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func testDefs() []catalog.QuestionDefinition {
	return []catalog.QuestionDefinition{
		{ID: "Q1", Section: "Waiting Area", MaxScore: 5},
		{ID: "Q2", Section: "Speed of Service", MaxScore: 1, HasConditions: true, ConditionExpression: "Show if Q1 = 1"},
	}
}

func TestRegistry_CurrentIsNilBeforeReload(t *testing.T) {
	r := registry.New(catalog.NewStaticSource(catalog.SourceTabular, testDefs()), weights.Default(), discardLogger())
	if r.Current() != nil {
		t.Error("Current should be nil before the first Reload")
	}
}

func TestRegistry_Reload(t *testing.T) {
	r := registry.New(catalog.NewStaticSource(catalog.SourceTabular, testDefs()), weights.Default(), discardLogger())

	snap, err := r.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if r.Current() != snap {
		t.Error("Current should return the snapshot Reload published")
	}
	if snap.Source != catalog.SourceTabular || snap.Degraded {
		t.Errorf("source=%q degraded=%v", snap.Source, snap.Degraded)
	}
	if snap.Catalog.Len() != 2 {
		t.Errorf("questions: got %d", snap.Catalog.Len())
	}
	if got := snap.Dependencies.Dependents("Q1"); !reflect.DeepEqual(got, []string{"Q2"}) {
		t.Errorf("dependency index: got %v", got)
	}
	if snap.Weights == nil || snap.LoadedAt.IsZero() {
		t.Error("snapshot should carry weights and a load time")
	}

	next, err := r.Reload(context.Background())
	if err != nil {
		t.Fatalf("second Reload: %v", err)
	}
	if next.Version == snap.Version {
		t.Error("each Reload should publish a new version")
	}
}

func TestRegistry_UnavailableSourceDegradesToFallback(t *testing.T) {
	src := catalog.NewTabularSource(filepath.Join(t.TempDir(), "missing.csv"), discardLogger())
	r := registry.New(src, weights.Default(), discardLogger())

	snap, err := r.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !snap.Degraded || snap.Source != catalog.SourceFallback {
		t.Errorf("want degraded fallback snapshot, got source=%q degraded=%v", snap.Source, snap.Degraded)
	}
	if snap.Catalog.Len() != len(catalog.FallbackDefinitions()) {
		t.Errorf("questions: got %d", snap.Catalog.Len())
	}
}

func TestRegistry_FailedReloadKeepsPreviousSnapshot(t *testing.T) {
	r := registry.New(catalog.NewStaticSource(catalog.SourceTabular, testDefs()), weights.Default(), discardLogger())
	first, err := r.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Reload(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if r.Current() != first {
		t.Error("a failed reload must not replace the active snapshot")
	}
}

func TestRegistry_Sources(t *testing.T) {
	r := registry.New(
		catalog.NewStaticSource(catalog.SourceTabular, testDefs()),
		weights.Default(),
		discardLogger(),
		catalog.NewCuratedSource(),
		catalog.NewFallbackSource(),
	)

	if got := r.SourceNames(); !reflect.DeepEqual(got, []string{"curated", "fallback", "tabular"}) {
		t.Errorf("SourceNames: got %v", got)
	}
	if _, ok := r.Source("curated"); !ok {
		t.Error("curated should be addressable")
	}
	if _, ok := r.Source("excel"); ok {
		t.Error("unknown source should not resolve")
	}
}

func TestRegistry_ConcurrentReadersDuringReload(t *testing.T) {
	r := registry.New(catalog.NewStaticSource(catalog.SourceTabular, testDefs()), weights.Default(), discardLogger())
	if _, err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.Reload(context.Background())
		}()
		go func() {
			defer wg.Done()
			if snap := r.Current(); snap == nil || snap.Catalog.Len() != 2 {
				t.Error("reader saw an incomplete snapshot")
			}
		}()
	}
	wg.Wait()
}
