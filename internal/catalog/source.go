package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

// ─── SOURCE INTERFACE ─────────────────────────────────────────────────────────

// Source is one independently maintained copy of the question catalog. The
// registry loads from one of them; the consistency auditor compares any two.
type Source interface {
	// Name is the stable identifier used in config and diagnostics URLs.
	Name() string

	// Load returns a freshly built Catalog. Implementations wrap
	// ErrCatalogUnavailable when the backing data cannot be read at all.
	Load(ctx context.Context) (*Catalog, error)
}

// Source names.
const (
	SourceTabular  = "tabular"
	SourceCurated  = "curated"
	SourceFallback = "fallback"
)

// ─── TABULAR (CSV) ────────────────────────────────────────────────────────────

// TabularSource reads the question sheet export from a CSV file.
type TabularSource struct {
	path   string
	parser *Parser
}

// NewTabularSource returns a Source reading path on every Load.
func NewTabularSource(path string, logger *slog.Logger) *TabularSource {
	return &TabularSource{path: path, parser: NewParser(logger)}
}

func (s *TabularSource) Name() string { return SourceTabular }

// Path returns the CSV location.
func (s *TabularSource) Path() string { return s.path }

// Load opens and parses the file. A missing or unreadable file wraps
// ErrCatalogUnavailable; individual bad rows never fail the load.
func (s *TabularSource) Load(ctx context.Context) (*Catalog, error) {
	res, err := s.LoadResult(ctx)
	if err != nil {
		return nil, err
	}
	return res.Catalog, nil
}

// LoadResult is Load with the parser bookkeeping attached.
func (s *TabularSource) LoadResult(ctx context.Context) (ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return ParseResult{}, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ParseResult{}, fmt.Errorf("%w: %s not found", ErrCatalogUnavailable, s.path)
		}
		return ParseResult{}, fmt.Errorf("%w: open %s: %v", ErrCatalogUnavailable, s.path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil && len(rows) == 0 {
		return ParseResult{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if err != nil {
		// Keep what was read before the bad record.
		s.parser.logger.Warn("catalog: csv truncated, using rows read so far",
			"path", s.path,
			"rows", len(rows),
			"error", err,
		)
	}

	return s.parser.Parse(rows), nil
}

// ─── STATIC SOURCES ───────────────────────────────────────────────────────────

// StaticSource serves a fixed list of definitions. It backs both the curated
// list and the fallback catalog.
type StaticSource struct {
	name string
	defs []QuestionDefinition
}

// NewStaticSource returns a Source that always yields defs.
func NewStaticSource(name string, defs []QuestionDefinition) *StaticSource {
	return &StaticSource{name: name, defs: defs}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FromDefinitions(s.defs), nil
}

// NewCuratedSource returns the hand-maintained list the survey form was first
// built against.
func NewCuratedSource() *StaticSource {
	return NewStaticSource(SourceCurated, CuratedDefinitions())
}

// NewFallbackSource returns the built-in catalog used when the sheet cannot
// be read.
func NewFallbackSource() *StaticSource {
	return NewStaticSource(SourceFallback, FallbackDefinitions())
}

// ─── FALLBACK LOADING ─────────────────────────────────────────────────────────

// LoadWithFallback loads src and, if it is unavailable, returns the built-in
// fallback catalog with degraded=true. Errors other than unavailability
// (e.g. a cancelled context) are returned unchanged.
func LoadWithFallback(ctx context.Context, src Source, logger *slog.Logger) (cat *Catalog, degraded bool, err error) {
	cat, err = src.Load(ctx)
	if err == nil {
		return cat, false, nil
	}
	if !errors.Is(err, ErrCatalogUnavailable) {
		return nil, false, err
	}

	if logger != nil {
		logger.Error("catalog: source unavailable, serving built-in fallback catalog",
			"source", src.Name(),
			"error", err,
		)
	}
	cat, err = NewFallbackSource().Load(ctx)
	if err != nil {
		return nil, false, err
	}
	return cat, true, nil
}
