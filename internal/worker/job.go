package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nyashahama/mystery-shopper-backend/internal/db"
	"github.com/nyashahama/mystery-shopper-backend/internal/registry"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
	"github.com/nyashahama/mystery-shopper-backend/internal/store"
)

// ErrPermanent marks a job failure that retrying cannot fix.
var ErrPermanent = errors.New("worker: permanent failure")

// SubmissionStore is the slice of *store.Store the job needs.
type SubmissionStore interface {
	LoadSubmission(ctx context.Context, id int64) (scoring.Submission, db.Submission, error)
	PersistScoreReport(ctx context.Context, p store.PersistScoreReportParams) (db.ScoreReport, error)
}

// Snapshotter returns the active catalog snapshot. *registry.Registry
// satisfies it.
type Snapshotter interface {
	Current() *registry.Snapshot
}

// ReportWriter receives freshly scored reports. cache.ReportCache satisfies
// it; a nil ReportWriter disables caching.
type ReportWriter interface {
	Set(ctx context.Context, report *store.StoredReport) error
}

// Job holds the dependencies for the score-and-persist pipeline.
type Job struct {
	store    SubmissionStore
	catalogs Snapshotter
	cache    ReportWriter
	logger   *slog.Logger
}

// NewJob constructs a Job. cache may be nil.
func NewJob(st SubmissionStore, catalogs Snapshotter, cache ReportWriter, logger *slog.Logger) *Job {
	return &Job{
		store:    st,
		catalogs: catalogs,
		cache:    cache,
		logger:   logger,
	}
}

// Run executes the pipeline for a single submission:
//
//  1. Load the submission and its answers.
//  2. Score them against the current catalog snapshot.
//  3. Persist the report and mark the submission scored.
//  4. Write the report to the cache.
//
// Errors are returned to the Runner, which retries transient ones.
func (j *Job) Run(ctx context.Context, submissionID int64) error {
	log := j.logger.With("submission_id", submissionID)
	log.Debug("job: starting")

	// ── 1. Load ──────────────────────────────────────────────────────────────
	sub, row, err := j.store.LoadSubmission(ctx, submissionID)
	if errors.Is(err, store.ErrSubmissionNotFound) {
		return fmt.Errorf("job: %w: %w", ErrPermanent, err)
	}
	if err != nil {
		return fmt.Errorf("job: load submission: %w", err)
	}
	if row.Status == db.SubmissionStatusScored {
		log.Debug("job: already scored, skipping")
		return nil
	}

	// ── 2. Score ─────────────────────────────────────────────────────────────
	snap := j.catalogs.Current()
	if snap == nil {
		return errors.New("job: no catalog snapshot loaded")
	}
	report := scoring.Score(sub, snap.Catalog, snap.Dependencies, snap.Weights)

	log.Debug("job: scored",
		"overall_score", report.OverallScore,
		"categories", len(report.Categories),
		"catalog_version", snap.Version,
	)

	// ── 3. Persist ───────────────────────────────────────────────────────────
	saved, err := j.store.PersistScoreReport(ctx, store.PersistScoreReportParams{
		Report:         report,
		CatalogVersion: snap.Version,
		CatalogSource:  snap.Source,
	})
	if err != nil {
		return fmt.Errorf("job: persist report: %w", err)
	}

	log.Info("job: report persisted",
		"overall_score", saved.OverallScore,
		"catalog_source", saved.CatalogSource,
	)

	// ── 4. Cache ─────────────────────────────────────────────────────────────
	// The report is durable at this point; a cache failure only costs a
	// database read later.
	if j.cache != nil {
		version := saved.CatalogVersion
		scoredAt := saved.CreatedAt
		if err := j.cache.Set(ctx, &store.StoredReport{
			SubmissionID:   submissionID,
			Status:         db.SubmissionStatusScored,
			Report:         &report,
			CatalogVersion: &version,
			CatalogSource:  saved.CatalogSource,
			ScoredAt:       &scoredAt,
		}); err != nil {
			log.Warn("job: failed to cache report", "error", err)
		}
	}

	return nil
}
