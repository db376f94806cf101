package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/mystery-shopper-backend/internal/db"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// PersistScoreReportParams is everything the worker hands to the store once a
// submission has been scored.
type PersistScoreReportParams struct {
	Report         scoring.Report
	CatalogVersion uuid.UUID // snapshot the report was scored against
	CatalogSource  string
}

// StoredReport is a submission's lifecycle state joined with its report, if
// one exists yet.
type StoredReport struct {
	SubmissionID   int64               `json:"submission_id"`
	Status         db.SubmissionStatus `json:"status"`
	ErrorMessage   string              `json:"error_message,omitempty"`
	Report         *scoring.Report     `json:"report,omitempty"`
	CatalogVersion *uuid.UUID          `json:"catalog_version,omitempty"`
	CatalogSource  string              `json:"catalog_source,omitempty"`
	ScoredAt       *time.Time          `json:"scored_at,omitempty"`
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// PersistScoreReport atomically:
//
//  1. Upserts the score_reports row (re-scoring replaces the old report).
//  2. Marks the submission scored.
//
// If either step fails nothing is written and the submission stays pending,
// so the worker's poller picks it up again.
func (s *Store) PersistScoreReport(ctx context.Context, p PersistScoreReportParams) (db.ScoreReport, error) {
	categories, err := json.Marshal(p.Report.Categories)
	if err != nil {
		return db.ScoreReport{}, fmt.Errorf("PersistScoreReport: marshal categories: %w", err)
	}
	unanswered, err := marshalNullable(p.Report.UnansweredConditional, len(p.Report.UnansweredConditional) > 0)
	if err != nil {
		return db.ScoreReport{}, fmt.Errorf("PersistScoreReport: marshal unanswered: %w", err)
	}

	var saved db.ScoreReport
	err = s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		row, err := q.UpsertScoreReport(ctx, db.UpsertScoreReportParams{
			SubmissionID:          p.Report.SubmissionID,
			OverallScore:          p.Report.OverallScore,
			TotalWeightedScore:    p.Report.TotalWeightedScore,
			TotalWeightUsed:       p.Report.TotalWeightUsed,
			Categories:            categories,
			UnansweredConditional: unanswered,
			CatalogVersion:        p.CatalogVersion,
			CatalogSource:         p.CatalogSource,
		})
		if err != nil {
			return fmt.Errorf("PersistScoreReport: upsert report: %w", err)
		}

		if _, err := q.SetSubmissionScored(ctx, p.Report.SubmissionID); err != nil {
			return fmt.Errorf("PersistScoreReport: set scored: %w", err)
		}

		saved = row
		return nil
	})
	if err != nil {
		return db.ScoreReport{}, err
	}
	return saved, nil
}

// GetReport returns the submission's status and, once scored, its report.
func (s *Store) GetReport(ctx context.Context, submissionID int64) (StoredReport, error) {
	sub, err := s.q.GetSubmissionByID(ctx, submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredReport{}, ErrSubmissionNotFound
	}
	if err != nil {
		return StoredReport{}, fmt.Errorf("GetReport: get submission: %w", err)
	}

	out := StoredReport{
		SubmissionID: sub.ID,
		Status:       sub.Status,
		ErrorMessage: sub.ErrorMessage.String,
	}
	if sub.Status != db.SubmissionStatusScored {
		return out, nil
	}

	row, err := s.q.GetScoreReportBySubmission(ctx, submissionID)
	if err != nil {
		return StoredReport{}, fmt.Errorf("GetReport: get score report: %w", err)
	}
	report, err := DecodeReport(row)
	if err != nil {
		return StoredReport{}, fmt.Errorf("GetReport: %w", err)
	}
	out.Report = &report
	out.CatalogVersion = &row.CatalogVersion
	out.CatalogSource = row.CatalogSource
	out.ScoredAt = &row.CreatedAt
	return out, nil
}

// DecodeReport rebuilds a scoring.Report from its stored row.
func DecodeReport(row db.ScoreReport) (scoring.Report, error) {
	r := scoring.Report{
		SubmissionID:          row.SubmissionID,
		OverallScore:          row.OverallScore,
		TotalWeightedScore:    row.TotalWeightedScore,
		TotalWeightUsed:       row.TotalWeightUsed,
		UnansweredConditional: []string{},
	}
	if err := json.Unmarshal(row.Categories, &r.Categories); err != nil {
		return scoring.Report{}, fmt.Errorf("decode categories: %w", err)
	}
	if row.UnansweredConditional.Valid {
		if err := json.Unmarshal(row.UnansweredConditional.RawMessage, &r.UnansweredConditional); err != nil {
			return scoring.Report{}, fmt.Errorf("decode unanswered conditional: %w", err)
		}
	}
	return r, nil
}
