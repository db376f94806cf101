package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nyashahama/mystery-shopper-backend/internal/db"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
	"github.com/sqlc-dev/pqtype"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// CreateSubmissionParams is a validated submission plus the identifiers that
// are stored but never scored.
type CreateSubmissionParams struct {
	Submission   scoring.Submission
	LocationCode string
	ShopperID    string
	Language     string
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrSubmissionNotFound is returned when no submission row has the given id.
var ErrSubmissionNotFound = errors.New("store: submission not found")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// CreateSubmission inserts the submission row and one submission_scores row
// per answer in a single transaction. The returned row carries the assigned
// id and status=pending.
func (s *Store) CreateSubmission(ctx context.Context, p CreateSubmissionParams) (db.Submission, error) {
	latency, err := marshalNullable(p.Submission.LatencySamples, len(p.Submission.LatencySamples) > 0)
	if err != nil {
		return db.Submission{}, fmt.Errorf("CreateSubmission: marshal latency samples: %w", err)
	}

	var created db.Submission
	err = s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		row, err := q.CreateSubmission(ctx, db.CreateSubmissionParams{
			Channel:        p.Submission.Channel,
			LocationCode:   p.LocationCode,
			ShopperID:      p.ShopperID,
			VisitDatetime:  p.Submission.VisitDatetime,
			Language:       p.Language,
			LatencySamples: latency,
		})
		if err != nil {
			return fmt.Errorf("CreateSubmission: insert submission: %w", err)
		}

		for _, a := range p.Submission.Scores {
			if _, err := q.InsertSubmissionScore(ctx, db.InsertSubmissionScoreParams{
				SubmissionID: row.ID,
				QuestionID:   a.QuestionID,
				Score:        int32(a.Score),
				Comment: sql.NullString{
					String: a.Comment,
					Valid:  a.Comment != "",
				},
			}); err != nil {
				return fmt.Errorf("CreateSubmission: insert score %q: %w", a.QuestionID, err)
			}
		}

		created = row
		return nil
	})
	if err != nil {
		return db.Submission{}, err
	}
	return created, nil
}

// LoadSubmission reads a submission and its answers back into the shape the
// scoring engine consumes.
func (s *Store) LoadSubmission(ctx context.Context, id int64) (scoring.Submission, db.Submission, error) {
	row, err := s.q.GetSubmissionByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return scoring.Submission{}, db.Submission{}, ErrSubmissionNotFound
	}
	if err != nil {
		return scoring.Submission{}, db.Submission{}, fmt.Errorf("LoadSubmission: get submission: %w", err)
	}

	scores, err := s.q.GetScoresBySubmission(ctx, id)
	if err != nil {
		return scoring.Submission{}, db.Submission{}, fmt.Errorf("LoadSubmission: get scores: %w", err)
	}

	sub := scoring.Submission{
		ID:            row.ID,
		Channel:       row.Channel,
		VisitDatetime: row.VisitDatetime.UTC(),
		Scores:        make([]scoring.Answer, 0, len(scores)),
	}
	for _, sc := range scores {
		sub.Scores = append(sub.Scores, scoring.Answer{
			QuestionID: sc.QuestionID,
			Score:      int(sc.Score),
			Comment:    sc.Comment.String,
		})
	}
	if row.LatencySamples.Valid {
		if err := json.Unmarshal(row.LatencySamples.RawMessage, &sub.LatencySamples); err != nil {
			return scoring.Submission{}, db.Submission{}, fmt.Errorf("LoadSubmission: decode latency samples: %w", err)
		}
	}
	return sub, row, nil
}

// MarkSubmissionFailed sets status=error with reason. Called by the worker
// once retries are exhausted.
func (s *Store) MarkSubmissionFailed(ctx context.Context, id int64, reason string) (db.Submission, error) {
	row, err := s.q.SetSubmissionError(ctx, db.SetSubmissionErrorParams{
		ID: id,
		ErrorMessage: sql.NullString{
			String: reason,
			Valid:  true,
		},
	})
	if errors.Is(err, sql.ErrNoRows) {
		return db.Submission{}, ErrSubmissionNotFound
	}
	if err != nil {
		return db.Submission{}, fmt.Errorf("MarkSubmissionFailed: %w", err)
	}
	return row, nil
}

// Metrics aggregates the admin dashboard numbers.
func (s *Store) Metrics(ctx context.Context) (scoring.Metrics, error) {
	total, err := s.q.CountSubmissions(ctx)
	if err != nil {
		return scoring.Metrics{}, fmt.Errorf("Metrics: count submissions: %w", err)
	}
	rows, err := s.q.GetChannelScoreStats(ctx)
	if err != nil {
		return scoring.Metrics{}, fmt.Errorf("Metrics: channel stats: %w", err)
	}
	stats := make([]scoring.ChannelStat, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, scoring.ChannelStat{
			Channel:  r.Channel,
			Answers:  r.Answers,
			ScoreSum: r.ScoreSum,
		})
	}
	return scoring.BasicMetrics(total, stats), nil
}

// SubmissionSummary is the admin listing view of a submission.
type SubmissionSummary struct {
	ID            int64     `json:"id"`
	Channel       string    `json:"channel"`
	LocationCode  string    `json:"location_code"`
	ShopperID     string    `json:"shopper_id"`
	VisitDatetime time.Time `json:"visit_datetime"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListSubmissions returns newest-first summaries.
func (s *Store) ListSubmissions(ctx context.Context, limit, offset int32) ([]SubmissionSummary, error) {
	rows, err := s.q.ListSubmissions(ctx, db.ListSubmissionsParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("ListSubmissions: %w", err)
	}
	out := make([]SubmissionSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, SubmissionSummary{
			ID:            r.ID,
			Channel:       r.Channel,
			LocationCode:  r.LocationCode,
			ShopperID:     r.ShopperID,
			VisitDatetime: r.VisitDatetime,
			Status:        string(r.Status),
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

// marshalNullable encodes v as a JSONB value, or SQL NULL when valid is false.
func marshalNullable(v any, valid bool) (pqtype.NullRawMessage, error) {
	if !valid {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}
