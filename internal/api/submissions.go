package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nyashahama/mystery-shopper-backend/internal/db"
	"github.com/nyashahama/mystery-shopper-backend/internal/intake"
	"github.com/nyashahama/mystery-shopper-backend/internal/store"
)

// ─── POST /api/survey/submit ──────────────────────────────────────────────────

type submitResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

// handleSubmitSurvey validates a submission against the active catalog,
// stores it, and queues it for scoring. The response does not wait for the
// score; clients poll GET /api/submissions/{id}/report.
func (s *Server) handleSubmitSurvey(w http.ResponseWriter, r *http.Request) {
	var req intake.Request
	if !decode(w, r, &req) {
		return
	}

	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}

	accepted, err := intake.NewValidator(snap.Catalog).Validate(req)
	if err != nil {
		s.logger.Info("submit: rejected", logField(r), "error", err)
		respondValidation(w, err)
		return
	}

	row, err := s.store.CreateSubmission(r.Context(), store.CreateSubmissionParams{
		Submission:   accepted.Submission,
		LocationCode: accepted.LocationCode,
		ShopperID:    accepted.ShopperID,
		Language:     accepted.Language,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create submission: %w", err))
		return
	}

	// A full queue is not fatal: the row is pending and the poller will find it.
	if err := s.worker.Enqueue(r.Context(), row.ID); err != nil {
		s.logger.Warn("submit: enqueue failed", logField(r), "submission_id", row.ID, "error", err)
	}

	respond(w, http.StatusCreated, submitResponse{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		Status:    string(row.Status),
	})
}

// ─── GET /api/submissions/{submissionID}/report ───────────────────────────────

// handleGetReport serves a submission's score report. Returns 202 Accepted
// while the submission is still pending so the client can poll.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "submissionID"), 10, 64)
	if err != nil || id <= 0 {
		respondErr(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	if s.reports != nil {
		cached, err := s.reports.Get(r.Context(), id)
		if err != nil {
			s.logger.Warn("report: cache read failed", logField(r), "submission_id", id, "error", err)
		} else if cached != nil {
			respond(w, http.StatusOK, cached)
			return
		}
	}

	report, err := s.store.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrSubmissionNotFound) {
		respondErr(w, http.StatusNotFound, "submission not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get report: %w", err))
		return
	}

	if report.Status == db.SubmissionStatusPending {
		respond(w, http.StatusAccepted, map[string]string{
			"status":  string(report.Status),
			"message": "submission is being scored, please check back shortly",
		})
		return
	}

	if report.Status == db.SubmissionStatusScored && s.reports != nil {
		if err := s.reports.Set(r.Context(), &report); err != nil {
			s.logger.Warn("report: cache write failed", logField(r), "submission_id", id, "error", err)
		}
	}

	respond(w, http.StatusOK, report)
}

// ─── GET /api/admin/submissions ───────────────────────────────────────────────

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultPageSize)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	if limit < 1 || limit > maxPageSize {
		respondErr(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
		return
	}
	if offset < 0 {
		respondErr(w, http.StatusBadRequest, "offset must not be negative")
		return
	}

	items, err := s.store.ListSubmissions(r.Context(), int32(limit), int32(offset))
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"submissions": items,
		"limit":       limit,
		"offset":      offset,
	})
}

// queryInt reads an optional integer query parameter. It writes 400 and
// returns false on a malformed value.
func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", key))
		return 0, false
	}
	return n, true
}
