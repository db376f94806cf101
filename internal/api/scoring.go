package api

import (
	"net/http"

	"github.com/nyashahama/mystery-shopper-backend/internal/intake"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
)

// ─── POST /api/score/preview ──────────────────────────────────────────────────

type previewRequest struct {
	Scores []scoring.Answer `json:"scores"`
}

// handlePreviewScore scores an unsaved set of answers against the active
// catalog. Nothing is persisted.
func (s *Server) handlePreviewScore(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decode(w, r, &req) {
		return
	}

	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}

	answers, err := intake.NewValidator(snap.Catalog).ValidateScores(req.Scores)
	if err != nil {
		respondValidation(w, err)
		return
	}

	report := scoring.Score(scoring.Submission{Scores: answers}, snap.Catalog, snap.Dependencies, snap.Weights)

	respond(w, http.StatusOK, map[string]any{
		"catalog_version": snap.Version,
		"catalog_source":  snap.Source,
		"report":          report,
	})
}
