package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/dependency"
)

// ─── GET /api/questions?lang=en|ar ────────────────────────────────────────────

type optionResponse struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type questionResponse struct {
	ID            string           `json:"id"`
	Section       string           `json:"section"`
	Text          string           `json:"text"`
	Elaboration   string           `json:"elaboration,omitempty"`
	VisitType     string           `json:"visit_type,omitempty"`
	AnswerType    string           `json:"answer_type"`
	MaxScore      int              `json:"max_score"`
	MinScore      int              `json:"min_score"`
	Options       []optionResponse `json:"options"`
	HasConditions bool             `json:"has_conditions"`
	Condition     string           `json:"condition,omitempty"`
}

// toQuestionResponse picks the primary or secondary language text. Secondary
// text falls back to primary when the catalog row has none.
func toQuestionResponse(q catalog.QuestionDefinition, lang string) questionResponse {
	text := q.TextPrimary
	if lang == "ar" && q.TextSecondary != "" {
		text = q.TextSecondary
	}

	opts := make([]optionResponse, 0, len(q.AnswerOptions))
	for _, o := range q.AnswerOptions {
		label := o.LabelPrimary
		if lang == "ar" && o.LabelSecondary != "" {
			label = o.LabelSecondary
		}
		opts = append(opts, optionResponse{Value: o.Value, Label: label})
	}

	return questionResponse{
		ID:            q.ID,
		Section:       q.Section,
		Text:          text,
		Elaboration:   q.Elaboration,
		VisitType:     q.VisitType,
		AnswerType:    string(q.AnswerType),
		MaxScore:      q.MaxScore,
		MinScore:      q.MinScore(),
		Options:       opts,
		HasConditions: q.HasConditions,
		Condition:     q.ConditionExpression,
	}
}

func requestLang(r *http.Request) string {
	if strings.EqualFold(r.URL.Query().Get("lang"), "ar") {
		return "ar"
	}
	return "en"
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}
	lang := requestLang(r)

	defs := snap.Catalog.Definitions()
	out := make([]questionResponse, 0, len(defs))
	for _, d := range defs {
		out = append(out, toQuestionResponse(d, lang))
	}

	respond(w, http.StatusOK, map[string]any{
		"language":        lang,
		"catalog_version": snap.Version,
		"total":           len(out),
		"questions":       out,
	})
}

// ─── GET /api/questions/by-category ───────────────────────────────────────────

type categoryGroup struct {
	Name        string   `json:"name"`
	Weight      float64  `json:"weight"`
	Sections    []string `json:"sections"`
	QuestionIDs []string `json:"question_ids"`
}

// handleQuestionsByCategory groups questions under their display category.
// Sections missing from the weight table are listed separately; their
// questions are not scored.
func (s *Server) handleQuestionsByCategory(w http.ResponseWriter, r *http.Request) {
	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}

	groups := make(map[string]*categoryGroup)
	var order []string
	var unmapped []catalog.Section

	for _, sec := range snap.Catalog.Sections() {
		name, weight, ok := snap.Weights.CategoryFor(sec.Name)
		if !ok {
			unmapped = append(unmapped, sec)
			continue
		}
		g, seen := groups[name]
		if !seen {
			g = &categoryGroup{Name: name, Weight: weight}
			groups[name] = g
			order = append(order, name)
		}
		g.Sections = append(g.Sections, sec.Name)
		g.QuestionIDs = append(g.QuestionIDs, sec.QuestionIDs...)
	}

	categories := make([]categoryGroup, 0, len(order))
	for _, name := range order {
		categories = append(categories, *groups[name])
	}
	if unmapped == nil {
		unmapped = []catalog.Section{}
	}

	respond(w, http.StatusOK, map[string]any{
		"categories":        categories,
		"unmapped_sections": unmapped,
	})
}

// ─── GET /api/questions/{questionID}/dependents ───────────────────────────────

// handleQuestionDependents lists the questions whose condition text refers to
// questionID. "exact" uses the token index; "matches" uses the substring scan,
// which also catches longer ids sharing the prefix (Q5 → Q51).
func (s *Server) handleQuestionDependents(w http.ResponseWriter, r *http.Request) {
	id := catalog.NormalizeID(chi.URLParam(r, "questionID"))
	if !catalog.ValidID(id) {
		respondErr(w, http.StatusBadRequest, "invalid question id")
		return
	}

	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}

	exact := snap.Dependencies.Dependents(id)
	if exact == nil {
		exact = []string{}
	}
	matches := dependency.DependentsOf(snap.Catalog, id)
	if matches == nil {
		matches = []dependency.Summary{}
	}

	respond(w, http.StatusOK, map[string]any{
		"trigger_id":    id,
		"known":         snap.Catalog.Has(id),
		"exact":         exact,
		"matches":       matches,
		"matches_count": len(matches),
	})
}
