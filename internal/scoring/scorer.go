// Package scoring computes weighted quality scores for mystery-shopper
// submissions. It performs no I/O and holds no state: Score is a pure
// function of the submission, the catalog snapshot, and the weight map, so it
// may be called from any number of goroutines against the same snapshot.
//
// Dependency rule: scoring imports catalog, dependency and weights only. It
// never imports db, store, api, or worker.
package scoring

import (
	"math"
	"time"

	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/dependency"
	"github.com/nyashahama/mystery-shopper-backend/internal/weights"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Answer is one raw per-question score. QuestionIDs are unique within a
// submission.
type Answer struct {
	QuestionID string `json:"question_id"`
	Score      int    `json:"score"`
	Comment    string `json:"comment,omitempty"`
}

// LatencySample is the voice-capture latency for one answered question.
type LatencySample struct {
	QuestionID string  `json:"question_id"`
	Ms         float64 `json:"ms"`
}

// Submission is a validated survey response. Only submissions that passed
// intake validation reach Score, so every QuestionID is in the catalog.
type Submission struct {
	ID             int64           `json:"id"`
	Channel        string          `json:"channel"`
	VisitDatetime  time.Time       `json:"visit_datetime"`
	Scores         []Answer        `json:"scores"`
	LatencySamples []LatencySample `json:"latency_samples,omitempty"`
}

// CategoryScore is one display category's share of a submission score.
type CategoryScore struct {
	RawTotal             int     `json:"raw_total"`
	RawMax               int     `json:"raw_max"`
	Percentage           float64 `json:"percentage"` // raw_total / raw_max, 4 dp
	Weight               float64 `json:"weight"`
	WeightedContribution float64 `json:"weighted_contribution"` // percentage × weight, 4 dp
	QuestionCount        int     `json:"question_count"`
	AnsweredCount        int     `json:"answered_count"`
}

// Report is the scored result for one submission. It is derived data and is
// only persisted alongside the submission it belongs to.
type Report struct {
	SubmissionID int64                    `json:"submission_id"`
	Categories   map[string]CategoryScore `json:"categories"`

	// OverallScore is Σ weighted_contribution / Σ weight over the categories
	// present in Categories, in [0,1]; 0 when none contributed.
	OverallScore       float64 `json:"overall_score"`
	TotalWeightedScore float64 `json:"total_weighted_score"`
	TotalWeightUsed    float64 `json:"total_weight_used"`

	// UnansweredConditional lists conditional questions the submission did
	// not answer. They still count as 0 in their category; this list only
	// helps reviewers tell "skipped by a trigger" from "forgotten".
	UnansweredConditional []string `json:"unanswered_conditional"`
}

// ─── SCORE ────────────────────────────────────────────────────────────────────

type accumulator struct {
	weight        float64
	rawTotal      int
	rawMax        int
	questionCount int
	answeredCount int
}

// Score aggregates a submission's raw scores into a weighted Report.
//
//  1. Catalog questions are grouped by the display category of their section.
//     Questions whose section has no weight entry are left out.
//  2. Within a category, every member question adds its MaxScore to raw_max;
//     answered questions add their raw score to raw_total, unanswered add 0.
//  3. A category none of whose members were answered is omitted, and so is
//     one with raw_max 0.
//  4. overall = Σ contribution / Σ weight of the categories kept.
//
// Reported ratios are rounded to 4 decimal places; accumulation is unrounded.
func Score(sub Submission, cat *catalog.Catalog, deps dependency.Index, wm *weights.Map) Report {
	answers := make(map[string]int, len(sub.Scores))
	for _, a := range sub.Scores {
		answers[a.QuestionID] = a.Score
	}

	accs := make(map[string]*accumulator)
	var order []string

	for _, def := range cat.Definitions() {
		category, weight, ok := wm.CategoryFor(def.Section)
		if !ok {
			continue
		}
		acc, seen := accs[category]
		if !seen {
			acc = &accumulator{weight: weight}
			accs[category] = acc
			order = append(order, category)
		}

		acc.rawMax += def.MaxScore
		acc.questionCount++
		if raw, answered := answers[def.ID]; answered {
			acc.rawTotal += clamp(raw, 0, def.MaxScore)
			acc.answeredCount++
		}
	}

	report := Report{
		SubmissionID:          sub.ID,
		Categories:            make(map[string]CategoryScore, len(order)),
		UnansweredConditional: unansweredConditional(cat, deps, answers),
	}

	var sumContribution, sumWeight float64
	for _, category := range order {
		acc := accs[category]
		if acc.answeredCount == 0 || acc.rawMax == 0 {
			continue
		}
		pct := float64(acc.rawTotal) / float64(acc.rawMax)
		contribution := pct * acc.weight

		sumContribution += contribution
		sumWeight += acc.weight

		report.Categories[category] = CategoryScore{
			RawTotal:             acc.rawTotal,
			RawMax:               acc.rawMax,
			Percentage:           Round4(pct),
			Weight:               acc.weight,
			WeightedContribution: Round4(contribution),
			QuestionCount:        acc.questionCount,
			AnsweredCount:        acc.answeredCount,
		}
	}

	report.TotalWeightedScore = Round4(sumContribution)
	report.TotalWeightUsed = Round4(sumWeight)
	if sumWeight > 0 {
		report.OverallScore = Round4(sumContribution / sumWeight)
	}

	return report
}

// unansweredConditional returns, in catalog order, the conditional questions
// that have no answer in the submission.
func unansweredConditional(cat *catalog.Catalog, deps dependency.Index, answers map[string]int) []string {
	gated := make(map[string]struct{})
	for _, ids := range deps.ByExpression {
		for _, id := range ids {
			gated[id] = struct{}{}
		}
	}

	out := []string{}
	for _, id := range cat.IDs() {
		if _, ok := gated[id]; !ok {
			continue
		}
		if _, answered := answers[id]; !answered {
			out = append(out, id)
		}
	}
	return out
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

// clamp constrains a raw score to [lo, hi]. Intake rejects out-of-range
// scores; this keeps percentages inside [0,1] for callers that skip intake,
// such as the preview endpoint fed by trusted tooling.
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round4 rounds to 4 decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
