// Package catalog turns the hand-maintained question sheet into an immutable,
// ordered set of QuestionDefinitions. The sheet is inconsistent by nature
// (duplicate ids, deleted rows, free-text answer encodings, ad-hoc trigger
// text), so everything here degrades row by row instead of failing the load.
//
// Dependency rule: catalog imports nothing from internal/. Snapshot handling
// lives in registry, analysis in dependency.
package catalog

import (
	"regexp"
	"strings"
)

// ─── ANSWER TYPES ─────────────────────────────────────────────────────────────

// AnswerType is derived from the free-text answer encoding.
type AnswerType string

const (
	AnswerRating         AnswerType = "rating"
	AnswerYesNo          AnswerType = "yes_no"
	AnswerMultipleChoice AnswerType = "multiple_choice"
)

// AnswerOption is one selectable answer parsed from the encoding.
type AnswerOption struct {
	Value          int    `json:"value"`
	LabelPrimary   string `json:"label_primary"`
	LabelSecondary string `json:"label_secondary,omitempty"`
}

// ─── QUESTION DEFINITION ──────────────────────────────────────────────────────

// QuestionDefinition is a single normalized catalog question. Values are
// created once per catalog load and never mutated afterwards.
type QuestionDefinition struct {
	ID            string `json:"id"`
	Section       string `json:"section"`
	TextPrimary   string `json:"text_primary"`
	TextSecondary string `json:"text_secondary"`
	Elaboration   string `json:"elaboration,omitempty"`
	VisitType     string `json:"visit_type,omitempty"`

	AnswerEncoding string         `json:"answer_encoding"`
	MaxScore       int            `json:"max_score"` // always >= 1
	AnswerType     AnswerType     `json:"answer_type"`
	AnswerOptions  []AnswerOption `json:"answer_options"`

	HasConditions       bool   `json:"has_conditions"`
	ConditionExpression string `json:"condition_expression,omitempty"`
}

// MinScore is the lowest raw score a submission may record for the question.
// Option-based questions allow their lowest option value (usually 0 for "No");
// ratings start at 1.
func (q QuestionDefinition) MinScore() int {
	if len(q.AnswerOptions) == 0 {
		return 1
	}
	lowest := q.AnswerOptions[0].Value
	for _, o := range q.AnswerOptions[1:] {
		if o.Value < lowest {
			lowest = o.Value
		}
	}
	if lowest > q.MaxScore {
		return q.MaxScore
	}
	return lowest
}

// ─── QUESTION IDS ─────────────────────────────────────────────────────────────

var (
	// idPattern validates a whole id token: Q12, Q27.1, Q75.0.
	idPattern = regexp.MustCompile(`^Q\d+(?:\.\d+)?$`)

	// idScanPattern finds id references inside free text such as
	// "Show if Q51 = Yes". Matching is case-insensitive; results are
	// upper-cased by ExtractIDs.
	idScanPattern = regexp.MustCompile(`(?i)\bQ\d+(?:\.\d+)?`)
)

// NormalizeID trims whitespace and upper-cases the leading Q so "q12 " and
// "Q12" resolve to the same question.
func NormalizeID(raw string) string {
	id := strings.TrimSpace(raw)
	if strings.HasPrefix(id, "q") {
		id = "Q" + id[1:]
	}
	return id
}

// ValidID reports whether id is a well-formed question id.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ExtractIDs returns every question-id reference found in text, in order of
// appearance, without duplicates.
func ExtractIDs(text string) []string {
	matches := idScanPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		id := NormalizeID(m)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
