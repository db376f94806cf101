// Package audit compares two independently maintained copies of the question
// catalog and explains how they diverge. It is read-only and never runs on
// the submission-scoring path.
package audit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/dependency"
)

const (
	maxIssues           = 20
	maxSampleConditions = 10
	maxListedIDs        = 5
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Named pairs a catalog with the name of the source it came from.
type Named struct {
	Name    string
	Catalog *catalog.Catalog
}

// IssueKind classifies a per-question divergence.
type IssueKind string

const (
	IssueMissingInA   IssueKind = "missing_in_a"
	IssueMissingInB   IssueKind = "missing_in_b"
	IssueTextMismatch IssueKind = "text_mismatch"
)

// Issue is one divergence between the sources.
type Issue struct {
	QuestionID string    `json:"question_id"`
	Kind       IssueKind `json:"issue"`
	Details    string    `json:"details"`
}

// TextMismatch is a question present in both sources with different primary
// text.
type TextMismatch struct {
	QuestionID string `json:"question_id"`
	TextA      string `json:"text_a"`
	TextB      string `json:"text_b"`
}

// SourceSummary describes one side of the comparison.
type SourceSummary struct {
	Name                 string               `json:"name"`
	TotalQuestions       int                  `json:"total_questions"`
	ConditionalQuestions int                  `json:"conditional_questions"`
	TargetDependents     int                  `json:"target_dependents"`
	Sections             map[string]int       `json:"sections"`
	ConditionalSample    []dependency.Summary `json:"conditional_sample"`
}

// Report is the full diagnostics result.
type Report struct {
	Status   string        `json:"status"` // "valid" or "issues_found"
	TargetID string        `json:"target_id,omitempty"`
	A        SourceSummary `json:"a"`
	B        SourceSummary `json:"b"`

	OnlyInA        []string       `json:"only_in_a"`
	OnlyInB        []string       `json:"only_in_b"`
	CommonCount    int            `json:"common_count"`
	TextMismatches []TextMismatch `json:"text_mismatches"`

	// TargetDependents are the questions in B gated by TargetID.
	TargetDependents []dependency.Summary `json:"target_dependents"`

	TotalIssues     int      `json:"total_issues"`
	Issues          []Issue  `json:"issues"` // first 20
	Recommendations []string `json:"recommendations"`
}

// ─── AUDIT ────────────────────────────────────────────────────────────────────

// Audit compares a and b. targetID, when non-empty, selects the trigger whose
// dependents are counted (e.g. "Q51"); matching uses dependency.DependentsOf.
func Audit(a, b Named, targetID string) Report {
	r := Report{
		TargetID: targetID,
		A:        summarize(a, targetID),
		B:        summarize(b, targetID),
	}

	idsA := toSet(a.Catalog.IDs())
	idsB := toSet(b.Catalog.IDs())

	for id := range idsB {
		if _, ok := idsA[id]; !ok {
			r.OnlyInB = append(r.OnlyInB, id)
		}
	}
	for id := range idsA {
		if _, ok := idsB[id]; !ok {
			r.OnlyInA = append(r.OnlyInA, id)
		} else {
			r.CommonCount++
		}
	}
	sortIDs(r.OnlyInA)
	sortIDs(r.OnlyInB)

	// Walk A's order so mismatches come out in catalog order.
	for _, id := range a.Catalog.IDs() {
		qb, ok := b.Catalog.Get(id)
		if !ok {
			continue
		}
		qa, _ := a.Catalog.Get(id)
		if normalizedText(qa.TextPrimary) != normalizedText(qb.TextPrimary) {
			r.TextMismatches = append(r.TextMismatches, TextMismatch{
				QuestionID: id,
				TextA:      qa.TextPrimary,
				TextB:      qb.TextPrimary,
			})
		}
	}

	if targetID != "" {
		r.TargetDependents = dependency.DependentsOf(b.Catalog, targetID)
	}

	issues := make([]Issue, 0, len(r.OnlyInA)+len(r.OnlyInB)+len(r.TextMismatches))
	for _, id := range r.OnlyInB {
		issues = append(issues, Issue{id, IssueMissingInA, fmt.Sprintf("Question exists in %s but not in %s", b.Name, a.Name)})
	}
	for _, id := range r.OnlyInA {
		issues = append(issues, Issue{id, IssueMissingInB, fmt.Sprintf("Question exists in %s but not in %s", a.Name, b.Name)})
	}
	for _, m := range r.TextMismatches {
		issues = append(issues, Issue{m.QuestionID, IssueTextMismatch, "Question text differs between sources"})
	}
	r.TotalIssues = len(issues)
	if len(issues) > maxIssues {
		issues = issues[:maxIssues]
	}
	r.Issues = issues

	r.Status = "valid"
	if len(r.OnlyInA) > 0 || len(r.OnlyInB) > 0 {
		r.Status = "issues_found"
	}

	r.Recommendations = Recommendations(r, a.Name, b.Name)
	normalizeEmpty(&r)
	return r
}

// Recommendations turns diagnostic counts into short action items.
func Recommendations(r Report, nameA, nameB string) []string {
	var out []string

	if n := len(r.OnlyInB); n > 0 {
		out = append(out, fmt.Sprintf("Add %d missing questions to %s: %s", n, nameA, listIDs(r.OnlyInB)))
	}
	if n := len(r.OnlyInA); n > 0 {
		out = append(out, fmt.Sprintf("Remove %d extra questions from %s: %s", n, nameA, listIDs(r.OnlyInA)))
	}
	if r.TotalIssues > 0 {
		out = append(out, fmt.Sprintf("Fix %d consistency issues between %s and %s data", r.TotalIssues, nameA, nameB))
	}
	if n := r.B.ConditionalQuestions; n > 0 {
		out = append(out, fmt.Sprintf("Implement conditional logic for %d questions with conditions", n))
	}
	if n := len(r.TargetDependents); n > 0 {
		out = append(out, fmt.Sprintf("Ensure %s conditional logic is working for %d dependent questions", r.TargetID, n))
	}
	if len(out) == 0 {
		out = append(out, "Questions data appears to be in good condition")
	}
	return out
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

func summarize(n Named, targetID string) SourceSummary {
	s := SourceSummary{
		Name:              n.Name,
		TotalQuestions:    n.Catalog.Len(),
		Sections:          make(map[string]int),
		ConditionalSample: []dependency.Summary{},
	}
	for _, sec := range n.Catalog.Sections() {
		s.Sections[sec.Name] = len(sec.QuestionIDs)
	}
	conditional := n.Catalog.Conditional()
	s.ConditionalQuestions = len(conditional)
	for i, d := range conditional {
		if i == maxSampleConditions {
			break
		}
		cond := d.ConditionExpression
		if r := []rune(cond); len(r) > 100 {
			cond = string(r[:100]) + "..."
		}
		s.ConditionalSample = append(s.ConditionalSample, dependency.Summary{
			ID:         d.ID,
			Section:    d.Section,
			Conditions: cond,
		})
	}
	if targetID != "" {
		s.TargetDependents = len(dependency.DependentsOf(n.Catalog, targetID))
	}
	return s
}

// normalizedText prepares text for equality checks: NFC with whitespace runs
// collapsed.
func normalizedText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func listIDs(ids []string) string {
	if len(ids) <= maxListedIDs {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:maxListedIDs], ", ") + "..."
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// sortIDs orders ids numerically where possible: Q2 < Q10 < Q10.1.
func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		mi, si := idKey(ids[i])
		mj, sj := idKey(ids[j])
		if mi != mj {
			return mi < mj
		}
		if si != sj {
			return si < sj
		}
		return ids[i] < ids[j]
	})
}

func idKey(id string) (major, minor int) {
	minor = -1
	rest := strings.TrimPrefix(id, "Q")
	head, tail, dotted := strings.Cut(rest, ".")
	major, _ = strconv.Atoi(head)
	if dotted {
		if n, err := strconv.Atoi(tail); err == nil {
			minor = n
		}
	}
	return major, minor
}

func normalizeEmpty(r *Report) {
	if r.OnlyInA == nil {
		r.OnlyInA = []string{}
	}
	if r.OnlyInB == nil {
		r.OnlyInB = []string{}
	}
	if r.TextMismatches == nil {
		r.TextMismatches = []TextMismatch{}
	}
	if r.TargetDependents == nil {
		r.TargetDependents = []dependency.Summary{}
	}
}
