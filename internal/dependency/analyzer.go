// Package dependency indexes conditional questions by the questions that
// trigger them.
//
// Trigger expressions are free text ("Show if Q51 = Yes", "skip to Q60 if
// No"). Nothing here parses them as boolean predicates: grouping is by exact
// expression text, and trigger detection is a scan for question-id tokens.
// An id that appears incidentally in the text is still treated as a trigger,
// and AND/OR/NOT carry no meaning.
package dependency

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Index maps triggers to the conditional questions that reference them.
// It is built once per catalog snapshot and never mutated.
type Index struct {
	// ByTrigger maps a trigger question id to dependent ids in catalog order.
	// A dependent referencing several ids appears under each of them.
	ByTrigger map[string][]string `json:"by_trigger"`

	// ByExpression maps the exact condition text to the ids sharing it.
	ByExpression map[string][]string `json:"by_expression"`

	// expressionOrder keeps expressions in first-seen order for Groups.
	expressionOrder []string
}

// Summary is the short form of a dependent question used by diagnostics.
type Summary struct {
	ID         string `json:"id"`
	Section    string `json:"section"`
	Question   string `json:"question"`
	Conditions string `json:"conditions"`
}

// Group is one distinct condition expression and the questions sharing it.
type Group struct {
	Expression  string   `json:"expression"`
	QuestionIDs []string `json:"question_ids"`
}

// TriggerCount is how many dependents a trigger question gates.
type TriggerCount struct {
	TriggerID  string `json:"trigger_id"`
	Dependents int    `json:"dependents"`
	// Known is false when the trigger id is not itself in the catalog.
	Known bool   `json:"known"`
	Text  string `json:"text,omitempty"`
}

// ─── ANALYZE ──────────────────────────────────────────────────────────────────

// Analyze builds the Index for every conditional definition in cat.
func Analyze(cat *catalog.Catalog) Index {
	idx := Index{
		ByTrigger:    make(map[string][]string),
		ByExpression: make(map[string][]string),
	}

	for _, def := range cat.Conditional() {
		expr := def.ConditionExpression
		if _, seen := idx.ByExpression[expr]; !seen {
			idx.expressionOrder = append(idx.expressionOrder, expr)
		}
		idx.ByExpression[expr] = append(idx.ByExpression[expr], def.ID)

		for _, trigger := range catalog.ExtractIDs(expr) {
			idx.ByTrigger[trigger] = append(idx.ByTrigger[trigger], def.ID)
		}
	}

	return idx
}

// Dependents returns the ids registered under triggerID by Analyze.
func (idx Index) Dependents(triggerID string) []string {
	return idx.ByTrigger[catalog.NormalizeID(triggerID)]
}

// Groups returns condition groups, largest first; ties keep first-seen order.
func (idx Index) Groups() []Group {
	out := make([]Group, 0, len(idx.expressionOrder))
	for _, expr := range idx.expressionOrder {
		out = append(out, Group{Expression: expr, QuestionIDs: idx.ByExpression[expr]})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return len(out[a].QuestionIDs) > len(out[b].QuestionIDs)
	})
	return out
}

// Triggers ranks trigger ids by dependent count, descending, ties by id.
func (idx Index) Triggers(cat *catalog.Catalog) []TriggerCount {
	out := make([]TriggerCount, 0, len(idx.ByTrigger))
	for id, deps := range idx.ByTrigger {
		tc := TriggerCount{TriggerID: id, Dependents: len(deps)}
		if def, ok := cat.Get(id); ok {
			tc.Known = true
			tc.Text = truncate(def.TextPrimary, 50)
		}
		out = append(out, tc)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Dependents != out[b].Dependents {
			return out[a].Dependents > out[b].Dependents
		}
		return out[a].TriggerID < out[b].TriggerID
	})
	return out
}

// ─── SUBSTRING QUERY ──────────────────────────────────────────────────────────

// DependentsOf returns every conditional question whose expression contains
// triggerID as a case-insensitive substring. This is looser than
// Index.Dependents: "Q5" also matches expressions mentioning "Q51". Callers
// that need exact token matches should use Index.Dependents.
func DependentsOf(cat *catalog.Catalog, triggerID string) []Summary {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(triggerID))
	if needle == "" {
		return []Summary{}
	}

	out := []Summary{}
	for _, def := range cat.Conditional() {
		if !strings.Contains(fold.String(def.ConditionExpression), needle) {
			continue
		}
		out = append(out, Summary{
			ID:         def.ID,
			Section:    def.Section,
			Question:   truncate(def.TextPrimary, 100),
			Conditions: def.ConditionExpression,
		})
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
