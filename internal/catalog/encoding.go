package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ─── ANSWER ENCODING ──────────────────────────────────────────────────────────
//
// The "Possible Answers" column is free text written by hand, e.g.
//
//	Yes / نعم (1)
//	No / لا (0)
//
// or
//
//	Excellent (3)
//	Acceptable (2)
//	Poor (1)
//
// Integers in parentheses are the scores. Everything else is a label.

var (
	parenIntPattern = regexp.MustCompile(`\((\d+)\)`)

	// segmentPattern captures the label text that precedes each
	// parenthesized integer, so "Yes (1) No (0)" on one line still yields two
	// segments.
	segmentPattern = regexp.MustCompile(`([^()\n]*)\((\d+)\)`)
)

// Encoding is the structured form of an answer-encoding string.
type Encoding struct {
	Type     AnswerType
	Options  []AnswerOption
	MaxScore int
}

// ParseAnswerEncoding classifies an answer encoding and derives its options
// and max score. Classification priority: yes/no pair, then multiple choice
// (any parenthesized score between 1 and 9), then rating. The max score is
// always MaxScore(text), whatever the type.
func ParseAnswerEncoding(text string) Encoding {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	maxScore := MaxScore(text)

	if opts, ok := parseYesNo(text); ok {
		return Encoding{
			Type:     AnswerYesNo,
			Options:  opts,
			MaxScore: maxScore,
		}
	}

	if hasChoiceScore(text) {
		return Encoding{
			Type:     AnswerMultipleChoice,
			Options:  parseChoices(text),
			MaxScore: maxScore,
		}
	}

	return Encoding{
		Type:     AnswerRating,
		Options:  []AnswerOption{},
		MaxScore: maxScore,
	}
}

// MaxScore derives the maximum score of an encoding: the largest
// parenthesized integer when any exist, otherwise the number of non-empty
// lines, otherwise 1. The result is never below 1.
func MaxScore(encoding string) int {
	if matches := parenIntPattern.FindAllStringSubmatch(encoding, -1); len(matches) > 0 {
		best := 0
		for _, m := range matches {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			best = max(best, n)
		}
		return atLeastOne(best)
	}
	if n := len(nonEmptyLines(encoding)); n > 0 {
		return n
	}
	return 1
}

// ─── CLASSIFIERS ──────────────────────────────────────────────────────────────

type polarity int

const (
	polarityNone polarity = iota
	polarityYes
	polarityNo
)

// parseYesNo looks for a Yes segment and a No segment, each followed by a
// parenthesized integer. Either language counts; "Yes / نعم (1)" is one
// segment. The two options are returned in order of appearance.
func parseYesNo(text string) ([]AnswerOption, bool) {
	var yes, no *AnswerOption
	var order []*AnswerOption

	for _, m := range segmentPattern.FindAllStringSubmatch(text, -1) {
		value, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		label := cleanLabel(m[1])
		switch labelPolarity(label) {
		case polarityYes:
			if yes == nil {
				yes = newOption(label, value)
				order = append(order, yes)
			}
		case polarityNo:
			if no == nil {
				no = newOption(label, value)
				order = append(order, no)
			}
		}
	}

	if yes == nil || no == nil {
		return nil, false
	}
	return []AnswerOption{*order[0], *order[1]}, true
}

// labelPolarity matches English yes/no as words anywhere in the label. The
// Arabic words only count when they are a whole language half, since "لا"
// also opens phrases such as "لا ينطبق" (not applicable).
func labelPolarity(label string) polarity {
	var isYes, isNo bool

	words := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		switch w {
		case "yes":
			isYes = true
		case "no":
			isNo = true
		}
	}

	primary, secondary := splitBilingual(label)
	for _, half := range []string{primary, secondary} {
		switch strings.TrimSpace(half) {
		case "نعم":
			isYes = true
		case "لا":
			isNo = true
		}
	}
	switch {
	case isYes && !isNo:
		return polarityYes
	case isNo && !isYes:
		return polarityNo
	default:
		return polarityNone
	}
}

func hasChoiceScore(text string) bool {
	for _, m := range parenIntPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 9 {
			return true
		}
	}
	return false
}

// parseChoices turns every "<label>(<score>)" line into an option. The label
// is the text before the first "(" on the line.
func parseChoices(text string) []AnswerOption {
	opts := []AnswerOption{}
	for _, line := range nonEmptyLines(text) {
		m := parenIntPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		label := line[:strings.Index(line, "(")]
		opts = append(opts, *newOption(cleanLabel(label), value))
	}
	return opts
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

func newOption(label string, value int) *AnswerOption {
	primary, secondary := splitBilingual(label)
	return &AnswerOption{
		Value:          value,
		LabelPrimary:   primary,
		LabelSecondary: secondary,
	}
}

// splitBilingual splits "Yes / نعم" into its two language halves. A label
// without a separator is returned as the primary text only.
func splitBilingual(label string) (primary, secondary string) {
	if i := strings.IndexAny(label, "/|"); i >= 0 {
		return strings.TrimSpace(label[:i]), strings.TrimSpace(label[i+1:])
	}
	return label, ""
}

func cleanLabel(s string) string {
	return strings.Trim(s, " \t-•*:")
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
