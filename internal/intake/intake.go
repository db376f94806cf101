// Package intake validates and sanitizes survey submissions before they are
// persisted or scored. Every caller-facing failure names the offending field
// and, where relevant, the question id.
package intake

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
)

var (
	ErrUnknownQuestionID   = errors.New("unknown question id")
	ErrInvalidChannel      = errors.New("invalid channel")
	ErrScoreOutOfRange     = errors.New("score out of range")
	ErrInvalidIdentifier   = errors.New("invalid identifier")
	ErrMissingField        = errors.New("missing field")
	ErrDuplicateQuestionID = errors.New("duplicate question id")
	ErrInvalidLatency      = errors.New("invalid latency sample")
)

// Channels is the intake channel allow-list.
var Channels = []string{"CALL_CENTER", "ON_SITE", "WEB", "MOBILE_APP"}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// FieldError is one validation failure. It unwraps to one of the package
// sentinels so callers can branch with errors.Is.
type FieldError struct {
	Field      string `json:"field"`
	QuestionID string `json:"question_id,omitempty"`
	Reason     string `json:"reason"`
	kind       error
}

func (e *FieldError) Error() string {
	if e.QuestionID != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Field, e.QuestionID, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.kind }

// Fields flattens an error returned by Validate into its FieldErrors.
// Errors that are not FieldErrors are dropped.
func Fields(err error) []*FieldError {
	if err == nil {
		return nil
	}
	var out []*FieldError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, Fields(e)...)
		}
		return out
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		out = append(out, fe)
	}
	return out
}

// Request is the raw submission as received from a client.
type Request struct {
	Channel        string                  `json:"channel"`
	LocationCode   string                  `json:"location_code"`
	ShopperID      string                  `json:"shopper_id"`
	VisitDatetime  string                  `json:"visit_datetime"`
	Scores         []scoring.Answer        `json:"scores"`
	LatencySamples []scoring.LatencySample `json:"latency_samples"`
	Language       string                  `json:"language"`
}

// Accepted is a Request that passed validation, with sanitized identifiers.
type Accepted struct {
	Submission   scoring.Submission
	LocationCode string
	ShopperID    string
	Language     string
}

// Validator checks requests against a catalog snapshot.
type Validator struct {
	catalog *catalog.Catalog
}

// NewValidator returns a Validator bound to cat. Bind a new Validator after
// each catalog reload.
func NewValidator(cat *catalog.Catalog) *Validator {
	return &Validator{catalog: cat}
}

// Validate returns the accepted submission, or every failure found joined
// with errors.Join.
func (v *Validator) Validate(req Request) (Accepted, error) {
	var errs []error
	fail := func(kind error, field, qid, reason string) {
		errs = append(errs, fieldErr(kind, field, qid, reason))
	}

	channel := strings.ToUpper(strings.TrimSpace(req.Channel))
	if !ValidChannel(channel) {
		fail(ErrInvalidChannel, "channel", "",
			fmt.Sprintf("must be one of %s", strings.Join(Channels, ", ")))
	}

	location := SanitizeIdentifier(req.LocationCode)
	if !identifierPattern.MatchString(location) {
		fail(ErrInvalidIdentifier, "location_code", "", "must be 1-50 letters, digits, '_' or '-'")
	}
	shopper := SanitizeIdentifier(req.ShopperID)
	if !identifierPattern.MatchString(shopper) {
		fail(ErrInvalidIdentifier, "shopper_id", "", "must be 1-50 letters, digits, '_' or '-'")
	}

	visit, err := ParseVisitDatetime(req.VisitDatetime)
	if err != nil {
		errs = append(errs, err)
	}

	answers, err := v.ValidateScores(req.Scores)
	if err != nil {
		errs = append(errs, err)
	}
	seen := make(map[string]struct{}, len(req.Scores))
	for _, a := range req.Scores {
		seen[catalog.NormalizeID(a.QuestionID)] = struct{}{}
	}

	samples := make([]scoring.LatencySample, 0, len(req.LatencySamples))
	for _, s := range req.LatencySamples {
		id := catalog.NormalizeID(s.QuestionID)
		if _, ok := seen[id]; !ok {
			fail(ErrInvalidLatency, "latency_samples", id, "question is not among the submitted scores")
			continue
		}
		if s.Ms <= 0 {
			fail(ErrInvalidLatency, "latency_samples", id, "ms must be positive")
			continue
		}
		samples = append(samples, scoring.LatencySample{QuestionID: id, Ms: s.Ms})
	}

	if len(errs) > 0 {
		return Accepted{}, errors.Join(errs...)
	}

	return Accepted{
		Submission: scoring.Submission{
			Channel:        channel,
			VisitDatetime:  visit,
			Scores:         answers,
			LatencySamples: samples,
		},
		LocationCode: location,
		ShopperID:    shopper,
		Language:     normalizeLanguage(req.Language),
	}, nil
}

// ValidateScores checks answers alone: ids present, unique, known to the
// catalog, and scores within each question's range. Failures are joined.
func (v *Validator) ValidateScores(scores []scoring.Answer) ([]scoring.Answer, error) {
	var errs []error
	fail := func(kind error, field, qid, reason string) {
		errs = append(errs, fieldErr(kind, field, qid, reason))
	}

	if len(scores) == 0 {
		fail(ErrMissingField, "scores", "", "at least one score is required")
	}

	answers := make([]scoring.Answer, 0, len(scores))
	seen := make(map[string]struct{}, len(scores))
	for _, a := range scores {
		id := catalog.NormalizeID(a.QuestionID)
		if id == "" {
			fail(ErrMissingField, "scores.question_id", "", "is required")
			continue
		}
		if _, dup := seen[id]; dup {
			fail(ErrDuplicateQuestionID, "scores", id, "question answered more than once")
			continue
		}
		seen[id] = struct{}{}

		def, ok := v.catalog.Get(id)
		if !ok {
			fail(ErrUnknownQuestionID, "scores", id, "question is not in the active catalog")
			continue
		}
		lo, hi := def.MinScore(), def.MaxScore
		if a.Score < lo || a.Score > hi {
			fail(ErrScoreOutOfRange, "scores", id, fmt.Sprintf("score %d outside %d..%d", a.Score, lo, hi))
			continue
		}
		answers = append(answers, scoring.Answer{
			QuestionID: id,
			Score:      a.Score,
			Comment:    strings.TrimSpace(a.Comment),
		})
	}

	if len(errs) > 0 {
		return answers, errors.Join(errs...)
	}
	return answers, nil
}

// visitLayouts are tried in order; values without a zone are taken as UTC.
var visitLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseVisitDatetime parses an ISO-8601 visit timestamp.
func ParseVisitDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fieldErr(ErrMissingField, "visit_datetime", "", "is required")
	}
	for _, layout := range visitLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fieldErr(ErrMissingField, "visit_datetime", "", "must be an ISO-8601 timestamp")
}

func fieldErr(kind error, field, qid, reason string) *FieldError {
	return &FieldError{Field: field, QuestionID: qid, Reason: reason, kind: kind}
}

// ValidChannel reports whether channel (already upper-cased) is allowed.
func ValidChannel(channel string) bool {
	for _, c := range Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// SanitizeIdentifier trims s and replaces inner whitespace runs with '_'.
func SanitizeIdentifier(s string) string {
	return strings.Join(strings.Fields(s), "_")
}

func normalizeLanguage(lang string) string {
	if strings.EqualFold(strings.TrimSpace(lang), "ar") {
		return "ar"
	}
	return "en"
}
