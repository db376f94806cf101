package intake_test

import (
	"errors"
	"testing"
	"time"

	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/intake"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
)

func testValidator() *intake.Validator {
	yesNo := catalog.ParseAnswerEncoding("Yes (1)\nNo (0)")
	return intake.NewValidator(catalog.FromDefinitions([]catalog.QuestionDefinition{
		{ID: "Q1", Section: "Waiting Area", MaxScore: 5, AnswerType: catalog.AnswerRating},
		{ID: "Q2", Section: "Waiting Area", MaxScore: yesNo.MaxScore, AnswerType: yesNo.Type, AnswerOptions: yesNo.Options},
	}))
}

func validRequest() intake.Request {
	return intake.Request{
		Channel:       " web ",
		LocationCode:  "DXB 01",
		ShopperID:     "shopper-7",
		VisitDatetime: "2026-03-01T10:30:00+04:00",
		Scores: []scoring.Answer{
			{QuestionID: "q1", Score: 4, Comment: "  tidy  "},
			{QuestionID: "Q2", Score: 0},
		},
		LatencySamples: []scoring.LatencySample{{QuestionID: "Q1", Ms: 1200}},
		Language:       "AR",
	}
}

func TestValidate_Accepts(t *testing.T) {
	got, err := testValidator().Validate(validRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got.Submission.Channel != "WEB" {
		t.Errorf("channel: got %q", got.Submission.Channel)
	}
	if got.LocationCode != "DXB_01" || got.ShopperID != "shopper-7" {
		t.Errorf("identifiers: got %q / %q", got.LocationCode, got.ShopperID)
	}
	if got.Language != "ar" {
		t.Errorf("language: got %q", got.Language)
	}
	want := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	if !got.Submission.VisitDatetime.Equal(want) || got.Submission.VisitDatetime.Location() != time.UTC {
		t.Errorf("visit_datetime: want %v, got %v", want, got.Submission.VisitDatetime)
	}
	a := got.Submission.Scores[0]
	if a.QuestionID != "Q1" || a.Score != 4 || a.Comment != "tidy" {
		t.Errorf("first answer: got %+v", a)
	}
	if len(got.Submission.LatencySamples) != 1 {
		t.Errorf("latency samples: got %+v", got.Submission.LatencySamples)
	}
}

func TestValidate_CollectsEveryFailure(t *testing.T) {
	req := validRequest()
	req.Channel = "FAX"
	req.LocationCode = "   "
	req.ShopperID = "bad/id"
	req.VisitDatetime = "yesterday"
	req.Scores = []scoring.Answer{
		{QuestionID: "Q1", Score: 0},
		{QuestionID: "Q2", Score: 2},
		{QuestionID: "Q404", Score: 1},
		{QuestionID: "q1", Score: 3},
		{QuestionID: "", Score: 1},
	}
	req.LatencySamples = []scoring.LatencySample{
		{QuestionID: "Q77", Ms: 10},
		{QuestionID: "Q2", Ms: 0},
	}

	_, err := testValidator().Validate(req)
	if err == nil {
		t.Fatal("expected error")
	}

	for _, kind := range []error{
		intake.ErrInvalidChannel,
		intake.ErrInvalidIdentifier,
		intake.ErrMissingField,
		intake.ErrScoreOutOfRange,
		intake.ErrUnknownQuestionID,
		intake.ErrDuplicateQuestionID,
		intake.ErrInvalidLatency,
	} {
		if !errors.Is(err, kind) {
			t.Errorf("expected %v in %v", kind, err)
		}
	}

	fields := intake.Fields(err)
	// channel, location_code, shopper_id, visit_datetime, Q1 range, Q2 range,
	// Q404 unknown, Q1 duplicate, empty id, Q77 latency, Q2 latency.
	if len(fields) != 11 {
		t.Errorf("want 11 field errors, got %d: %v", len(fields), err)
	}
}

func TestValidate_LatencyForRejectedScoreIsNotFlagged(t *testing.T) {
	req := validRequest()
	req.Scores = []scoring.Answer{{QuestionID: "Q1", Score: 9}}
	req.LatencySamples = []scoring.LatencySample{{QuestionID: "Q1", Ms: 500}}

	_, err := testValidator().Validate(req)
	if errors.Is(err, intake.ErrInvalidLatency) {
		t.Errorf("latency sample for a submitted question should not be flagged: %v", err)
	}
	if !errors.Is(err, intake.ErrScoreOutOfRange) {
		t.Errorf("expected ErrScoreOutOfRange, got %v", err)
	}
}

func TestValidateScores(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name    string
		scores  []scoring.Answer
		wantErr error
	}{
		{"rating lower bound", []scoring.Answer{{QuestionID: "Q1", Score: 1}}, nil},
		{"rating upper bound", []scoring.Answer{{QuestionID: "Q1", Score: 5}}, nil},
		{"rating zero", []scoring.Answer{{QuestionID: "Q1", Score: 0}}, intake.ErrScoreOutOfRange},
		{"yes no zero", []scoring.Answer{{QuestionID: "Q2", Score: 0}}, nil},
		{"yes no two", []scoring.Answer{{QuestionID: "Q2", Score: 2}}, intake.ErrScoreOutOfRange},
		{"empty", nil, intake.ErrMissingField},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.ValidateScores(tc.scores)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFieldError(t *testing.T) {
	_, err := testValidator().ValidateScores([]scoring.Answer{{QuestionID: "Q9", Score: 1}})
	fields := intake.Fields(err)
	if len(fields) != 1 {
		t.Fatalf("want 1 field error, got %v", fields)
	}
	fe := fields[0]
	if fe.Field != "scores" || fe.QuestionID != "Q9" {
		t.Errorf("got %+v", fe)
	}
	if fe.Error() != "scores[Q9]: question is not in the active catalog" {
		t.Errorf("Error(): got %q", fe.Error())
	}
	if intake.Fields(nil) != nil {
		t.Error("Fields(nil) should be nil")
	}
}

func TestParseVisitDatetime(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2026-03-01T10:30:00Z",
		"2026-03-01T10:30:00",
		"2026-03-01 10:30:00",
		"2026-03-01T10:30",
		"2026-03-01T14:30:00+04:00",
	} {
		got, err := intake.ParseVisitDatetime(s)
		if err != nil {
			t.Errorf("%q: %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%q: want %v, got %v", s, want, got)
		}
	}

	if got, err := intake.ParseVisitDatetime("2026-03-01"); err != nil || !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date only: got %v, %v", got, err)
	}
	for _, s := range []string{"", "01/03/2026", "not a date"} {
		if _, err := intake.ParseVisitDatetime(s); !errors.Is(err, intake.ErrMissingField) {
			t.Errorf("%q: want ErrMissingField, got %v", s, err)
		}
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := map[string]string{
		"  DXB  01 ": "DXB_01",
		"abc":        "abc",
		"a\tb\nc":    "a_b_c",
		"   ":        "",
	}
	for in, want := range tests {
		if got := intake.SanitizeIdentifier(in); got != want {
			t.Errorf("SanitizeIdentifier(%q): want %q, got %q", in, want, got)
		}
	}
}

func TestValidChannel(t *testing.T) {
	for _, c := range intake.Channels {
		if !intake.ValidChannel(c) {
			t.Errorf("%s should be valid", c)
		}
	}
	if intake.ValidChannel("web") {
		t.Error("ValidChannel expects upper-case input")
	}
}
