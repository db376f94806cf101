package scoring_test

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/dependency"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
	"github.com/nyashahama/mystery-shopper-backend/internal/weights"
)

// fixture: two Appearance ratings, a Speed of Service yes/no pair where Q4
// depends on Q3, and one question in a section the weight table lacks.
type fixture struct {
	cat  *catalog.Catalog
	deps dependency.Index
	wm   *weights.Map
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cat := catalog.FromDefinitions([]catalog.QuestionDefinition{
		{ID: "Q1", Section: "Waiting Area", MaxScore: 5, AnswerType: catalog.AnswerRating},
		{ID: "Q2", Section: "Premises Interior", MaxScore: 5, AnswerType: catalog.AnswerRating},
		{ID: "Q3", Section: "Speed of Service", MaxScore: 1, AnswerType: catalog.AnswerYesNo},
		{ID: "Q4", Section: "Speed of Service", MaxScore: 1, AnswerType: catalog.AnswerYesNo,
			HasConditions: true, ConditionExpression: "Show if Q3 = No"},
		{ID: "Q5", Section: "Not In Table", MaxScore: 5, AnswerType: catalog.AnswerRating},
	})
	wm, err := weights.New([]weights.SectionWeightEntry{
		{Section: "Waiting Area", DisplayCategory: "Appearance", Weight: 0.05},
		{Section: "Premises Interior", DisplayCategory: "Appearance", Weight: 0.05},
		{Section: "Speed of Service", DisplayCategory: "Speed of Service", Weight: 0.20},
	})
	if err != nil {
		t.Fatalf("weights.New: %v", err)
	}
	return fixture{cat: cat, deps: dependency.Analyze(cat), wm: wm}
}

func (f fixture) score(answers ...scoring.Answer) scoring.Report {
	return scoring.Score(scoring.Submission{ID: 42, Scores: answers}, f.cat, f.deps, f.wm)
}

func answer(id string, score int) scoring.Answer {
	return scoring.Answer{QuestionID: id, Score: score}
}

// ─── Score ────────────────────────────────────────────────────────────────────

func TestScore_SingleCategory(t *testing.T) {
	r := newFixture(t).score(answer("Q1", 5), answer("Q2", 3))

	app, ok := r.Categories["Appearance"]
	if !ok {
		t.Fatalf("Appearance missing: %+v", r.Categories)
	}
	want := scoring.CategoryScore{
		RawTotal:             8,
		RawMax:               10,
		Percentage:           0.8,
		Weight:               0.05,
		WeightedContribution: 0.04,
		QuestionCount:        2,
		AnsweredCount:        2,
	}
	if app != want {
		t.Errorf("Appearance: want %+v, got %+v", want, app)
	}
	if r.OverallScore != 0.8 {
		t.Errorf("overall_score: want 0.8, got %v", r.OverallScore)
	}
	if r.TotalWeightedScore != 0.04 || r.TotalWeightUsed != 0.05 {
		t.Errorf("totals: got %v / %v", r.TotalWeightedScore, r.TotalWeightUsed)
	}
	if r.SubmissionID != 42 {
		t.Errorf("submission id: got %d", r.SubmissionID)
	}
}

func TestScore_UnansweredMemberCountsAsZero(t *testing.T) {
	r := newFixture(t).score(answer("Q1", 5))

	app := r.Categories["Appearance"]
	if app.RawTotal != 5 || app.RawMax != 10 || app.Percentage != 0.5 {
		t.Errorf("Appearance: got %+v", app)
	}
	if app.AnsweredCount != 1 || app.QuestionCount != 2 {
		t.Errorf("counts: got answered=%d questions=%d", app.AnsweredCount, app.QuestionCount)
	}
	if r.OverallScore != 0.5 {
		t.Errorf("overall_score: want 0.5, got %v", r.OverallScore)
	}
}

func TestScore_TwoCategories(t *testing.T) {
	r := newFixture(t).score(answer("Q1", 5), answer("Q2", 3), answer("Q3", 1))

	speed := r.Categories["Speed of Service"]
	if speed.RawTotal != 1 || speed.RawMax != 2 || speed.WeightedContribution != 0.1 {
		t.Errorf("Speed of Service: got %+v", speed)
	}
	// (0.04 + 0.10) / (0.05 + 0.20)
	if r.OverallScore != 0.56 {
		t.Errorf("overall_score: want 0.56, got %v", r.OverallScore)
	}
	if !reflect.DeepEqual(r.UnansweredConditional, []string{"Q4"}) {
		t.Errorf("unanswered_conditional: got %v", r.UnansweredConditional)
	}
}

func TestScore_CategoryWithoutAnswersIsOmitted(t *testing.T) {
	f := newFixture(t)
	r := f.score(answer("Q3", 1), answer("Q4", 1))

	if _, ok := r.Categories["Appearance"]; ok {
		t.Error("Appearance has no answers and must be omitted")
	}
	if len(r.Categories) != 1 {
		t.Errorf("want only Speed of Service, got %+v", r.Categories)
	}
	if r.OverallScore != 1 {
		t.Errorf("overall_score: want 1, got %v", r.OverallScore)
	}
	if len(r.UnansweredConditional) != 0 {
		t.Errorf("unanswered_conditional: got %v", r.UnansweredConditional)
	}
}

func TestScore_UnmappedSectionIsIgnored(t *testing.T) {
	r := newFixture(t).score(answer("Q5", 5))
	if len(r.Categories) != 0 {
		t.Errorf("want no categories, got %+v", r.Categories)
	}
	if r.OverallScore != 0 || r.TotalWeightUsed != 0 {
		t.Errorf("want zero overall, got %v / %v", r.OverallScore, r.TotalWeightUsed)
	}
	if r.Categories == nil {
		t.Error("categories must be an empty map, not nil")
	}
}

func TestScore_EmptySubmission(t *testing.T) {
	r := newFixture(t).score()
	if r.OverallScore != 0 || len(r.Categories) != 0 {
		t.Errorf("got %+v", r)
	}
	if !reflect.DeepEqual(r.UnansweredConditional, []string{"Q4"}) {
		t.Errorf("unanswered_conditional: got %v", r.UnansweredConditional)
	}
}

func TestScore_OutOfRangeScoresAreClamped(t *testing.T) {
	r := newFixture(t).score(answer("Q1", 99), answer("Q2", -4))
	app := r.Categories["Appearance"]
	if app.RawTotal != 5 {
		t.Errorf("raw_total: want 5 after clamping, got %d", app.RawTotal)
	}
}

func TestScore_ZeroWeightCategoryIsReported(t *testing.T) {
	cat := catalog.FromDefinitions([]catalog.QuestionDefinition{
		{ID: "Q1", Section: "Waiting Area", MaxScore: 5},
		{ID: "Q2", Section: "Customer effort", MaxScore: 5},
	})
	r := scoring.Score(
		scoring.Submission{Scores: []scoring.Answer{answer("Q1", 4), answer("Q2", 1)}},
		cat, dependency.Analyze(cat), weights.Default(),
	)

	effort, ok := r.Categories["Customer effort"]
	if !ok {
		t.Fatal("zero-weight category should still be reported")
	}
	if effort.WeightedContribution != 0 {
		t.Errorf("contribution: want 0, got %v", effort.WeightedContribution)
	}
	// The zero weight adds nothing to either sum.
	if r.OverallScore != 0.8 {
		t.Errorf("overall_score: want 0.8, got %v", r.OverallScore)
	}
}

// Answering a previously omitted category at full marks never lowers the
// overall score, and answering it at zero never raises it.
func TestScore_AddingCategoryMovesOverallTowardItsPercentage(t *testing.T) {
	f := newFixture(t)
	base := f.score(answer("Q1", 4), answer("Q2", 2)).OverallScore

	if full := f.score(answer("Q1", 4), answer("Q2", 2), answer("Q3", 1), answer("Q4", 1)).OverallScore; full < base {
		t.Errorf("full marks lowered overall: %v -> %v", base, full)
	}
	if zero := f.score(answer("Q1", 4), answer("Q2", 2), answer("Q3", 0), answer("Q4", 0)).OverallScore; zero > base {
		t.Errorf("zero marks raised overall: %v -> %v", base, zero)
	}
}

func TestScore_BoundsAndDeterminism(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(7))
	ids := f.cat.IDs()

	for i := 0; i < 200; i++ {
		var answers []scoring.Answer
		for _, id := range ids {
			if rng.Intn(3) == 0 {
				continue
			}
			def, _ := f.cat.Get(id)
			answers = append(answers, answer(id, rng.Intn(def.MaxScore+1)))
		}

		r := f.score(answers...)
		if r.OverallScore < 0 || r.OverallScore > 1 {
			t.Fatalf("overall_score %v out of [0,1] for %+v", r.OverallScore, answers)
		}
		for name, c := range r.Categories {
			if c.Percentage < 0 || c.Percentage > 1 {
				t.Fatalf("%s percentage %v out of [0,1]", name, c.Percentage)
			}
			if c.RawTotal > c.RawMax {
				t.Fatalf("%s raw_total %d > raw_max %d", name, c.RawTotal, c.RawMax)
			}
		}
		if again := f.score(answers...); !reflect.DeepEqual(r, again) {
			t.Fatal("Score is not deterministic")
		}
	}
}

func TestRound(t *testing.T) {
	if got := scoring.Round4(0.123456); got != 0.1235 {
		t.Errorf("Round4: got %v", got)
	}
	if got := scoring.Round2(3.14159); got != 3.14 {
		t.Errorf("Round2: got %v", got)
	}
}

// ─── BasicMetrics ─────────────────────────────────────────────────────────────

func TestBasicMetrics(t *testing.T) {
	m := scoring.BasicMetrics(5, []scoring.ChannelStat{
		{Channel: "ON_SITE", Answers: 1, ScoreSum: 10},
		{Channel: "WEB", Answers: 1, ScoreSum: 10},
		{Channel: "MOBILE_APP", Answers: 0, ScoreSum: 0},
	})

	if m.Total != 5 {
		t.Errorf("total: got %d", m.Total)
	}
	if m.AvgScore == nil || math.Abs(*m.AvgScore-10) > 1e-9 {
		t.Errorf("avg_score: want 10, got %v", m.AvgScore)
	}
	if m.ChannelBreakdown["ON_SITE"] != 10 || m.ChannelBreakdown["WEB"] != 10 {
		t.Errorf("channel_breakdown: got %v", m.ChannelBreakdown)
	}
	if _, ok := m.ChannelBreakdown["MOBILE_APP"]; ok {
		t.Error("channels without answers are left out of the breakdown")
	}
}

func TestBasicMetrics_UnknownChannelWeighsOne(t *testing.T) {
	m := scoring.BasicMetrics(1, []scoring.ChannelStat{{Channel: "KIOSK", Answers: 4, ScoreSum: 12}})
	if m.AvgScore == nil || *m.AvgScore != 3 {
		t.Errorf("avg_score: want 3, got %v", m.AvgScore)
	}
}

func TestBasicMetrics_NoAnswers(t *testing.T) {
	m := scoring.BasicMetrics(0, nil)
	if m.AvgScore != nil {
		t.Errorf("avg_score: want nil, got %v", *m.AvgScore)
	}
	if m.ChannelBreakdown == nil {
		t.Error("channel_breakdown must be non-nil")
	}
}
