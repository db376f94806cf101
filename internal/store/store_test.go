package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/nyashahama/mystery-shopper-backend/internal/db"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
	"github.com/nyashahama/mystery-shopper-backend/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

// openTestStore connects to DATABASE_URL, applies the schema and returns a
// Store. Skips if the env var is not set so the suite still passes in CI
// without a Postgres instance.
func openTestStore(t *testing.T) (*store.Store, *sql.DB) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping store integration tests")
	}
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	ctx := context.Background()
	if err := pool.PingContext(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(pool, db.New(pool)), pool
}

// seedSubmission creates a submission with a shopper id unique to the test so
// rows from parallel or repeated runs never collide.
func seedSubmission(t *testing.T, st *store.Store, pool *sql.DB, answers ...scoring.Answer) db.Submission {
	t.Helper()
	row, err := st.CreateSubmission(context.Background(), store.CreateSubmissionParams{
		Submission: scoring.Submission{
			Channel:        "WEB",
			VisitDatetime:  time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
			Scores:         answers,
			LatencySamples: []scoring.LatencySample{{QuestionID: "Q1", Ms: 850}},
		},
		LocationCode: "DXB_01",
		ShopperID:    fmt.Sprintf("test_%s_%s", t.Name(), uuid.NewString()[:8]),
		Language:     "en",
	})
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.ExecContext(context.Background(), "DELETE FROM submissions WHERE id = $1", row.ID)
	})
	return row
}

// ─── SUBMISSIONS ──────────────────────────────────────────────────────────────

func TestCreateAndLoadSubmission(t *testing.T) {
	st, pool := openTestStore(t)
	row := seedSubmission(t, st, pool,
		scoring.Answer{QuestionID: "Q1", Score: 4, Comment: "tidy"},
		scoring.Answer{QuestionID: "Q2", Score: 0},
	)

	if row.ID == 0 || row.Status != db.SubmissionStatusPending {
		t.Fatalf("created row: got id=%d status=%q", row.ID, row.Status)
	}

	sub, loaded, err := st.LoadSubmission(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("LoadSubmission: %v", err)
	}
	if loaded.LocationCode != "DXB_01" || sub.Channel != "WEB" {
		t.Errorf("loaded: got %+v", loaded)
	}
	if len(sub.Scores) != 2 {
		t.Fatalf("scores: got %+v", sub.Scores)
	}
	byID := map[string]scoring.Answer{}
	for _, a := range sub.Scores {
		byID[a.QuestionID] = a
	}
	if byID["Q1"].Score != 4 || byID["Q1"].Comment != "tidy" || byID["Q2"].Score != 0 {
		t.Errorf("answers: got %+v", byID)
	}
	if len(sub.LatencySamples) != 1 || sub.LatencySamples[0].Ms != 850 {
		t.Errorf("latency samples: got %+v", sub.LatencySamples)
	}
	if !sub.VisitDatetime.Equal(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("visit_datetime: got %v", sub.VisitDatetime)
	}
}

func TestCreateSubmission_DuplicateAnswerRollsBack(t *testing.T) {
	st, pool := openTestStore(t)
	ctx := context.Background()
	shopper := "test_dup_" + uuid.NewString()[:8]

	_, err := st.CreateSubmission(ctx, store.CreateSubmissionParams{
		Submission: scoring.Submission{
			Channel:       "WEB",
			VisitDatetime: time.Now().UTC(),
			Scores: []scoring.Answer{
				{QuestionID: "Q1", Score: 1},
				{QuestionID: "Q1", Score: 2},
			},
		},
		LocationCode: "DXB_01",
		ShopperID:    shopper,
		Language:     "en",
	})
	if err == nil {
		t.Fatal("expected primary key violation")
	}

	var n int
	if err := pool.QueryRowContext(ctx, "SELECT count(*) FROM submissions WHERE shopper_id = $1", shopper).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("submission row should have been rolled back, found %d", n)
	}
}

func TestLoadSubmission_NotFound(t *testing.T) {
	st, _ := openTestStore(t)
	if _, _, err := st.LoadSubmission(context.Background(), -1); !errors.Is(err, store.ErrSubmissionNotFound) {
		t.Errorf("want ErrSubmissionNotFound, got %v", err)
	}
}

func TestMarkSubmissionFailed(t *testing.T) {
	st, pool := openTestStore(t)
	row := seedSubmission(t, st, pool, scoring.Answer{QuestionID: "Q1", Score: 3})

	failed, err := st.MarkSubmissionFailed(context.Background(), row.ID, "catalog unavailable")
	if err != nil {
		t.Fatalf("MarkSubmissionFailed: %v", err)
	}
	if failed.Status != db.SubmissionStatusError || failed.ErrorMessage.String != "catalog unavailable" {
		t.Errorf("got status=%q message=%q", failed.Status, failed.ErrorMessage.String)
	}

	rep, err := st.GetReport(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if rep.Status != db.SubmissionStatusError || rep.Report != nil {
		t.Errorf("report view: got %+v", rep)
	}

	if _, err := st.MarkSubmissionFailed(context.Background(), -1, "x"); !errors.Is(err, store.ErrSubmissionNotFound) {
		t.Errorf("want ErrSubmissionNotFound, got %v", err)
	}
}

// ─── REPORTS ──────────────────────────────────────────────────────────────────

func TestPersistScoreReport(t *testing.T) {
	st, pool := openTestStore(t)
	ctx := context.Background()
	row := seedSubmission(t, st, pool, scoring.Answer{QuestionID: "Q1", Score: 4})

	pending, err := st.GetReport(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if pending.Status != db.SubmissionStatusPending || pending.Report != nil {
		t.Errorf("pending view: got %+v", pending)
	}

	version := uuid.New()
	report := scoring.Report{
		SubmissionID: row.ID,
		OverallScore: 0.8,
		Categories: map[string]scoring.CategoryScore{
			"Appearance": {RawTotal: 4, RawMax: 5, Percentage: 0.8, Weight: 0.05, WeightedContribution: 0.04, QuestionCount: 1, AnsweredCount: 1},
		},
		TotalWeightedScore:    0.04,
		TotalWeightUsed:       0.05,
		UnansweredConditional: []string{"Q11"},
	}
	if _, err := st.PersistScoreReport(ctx, store.PersistScoreReportParams{
		Report:         report,
		CatalogVersion: version,
		CatalogSource:  "tabular",
	}); err != nil {
		t.Fatalf("PersistScoreReport: %v", err)
	}

	got, err := st.GetReport(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Status != db.SubmissionStatusScored || got.Report == nil {
		t.Fatalf("scored view: got %+v", got)
	}
	if got.Report.OverallScore != 0.8 || got.Report.Categories["Appearance"].RawTotal != 4 {
		t.Errorf("report: got %+v", got.Report)
	}
	if len(got.Report.UnansweredConditional) != 1 || got.Report.UnansweredConditional[0] != "Q11" {
		t.Errorf("unanswered_conditional: got %v", got.Report.UnansweredConditional)
	}
	if got.CatalogVersion == nil || *got.CatalogVersion != version || got.CatalogSource != "tabular" {
		t.Errorf("catalog provenance: got %v %q", got.CatalogVersion, got.CatalogSource)
	}

	// Re-scoring replaces the previous report.
	report.OverallScore = 0.6
	report.UnansweredConditional = nil
	if _, err := st.PersistScoreReport(ctx, store.PersistScoreReportParams{
		Report:         report,
		CatalogVersion: uuid.New(),
		CatalogSource:  "curated",
	}); err != nil {
		t.Fatalf("second PersistScoreReport: %v", err)
	}
	again, err := st.GetReport(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if again.Report.OverallScore != 0.6 || again.CatalogSource != "curated" {
		t.Errorf("upsert: got %+v", again)
	}
	if again.Report.UnansweredConditional == nil || len(again.Report.UnansweredConditional) != 0 {
		t.Errorf("unanswered_conditional should decode to an empty list, got %v", again.Report.UnansweredConditional)
	}
}

func TestPersistScoreReport_UnknownSubmission(t *testing.T) {
	st, _ := openTestStore(t)
	_, err := st.PersistScoreReport(context.Background(), store.PersistScoreReportParams{
		Report:         scoring.Report{SubmissionID: -1, Categories: map[string]scoring.CategoryScore{}},
		CatalogVersion: uuid.New(),
		CatalogSource:  "tabular",
	})
	if err == nil {
		t.Error("expected foreign key violation")
	}
}

func TestGetReport_NotFound(t *testing.T) {
	st, _ := openTestStore(t)
	if _, err := st.GetReport(context.Background(), -1); !errors.Is(err, store.ErrSubmissionNotFound) {
		t.Errorf("want ErrSubmissionNotFound, got %v", err)
	}
}

// ─── ADMIN READS ──────────────────────────────────────────────────────────────

func TestListSubmissionsAndMetrics(t *testing.T) {
	st, pool := openTestStore(t)
	ctx := context.Background()
	first := seedSubmission(t, st, pool, scoring.Answer{QuestionID: "Q1", Score: 5})
	second := seedSubmission(t, st, pool, scoring.Answer{QuestionID: "Q1", Score: 3})

	list, err := st.ListSubmissions(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 rows, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("want newest first [%d %d], got [%d %d]", second.ID, first.ID, list[0].ID, list[1].ID)
	}
	if list[0].Status != string(db.SubmissionStatusPending) {
		t.Errorf("status: got %q", list[0].Status)
	}

	m, err := st.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.Total < 2 {
		t.Errorf("total: want at least 2, got %d", m.Total)
	}
	if m.AvgScore == nil {
		t.Error("avg_score should be set once answers exist")
	}
	if _, ok := m.ChannelBreakdown["WEB"]; !ok {
		t.Errorf("channel_breakdown should include WEB: %v", m.ChannelBreakdown)
	}
}
