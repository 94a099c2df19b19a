package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"triagebot/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "triagebot-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleOutcomes() []domain.TriageOutcome {
	return []domain.TriageOutcome{
		{
			IssueID:        "1",
			Title:          "[BUG] Crash on startup",
			Classification: domain.ClassificationResult{Category: domain.CategoryBug, Confidence: 1, Matches: 3},
			Priority:       domain.PriorityResult{Level: domain.PriorityCritical, Confidence: 0.8},
			Components:     []string{"component-cli"},
			Assignment:     domain.AssignmentSuggestion{Teams: []string{"leads", "core-team"}},
			Delta:          domain.LabelDelta{Add: []string{"type-bug", "priority-critical"}, Remove: []string{"needs-triage"}},
			MeetsThreshold: true,
			LabelsApplied:  true,
		},
		{
			IssueID:        "2",
			Title:          "hello",
			Classification: domain.ClassificationResult{Category: domain.CategoryNeedsTriage},
			Priority:       domain.PriorityResult{Level: domain.PriorityLow},
			Assignment:     domain.AssignmentSuggestion{Teams: []string{"triage-team"}},
			Delta:          domain.LabelDelta{Add: []string{"priority-low"}},
		},
	}
}

func TestInsertRunAndReadBack(t *testing.T) {
	db := newTestDB(t)
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	id, err := InsertRun(db, RunRecord{
		Tracker:    "github",
		Metrics:    domain.Metrics{Processed: 2, Classified: 1, Labeled: 1},
		ReportPath: "reports/triage_20260302-090000.md",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}, sampleOutcomes())
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", id, err)
	}

	runs, err := GetRecentRuns(db, 5)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs want 1", len(runs))
	}
	run := runs[0]
	if run.ID != id || run.Tracker != "github" || run.DryRun || run.Metrics.Processed != 2 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Fatalf("started_at: got %v want %v", run.StartedAt, started)
	}

	outcomes, err := GetRunOutcomes(db, id)
	if err != nil {
		t.Fatalf("GetRunOutcomes: %v", err)
	}
	want := []OutcomeRecord{
		{
			RunID: id, IssueID: "1", Title: "[BUG] Crash on startup", Category: "bug", Confidence: 1,
			Priority: "critical", PriorityConfidence: 0.8,
			Components: []string{"component-cli"}, Teams: []string{"leads", "core-team"},
			LabelsAdded: []string{"type-bug", "priority-critical"}, LabelsRemoved: []string{"needs-triage"},
			MeetsThreshold: true, LabelsApplied: true,
		},
		{
			RunID: id, IssueID: "2", Title: "hello", Category: "needs-triage",
			Priority: "low", Teams: []string{"triage-team"}, LabelsAdded: []string{"priority-low"},
		},
	}
	if diff := cmp.Diff(want, outcomes); diff != "" {
		t.Fatalf("outcomes (-want +got):\n%s", diff)
	}
}

func TestGetRecentRunsOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		if _, err := InsertRun(db, RunRecord{ID: string(rune('a' + i)), StartedAt: start, FinishedAt: start}, nil); err != nil {
			t.Fatalf("InsertRun %d: %v", i, err)
		}
	}
	runs, err := GetRecentRuns(db, 2)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Fatalf("run order (-want +got):\n%s", diff)
	}
}

func TestGetConfidenceStats(t *testing.T) {
	db := newTestDB(t)
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := InsertRun(db, RunRecord{StartedAt: old, FinishedAt: old}, sampleOutcomes()); err != nil {
		t.Fatalf("InsertRun old: %v", err)
	}
	if _, err := InsertRun(db, RunRecord{StartedAt: recent, FinishedAt: recent}, sampleOutcomes()); err != nil {
		t.Fatalf("InsertRun recent: %v", err)
	}

	stats, err := GetConfidenceStats(db, recent.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("GetConfidenceStats: %v", err)
	}
	want := ConfidenceStats{TotalOutcomes: 2, AvgConfidence: 0.5, BucketBelow50: 1, Bucket90Plus: 1, Unclassified: 1}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats (-want +got):\n%s", diff)
	}
}
