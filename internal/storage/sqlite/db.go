package sqlite

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"triagebot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS triage_runs (
		id          TEXT PRIMARY KEY,
		tracker     TEXT NOT NULL DEFAULT '',
		dry_run     INTEGER NOT NULL DEFAULT 0,
		cancelled   INTEGER NOT NULL DEFAULT 0,
		processed   INTEGER NOT NULL DEFAULT 0,
		classified  INTEGER NOT NULL DEFAULT 0,
		labeled     INTEGER NOT NULL DEFAULT 0,
		errors      INTEGER NOT NULL DEFAULT 0,
		report_path TEXT DEFAULT '',
		started_at  DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_triage_runs_started_at ON triage_runs(started_at);

	CREATE TABLE IF NOT EXISTS triage_outcomes (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id              TEXT NOT NULL,
		issue_id            TEXT NOT NULL,
		title               TEXT DEFAULT '',
		category            TEXT NOT NULL,
		confidence          REAL NOT NULL,
		priority            TEXT NOT NULL,
		priority_confidence REAL NOT NULL DEFAULT 0,
		components          TEXT DEFAULT '',
		teams               TEXT DEFAULT '',
		labels_added        TEXT DEFAULT '',
		labels_removed      TEXT DEFAULT '',
		meets_threshold     INTEGER NOT NULL DEFAULT 0,
		labels_applied      INTEGER NOT NULL DEFAULT 0,
		commented           INTEGER NOT NULL DEFAULT 0,
		created_at          DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_triage_outcomes_run ON triage_outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_triage_outcomes_issue ON triage_outcomes(issue_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type RunRecord struct {
	ID         string
	Tracker    string
	DryRun     bool
	Cancelled  bool
	Metrics    domain.Metrics
	ReportPath string
	StartedAt  time.Time
	FinishedAt time.Time
}

type OutcomeRecord struct {
	RunID              string
	IssueID            string
	Title              string
	Category           string
	Confidence         float64
	Priority           string
	PriorityConfidence float64
	Components         []string
	Teams              []string
	LabelsAdded        []string
	LabelsRemoved      []string
	MeetsThreshold     bool
	LabelsApplied      bool
	Commented          bool
}

// InsertRun stores a run and its outcomes in one transaction. A run without
// an ID gets a new UUID, which is returned.
func InsertRun(db *sql.DB, run RunRecord, outcomes []domain.TriageOutcome) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO triage_runs
		 (id, tracker, dry_run, cancelled, processed, classified, labeled, errors, report_path, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Tracker, run.DryRun, run.Cancelled,
		run.Metrics.Processed, run.Metrics.Classified, run.Metrics.Labeled, run.Metrics.Errors,
		run.ReportPath, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return "", err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO triage_outcomes
		 (run_id, issue_id, title, category, confidence, priority, priority_confidence,
		  components, teams, labels_added, labels_removed, meets_threshold, labels_applied, commented)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.Exec(
			run.ID, o.IssueID, o.Title, string(o.Classification.Category), o.Classification.Confidence,
			string(o.Priority.Level), o.Priority.Confidence,
			joinList(o.Components), joinList(o.Assignment.Teams),
			joinList(o.Delta.Add), joinList(o.Delta.Remove),
			o.MeetsThreshold, o.LabelsApplied, o.Commented,
		); err != nil {
			return "", err
		}
	}
	return run.ID, tx.Commit()
}

func GetRecentRuns(db *sql.DB, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(
		`SELECT id, tracker, dry_run, cancelled, processed, classified, labeled, errors, report_path, started_at, finished_at
		 FROM triage_runs ORDER BY started_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.ID, &r.Tracker, &r.DryRun, &r.Cancelled,
			&r.Metrics.Processed, &r.Metrics.Classified, &r.Metrics.Labeled, &r.Metrics.Errors,
			&r.ReportPath, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func GetRunOutcomes(db *sql.DB, runID string) ([]OutcomeRecord, error) {
	rows, err := db.Query(
		`SELECT run_id, issue_id, title, category, confidence, priority, priority_confidence,
		        components, teams, labels_added, labels_removed, meets_threshold, labels_applied, commented
		 FROM triage_outcomes WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var r OutcomeRecord
		var components, teams, added, removed string
		if err := rows.Scan(
			&r.RunID, &r.IssueID, &r.Title, &r.Category, &r.Confidence, &r.Priority, &r.PriorityConfidence,
			&components, &teams, &added, &removed, &r.MeetsThreshold, &r.LabelsApplied, &r.Commented,
		); err != nil {
			return nil, err
		}
		r.Components = splitList(components)
		r.Teams = splitList(teams)
		r.LabelsAdded = splitList(added)
		r.LabelsRemoved = splitList(removed)
		out = append(out, r)
	}
	return out, rows.Err()
}

type ConfidenceStats struct {
	TotalOutcomes int
	AvgConfidence float64
	BucketBelow50 int
	Bucket50to70  int
	Bucket70to90  int
	Bucket90Plus  int
	Unclassified  int
}

// GetConfidenceStats summarizes classification confidence across all runs
// started at or after since.
func GetConfidenceStats(db *sql.DB, since time.Time) (ConfidenceStats, error) {
	var s ConfidenceStats
	err := db.QueryRow(
		`SELECT COUNT(*), COALESCE(AVG(o.confidence), 0),
		        COALESCE(SUM(CASE WHEN o.confidence < 0.50 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN o.confidence >= 0.50 AND o.confidence < 0.70 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN o.confidence >= 0.70 AND o.confidence < 0.90 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN o.confidence >= 0.90 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN o.category = ? THEN 1 ELSE 0 END), 0)
		 FROM triage_outcomes o JOIN triage_runs r ON r.id = o.run_id
		 WHERE r.started_at >= ?`,
		string(domain.CategoryNeedsTriage), since,
	).Scan(&s.TotalOutcomes, &s.AvgConfidence,
		&s.BucketBelow50, &s.Bucket50to70, &s.Bucket70to90, &s.Bucket90Plus, &s.Unclassified)
	return s, err
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
