package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"triagebot/internal/config"
	"triagebot/internal/domain"
	"triagebot/internal/integrations/llm"
	"triagebot/internal/report"
)

type staticSource struct {
	issues []domain.IssueRecord
	err    error
}

func (s staticSource) ListIssues(context.Context) ([]domain.IssueRecord, error) {
	return s.issues, s.err
}

type recordingPort struct {
	mu       sync.Mutex
	added    map[string][]string
	removed  map[string][]string
	comments map[string]string
}

func newRecordingPort() *recordingPort {
	return &recordingPort{
		added:    make(map[string][]string),
		removed:  make(map[string][]string),
		comments: make(map[string]string),
	}
}

func (p *recordingPort) AddLabels(_ context.Context, id string, labels []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added[id] = append(p.added[id], labels...)
	return nil
}

func (p *recordingPort) RemoveLabel(_ context.Context, id, label string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed[id] = append(p.removed[id], label)
	return nil
}

func (p *recordingPort) CreateComment(_ context.Context, id, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments[id] = body
	return nil
}

type fakeNotifier struct {
	calls int
	path  string
	err   error
}

func (n *fakeNotifier) PostSummary(_ context.Context, _ report.Report, reportPath string) error {
	n.calls++
	n.path = reportPath
	return n.err
}

type fakeSummarizer struct {
	text string
	err  error
}

func (s fakeSummarizer) Summarize(context.Context, report.Report) (string, llm.Usage, error) {
	return s.text, llm.Usage{InputTokens: 10, OutputTokens: 5}, s.err
}

func sampleIssues() []domain.IssueRecord {
	return []domain.IssueRecord{
		{
			ID:     "1",
			Title:  "Update dependency to fix CVE-2024-1234",
			Body:   "security vulnerability in dependency, CVE disclosure",
			Labels: []string{"needs-triage"},
		},
		{
			ID:    "2",
			Title: "[BUG] Crash on startup",
			Body:  "the app crashes with a stacktrace when parsing config",
		},
		{ID: "3", Title: "hello", Body: "world"},
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Tracker:                    config.TrackerFile,
		ConfidenceThreshold:        0.7,
		AnalysisWorkers:            2,
		DBPath:                     filepath.Join(dir, "triagebot-test.db"),
		ReportOutputDir:            filepath.Join(dir, "reports"),
		ExternalHTTPTimeoutSeconds: 30,
	}
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }

func TestRunWithDryRunWritesReportAndHistory(t *testing.T) {
	cfg := testConfig(t)
	notifier := &fakeNotifier{}

	summary, err := RunWith(context.Background(), cfg, Deps{
		Source:     staticSource{issues: sampleIssues()},
		Notifier:   notifier,
		Summarizer: fakeSummarizer{text: "Two issues need attention."},
		Now:        fixedNow,
	})
	if err != nil {
		t.Fatalf("RunWith: %v", err)
	}

	want := domain.Metrics{Processed: 3, Classified: 2}
	if diff := cmp.Diff(want, summary.Result.Metrics); diff != "" {
		t.Fatalf("metrics (-want +got):\n%s", diff)
	}
	if !summary.Report.DryRun {
		t.Fatalf("report should be marked dry run")
	}
	if summary.Report.ExecutiveSummary != "Two issues need attention." {
		t.Fatalf("executive summary: got %q", summary.Report.ExecutiveSummary)
	}

	wantMD := filepath.Join(cfg.ReportOutputDir, "triage_20260302-093000.md")
	if summary.ReportPath != wantMD {
		t.Fatalf("report path: got %q want %q", summary.ReportPath, wantMD)
	}
	md, err := os.ReadFile(summary.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(md), "Two issues need attention.") {
		t.Fatalf("markdown report missing executive summary:\n%s", md)
	}
	if _, err := os.Stat(summary.JSONPath); err != nil {
		t.Fatalf("json report missing: %v", err)
	}

	if notifier.calls != 1 || notifier.path != summary.ReportPath {
		t.Fatalf("notifier: calls=%d path=%q", notifier.calls, notifier.path)
	}

	hist, err := LoadHistory(cfg, 5, time.Time{})
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(hist.Runs) != 1 || hist.Runs[0].ID != summary.RunID {
		t.Fatalf("history runs: got %+v want one run %s", hist.Runs, summary.RunID)
	}
	if !hist.Runs[0].DryRun || hist.Runs[0].Metrics.Processed != 3 {
		t.Fatalf("stored run: %+v", hist.Runs[0])
	}

	outcomes, err := RunOutcomes(cfg, summary.RunID)
	if err != nil {
		t.Fatalf("RunOutcomes: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("stored outcomes: got %d want 3", len(outcomes))
	}
}

func TestRunWithLiveAppliesLabels(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tracker = config.TrackerGitHub
	cfg.ApplyLabels = true
	port := newRecordingPort()

	summary, err := RunWith(context.Background(), cfg, Deps{
		Source: staticSource{issues: sampleIssues()},
		Port:   port,
		Now:    fixedNow,
	})
	if err != nil {
		t.Fatalf("RunWith: %v", err)
	}
	if summary.Report.DryRun {
		t.Fatalf("live run reported as dry run")
	}
	if summary.Result.Metrics.Labeled != 3 {
		t.Fatalf("labeled: got %d want 3", summary.Result.Metrics.Labeled)
	}
	if diff := cmp.Diff([]string{"needs-triage"}, port.removed["1"]); diff != "" {
		t.Fatalf("removed on issue 1 (-want +got):\n%s", diff)
	}
	if len(port.comments) != 0 {
		t.Fatalf("comments posted with post_comments off: %v", port.comments)
	}
}

func TestRunWithSourceFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("GitHub API returned 502: bad gateway")

	_, err := RunWith(context.Background(), cfg, Deps{Source: staticSource{err: boom}, Now: fixedNow})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v want wrapped source error", err)
	}
	if _, statErr := os.Stat(cfg.ReportOutputDir); !os.IsNotExist(statErr) {
		t.Fatalf("report dir should not exist after a fatal fetch, stat err=%v", statErr)
	}
}

func TestRunWithDeliveryFailuresAreNotFatal(t *testing.T) {
	cfg := testConfig(t)
	notifier := &fakeNotifier{err: errors.New("channel_not_found")}

	summary, err := RunWith(context.Background(), cfg, Deps{
		Source:     staticSource{issues: sampleIssues()},
		Notifier:   notifier,
		Summarizer: fakeSummarizer{err: errors.New("Anthropic API returned 529")},
		Now:        fixedNow,
	})
	if err != nil {
		t.Fatalf("RunWith: %v", err)
	}
	if summary.Report.ExecutiveSummary != "" {
		t.Fatalf("executive summary should be empty, got %q", summary.Report.ExecutiveSummary)
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier calls: got %d want 1", notifier.calls)
	}
}

func TestRunWithRequiresSource(t *testing.T) {
	_, err := RunWith(context.Background(), testConfig(t), Deps{})
	if !domain.IsConfigurationError(err) {
		t.Fatalf("got %v want ConfigurationError", err)
	}
}

func TestRunRejectsFileTrackerWithMutations(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputPath = filepath.Join(t.TempDir(), "issues.json")
	cfg.ApplyLabels = true

	_, err := Run(context.Background(), cfg)
	if !domain.IsConfigurationError(err) {
		t.Fatalf("got %v want ConfigurationError", err)
	}
}

func TestRunFromFileSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputPath = filepath.Join(t.TempDir(), "issues.json")
	data := `[{"id": 10, "title": "Add WASM support to the CLI", "body": "github action would be nice"}]`
	if err := os.WriteFile(cfg.InputPath, []byte(data), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	summary, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Result.Outcomes) != 1 || summary.Result.Outcomes[0].IssueID != "10" {
		t.Fatalf("outcomes: %+v", summary.Result.Outcomes)
	}
}

func TestClassifySecurityExample(t *testing.T) {
	cfg := testConfig(t)
	out, err := Classify(context.Background(), cfg, domain.IssueRecord{
		Title: "Update dependency to fix CVE-2024-1234",
		Body:  "security vulnerability in dependency, CVE disclosure",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.IssueID != "local" {
		t.Fatalf("issue id: got %q want local", out.IssueID)
	}
	if out.Classification.Category != domain.CategorySecurity {
		t.Fatalf("category: got %q want security", out.Classification.Category)
	}
	if out.Priority.Level != domain.PriorityCritical || out.Priority.Confidence != 0.95 {
		t.Fatalf("priority: got %+v", out.Priority)
	}
	if out.LabelsApplied || out.Commented {
		t.Fatalf("classify must not touch a tracker: %+v", out)
	}
}

func TestClassifyBadCatalogIsConfigurationError(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Classify(context.Background(), cfg, domain.IssueRecord{Title: "x"})
	if !domain.IsConfigurationError(err) {
		t.Fatalf("got %v want ConfigurationError", err)
	}
}
