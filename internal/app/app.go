package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"triagebot/internal/analysis"
	"triagebot/internal/config"
	"triagebot/internal/domain"
	"triagebot/internal/httpx"
	"triagebot/internal/integrations/github"
	"triagebot/internal/integrations/gitlab"
	"triagebot/internal/integrations/llm"
	slackbot "triagebot/internal/integrations/slack"
	"triagebot/internal/logging"
	"triagebot/internal/report"
	"triagebot/internal/storage/sqlite"
	"triagebot/internal/triage"
)

type SummaryPoster interface {
	PostSummary(ctx context.Context, r report.Report, reportPath string) error
}

type ReportSummarizer interface {
	Summarize(ctx context.Context, r report.Report) (string, llm.Usage, error)
}

// Deps are the collaborators of a run. Port, Notifier and Summarizer are
// optional.
type Deps struct {
	Source     triage.IssueSource
	Port       triage.MutationPort
	Notifier   SummaryPoster
	Summarizer ReportSummarizer
	Now        func() time.Time
}

type RunSummary struct {
	RunID      string
	Result     triage.BatchResult
	Report     report.Report
	ReportPath string
	JSONPath   string
}

// Run builds the tracker and delivery integrations from cfg and triages one
// batch.
func Run(ctx context.Context, cfg config.Config) (RunSummary, error) {
	timeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	logging.Infof("config loaded tracker=%s apply_labels=%t post_comments=%t threshold=%.2f workers=%d http_timeout=%s",
		cfg.Tracker, cfg.ApplyLabels, cfg.PostComments, cfg.ConfidenceThreshold, cfg.AnalysisWorkers, timeout)

	deps, err := buildDeps(cfg)
	if err != nil {
		return RunSummary{}, err
	}
	return RunWith(ctx, cfg, deps)
}

func buildDeps(cfg config.Config) (Deps, error) {
	if err := cfg.ValidateTracker(); err != nil {
		return Deps{}, err
	}
	var deps Deps
	switch cfg.Tracker {
	case config.TrackerGitHub:
		c := github.NewClient(cfg.GitHubAPIURL, cfg.GitHubRepo, cfg.GitHubToken, httpx.ExternalHTTPClient())
		deps.Source, deps.Port = c, c
	case config.TrackerGitLab:
		c := gitlab.NewClient(cfg.GitLabURL, cfg.GitLabProjectID, cfg.GitLabToken, httpx.ExternalHTTPClient())
		deps.Source, deps.Port = c, c
	case config.TrackerFile:
		deps.Source = triage.NewFileSource(cfg.InputPath)
	}
	if cfg.SlackConfigured() {
		deps.Notifier = slackbot.NewNotifier(cfg.SlackBotToken, cfg.ReportChannelID)
	}
	if cfg.LLMSummaryEnabled {
		deps.Summarizer = llm.NewSummarizer(cfg.AnthropicAPIKey, cfg.LLMModel)
	}
	return deps, nil
}

func loadCatalog(cfg config.Config) (*analysis.Catalog, error) {
	if cfg.CatalogPath == "" {
		return analysis.DefaultCatalog(), nil
	}
	cat, err := analysis.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, domain.NewConfigurationError("catalog", err)
	}
	return cat, nil
}

func newOrchestrator(cfg config.Config, cat *analysis.Catalog, port triage.MutationPort) *triage.Orchestrator {
	pacer := triage.NewRatePacer(time.Duration(cfg.PacingDelayMS) * time.Millisecond)
	return triage.NewOrchestrator(analysis.NewEngine(cat), port, pacer, triage.Options{
		ApplyLabels:         cfg.ApplyLabels,
		PostComments:        cfg.PostComments,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		Workers:             cfg.AnalysisWorkers,
	})
}

// RunWith triages one batch with the given collaborators. Only configuration
// problems and a failed issue listing are returned as errors; report,
// history and Slack failures are logged.
func RunWith(ctx context.Context, cfg config.Config, deps Deps) (RunSummary, error) {
	if deps.Source == nil {
		return RunSummary{}, domain.NewConfigurationError("no issue source", nil)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return RunSummary{}, err
	}

	issues, err := deps.Source.ListIssues(ctx)
	if err != nil {
		if domain.IsConfigurationError(err) {
			return RunSummary{}, err
		}
		return RunSummary{}, fmt.Errorf("listing issues: %w", err)
	}
	logging.Infof("triage start issues=%d", len(issues))

	result, err := newOrchestrator(cfg, cat, deps.Port).Run(ctx, issues)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{RunID: uuid.NewString(), Result: result}
	dryRun := !cfg.ApplyLabels && !cfg.PostComments
	summary.Report = report.Generate(report.Input{
		RunID:       summary.RunID,
		GeneratedAt: now(),
		Outcomes:    result.Outcomes,
		Metrics:     result.Metrics,
		Failures:    result.Failures,
		Cancelled:   result.Cancelled,
		DryRun:      dryRun,
		Threshold:   cfg.ConfidenceThreshold,
	})

	// delivery steps below still run after a cancel, on a fresh context
	deliveryCtx := context.WithoutCancel(ctx)

	if deps.Summarizer != nil {
		text, usage, err := deps.Summarizer.Summarize(deliveryCtx, summary.Report)
		if err != nil {
			logging.Warnf("llm summary skipped: %v", err)
		} else {
			summary.Report.ExecutiveSummary = text
			logging.Infof("llm summary tokens=%d", usage.TotalTokens())
		}
	}

	summary.ReportPath, summary.JSONPath, err = report.WriteFiles(summary.Report, cfg.ReportOutputDir)
	if err != nil {
		logging.Errorf("report write failed dir=%s: %v", cfg.ReportOutputDir, err)
	} else {
		logging.Infof("report written md=%s json=%s", summary.ReportPath, summary.JSONPath)
	}

	recordRun(cfg, summary, started, now())

	if deps.Notifier != nil {
		if err := deps.Notifier.PostSummary(deliveryCtx, summary.Report, summary.ReportPath); err != nil {
			logging.Warnf("slack summary failed: %v", err)
		}
	}
	return summary, nil
}

func recordRun(cfg config.Config, s RunSummary, started, finished time.Time) {
	if cfg.DBPath == "" {
		return
	}
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		logging.Errorf("history store unavailable path=%s: %v", cfg.DBPath, err)
		return
	}
	defer db.Close()

	_, err = sqlite.InsertRun(db, sqlite.RunRecord{
		ID:         s.RunID,
		Tracker:    cfg.Tracker,
		DryRun:     s.Report.DryRun,
		Cancelled:  s.Result.Cancelled,
		Metrics:    s.Result.Metrics,
		ReportPath: s.ReportPath,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
	}, s.Result.Outcomes)
	if err != nil {
		logging.Errorf("history insert failed run=%s: %v", s.RunID, err)
	}
}

// Classify triages a single issue without touching any tracker.
func Classify(ctx context.Context, cfg config.Config, issue domain.IssueRecord) (domain.TriageOutcome, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return domain.TriageOutcome{}, err
	}
	if issue.ID == "" {
		issue.ID = "local"
	}
	issue.Labels = domain.UniqueLabels(issue.Labels)

	dry := cfg
	dry.ApplyLabels, dry.PostComments = false, false
	result, err := newOrchestrator(dry, cat, nil).Run(ctx, []domain.IssueRecord{issue})
	if err != nil {
		return domain.TriageOutcome{}, err
	}
	if len(result.Outcomes) == 0 {
		if len(result.Failures) > 0 {
			return domain.TriageOutcome{}, fmt.Errorf("%s", result.Failures[0].Message)
		}
		return domain.TriageOutcome{}, ctx.Err()
	}
	return result.Outcomes[0], nil
}

type History struct {
	Runs  []sqlite.RunRecord
	Stats sqlite.ConfidenceStats
}

// LoadHistory reads the most recent runs and confidence stats since since.
func LoadHistory(cfg config.Config, limit int, since time.Time) (History, error) {
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return History{}, fmt.Errorf("opening history store: %w", err)
	}
	defer db.Close()

	runs, err := sqlite.GetRecentRuns(db, limit)
	if err != nil {
		return History{}, fmt.Errorf("reading runs: %w", err)
	}
	stats, err := sqlite.GetConfidenceStats(db, since.UTC())
	if err != nil {
		return History{}, fmt.Errorf("reading stats: %w", err)
	}
	return History{Runs: runs, Stats: stats}, nil
}

// RunOutcomes returns the stored outcomes of one run.
func RunOutcomes(cfg config.Config, runID string) ([]sqlite.OutcomeRecord, error) {
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	defer db.Close()
	return sqlite.GetRunOutcomes(db, runID)
}
