package triage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"triagebot/internal/analysis"
	"triagebot/internal/domain"
	"triagebot/internal/logging"
)

const DefaultConfidenceThreshold = 0.7

type Options struct {
	ApplyLabels  bool
	PostComments bool
	// ConfidenceThreshold only sets TriageOutcome.MeetsThreshold. Labels are
	// applied regardless.
	ConfidenceThreshold float64
	// Workers bounds parallel analysis. Values below 1 mean one worker.
	Workers int
}

func (o Options) live() bool {
	return o.ApplyLabels || o.PostComments
}

// BatchResult is everything a run produced, including a partial batch when
// the context was cancelled.
type BatchResult struct {
	Outcomes  []domain.TriageOutcome
	Metrics   domain.Metrics
	Failures  []domain.IssueFailure
	Cancelled bool
}

type Orchestrator struct {
	analyzer Analyzer
	port     MutationPort
	pacer    Pacer
	opts     Options
}

// NewOrchestrator wires the analysis chain to an optional mutation port. port
// and pacer may be nil for dry runs.
func NewOrchestrator(analyzer Analyzer, port MutationPort, pacer Pacer, opts Options) *Orchestrator {
	return &Orchestrator{analyzer: analyzer, port: port, pacer: pacer, opts: opts}
}

// Validate checks the fatal pre-batch conditions.
func (o *Orchestrator) Validate(issues []domain.IssueRecord) error {
	if o.analyzer == nil {
		return domain.NewConfigurationError("no analyzer configured", nil)
	}
	if o.opts.live() && o.port == nil {
		return domain.NewConfigurationError("label or comment mutation enabled without a tracker", nil)
	}
	if o.opts.ConfidenceThreshold < 0 || o.opts.ConfidenceThreshold > 1 {
		return domain.NewConfigurationError(fmt.Sprintf("confidence threshold %v outside [0,1]", o.opts.ConfidenceThreshold), nil)
	}
	seen := make(map[string]bool, len(issues))
	for i, issue := range issues {
		if issue.ID == "" {
			return domain.NewConfigurationError(fmt.Sprintf("issue at position %d has no id", i), nil)
		}
		if seen[issue.ID] {
			return domain.NewConfigurationError(fmt.Sprintf("issue %s listed twice", issue.ID), nil)
		}
		seen[issue.ID] = true
	}
	return nil
}

type analyzed struct {
	result analysis.Analysis
	err    error
}

// Run triages issues in order. Analysis runs in parallel; mutations, pacing
// and metric folding happen sequentially in issue order. Only a
// ConfigurationError is returned as an error; per-issue failures end up in
// the result.
func (o *Orchestrator) Run(ctx context.Context, issues []domain.IssueRecord) (BatchResult, error) {
	if err := o.Validate(issues); err != nil {
		return BatchResult{}, err
	}

	results := o.analyzeAll(ctx, issues)

	var batch BatchResult
	for i, issue := range issues {
		if ctx.Err() != nil {
			batch.Cancelled = true
			break
		}
		if o.opts.live() && o.pacer != nil {
			if err := o.pacer.Wait(ctx); err != nil {
				batch.Cancelled = true
				break
			}
		}

		outcome, m, failures := o.processIssue(ctx, issue, results[i])
		batch.Metrics.Add(m)
		batch.Failures = append(batch.Failures, failures...)
		if outcome != nil {
			batch.Outcomes = append(batch.Outcomes, *outcome)
		}
	}

	if batch.Cancelled {
		logging.Warnf("triage cancelled processed=%d total=%d", batch.Metrics.Processed, len(issues))
	}
	logging.Infof("triage done processed=%d classified=%d labeled=%d errors=%d",
		batch.Metrics.Processed, batch.Metrics.Classified, batch.Metrics.Labeled, batch.Metrics.Errors)
	return batch, nil
}

func (o *Orchestrator) analyzeAll(ctx context.Context, issues []domain.IssueRecord) []analyzed {
	results := make([]analyzed, len(issues))
	workers := o.opts.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range issues {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].err = ctx.Err()
				return nil
			}
			results[i] = o.analyzeOne(issues[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) analyzeOne(issue domain.IssueRecord) (out analyzed) {
	defer func() {
		if r := recover(); r != nil {
			out = analyzed{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	a, err := o.analyzer.Analyze(issue)
	return analyzed{result: a, err: err}
}

func (o *Orchestrator) processIssue(ctx context.Context, issue domain.IssueRecord, res analyzed) (*domain.TriageOutcome, domain.Metrics, []domain.IssueFailure) {
	m := domain.Metrics{Processed: 1}
	if res.err != nil {
		err := &domain.AnalysisError{IssueID: issue.ID, Err: res.err}
		logging.Errorf("triage issue=%s analysis failed: %v", issue.ID, err)
		m.Errors++
		return nil, m, []domain.IssueFailure{{IssueID: issue.ID, Stage: domain.StageAnalysis, Message: err.Error()}}
	}

	a := res.result
	if a.Classification.Classified() {
		m.Classified++
	}
	outcome := domain.TriageOutcome{
		IssueID:        issue.ID,
		Title:          issue.Title,
		Classification: a.Classification,
		Priority:       a.Priority,
		Components:     a.Components,
		Assignment:     a.Assignment,
		Delta:          ComputeLabelDelta(issue.Labels, a),
		MeetsThreshold: a.Classification.Confidence >= o.opts.ConfidenceThreshold,
	}
	logging.Infof("triage issue=%s category=%s confidence=%.2f priority=%s add=%v remove=%v",
		issue.ID, a.Classification.Category, a.Classification.Confidence, a.Priority.Level,
		outcome.Delta.Add, outcome.Delta.Remove)

	var failures []domain.IssueFailure
	if o.opts.ApplyLabels && !outcome.Delta.Empty() {
		errs := o.applyDelta(ctx, issue.ID, outcome.Delta)
		for _, err := range errs {
			failures = append(failures, domain.IssueFailure{IssueID: issue.ID, Stage: domain.StageLabels, Message: err.Error()})
		}
		m.Errors += len(errs)
		if len(errs) == 0 {
			outcome.LabelsApplied = true
			m.Labeled++
		}
	}

	if o.opts.PostComments && shouldComment(issue, outcome) {
		if err := o.port.CreateComment(ctx, issue.ID, BuildComment(outcome)); err != nil {
			merr := &domain.MutationError{IssueID: issue.ID, Op: "create comment", Err: err}
			logging.Errorf("triage issue=%s %v", issue.ID, merr)
			failures = append(failures, domain.IssueFailure{IssueID: issue.ID, Stage: domain.StageComment, Message: merr.Error()})
			m.Errors++
		} else {
			outcome.Commented = true
		}
	}
	return &outcome, m, failures
}

// applyDelta returns one error per failed tracker call. A remove of a label
// that is already gone is logged and ignored.
func (o *Orchestrator) applyDelta(ctx context.Context, issueID string, delta domain.LabelDelta) []error {
	var errs []error
	if len(delta.Add) > 0 {
		if err := o.port.AddLabels(ctx, issueID, delta.Add); err != nil {
			merr := &domain.MutationError{IssueID: issueID, Op: "add labels", Err: err}
			logging.Errorf("triage issue=%s %v", issueID, merr)
			errs = append(errs, merr)
		}
	}
	for _, label := range delta.Remove {
		err := o.port.RemoveLabel(ctx, issueID, label)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrLabelNotFound):
			logging.Warnf("triage issue=%s label=%s already removed", issueID, label)
		default:
			merr := &domain.MutationError{IssueID: issueID, Op: "remove label " + label, Err: err}
			logging.Errorf("triage issue=%s %v", issueID, merr)
			errs = append(errs, merr)
		}
	}
	return errs
}
