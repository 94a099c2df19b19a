package triage

import (
	"context"

	"triagebot/internal/analysis"
	"triagebot/internal/domain"
)

// Analyzer runs the pure per-issue analysis chain. Implementations must be
// safe for concurrent use.
type Analyzer interface {
	Analyze(issue domain.IssueRecord) (analysis.Analysis, error)
}

// IssueSource lists the batch of issues to triage. It is read once per run.
type IssueSource interface {
	ListIssues(ctx context.Context) ([]domain.IssueRecord, error)
}

// MutationPort applies label and comment changes to the tracker.
// RemoveLabel returns domain.ErrLabelNotFound when the label is absent.
type MutationPort interface {
	AddLabels(ctx context.Context, issueID string, labels []string) error
	RemoveLabel(ctx context.Context, issueID, label string) error
	CreateComment(ctx context.Context, issueID, body string) error
}

// Pacer spaces tracker writes between issues.
type Pacer interface {
	Wait(ctx context.Context) error
}
