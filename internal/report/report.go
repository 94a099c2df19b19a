package report

import (
	"fmt"
	"sort"
	"time"

	"triagebot/internal/domain"
)

// IssueRef is the short form of an outcome used in report listings.
type IssueRef struct {
	IssueID    string          `json:"issue_id"`
	Title      string          `json:"title"`
	Category   domain.Category `json:"category"`
	Priority   string          `json:"priority"`
	Confidence float64         `json:"confidence"`
	Teams      []string        `json:"teams"`
}

type Report struct {
	RunID       string    `json:"run_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	DryRun      bool      `json:"dry_run"`
	Cancelled   bool      `json:"cancelled"`
	Threshold   float64   `json:"confidence_threshold"`

	Metrics     domain.Metrics `json:"metrics"`
	ByCategory  map[string]int `json:"by_category"`
	ByPriority  map[string]int `json:"by_priority"`
	ByComponent map[string]int `json:"by_component"`

	Critical       []IssueRef `json:"critical"`
	Security       []IssueRef `json:"security"`
	BelowThreshold []IssueRef `json:"below_threshold"`

	MeanConfidence  float64 `json:"mean_confidence"`
	ClassifiedRatio float64 `json:"classified_ratio"`
	ErrorRatio      float64 `json:"error_ratio"`

	Failures         []domain.IssueFailure `json:"failures"`
	Recommendations  []string              `json:"recommendations"`
	ExecutiveSummary string                `json:"executive_summary,omitempty"`
}

// NeedsManualReview is true when any issue was skipped or only partly updated.
func (r Report) NeedsManualReview() bool {
	return len(r.Failures) > 0
}

type Input struct {
	RunID       string
	GeneratedAt time.Time
	Outcomes    []domain.TriageOutcome
	Metrics     domain.Metrics
	Failures    []domain.IssueFailure
	Cancelled   bool
	DryRun      bool
	Threshold   float64
}

// Generate aggregates a batch into a Report. It does not look at anything
// beyond the outcomes and metrics it is given.
func Generate(in Input) Report {
	r := Report{
		RunID:       in.RunID,
		GeneratedAt: in.GeneratedAt,
		DryRun:      in.DryRun,
		Cancelled:   in.Cancelled,
		Threshold:   in.Threshold,
		Metrics:     in.Metrics,
		ByCategory:  make(map[string]int),
		ByPriority:  make(map[string]int),
		ByComponent: make(map[string]int),
		Failures:    in.Failures,
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	var confidenceSum float64
	for _, o := range in.Outcomes {
		r.ByCategory[string(o.Classification.Category)]++
		r.ByPriority[string(o.Priority.Level)]++
		for _, c := range o.Components {
			r.ByComponent[c]++
		}
		confidenceSum += o.Classification.Confidence

		ref := refFor(o)
		if o.Priority.Level == domain.PriorityCritical {
			r.Critical = append(r.Critical, ref)
		}
		if o.Classification.Category == domain.CategorySecurity {
			r.Security = append(r.Security, ref)
		}
		if o.Classification.Classified() && !o.MeetsThreshold {
			r.BelowThreshold = append(r.BelowThreshold, ref)
		}
	}

	if len(in.Outcomes) > 0 {
		r.MeanConfidence = confidenceSum / float64(len(in.Outcomes))
	}
	if in.Metrics.Processed > 0 {
		r.ClassifiedRatio = float64(in.Metrics.Classified) / float64(in.Metrics.Processed)
		r.ErrorRatio = float64(in.Metrics.Errors) / float64(in.Metrics.Processed)
	}
	r.Recommendations = recommend(r)
	return r
}

func refFor(o domain.TriageOutcome) IssueRef {
	return IssueRef{
		IssueID:    o.IssueID,
		Title:      o.Title,
		Category:   o.Classification.Category,
		Priority:   string(o.Priority.Level),
		Confidence: o.Classification.Confidence,
		Teams:      o.Assignment.Teams,
	}
}

func recommend(r Report) []string {
	var recs []string
	if n := len(r.Critical); n > 0 {
		recs = append(recs, fmt.Sprintf("Review %s marked critical today.", plural(n, "issue")))
	}
	if n := len(r.Security); n > 0 {
		recs = append(recs, fmt.Sprintf("Route %s to the security team and keep details private until fixed.", plural(n, "security issue")))
	}
	if n := r.ByCategory[string(domain.CategoryNeedsTriage)]; n > 0 {
		recs = append(recs, fmt.Sprintf("Triage %s by hand; no pattern matched.", plural(n, "issue")))
	}
	if n := len(r.BelowThreshold); n > 0 {
		recs = append(recs, fmt.Sprintf("Double-check %s classified below the %.2f confidence threshold.", plural(n, "issue"), r.Threshold))
	}
	if n := failedIssues(r.Failures); n > 0 {
		recs = append(recs, fmt.Sprintf("Manual review required: %s hit errors during triage.", plural(n, "issue")))
	}
	if r.Cancelled {
		recs = append(recs, "The run was cancelled before the batch finished; run it again to cover the rest.")
	}
	if r.DryRun {
		recs = append(recs, "Dry run: no labels or comments were written.")
	}
	if len(recs) == 0 {
		recs = append(recs, "No action needed.")
	}
	return recs
}

func failedIssues(failures []domain.IssueFailure) int {
	ids := make(map[string]bool)
	for _, f := range failures {
		ids[f.IssueID] = true
	}
	return len(ids)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// orderedKeys returns the keys of counts with the preferred ones first, in
// the given order, followed by the rest sorted.
func orderedKeys(counts map[string]int, preferred []string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, k := range preferred {
		if counts[k] > 0 {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range counts {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
