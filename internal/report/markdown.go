package report

import (
	"fmt"
	"strings"

	"triagebot/internal/domain"
)

var categoryOrder = []string{
	string(domain.CategoryBug),
	string(domain.CategorySecurity),
	string(domain.CategoryPerformance),
	string(domain.CategoryDependencies),
	string(domain.CategoryFeature),
	string(domain.CategoryDocumentation),
	string(domain.CategoryNeedsTriage),
}

var priorityOrder = []string{
	string(domain.PriorityCritical),
	string(domain.PriorityHigh),
	string(domain.PriorityMedium),
	string(domain.PriorityLow),
	string(domain.PriorityNone),
}

// RenderMarkdown renders the narrative report. Section order is fixed.
func RenderMarkdown(r Report) string {
	var b strings.Builder

	b.WriteString("# Issue Triage Report\n\n")
	fmt.Fprintf(&b, "_Generated %s", r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	if r.RunID != "" {
		fmt.Fprintf(&b, ", run %s", r.RunID)
	}
	b.WriteString("_\n\n")
	if s := strings.TrimSpace(r.ExecutiveSummary); s != "" {
		b.WriteString(s + "\n\n")
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Issues processed: %d\n", r.Metrics.Processed)
	fmt.Fprintf(&b, "- Classified: %d (%s)\n", r.Metrics.Classified, percent(r.ClassifiedRatio))
	fmt.Fprintf(&b, "- Labeled: %d\n", r.Metrics.Labeled)
	fmt.Fprintf(&b, "- Errors: %d\n", r.Metrics.Errors)
	if r.DryRun {
		b.WriteString("- Mode: dry run\n")
	} else {
		b.WriteString("- Mode: live\n")
	}
	if r.Cancelled {
		b.WriteString("- Run was cancelled before the batch finished\n")
	}
	if r.NeedsManualReview() {
		fmt.Fprintf(&b, "\n> Manual review required: %s hit errors during triage.\n", plural(failedIssues(r.Failures), "issue"))
	}
	b.WriteString("\n")

	b.WriteString("## Classification Breakdown\n\n")
	writeCountTable(&b, "Category", r.ByCategory, categoryOrder)
	writeCountTable(&b, "Priority", r.ByPriority, priorityOrder)
	writeCountTable(&b, "Component", r.ByComponent, nil)

	b.WriteString("## High-Priority Issues\n\n")
	writeRefs(&b, r.Critical)

	b.WriteString("## Security Alerts\n\n")
	writeRefs(&b, r.Security)

	b.WriteString("## System Performance\n\n")
	fmt.Fprintf(&b, "- Mean classification confidence: %.2f\n", r.MeanConfidence)
	fmt.Fprintf(&b, "- Classification rate: %s\n", percent(r.ClassifiedRatio))
	fmt.Fprintf(&b, "- Error rate: %s\n", percent(r.ErrorRatio))
	fmt.Fprintf(&b, "- Below confidence threshold (%.2f): %d\n", r.Threshold, len(r.BelowThreshold))
	if len(r.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "- #%s (%s): %s\n", f.IssueID, f.Stage, f.Message)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Recommended Actions\n\n")
	for i, rec := range r.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}
	return b.String()
}

func writeCountTable(b *strings.Builder, heading string, counts map[string]int, order []string) {
	if len(counts) == 0 {
		fmt.Fprintf(b, "No %s data.\n\n", strings.ToLower(heading))
		return
	}
	fmt.Fprintf(b, "| %s | Issues |\n|---|---|\n", heading)
	for _, k := range orderedKeys(counts, order) {
		fmt.Fprintf(b, "| %s | %d |\n", k, counts[k])
	}
	b.WriteString("\n")
}

func writeRefs(b *strings.Builder, refs []IssueRef) {
	if len(refs) == 0 {
		b.WriteString("_None._\n\n")
		return
	}
	for _, ref := range refs {
		fmt.Fprintf(b, "- #%s %s (%s, %s", ref.IssueID, ref.Title, ref.Category, ref.Priority)
		if len(ref.Teams) > 0 {
			fmt.Fprintf(b, ", owners: %s", strings.Join(ref.Teams, ", "))
		}
		b.WriteString(")\n")
	}
	b.WriteString("\n")
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
