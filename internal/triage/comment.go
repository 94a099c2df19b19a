package triage

import (
	"fmt"
	"strings"

	"triagebot/internal/domain"
)

const commentConfidenceFloor = 0.5

// shouldComment only fires on issues nobody has replied to yet, and only when
// labels actually reached the tracker or the classification is confident.
func shouldComment(issue domain.IssueRecord, outcome domain.TriageOutcome) bool {
	if issue.CommentCount != 0 {
		return false
	}
	return labelsAdded(outcome) || outcome.Classification.Confidence > commentConfidenceFloor
}

func labelsAdded(outcome domain.TriageOutcome) bool {
	return outcome.LabelsApplied && len(outcome.Delta.Add) > 0
}

// BuildComment renders the triage summary posted on an issue.
func BuildComment(outcome domain.TriageOutcome) string {
	var b strings.Builder
	b.WriteString("## Automated triage\n\n")

	c := outcome.Classification
	if c.Classified() {
		fmt.Fprintf(&b, "- **Type:** %s (confidence %.0f%%)\n", c.Category, c.Confidence*100)
	} else {
		b.WriteString("- **Type:** could not be determined, left for manual triage\n")
	}

	p := outcome.Priority
	switch {
	case p.Level == domain.PriorityNone:
		b.WriteString("- **Priority:** already set, unchanged\n")
	case len(p.Factors) > 0:
		fmt.Fprintf(&b, "- **Priority:** %s (%s)\n", p.Level, strings.Join(p.Factors, ", "))
	default:
		fmt.Fprintf(&b, "- **Priority:** %s\n", p.Level)
	}

	if len(outcome.Components) > 0 {
		fmt.Fprintf(&b, "- **Components:** %s\n", strings.Join(outcome.Components, ", "))
	}
	if a := outcome.Assignment; len(a.Teams) > 0 {
		fmt.Fprintf(&b, "- **Suggested owners:** %s (confidence %.0f%%)\n", strings.Join(a.Teams, ", "), a.Confidence*100)
	}
	// the label lines describe tracker state, so they need a successful apply
	if outcome.LabelsApplied {
		if len(outcome.Delta.Add) > 0 {
			fmt.Fprintf(&b, "\nLabels added: %s\n", strings.Join(outcome.Delta.Add, ", "))
		}
		if len(outcome.Delta.Remove) > 0 {
			fmt.Fprintf(&b, "Labels removed: %s\n", strings.Join(outcome.Delta.Remove, ", "))
		}
	}
	b.WriteString("\n_This comment was generated automatically. Reply here if the triage looks wrong._\n")
	return b.String()
}
