package domain

import "strings"

// IssueRecord is a read-only snapshot of a tracker issue.
type IssueRecord struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Labels       []string `json:"labels"`
	CommentCount int      `json:"comment_count"`
}

const (
	NeedsTriageLabel    = "needs-triage"
	PriorityLabelPrefix = "priority-"
)

func (i IssueRecord) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// HasPriorityLabel reports whether any label already assigns a priority.
func HasPriorityLabel(labels []string) bool {
	for _, l := range labels {
		if strings.HasPrefix(l, PriorityLabelPrefix) {
			return true
		}
	}
	return false
}

// UniqueLabels drops empty and repeated labels, keeping first-seen order.
func UniqueLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
