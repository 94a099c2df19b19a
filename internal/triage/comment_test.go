package triage

import (
	"strings"
	"testing"

	"triagebot/internal/domain"
)

func TestShouldComment(t *testing.T) {
	tests := []struct {
		name    string
		issue   domain.IssueRecord
		outcome domain.TriageOutcome
		want    bool
	}{
		{
			name:    "labels added",
			outcome: domain.TriageOutcome{Delta: domain.LabelDelta{Add: []string{"type-bug"}}, LabelsApplied: true},
			want:    true,
		},
		{
			name:    "labels computed but not applied",
			outcome: domain.TriageOutcome{Delta: domain.LabelDelta{Add: []string{"priority-low"}}},
			want:    false,
		},
		{
			name:    "confident without labels",
			outcome: domain.TriageOutcome{Classification: domain.ClassificationResult{Category: domain.CategoryBug, Confidence: 0.6}},
			want:    true,
		},
		{
			name:    "low confidence and no labels",
			outcome: domain.TriageOutcome{Classification: domain.ClassificationResult{Category: domain.CategoryBug, Confidence: 0.5}},
			want:    false,
		},
		{
			name:    "existing discussion",
			issue:   domain.IssueRecord{CommentCount: 1},
			outcome: domain.TriageOutcome{Delta: domain.LabelDelta{Add: []string{"type-bug"}}, LabelsApplied: true},
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldComment(tt.issue, tt.outcome); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestBuildComment(t *testing.T) {
	body := BuildComment(domain.TriageOutcome{
		Classification: domain.ClassificationResult{Category: domain.CategoryBug, Confidence: 1, Matches: 3},
		Priority:       domain.PriorityResult{Level: domain.PriorityCritical, Confidence: 0.8, Factors: []string{"severe-bug"}},
		Components:     []string{"component-cli"},
		Assignment:     domain.AssignmentSuggestion{Teams: []string{"leads", "core-team"}, Confidence: 0.9},
		Delta:          domain.LabelDelta{Add: []string{"type-bug"}, Remove: []string{"needs-triage"}},
		LabelsApplied:  true,
	})
	for _, want := range []string{
		"## Automated triage",
		"**Type:** bug (confidence 100%)",
		"**Priority:** critical (severe-bug)",
		"**Components:** component-cli",
		"**Suggested owners:** leads, core-team (confidence 90%)",
		"Labels added: type-bug",
		"Labels removed: needs-triage",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("comment missing %q:\n%s", want, body)
		}
	}

	unclassified := BuildComment(domain.TriageOutcome{
		Classification: domain.ClassificationResult{Category: domain.CategoryNeedsTriage},
		Priority:       domain.PriorityResult{Level: domain.PriorityNone},
	})
	if !strings.Contains(unclassified, "manual triage") || !strings.Contains(unclassified, "already set") {
		t.Fatalf("unexpected unclassified comment:\n%s", unclassified)
	}
}

func TestBuildCommentOmitsUnappliedLabels(t *testing.T) {
	body := BuildComment(domain.TriageOutcome{
		Classification: domain.ClassificationResult{Category: domain.CategoryBug, Confidence: 0.8, Matches: 2},
		Priority:       domain.PriorityResult{Level: domain.PriorityHigh},
		Delta:          domain.LabelDelta{Add: []string{"type-bug", "priority-high"}, Remove: []string{"needs-triage"}},
	})
	if strings.Contains(body, "Labels added") || strings.Contains(body, "Labels removed") {
		t.Fatalf("comment reports labels that were never applied:\n%s", body)
	}
}
