package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"triagebot/internal/domain"
)

func TestSuggestAssignees(t *testing.T) {
	r := NewAssigneeResolver()

	tests := []struct {
		name     string
		category domain.Category
		title    string
		body     string
		priority domain.PriorityLevel
		want     domain.AssignmentSuggestion
	}{
		{
			name:     "bug",
			category: domain.CategoryBug,
			priority: domain.PriorityMedium,
			want:     domain.AssignmentSuggestion{Teams: []string{"core-team"}, Confidence: 0.8, Reason: "category:bug"},
		},
		{
			name:     "security",
			category: domain.CategorySecurity,
			priority: domain.PriorityHigh,
			want:     domain.AssignmentSuggestion{Teams: []string{"security-team", "core-team"}, Confidence: 0.9, Reason: "category:security"},
		},
		{
			name:     "feature wasm wins over ci",
			category: domain.CategoryFeature,
			title:    "CLI support for WASM in CI pipeline",
			priority: domain.PriorityLow,
			want:     domain.AssignmentSuggestion{Teams: []string{"wasm-team"}, Confidence: 0.8, Reason: "category:feature:wasm"},
		},
		{
			name:     "feature ci",
			category: domain.CategoryFeature,
			title:    "Publish a GitHub Action",
			priority: domain.PriorityLow,
			want:     domain.AssignmentSuggestion{Teams: []string{"devops-team"}, Confidence: 0.75, Reason: "category:feature:cicd"},
		},
		{
			name:     "feature core",
			category: domain.CategoryFeature,
			body:     "the parser should accept trailing commas",
			priority: domain.PriorityLow,
			want:     domain.AssignmentSuggestion{Teams: []string{"core-team"}, Confidence: 0.7, Reason: "category:feature:core"},
		},
		{
			name:     "feature default",
			category: domain.CategoryFeature,
			title:    "Add dark mode",
			priority: domain.PriorityLow,
			want:     domain.AssignmentSuggestion{Teams: []string{"feature-team"}, Confidence: 0.6, Reason: "category:feature:default"},
		},
		{
			name:     "unknown category",
			category: domain.CategoryNeedsTriage,
			priority: domain.PriorityLow,
			want:     domain.AssignmentSuggestion{Teams: []string{"triage-team"}, Confidence: 0.3, Reason: "fallback:triage"},
		},
		{
			name:     "documentation",
			category: domain.CategoryDocumentation,
			priority: domain.PriorityNone,
			want:     domain.AssignmentSuggestion{Teams: []string{"docs-team"}, Confidence: 0.9, Reason: "category:documentation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.SuggestAssignees(tt.category, tt.title, tt.body, tt.priority)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("assignment (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSuggestAssigneesEscalatesCritical(t *testing.T) {
	r := NewAssigneeResolver()

	got := r.SuggestAssignees(domain.CategorySecurity, "", "", domain.PriorityCritical)
	if diff := cmp.Diff([]string{"leads", "security-team", "core-team"}, got.Teams); diff != "" {
		t.Fatalf("teams (-want +got):\n%s", diff)
	}
	if got.Confidence != 1.0 || !got.Escalated {
		t.Fatalf("got %+v want capped confidence 1.0 and escalated", got)
	}

	bug := r.SuggestAssignees(domain.CategoryBug, "", "", domain.PriorityCritical)
	if bug.Confidence < 0.9-1e-9 || bug.Confidence > 0.9+1e-9 {
		t.Fatalf("bug confidence: got %v want 0.9", bug.Confidence)
	}

	// escalation must not leak into the shared rule table
	again := r.SuggestAssignees(domain.CategoryBug, "", "", domain.PriorityLow)
	if diff := cmp.Diff([]string{"core-team"}, again.Teams); diff != "" {
		t.Fatalf("rule table mutated (-want +got):\n%s", diff)
	}
}
