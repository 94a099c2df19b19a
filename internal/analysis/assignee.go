package analysis

import (
	"regexp"

	"triagebot/internal/domain"
)

const (
	leadsTeam       = "leads"
	fallbackTeam    = "triage-team"
	fallbackConf    = 0.3
	escalationBoost = 0.1
	fallbackReason  = "fallback:triage"
	categoryReason  = "category:"
)

// AssignmentRule is either a SimpleRule or a ContextualRule.
type AssignmentRule interface {
	resolve(text string) (teams []string, confidence float64, branch string)
}

type SimpleRule struct {
	Teams      []string
	Confidence float64
}

func (r SimpleRule) resolve(string) ([]string, float64, string) {
	return r.Teams, r.Confidence, ""
}

type ContextualBranch struct {
	Name       string
	Match      *regexp.Regexp
	Teams      []string
	Confidence float64
}

// ContextualRule checks its branches in order against the issue text and
// falls back to Default when none match.
type ContextualRule struct {
	Branches []ContextualBranch
	Default  ContextualBranch
}

func (r ContextualRule) resolve(text string) ([]string, float64, string) {
	for _, b := range r.Branches {
		if b.Match != nil && b.Match.MatchString(text) {
			return b.Teams, b.Confidence, b.Name
		}
	}
	return r.Default.Teams, r.Default.Confidence, r.Default.Name
}

type categoryAssignment struct {
	category domain.Category
	rule     AssignmentRule
}

// AssigneeResolver maps categories to owning teams through an ordered table.
type AssigneeResolver struct {
	rules []categoryAssignment
}

func NewAssigneeResolver() *AssigneeResolver {
	return &AssigneeResolver{rules: defaultAssignmentRules()}
}

func defaultAssignmentRules() []categoryAssignment {
	return []categoryAssignment{
		{domain.CategoryBug, SimpleRule{Teams: []string{"core-team"}, Confidence: 0.8}},
		{domain.CategorySecurity, SimpleRule{Teams: []string{"security-team", "core-team"}, Confidence: 0.9}},
		{domain.CategoryPerformance, SimpleRule{Teams: []string{"performance-team", "core-team"}, Confidence: 0.7}},
		{domain.CategoryDependencies, SimpleRule{Teams: []string{"devops-team"}, Confidence: 0.8}},
		{domain.CategoryFeature, ContextualRule{
			Branches: []ContextualBranch{
				{Name: "wasm", Match: regexp.MustCompile(`(?i)\bwasm|webassembly|\bwasi\b`), Teams: []string{"wasm-team"}, Confidence: 0.8},
				{Name: "cicd", Match: regexp.MustCompile(`(?i)\bci\b|ci/cd|github[- ]actions?|\bworkflows?\b|\bpipelines?\b|\bdeploy`), Teams: []string{"devops-team"}, Confidence: 0.75},
				{Name: "core", Match: regexp.MustCompile(`(?i)\bcore\b|\bengine\b|\bruntime\b|\bparser\b|\bcompiler\b`), Teams: []string{"core-team"}, Confidence: 0.7},
			},
			Default: ContextualBranch{Name: "default", Teams: []string{"feature-team"}, Confidence: 0.6},
		}},
		{domain.CategoryDocumentation, SimpleRule{Teams: []string{"docs-team"}, Confidence: 0.9}},
	}
}

// SuggestAssignees resolves the owning teams for a category. Critical issues
// also go to leads with a confidence boost capped at 1.0.
func (r *AssigneeResolver) SuggestAssignees(category domain.Category, title, body string, priority domain.PriorityLevel) domain.AssignmentSuggestion {
	teams := []string{fallbackTeam}
	confidence := fallbackConf
	reason := fallbackReason

	for _, entry := range r.rules {
		if entry.category != category {
			continue
		}
		var branch string
		teams, confidence, branch = entry.rule.resolve(title + " " + body)
		reason = categoryReason + string(category)
		if branch != "" {
			reason += ":" + branch
		}
		break
	}

	out := domain.AssignmentSuggestion{
		Teams:      append([]string(nil), teams...),
		Confidence: confidence,
		Reason:     reason,
	}
	if priority == domain.PriorityCritical {
		out.Teams = append([]string{leadsTeam}, out.Teams...)
		out.Confidence = clip(out.Confidence + escalationBoost)
		out.Escalated = true
	}
	return out
}
