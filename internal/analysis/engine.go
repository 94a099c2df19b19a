package analysis

import (
	"fmt"

	"triagebot/internal/domain"
)

// Analysis is the pure per-issue result of the four analysis stages.
type Analysis struct {
	Classification domain.ClassificationResult
	Priority       domain.PriorityResult
	Components     []string
	Assignment     domain.AssignmentSuggestion
	// TypeLabel is empty when the issue stays unclassified.
	TypeLabel string
}

type Engine struct {
	catalog    *Catalog
	classifier *Classifier
	priority   *PriorityEngine
	components *ComponentDetector
	assignees  *AssigneeResolver
}

func NewEngine(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{
		catalog:    catalog,
		classifier: NewClassifier(catalog),
		priority:   NewPriorityEngine(),
		components: NewComponentDetector(catalog),
		assignees:  NewAssigneeResolver(),
	}
}

// Analyze runs classification first, then priority, components and assignees.
// It has no side effects and is safe for concurrent use.
func (e *Engine) Analyze(issue domain.IssueRecord) (Analysis, error) {
	if issue.ID == "" {
		return Analysis{}, fmt.Errorf("issue has no id")
	}
	c := e.classifier.Classify(issue.Title, issue.Body)
	p := e.priority.DeterminePriority(issue.Title, issue.Body, issue.Labels, c)

	a := Analysis{
		Classification: c,
		Priority:       p,
		Components:     e.components.Detect(issue.Title, issue.Body),
		Assignment:     e.assignees.SuggestAssignees(c.Category, issue.Title, issue.Body, p.Level),
	}
	if c.Classified() {
		label, ok := e.catalog.TypeLabel(c.Category)
		if !ok {
			return Analysis{}, fmt.Errorf("category %q has no type label", c.Category)
		}
		a.TypeLabel = label
	}
	return a, nil
}
