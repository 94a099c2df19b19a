package analysis

import (
	"regexp"

	"triagebot/internal/domain"
)

const (
	titleMatchFactor     = 0.4
	bodyMatchFactor      = 0.3
	indicatorMatchFactor = 0.2
)

type Classifier struct {
	catalog *Catalog
}

func NewClassifier(catalog *Catalog) *Classifier {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Classifier{catalog: catalog}
}

// Classify scores every category in catalog order and returns the best one.
// Categories with no matched pattern are ignored; a tie keeps the category
// declared first. With no candidate the needs-triage sentinel is returned.
func (c *Classifier) Classify(title, body string) domain.ClassificationResult {
	combined := title + " " + body

	best := domain.ClassificationResult{Category: domain.CategoryNeedsTriage}
	found := false
	for _, rule := range c.catalog.Categories {
		score, matches := scoreRule(rule, title, body, combined)
		if matches == 0 {
			continue
		}
		if !found || score > best.Confidence {
			best = domain.ClassificationResult{
				Category:   rule.Category,
				Confidence: score,
				Matches:    matches,
			}
			found = true
		}
	}
	return best
}

func scoreRule(rule CategoryRule, title, body, combined string) (float64, int) {
	var score float64
	matches := 0
	add := func(res []*regexp.Regexp, text string, factor float64) {
		for _, re := range res {
			if re.MatchString(text) {
				score += factor * rule.Weight
				matches++
			}
		}
	}
	add(rule.TitlePatterns, title, titleMatchFactor)
	add(rule.BodyPatterns, body, bodyMatchFactor)
	add(rule.Indicators, combined, indicatorMatchFactor)
	return clip(score), matches
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
