package analysis

import (
	"regexp"
	"strings"

	"triagebot/internal/domain"
)

const (
	securityOverrideThreshold  = 0.6
	securityOverrideConfidence = 0.95

	criticalCutoff = 0.8
	highCutoff     = 0.6
	mediumCutoff   = 0.3
)

// keywordFamily adjusts the priority score once when any of its keywords
// appears. titleOnly families look at the title alone; a non-empty category
// limits the family to issues classified that way.
type keywordFamily struct {
	factor    string
	delta     float64
	re        *regexp.Regexp
	titleOnly bool
	category  domain.Category
}

var priorityFamilies = []keywordFamily{
	{
		factor: "critical-keyword",
		delta:  0.8,
		re:     regexp.MustCompile(`\b(critical|urgent|blocking|blocker|showstopper|emergency|asap)\b`),
	},
	{
		factor:    "phase-1",
		delta:     0.7,
		re:        regexp.MustCompile(`\bphase[\s_-]*(1|one)\b`),
		titleOnly: true,
	},
	{
		factor:   "severe-bug",
		delta:    0.8,
		re:       regexp.MustCompile(`\b(crash(es|ed|ing)?|data loss|corrupt(s|ed|ion)?|segfault|panic(s|ked)?|hangs?|freez(e|es|ing)|deadlock)\b`),
		category: domain.CategoryBug,
	},
	{
		factor:   "minor-bug",
		delta:    -0.3,
		re:       regexp.MustCompile(`\b(typo|cosmetic|minor|trivial|edge case|workaround)\b`),
		category: domain.CategoryBug,
	},
	{
		factor: "performance-impact",
		delta:  0.5,
		re:     regexp.MustCompile(`\b(slow|performance|latency|memory leak|timeouts?|high cpu|oom)\b`),
	},
	{
		factor: "user-impact",
		delta:  0.4,
		re:     regexp.MustCompile(`\b(production|customers?|all users|many users|outage|downtime|regression)\b`),
	},
	{
		factor: "deferred",
		delta:  -0.3,
		re:     regexp.MustCompile(`\b(roadmap|future|nice to have|someday|backlog|eventually)\b`),
	},
}

type PriorityEngine struct{}

func NewPriorityEngine() *PriorityEngine {
	return &PriorityEngine{}
}

// DeterminePriority never overrides an existing priority label: any label
// carrying the priority prefix yields PriorityNone.
func (p *PriorityEngine) DeterminePriority(title, body string, labels []string, c domain.ClassificationResult) domain.PriorityResult {
	if domain.HasPriorityLabel(labels) {
		return domain.PriorityResult{Level: domain.PriorityNone}
	}
	if c.Category == domain.CategorySecurity && c.Confidence > securityOverrideThreshold {
		return domain.PriorityResult{
			Level:      domain.PriorityCritical,
			Confidence: securityOverrideConfidence,
			Factors:    []string{"security-issue"},
		}
	}

	lowerTitle := strings.ToLower(title)
	lowerText := lowerTitle + " " + strings.ToLower(body)

	score := 0.0
	var factors []string
	for _, fam := range priorityFamilies {
		if fam.category != "" && fam.category != c.Category {
			continue
		}
		text := lowerText
		if fam.titleOnly {
			text = lowerTitle
		}
		if fam.re.MatchString(text) {
			score += fam.delta
			factors = append(factors, fam.factor)
		}
	}

	score = clip(score)
	return domain.PriorityResult{
		Level:      levelFor(score),
		Confidence: score,
		Factors:    factors,
	}
}

func levelFor(score float64) domain.PriorityLevel {
	switch {
	case score >= criticalCutoff:
		return domain.PriorityCritical
	case score >= highCutoff:
		return domain.PriorityHigh
	case score >= mediumCutoff:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}
