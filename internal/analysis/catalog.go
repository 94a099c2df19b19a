package analysis

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"triagebot/internal/domain"
)

// CategoryRule is one entry of the pattern catalog. Title patterns are matched
// against the title, body patterns against the body, and indicators against
// the title and body joined together.
type CategoryRule struct {
	Category      domain.Category
	Label         string
	Weight        float64
	TitlePatterns []*regexp.Regexp
	BodyPatterns  []*regexp.Regexp
	Indicators    []*regexp.Regexp
}

type ComponentRule struct {
	Tag      string
	Patterns []*regexp.Regexp
}

// Catalog is an ordered rule table. Category order is part of the contract:
// when two categories score the same, the one declared first wins. The
// built-in order is bug, security, performance, dependencies, feature,
// documentation.
type Catalog struct {
	Categories []CategoryRule
	Components []ComponentRule
}

// TypeLabel returns the tracker label for a category.
func (c *Catalog) TypeLabel(category domain.Category) (string, bool) {
	for _, rule := range c.Categories {
		if rule.Category == category {
			return rule.Label, rule.Label != ""
		}
	}
	return "", false
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+expr))
	}
	return out
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		Categories: []CategoryRule{
			{
				Category: domain.CategoryBug,
				Label:    "type-bug",
				Weight:   1.0,
				TitlePatterns: patterns(
					`\[bug\]`, `\bbug\b`, `\bcrash(es|ed|ing)?\b`, `\berror\b`,
					`\bbroken\b`, `\bfail(s|ed|ing|ure)?\b`, `not working|doesn'?t work`,
				),
				BodyPatterns: patterns(
					`\bcrash`, `stack ?trace|traceback`, `\bexception\b`, `\bpanic`,
					`\berror\b`, `steps to reproduce`, `\bregression\b`, `unexpected(ly)? behaviou?r`,
				),
				Indicators: patterns(
					`\breproduc`, `expected (behaviou?r|result)`, `actual (behaviou?r|result)`, `\bstacktrace\b`,
				),
			},
			{
				Category: domain.CategorySecurity,
				Label:    "type-security",
				Weight:   1.0,
				TitlePatterns: patterns(
					`\bsecurity\b`, `\bvulnerab`, `\bcve-\d{4}-\d+`, `\bexploit`,
					`\b(xss|csrf|rce|ssrf)\b`, `\binjection\b`,
				),
				BodyPatterns: patterns(
					`\bsecurity\b`, `\bvulnerab`, `\bcve\b`, `\bexploit`, `\battack`,
					`\bmalicious\b`, `privilege escalation`, `leak(s|ed)? (credentials|secrets|tokens?)`,
				),
				Indicators: patterns(
					`\bcve-\d{4}`, `\bdisclosure\b`, `\bcvss\b`, `security advisory|\bghsa-`,
				),
			},
			{
				Category: domain.CategoryPerformance,
				Label:    "type-performance",
				Weight:   0.9,
				TitlePatterns: patterns(
					`\bslow(er|ness)?\b`, `\bperformance\b`, `\blatency\b`, `memory (leak|usage)`,
					`\bperf\b`, `\bcpu\b`,
				),
				BodyPatterns: patterns(
					`\bslow`, `\bperformance\b`, `\blatency\b`, `\bmemory\b`, `\bbenchmark`, `\btimeouts?\b`,
				),
				Indicators: patterns(
					`\bprofil(e|ing|er)\b`, `\bflame ?graph\b`, `\bthroughput\b`, `\d+(\.\d+)?x (slower|faster)`,
				),
			},
			{
				Category: domain.CategoryDependencies,
				Label:    "type-dependencies",
				Weight:   0.8,
				TitlePatterns: patterns(
					`\bdependenc(y|ies)\b`, `\b(bump|upgrade)\b`, `\bupdate\b.*\bto\b`, `\bdeps?\b`,
				),
				BodyPatterns: patterns(
					`\bdependenc(y|ies)\b`, `package\.json|cargo\.toml|go\.mod|requirements\.txt`,
					`\bversion\b`, `\b(npm|cargo|pip|go get)\b`,
				),
				Indicators: patterns(
					`\bdependabot\b|\brenovate\b`, `\bsemver\b`, `\bchangelog\b`,
				),
			},
			{
				Category: domain.CategoryFeature,
				Label:    "type-feature",
				Weight:   0.7,
				TitlePatterns: patterns(
					`\[(feature|roadmap|rfc)\]`, `\bfeature\b`, `\badd(ing)?\b`, `\bsupport\b`,
					`\benhancement\b`, `\ballow\b`,
				),
				BodyPatterns: patterns(
					`\bwould be (nice|great|useful)\b`, `\bfeature request\b`, `\benhancement\b`,
					`\bpropos(al|e)\b`, `\buse case\b`, `\bnice to have\b`,
				),
				Indicators: patterns(
					`\bit would be\b`, `\bsuggest(ion)?\b`, `\bfuture\b`, `\broadmap\b`,
				),
			},
			{
				Category: domain.CategoryDocumentation,
				Label:    "type-documentation",
				Weight:   0.8,
				TitlePatterns: patterns(
					`\bdocs?\b`, `\bdocumentation\b`, `\breadme\b`, `\btypo\b`, `\bguide\b|\btutorial\b`,
				),
				BodyPatterns: patterns(
					`\bdocs?\b`, `\bdocumentation\b`, `\bexample\b`, `\bunclear\b|\bconfusing\b`,
					`missing (docs|documentation|examples?)`,
				),
				Indicators: patterns(
					`\.md\b`, `\bdocs\.`, `\bapi reference\b`,
				),
			},
		},
		Components: []ComponentRule{
			{Tag: "component-cli", Patterns: patterns(`\bcli\b`, `command[- ]line`, `\bterminal\b`, `\bsubcommand\b`)},
			{Tag: "component-wasm", Patterns: patterns(`\bwasm`, `webassembly`, `\bwasi\b`)},
			{Tag: "component-github-action", Patterns: patterns(`github[- ]actions?`, `\bworkflows?\b`, `\bci\b`, `ci/cd`, `\bpipelines?\b`)},
			{Tag: "component-core", Patterns: patterns(`\bcore\b`, `\bengine\b`, `\bruntime\b`, `\bparser\b`, `\bcompiler\b`)},
			{Tag: "component-api", Patterns: patterns(`\bapi\b`, `\bendpoints?\b`, `\bsdk\b`)},
			{Tag: "component-docs", Patterns: patterns(`\bdocs?\b`, `\bdocumentation\b`, `\breadme\b`)},
		},
	}
}

type catalogFile struct {
	Categories []categoryEntry  `yaml:"categories"`
	Components []componentEntry `yaml:"components"`
}

type categoryEntry struct {
	Name          string   `yaml:"name"`
	Label         string   `yaml:"label"`
	Weight        float64  `yaml:"weight"`
	TitlePatterns []string `yaml:"title_patterns"`
	BodyPatterns  []string `yaml:"body_patterns"`
	Indicators    []string `yaml:"indicators"`
}

type componentEntry struct {
	Tag      string   `yaml:"tag"`
	Patterns []string `yaml:"patterns"`
}

// LoadCatalog reads a YAML catalog. Sections left empty in the file keep the
// built-in tables, so a file may override only components or only categories.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var (
		f   catalogFile
		err error
	)
	if err = yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	cat := DefaultCatalog()
	if len(f.Categories) > 0 {
		seen := make(map[string]bool)
		cat.Categories = nil
		for i, entry := range f.Categories {
			name := strings.TrimSpace(entry.Name)
			if name == "" {
				return nil, fmt.Errorf("category %d: name is required", i)
			}
			if domain.Category(name) == domain.CategoryNeedsTriage {
				return nil, fmt.Errorf("category %d: %q is reserved", i, name)
			}
			if seen[name] {
				return nil, fmt.Errorf("category %q declared twice", name)
			}
			seen[name] = true
			if entry.Weight <= 0 || entry.Weight > 1 {
				return nil, fmt.Errorf("category %q: weight %v must be in (0,1]", name, entry.Weight)
			}
			rule := CategoryRule{
				Category: domain.Category(name),
				Label:    strings.TrimSpace(entry.Label),
				Weight:   entry.Weight,
			}
			if rule.Label == "" {
				rule.Label = "type-" + name
			}
			if rule.TitlePatterns, err = compileAll(name, entry.TitlePatterns); err != nil {
				return nil, err
			}
			if rule.BodyPatterns, err = compileAll(name, entry.BodyPatterns); err != nil {
				return nil, err
			}
			if rule.Indicators, err = compileAll(name, entry.Indicators); err != nil {
				return nil, err
			}
			cat.Categories = append(cat.Categories, rule)
		}
	}

	if len(f.Components) > 0 {
		cat.Components = nil
		for i, entry := range f.Components {
			tag := strings.TrimSpace(entry.Tag)
			if tag == "" {
				return nil, fmt.Errorf("component %d: tag is required", i)
			}
			compiled, err := compileAll(tag, entry.Patterns)
			if err != nil {
				return nil, err
			}
			if len(compiled) == 0 {
				return nil, fmt.Errorf("component %q: at least one pattern is required", tag)
			}
			cat.Components = append(cat.Components, ComponentRule{Tag: tag, Patterns: compiled})
		}
	}
	return cat, nil
}

func compileAll(owner string, exprs []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid pattern %q: %w", owner, expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}
