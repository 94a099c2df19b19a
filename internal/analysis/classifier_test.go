package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"triagebot/internal/domain"
)

func TestClassifyExamples(t *testing.T) {
	c := NewClassifier(DefaultCatalog())

	tests := []struct {
		name    string
		title   string
		body    string
		want    domain.Category
		minConf float64
	}{
		{
			name:    "security advisory",
			title:   "Update dependency to fix CVE-2024-1234",
			body:    "security vulnerability in dependency, CVE disclosure",
			want:    domain.CategorySecurity,
			minConf: 0.6,
		},
		{
			name:    "crash report",
			title:   "[BUG] Crash on startup",
			body:    "the app crashes with a stacktrace when parsing config",
			want:    domain.CategoryBug,
			minConf: 0.8,
		},
		{
			name:  "roadmap item",
			title: "[Roadmap] Add dark mode",
			body:  "future enhancement, nice to have",
			want:  domain.CategoryFeature,
		},
		{
			name:  "slow query",
			title: "Search is slow on large repos",
			body:  "latency grew after the last release, see the flamegraph",
			want:  domain.CategoryPerformance,
		},
		{
			name:  "readme fix",
			title: "Docs: README install section is unclear",
			body:  "the documentation skips the config step",
			want:  domain.CategoryDocumentation,
		},
		{
			name:  "dependency bump",
			title: "Bump serde from 1.0.1 to 1.0.2",
			body:  "opened by dependabot",
			want:  domain.CategoryDependencies,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.title, tt.body)
			if got.Category != tt.want {
				t.Fatalf("category: got %q want %q (result %+v)", got.Category, tt.want, got)
			}
			if got.Confidence < tt.minConf {
				t.Fatalf("confidence: got %v want >= %v", got.Confidence, tt.minConf)
			}
			if got.Matches == 0 {
				t.Fatalf("expected at least one match")
			}
		})
	}
}

func TestClassifyNoMatchReturnsNeedsTriage(t *testing.T) {
	c := NewClassifier(DefaultCatalog())
	got := c.Classify("Hello there", "just saying hi")
	want := domain.ClassificationResult{Category: domain.CategoryNeedsTriage}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
	if got.Classified() {
		t.Fatalf("needs-triage result must not count as classified")
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	c := NewClassifier(DefaultCatalog())
	inputs := [][2]string{
		{"", ""},
		{"bug bug bug", "crash crash exception panic error traceback steps to reproduce regression"},
		{"[BUG] crash error broken fails not working", "crash stack trace exception panic error steps to reproduce regression unexpected behavior expected behavior actual result stacktrace"},
		{"CVE-2023-9999 security vulnerability exploit xss injection", "security vulnerable cve exploit attack malicious privilege escalation"},
		{"random words", "nothing to see"},
	}
	for _, in := range inputs {
		got := c.Classify(in[0], in[1])
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Fatalf("confidence out of bounds for %q: %v", in[0], got.Confidence)
		}
		if got.Matches < 0 {
			t.Fatalf("negative matches for %q: %d", in[0], got.Matches)
		}
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := NewClassifier(DefaultCatalog())
	title, body := "Add WASM target", "it would be nice to compile the engine to webassembly"
	first := c.Classify(title, body)
	second := c.Classify(title, body)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("classify is not idempotent (-first +second):\n%s", diff)
	}
}

func TestClassifyTieKeepsFirstDeclared(t *testing.T) {
	cat, err := ParseCatalog([]byte(`
categories:
  - name: alpha
    weight: 0.5
    title_patterns: ["widget"]
  - name: beta
    weight: 0.5
    title_patterns: ["widget"]
`))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	got := NewClassifier(cat).Classify("widget", "")
	if got.Category != "alpha" {
		t.Fatalf("tie: got %q want alpha", got.Category)
	}
	if got.Confidence != 0.2 || got.Matches != 1 {
		t.Fatalf("score: got %+v", got)
	}
}

func TestClassifyScoreFormula(t *testing.T) {
	cat, err := ParseCatalog([]byte(`
categories:
  - name: only
    weight: 0.5
    title_patterns: ["alpha"]
    body_patterns: ["beta"]
    indicators: ["gamma"]
`))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	got := NewClassifier(cat).Classify("alpha", "beta gamma")
	// 0.4*0.5 + 0.3*0.5 + 0.2*0.5
	want := 0.45
	if got.Matches != 3 || got.Confidence < want-1e-9 || got.Confidence > want+1e-9 {
		t.Fatalf("got %+v want confidence %v with 3 matches", got, want)
	}
}
