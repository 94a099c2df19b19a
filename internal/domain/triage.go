package domain

type Category string

const (
	CategoryBug           Category = "bug"
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategoryDependencies  Category = "dependencies"
	CategoryFeature       Category = "feature"
	CategoryDocumentation Category = "documentation"
	CategoryNeedsTriage   Category = "needs-triage"
)

type ClassificationResult struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Matches    int      `json:"matches"`
}

// Classified is false only for the needs-triage sentinel.
func (c ClassificationResult) Classified() bool {
	return c.Category != "" && c.Category != CategoryNeedsTriage
}

type PriorityLevel string

const (
	PriorityCritical PriorityLevel = "critical"
	PriorityHigh     PriorityLevel = "high"
	PriorityMedium   PriorityLevel = "medium"
	PriorityLow      PriorityLevel = "low"
	// PriorityNone means the issue's priority must be left untouched.
	PriorityNone PriorityLevel = "none"
)

// PriorityLevels lists the assignable levels from most to least urgent.
var PriorityLevels = []PriorityLevel{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func (p PriorityLevel) Label() string {
	return PriorityLabelPrefix + string(p)
}

type PriorityResult struct {
	Level      PriorityLevel `json:"level"`
	Confidence float64       `json:"confidence"`
	Factors    []string      `json:"factors"`
}

type AssignmentSuggestion struct {
	Teams      []string `json:"teams"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
	Escalated  bool     `json:"escalated"`
}

// LabelDelta holds the labels to add (none already present) and to remove
// (all currently present).
type LabelDelta struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

func (d LabelDelta) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

type TriageOutcome struct {
	IssueID        string               `json:"issue_id"`
	Title          string               `json:"title"`
	Classification ClassificationResult `json:"classification"`
	Priority       PriorityResult       `json:"priority"`
	Components     []string             `json:"components"`
	Assignment     AssignmentSuggestion `json:"assignment"`
	Delta          LabelDelta           `json:"delta"`
	MeetsThreshold bool                 `json:"meets_threshold"`
	LabelsApplied  bool                 `json:"labels_applied"`
	Commented      bool                 `json:"commented"`
}

// IssueFailure records a recovered per-issue error for the report.
type IssueFailure struct {
	IssueID string `json:"issue_id"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

const (
	StageAnalysis = "analysis"
	StageLabels   = "labels"
	StageComment  = "comment"
)

// Metrics counts batch progress. Each issue yields its own Metrics value and
// the orchestrator folds them with Add, so there is a single owner.
type Metrics struct {
	Processed  int `json:"processed"`
	Classified int `json:"classified"`
	Labeled    int `json:"labeled"`
	Errors     int `json:"errors"`
}

func (m *Metrics) Add(other Metrics) {
	m.Processed += other.Processed
	m.Classified += other.Classified
	m.Labeled += other.Labeled
	m.Errors += other.Errors
}
