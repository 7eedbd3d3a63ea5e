package review

// FileAnalysis is the structured result of running one file through the
// analysis backend.
type FileAnalysis struct {
	QualityScore float64
	Security     []SecurityIssue
	Performance  []PerformanceIssue
	Suggestions  []Suggestion
}

type SecurityIssue struct {
	Type        string
	Severity    Severity
	Description string
	Line        int
	Suggestion  string
}

type PerformanceIssue struct {
	Type        string
	Impact      Severity
	Description string
	Line        int
	Suggestion  string
}

type Suggestion struct {
	Type          string
	Description   string
	Line          int
	SuggestedCode string
	Confidence    float64
}
