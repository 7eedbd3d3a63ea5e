package review

type FindingType string

const (
	FindingSecurity    FindingType = "SECURITY"
	FindingPerformance FindingType = "PERFORMANCE"
	FindingQuality     FindingType = "QUALITY"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SeverityFromConfidence maps an analyzer suggestion's confidence to a
// finding severity: above 0.8 the suggestion is treated as HIGH, otherwise
// MEDIUM.
func SeverityFromConfidence(confidence float64) Severity {
	if confidence > 0.8 {
		return SeverityHigh
	}
	return SeverityMedium
}

// SuggestionFix is the suggestion type that marks a finding auto-fixable.
const SuggestionFix = "FIX"
