package analysis

import (
	"context"

	"reviewdeck/internal/domain/review"
	"reviewdeck/internal/ports"
)

// StaticAnalyzer runs only the pattern scanners, for deployments without a
// model API key. The quality score is a deduction heuristic over the
// findings; no suggestions are produced.
type StaticAnalyzer struct{}

var _ ports.CodeAnalyzer = StaticAnalyzer{}

func NewStaticAnalyzer() StaticAnalyzer {
	return StaticAnalyzer{}
}

func (StaticAnalyzer) Analyze(_ context.Context, code string, language string, _ string) (review.FileAnalysis, error) {
	security := scanSecurity(code, language)
	performance := scanPerformance(code, language)

	score := 100.0
	for _, issue := range security {
		switch issue.Severity {
		case review.SeverityHigh, review.SeverityCritical:
			score -= 15
		default:
			score -= 8
		}
	}
	for range performance {
		score -= 5
	}
	if score < 0 {
		score = 0
	}

	return review.FileAnalysis{
		QualityScore: score,
		Security:     security,
		Performance:  performance,
	}, nil
}
