package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"reviewdeck/internal/domain/review"
)

type securityPattern struct {
	pattern  *regexp.Regexp
	kind     string
	severity review.Severity
}

type performancePattern struct {
	pattern *regexp.Regexp
	kind    string
	impact  review.Severity
}

var securityPatterns = map[string][]securityPattern{
	"javascript": {
		{regexp.MustCompile(`eval\s*\(`), "Code Injection", review.SeverityHigh},
		{regexp.MustCompile(`innerHTML\s*=`), "XSS Risk", review.SeverityMedium},
		{regexp.MustCompile(`document\.write\s*\(`), "XSS Risk", review.SeverityMedium},
	},
	"python": {
		{regexp.MustCompile(`exec\s*\(`), "Code Injection", review.SeverityHigh},
		{regexp.MustCompile(`os\.system\s*\(`), "Command Injection", review.SeverityHigh},
		{regexp.MustCompile(`pickle\.loads?\s*\(`), "Deserialization Risk", review.SeverityHigh},
	},
	"java": {
		{regexp.MustCompile(`Runtime\.getRuntime\(\)\.exec`), "Command Injection", review.SeverityHigh},
		{regexp.MustCompile(`Class\.forName`), "Reflection Risk", review.SeverityMedium},
	},
}

var performancePatterns = map[string][]performancePattern{
	"javascript": {
		{regexp.MustCompile(`for\s*\([^)]*\)\s*{[^}]*for\s*\(`), "Nested Loops", review.SeverityHigh},
		{regexp.MustCompile(`\.innerHTML\s*\+=`), "DOM Manipulation", review.SeverityMedium},
	},
	"python": {
		{regexp.MustCompile(`for\s+\w+\s+in\s+range\([^)]+\):.*for\s+\w+\s+in\s+range`), "Nested Loops", review.SeverityHigh},
	},
}

// typescript shares the javascript pattern tables.
func patternsLanguage(language string) string {
	if language == "typescript" {
		return "javascript"
	}
	return language
}

func scanSecurity(code string, language string) []review.SecurityIssue {
	var issues []review.SecurityIssue
	patterns := securityPatterns[patternsLanguage(language)]
	if len(patterns) == 0 {
		return nil
	}

	for lineNo, line := range strings.Split(code, "\n") {
		for _, p := range patterns {
			if p.pattern.MatchString(line) {
				issues = append(issues, review.SecurityIssue{
					Type:        p.kind,
					Severity:    p.severity,
					Description: fmt.Sprintf("Potential %s vulnerability detected", strings.ToLower(p.kind)),
					Line:        lineNo + 1,
					Suggestion:  fmt.Sprintf("Consider using safer alternatives for %s", strings.ToLower(p.kind)),
				})
			}
		}
	}
	return issues
}

func scanPerformance(code string, language string) []review.PerformanceIssue {
	var issues []review.PerformanceIssue
	patterns := performancePatterns[patternsLanguage(language)]
	if len(patterns) == 0 {
		return nil
	}

	for lineNo, line := range strings.Split(code, "\n") {
		for _, p := range patterns {
			if p.pattern.MatchString(line) {
				issues = append(issues, review.PerformanceIssue{
					Type:        p.kind,
					Impact:      p.impact,
					Description: fmt.Sprintf("%s detected - may impact performance", p.kind),
					Line:        lineNo + 1,
					Suggestion:  fmt.Sprintf("Consider optimizing %s for better performance", strings.ToLower(p.kind)),
				})
			}
		}
	}
	return issues
}
