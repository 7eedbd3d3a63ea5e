package ports

import (
	"context"

	"reviewdeck/internal/domain/review"
)

// CodeAnalyzer is the analysis backend capability: given code and its
// language, return structured findings. Latency and failure are tolerated
// per file by the fan-out engine.
type CodeAnalyzer interface {
	Analyze(ctx context.Context, code string, language string, path string) (review.FileAnalysis, error)
}
