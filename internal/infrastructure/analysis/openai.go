package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/sync/errgroup"

	"reviewdeck/internal/bootstrap/config"
	"reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

// Analyzer implements the analysis backend capability. Code quality and
// suggestions come from the model; security and performance findings come
// from the static pattern scanners. The three analyses run concurrently per
// file, mirroring the quality/security/performance split of the pipeline.
type Analyzer struct {
	client openai.Client
	model  string
}

var _ ports.CodeAnalyzer = (*Analyzer)(nil)

func NewAnalyzer(cfg config.AnalysisConfig) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("analysis api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Analyzer{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// qualityReport is the structured output contract for the model call.
type qualityReport struct {
	Score       float64             `json:"score" jsonschema_description:"Overall code quality score from 0 to 100"`
	Suggestions []qualitySuggestion `json:"suggestions"`
}

type qualitySuggestion struct {
	Type          string  `json:"type" jsonschema:"enum=REFACTOR,enum=OPTIMIZE,enum=FIX,enum=STYLE"`
	Description   string  `json:"description"`
	Line          int     `json:"line"`
	SuggestedCode string  `json:"suggested_code"`
	Confidence    float64 `json:"confidence" jsonschema_description:"Confidence from 0 to 1"`
}

var qualityReportSchema = generateSchema[qualityReport]()

func (a *Analyzer) Analyze(ctx context.Context, code string, language string, path string) (review.FileAnalysis, error) {
	var (
		quality     qualityReport
		security    []review.SecurityIssue
		performance []review.PerformanceIssue
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		report, err := a.analyzeQuality(groupCtx, code, language, path)
		if err != nil {
			return err
		}
		quality = report
		return nil
	})
	group.Go(func() error {
		security = scanSecurity(code, language)
		return nil
	})
	group.Go(func() error {
		performance = scanPerformance(code, language)
		return nil
	})
	if err := group.Wait(); err != nil {
		return review.FileAnalysis{}, err
	}

	suggestions := make([]review.Suggestion, 0, len(quality.Suggestions))
	for _, s := range quality.Suggestions {
		suggestions = append(suggestions, review.Suggestion{
			Type:          s.Type,
			Description:   s.Description,
			Line:          s.Line,
			SuggestedCode: s.SuggestedCode,
			Confidence:    s.Confidence,
		})
	}

	return review.FileAnalysis{
		QualityScore: quality.Score,
		Security:     security,
		Performance:  performance,
		Suggestions:  suggestions,
	}, nil
}

func (a *Analyzer) analyzeQuality(ctx context.Context, code string, language string, path string) (qualityReport, error) {
	systemPrompt := "You are a strict code reviewer. Score the file's quality from 0 to 100 and propose concrete line-level suggestions."
	userPrompt := fmt.Sprintf("Review this %s file (%s):\n\n```%s\n%s\n```", language, path, language, code)

	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxTokens:   openai.Int(2000),
		Temperature: openai.Float(0.1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "quality_report",
					Description: openai.String("Structured code quality report"),
					Schema:      qualityReportSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return qualityReport{}, errs.Wrap(err, "openai chat")
	}
	if len(resp.Choices) == 0 {
		return qualityReport{}, errors.New("no choices in response")
	}

	var report qualityReport
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &report); err != nil {
		return qualityReport{}, errs.Wrap(err, "unmarshal quality report")
	}
	return report, nil
}

func generateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
