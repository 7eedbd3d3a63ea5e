package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"reviewdeck/internal/bootstrap/logging"
	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

const contentCacheTTL = 10 * time.Minute

// analyzeAndRecord is the detached analysis pipeline for one review:
// enumerate changed files, analyze them concurrently with per-file failure
// tolerance, persist findings, and land the review in a terminal state.
// Every exit path reaches Complete or Fail exactly once.
func (s *Service) analyzeAndRecord(ctx context.Context, rec ports.Review, repo ports.Repository) {
	client, err := s.scms.Client(repo.Provider)
	if err != nil {
		s.failReview(ctx, rec.ID, errs.Wrap(err, "select scm client"))
		return
	}

	ref := ports.RepoRef{FullName: repo.FullName, ExternalID: repo.ExternalID}

	var files []domainreview.ChangedFile
	if rec.PRNumber > 0 {
		files, err = client.ListPullRequestFiles(ctx, ref, rec.PRNumber)
	} else {
		files, err = client.ListCommitFiles(ctx, ref, rec.CommitSHA)
	}
	if err != nil {
		// Enumeration failing means we cannot say anything about the
		// change at all; that is a failed review, not an empty one.
		s.failReview(ctx, rec.ID, errs.Wrap(err, "enumerate changed files"))
		return
	}

	results := s.analyzeFiles(ctx, client, ref, rec.CommitSHA, files)

	var (
		scoreSum   float64
		scoreCount int
		findings   []ports.FindingCreate
	)
	for _, res := range results {
		scoreSum += res.analysis.QualityScore
		scoreCount++
		findings = append(findings, findingsFromAnalysis(rec.ID, res.path, res.analysis)...)
	}

	if len(findings) > 0 {
		if err := s.findings.CreateBatch(ctx, rec.ID, findings); err != nil {
			if errors.Is(err, ports.ErrReviewTerminal) {
				logging.Warn(ctx, "review reached terminal state before findings landed")
				return
			}
			s.failReview(ctx, rec.ID, errs.Wrap(err, "persist findings"))
			return
		}
		for _, f := range findings {
			s.publisher.Publish(ctx, Channel(rec.ID), ports.EventNewFinding, map[string]any{
				"id":        f.ID,
				"type":      string(f.Type),
				"severity":  string(f.Severity),
				"title":     f.Title,
				"file_path": f.FilePath,
			})
		}
	}

	score := 0.0
	if scoreCount > 0 {
		score = scoreSum / float64(scoreCount)
	}

	if err := s.reviews.Complete(ctx, rec.ID, score); err != nil {
		if errors.Is(err, ports.ErrReviewTerminal) {
			logging.Warn(ctx, "review already terminal, skipping completion")
			return
		}
		logging.Error(ctx, "complete review", slog.Any("err", errs.Loggable(err)))
		return
	}

	s.publisher.Publish(ctx, Channel(rec.ID), ports.EventAnalysisComplete, map[string]any{
		"review_id":      rec.ID,
		"status":         string(domainreview.StatusCompleted),
		"score":          score,
		"files_analyzed": scoreCount,
		"finding_count":  len(findings),
	})

	logging.Info(ctx, "review completed",
		slog.Float64("score", score),
		slog.Int("files", scoreCount),
		slog.Int("findings", len(findings)))
}

type fileResult struct {
	path     string
	analysis domainreview.FileAnalysis
}

// analyzeFiles runs the per-file analysis with a bounded degree of
// parallelism. Files that fail to fetch or analyze are logged and dropped;
// the review proceeds on whatever succeeded.
func (s *Service) analyzeFiles(ctx context.Context, client ports.SCMClient, ref ports.RepoRef, sha string, files []domainreview.ChangedFile) []fileResult {
	sem := semaphore.NewWeighted(int64(s.maxConcurrentFiles))

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []fileResult
	)

	for _, file := range files {
		if file.Status == domainreview.FileRemoved {
			continue
		}
		language := domainreview.DetectLanguage(file.Path)
		if language == "" {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			logging.Warn(ctx, "analysis fan-out interrupted, remaining files skipped",
				slog.String("path", file.Path),
				slog.Any("err", errs.Loggable(err)))
			break
		}

		wg.Add(1)
		go func(file domainreview.ChangedFile, language string) {
			defer wg.Done()
			defer sem.Release(1)

			content, err := s.fileContent(ctx, client, ref, file.Path, sha)
			if err != nil {
				logging.Warn(ctx, "fetch file content failed",
					slog.String("path", file.Path),
					slog.Any("err", errs.Loggable(err)))
				return
			}

			analysis, err := s.analyzer.Analyze(ctx, content, language, file.Path)
			if err != nil {
				logging.Warn(ctx, "analyze file failed",
					slog.String("path", file.Path),
					slog.Any("err", errs.Loggable(err)))
				return
			}

			mu.Lock()
			results = append(results, fileResult{path: file.Path, analysis: analysis})
			mu.Unlock()
		}(file, language)
	}

	wg.Wait()
	return results
}

// fileContent fetches a file at a commit, memoized so webhook redeliveries
// of the same commit do not re-hit the provider API.
func (s *Service) fileContent(ctx context.Context, client ports.SCMClient, ref ports.RepoRef, path string, sha string) (string, error) {
	key := fmt.Sprintf("content:%s:%s:%s:%s", client.Provider(), ref.FullName, sha, path)

	if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
		return cached, nil
	}

	content, err := client.GetFileContent(ctx, ref, path, sha)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, key, content, contentCacheTTL); err != nil {
		logging.Warn(ctx, "cache file content failed",
			slog.String("path", path),
			slog.Any("err", errs.Loggable(err)))
	}
	return content, nil
}

// findingsFromAnalysis flattens one file's analysis into persistable
// finding rows.
func findingsFromAnalysis(reviewID string, path string, analysis domainreview.FileAnalysis) []ports.FindingCreate {
	out := make([]ports.FindingCreate, 0,
		len(analysis.Security)+len(analysis.Performance)+len(analysis.Suggestions))

	for _, issue := range analysis.Security {
		out = append(out, ports.FindingCreate{
			ID:          uuid.NewString(),
			ReviewID:    reviewID,
			Type:        domainreview.FindingSecurity,
			Severity:    issue.Severity,
			Title:       issue.Type,
			Description: issue.Description,
			FilePath:    path,
			StartLine:   issue.Line,
			EndLine:     issue.Line,
			Suggestion:  issue.Suggestion,
		})
	}
	for _, issue := range analysis.Performance {
		out = append(out, ports.FindingCreate{
			ID:          uuid.NewString(),
			ReviewID:    reviewID,
			Type:        domainreview.FindingPerformance,
			Severity:    issue.Impact,
			Title:       issue.Type,
			Description: issue.Description,
			FilePath:    path,
			StartLine:   issue.Line,
			EndLine:     issue.Line,
			Suggestion:  issue.Suggestion,
		})
	}
	for _, sug := range analysis.Suggestions {
		out = append(out, ports.FindingCreate{
			ID:          uuid.NewString(),
			ReviewID:    reviewID,
			Type:        domainreview.FindingQuality,
			Severity:    domainreview.SeverityFromConfidence(sug.Confidence),
			Title:       sug.Type,
			Description: sug.Description,
			FilePath:    path,
			StartLine:   sug.Line,
			EndLine:     sug.Line,
			Suggestion:  sug.SuggestedCode,
			AutoFixable: sug.Type == domainreview.SuggestionFix,
		})
	}
	return out
}

func (s *Service) failReview(ctx context.Context, id string, cause error) {
	logging.Error(ctx, "review analysis failed", slog.Any("err", errs.Loggable(cause)))

	if err := s.reviews.Fail(ctx, id); err != nil {
		if errors.Is(err, ports.ErrReviewTerminal) {
			return
		}
		logging.Error(ctx, "mark review failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	s.publisher.Publish(ctx, Channel(id), ports.EventAnalysisComplete, map[string]any{
		"review_id": id,
		"status":    string(domainreview.StatusFailed),
	})
}
