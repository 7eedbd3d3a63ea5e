package review

import (
	"context"
	"errors"
	"testing"

	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/ports"
)

// startSeededReview seeds a repository with an owner and creates a review
// through the API path, returning the created record.
func startSeededReview(t *testing.T, svc *Service, h *harness, externalID string, prNumber int) ports.Review {
	t.Helper()
	ctx := context.Background()

	repoID := h.seedRepository(t, domainreview.ProviderGitHub, externalID, "acme/fanout-"+externalID)
	userID := h.seedUser(t, "dev")
	h.seedOwner(t, repoID, userID)

	rec, err := svc.CreateReview(ctx, CreateReviewInput{
		RepositoryID: repoID,
		UserID:       userID,
		Branch:       "feature",
		CommitSHA:    "sha-" + externalID,
		PRNumber:     prNumber,
	})
	if err != nil {
		t.Fatalf("CreateReview() error = %v", err)
	}
	return rec
}

func TestFanOutToleratesPerFileFailures(t *testing.T) {
	svc, h := setupService(t)

	h.scm.prFiles[11] = []domainreview.ChangedFile{
		{Path: "ok.go", Status: domainreview.FileModified},
		{Path: "fetch-fails.go", Status: domainreview.FileModified},
		{Path: "analyze-fails.go", Status: domainreview.FileModified},
	}
	h.scm.contents["ok.go"] = "package ok"
	h.scm.contents["analyze-fails.go"] = "package bad"
	h.scm.contentErr["fetch-fails.go"] = errors.New("404 from provider")

	h.analyzer.results["ok.go"] = domainreview.FileAnalysis{QualityScore: 70}
	h.analyzer.fail["analyze-fails.go"] = errors.New("model overloaded")

	rec := startSeededReview(t, svc, h, "8001", 11)

	got := h.loadReview(t, rec.ID)
	if got.Status != string(domainreview.StatusCompleted) {
		t.Fatalf("status = %q, want COMPLETED despite per-file failures", got.Status)
	}
	if got.Score == nil || *got.Score != 70 {
		t.Fatalf("score = %v, want 70 (only the successful file counts)", got.Score)
	}
}

func TestFanOutEnumerationFailureFailsReview(t *testing.T) {
	svc, h := setupService(t)

	h.scm.listErr = errors.New("provider unreachable")

	rec := startSeededReview(t, svc, h, "8002", 12)

	got := h.loadReview(t, rec.ID)
	if got.Status != string(domainreview.StatusFailed) {
		t.Fatalf("status = %q, want FAILED when enumeration fails", got.Status)
	}
	if got.Score != nil {
		t.Fatalf("failed review should carry no score, got %v", *got.Score)
	}

	complete := h.publisher.byEvent(ports.EventAnalysisComplete)
	if len(complete) != 1 {
		t.Fatalf("analysis-complete events = %d, want 1", len(complete))
	}
}

func TestFanOutZeroAnalyzableFilesCompletesWithZeroScore(t *testing.T) {
	svc, h := setupService(t)

	h.scm.prFiles[13] = []domainreview.ChangedFile{
		{Path: "docs/guide.md", Status: domainreview.FileModified},
		{Path: "gone.go", Status: domainreview.FileRemoved},
	}

	rec := startSeededReview(t, svc, h, "8003", 13)

	got := h.loadReview(t, rec.ID)
	if got.Status != string(domainreview.StatusCompleted) {
		t.Fatalf("status = %q, want COMPLETED", got.Status)
	}
	if got.Score == nil || *got.Score != 0 {
		t.Fatalf("score = %v, want 0", got.Score)
	}
	if len(h.analyzer.calls) != 0 {
		t.Fatalf("analyzer calls = %v, want none", h.analyzer.calls)
	}
}

func TestTerminalTransitionHappensOnce(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	rec := startSeededReview(t, svc, h, "8004", 14)

	// The inline pipeline already completed the review; both terminal
	// writes must now refuse.
	if err := svc.reviews.Complete(ctx, rec.ID, 50); !errors.Is(err, ports.ErrReviewTerminal) {
		t.Fatalf("second Complete() error = %v, want ErrReviewTerminal", err)
	}
	if err := svc.reviews.Fail(ctx, rec.ID); !errors.Is(err, ports.ErrReviewTerminal) {
		t.Fatalf("Fail() after Complete() error = %v, want ErrReviewTerminal", err)
	}

	got := h.loadReview(t, rec.ID)
	if got.Status != string(domainreview.StatusCompleted) {
		t.Fatalf("status = %q, want COMPLETED to stick", got.Status)
	}
}

func TestFindingsRejectedAfterTerminalState(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	rec := startSeededReview(t, svc, h, "8005", 15)

	err := svc.findings.CreateBatch(ctx, rec.ID, []ports.FindingCreate{{
		ID:       "late-finding",
		ReviewID: rec.ID,
		Type:     domainreview.FindingQuality,
		Severity: domainreview.SeverityLow,
		Title:    "late",
		FilePath: "x.go",
	}})
	if !errors.Is(err, ports.ErrReviewTerminal) {
		t.Fatalf("CreateBatch() after completion error = %v, want ErrReviewTerminal", err)
	}

	findings, err := svc.findings.ListByReview(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListByReview() error = %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("findings = %d, want 0", len(findings))
	}
}

func TestFileContentFetchesAreMemoized(t *testing.T) {
	svc, h := setupService(t)

	h.scm.prFiles[16] = []domainreview.ChangedFile{
		{Path: "main.go", Status: domainreview.FileModified},
	}
	h.scm.contents["main.go"] = "package main"
	h.analyzer.results["main.go"] = domainreview.FileAnalysis{QualityScore: 100}

	startSeededReview(t, svc, h, "8006", 16)
	if h.scm.contentCalls != 1 {
		t.Fatalf("content calls after first run = %d, want 1", h.scm.contentCalls)
	}

	// A redelivery of the same commit reads from the cache.
	ctx := context.Background()
	client, err := svc.scms.Client(domainreview.ProviderGitHub)
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	ref := ports.RepoRef{FullName: "acme/fanout-8006", ExternalID: "8006"}
	if _, err := svc.fileContent(ctx, client, ref, "main.go", "sha-8006"); err != nil {
		t.Fatalf("fileContent() error = %v", err)
	}
	if h.scm.contentCalls != 1 {
		t.Fatalf("content calls after cached read = %d, want 1", h.scm.contentCalls)
	}
}
