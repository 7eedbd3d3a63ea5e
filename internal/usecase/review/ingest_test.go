package review

import (
	"context"
	"fmt"
	"sync"
	"testing"

	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "reviewdeck/internal/infrastructure/persistence/sqlite/repository"
	"reviewdeck/internal/ports"
)

func githubPRPayloadFor(repoID int, fullName string, action string, prNumber int, branch string, sha string) []byte {
	return []byte(fmt.Sprintf(`{
		"action": %q,
		"pull_request": {
			"title": "Fix widget overflow",
			"body": "Handles the overflow case.",
			"number": %d,
			"head": {"sha": %q, "ref": %q}
		},
		"repository": {
			"id": %d,
			"full_name": %q,
			"html_url": "https://github.com/%s",
			"default_branch": "main",
			"private": false,
			"language": "Go"
		}
	}`, action, prNumber, sha, branch, repoID, fullName, fullName))
}

func TestIngestWebhookGitHubPullRequestPipeline(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	repoID := h.seedRepository(t, domainreview.ProviderGitHub, "555", "acme/widgets")
	userID := h.seedUser(t, "dev")
	h.seedOwner(t, repoID, userID)

	h.scm.prFiles[7] = []domainreview.ChangedFile{
		{Path: "pkg/a.go", Status: domainreview.FileModified},
		{Path: "scripts/b.py", Status: domainreview.FileAdded},
		{Path: "web/c.ts", Status: domainreview.FileModified},
		{Path: "README.md", Status: domainreview.FileModified},
		{Path: "pkg/old.go", Status: domainreview.FileRemoved},
	}
	h.scm.contents["pkg/a.go"] = "package pkg"
	h.scm.contents["scripts/b.py"] = "print('hi')"
	h.scm.contents["web/c.ts"] = "export {}"

	h.analyzer.results["pkg/a.go"] = domainreview.FileAnalysis{
		QualityScore: 80,
		Security: []domainreview.SecurityIssue{{
			Type:        "SQL Injection",
			Severity:    domainreview.SeverityCritical,
			Description: "string-built query",
			Line:        14,
			Suggestion:  "use placeholders",
		}},
		Suggestions: []domainreview.Suggestion{{
			Type:          domainreview.SuggestionFix,
			Description:   "close the response body",
			Line:          30,
			SuggestedCode: "defer resp.Body.Close()",
			Confidence:    0.95,
		}},
	}
	h.analyzer.results["scripts/b.py"] = domainreview.FileAnalysis{QualityScore: 90}
	h.analyzer.results["web/c.ts"] = domainreview.FileAnalysis{QualityScore: 100}

	result, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-pipeline-1",
		githubPRPayloadFor(555, "acme/widgets", "opened", 7, "fix-branch", "abc123"))
	if err != nil {
		t.Fatalf("IngestWebhook() error = %v", err)
	}
	if result.Outcome != OutcomeAccepted {
		t.Fatalf("outcome = %q, want accepted", result.Outcome)
	}

	detail, err := svc.GetReview(ctx, result.ReviewID)
	if err != nil {
		t.Fatalf("GetReview() error = %v", err)
	}
	rec := detail.Review

	if rec.Status != domainreview.StatusCompleted {
		t.Fatalf("status = %q, want COMPLETED", rec.Status)
	}
	if rec.Branch != "fix-branch" || rec.CommitSHA != "abc123" || rec.PRNumber != 7 {
		t.Fatalf("review = %+v, want fix-branch/abc123/7", rec)
	}
	if rec.UserID != userID {
		t.Fatalf("user id = %q, want owner %q", rec.UserID, userID)
	}
	if rec.Title != "Review: Fix widget overflow" {
		t.Fatalf("title = %q", rec.Title)
	}
	if rec.Score == nil || *rec.Score != 90 {
		t.Fatalf("score = %v, want 90 (mean of 80, 90, 100)", rec.Score)
	}

	// README.md has no analyzable language and old.go was removed; neither
	// reaches the analyzer.
	if len(h.analyzer.calls) != 3 {
		t.Fatalf("analyzer calls = %v, want 3", h.analyzer.calls)
	}

	if len(detail.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(detail.Findings))
	}
	byTitle := make(map[string]int)
	for i, f := range detail.Findings {
		byTitle[f.Title] = i
	}
	sec := detail.Findings[byTitle["SQL Injection"]]
	if sec.Type != domainreview.FindingSecurity || sec.Severity != domainreview.SeverityCritical {
		t.Fatalf("security finding = %+v", sec)
	}
	if sec.FilePath != "pkg/a.go" || sec.StartLine != 14 {
		t.Fatalf("security finding location = %s:%d", sec.FilePath, sec.StartLine)
	}
	fix := detail.Findings[byTitle[domainreview.SuggestionFix]]
	if fix.Type != domainreview.FindingQuality {
		t.Fatalf("suggestion finding type = %q", fix.Type)
	}
	if fix.Severity != domainreview.SeverityHigh {
		t.Fatalf("confidence 0.95 should map to HIGH, got %q", fix.Severity)
	}
	if !fix.AutoFixable {
		t.Fatalf("FIX suggestion should be auto-fixable")
	}
	if fix.Suggestion != "defer resp.Body.Close()" {
		t.Fatalf("suggestion code = %q", fix.Suggestion)
	}

	channel := Channel(result.ReviewID)
	complete := h.publisher.byEvent("analysis-complete")
	if len(complete) != 1 || complete[0].Channel != channel {
		t.Fatalf("analysis-complete events = %+v, want one on %s", complete, channel)
	}
	if got := len(h.publisher.byEvent("new-finding")); got != 2 {
		t.Fatalf("new-finding events = %d, want 2", got)
	}
}

func TestIngestWebhookIgnoredActionWritesNothing(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	result, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-ignored-1",
		githubPRPayloadFor(7001, "acme/ignored", "closed", 1, "b", "s"))
	if err != nil {
		t.Fatalf("IngestWebhook() error = %v", err)
	}
	if result.Outcome != OutcomeIgnoredEvent {
		t.Fatalf("outcome = %q, want ignored_event", result.Outcome)
	}

	if n := h.countRows(t, &model.Repository{}, "external_id = ?", "7001"); n != 0 {
		t.Fatalf("ignored event created %d repositories", n)
	}
	if n := h.countRows(t, &model.WebhookDelivery{}, "delivery_id = ?", "dlv-ignored-1"); n != 0 {
		t.Fatalf("ignored event recorded %d deliveries", n)
	}
}

func TestIngestWebhookDuplicateDeliverySkipped(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	repoID := h.seedRepository(t, domainreview.ProviderGitHub, "7002", "acme/dup")
	userID := h.seedUser(t, "dev")
	h.seedOwner(t, repoID, userID)

	payload := githubPRPayloadFor(7002, "acme/dup", "opened", 2, "b", "sha-dup")

	first, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-dup-1", payload)
	if err != nil {
		t.Fatalf("first IngestWebhook() error = %v", err)
	}
	if first.Outcome != OutcomeAccepted {
		t.Fatalf("first outcome = %q", first.Outcome)
	}

	second, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-dup-1", payload)
	if err != nil {
		t.Fatalf("second IngestWebhook() error = %v", err)
	}
	if second.Outcome != OutcomeDuplicateDelivery {
		t.Fatalf("second outcome = %q, want duplicate_delivery", second.Outcome)
	}
	if second.ReviewID != "" {
		t.Fatalf("duplicate delivery produced review %q", second.ReviewID)
	}

	if n := h.countRows(t, &model.Review{}, "repository_id = ?", repoID); n != 1 {
		t.Fatalf("reviews = %d, want 1", n)
	}
}

func TestIngestWebhookRepositoryResolveIdempotent(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	// First sighting creates the repository; without a linked owner the
	// review is skipped but the repository record stays.
	first, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-idem-1",
		githubPRPayloadFor(7003, "acme/fresh", "opened", 3, "b", "sha-1"))
	if err != nil {
		t.Fatalf("first IngestWebhook() error = %v", err)
	}
	if first.Outcome != OutcomeNoOwner {
		t.Fatalf("first outcome = %q, want no_owner", first.Outcome)
	}
	if n := h.countRows(t, &model.Repository{}, "external_id = ?", "7003"); n != 1 {
		t.Fatalf("repositories after first sighting = %d, want 1", n)
	}

	var repo model.Repository
	if err := h.db.First(&repo, "external_id = ?", "7003").Error; err != nil {
		t.Fatalf("load repository: %v", err)
	}
	userID := h.seedUser(t, "late-owner")
	h.seedOwner(t, repo.ID, userID)

	h.scm.prFiles[3] = nil

	second, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-idem-2",
		githubPRPayloadFor(7003, "acme/fresh", "synchronize", 3, "b", "sha-2"))
	if err != nil {
		t.Fatalf("second IngestWebhook() error = %v", err)
	}
	if second.Outcome != OutcomeAccepted {
		t.Fatalf("second outcome = %q, want accepted", second.Outcome)
	}

	if n := h.countRows(t, &model.Repository{}, "external_id = ?", "7003"); n != 1 {
		t.Fatalf("repositories after second sighting = %d, want 1", n)
	}
}

func TestIngestWebhookRefreshesRepositoryMetadata(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	repoID := h.seedRepository(t, domainreview.ProviderGitHub, "7004", "acme/meta")
	userID := h.seedUser(t, "dev")
	h.seedOwner(t, repoID, userID)

	// Payload reports a different default branch than the stored record.
	payload := []byte(`{
		"action": "opened",
		"pull_request": {"title": "t", "number": 4, "head": {"sha": "sha-m", "ref": "b"}},
		"repository": {
			"id": 7004,
			"full_name": "acme/meta",
			"html_url": "https://github.com/acme/meta",
			"default_branch": "trunk",
			"private": true,
			"language": "Rust"
		}
	}`)

	if _, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-meta-1", payload); err != nil {
		t.Fatalf("IngestWebhook() error = %v", err)
	}

	var repo model.Repository
	if err := h.db.First(&repo, "id = ?", repoID).Error; err != nil {
		t.Fatalf("load repository: %v", err)
	}
	if repo.DefaultBranch != "trunk" {
		t.Fatalf("default branch = %q, want trunk", repo.DefaultBranch)
	}
	if !repo.IsPrivate {
		t.Fatalf("is_private should be refreshed to true")
	}
	if repo.Language == nil || *repo.Language != "Rust" {
		t.Fatalf("language = %v, want Rust", repo.Language)
	}
}

func TestIngestWebhookBackfillsExternalIDByFullName(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	// Recorded by name only, before the provider ID was captured.
	repoID := h.seedRepository(t, domainreview.ProviderGitHub, "", "acme/legacy")
	userID := h.seedUser(t, "legacy-owner")
	h.seedOwner(t, repoID, userID)

	h.scm.prFiles[21] = nil

	result, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-legacy-1",
		githubPRPayloadFor(7777, "acme/legacy", "opened", 21, "fix-legacy", "fee123"))
	if err != nil {
		t.Fatalf("IngestWebhook() error = %v", err)
	}
	if result.Outcome != OutcomeAccepted {
		t.Fatalf("outcome = %q, want accepted", result.Outcome)
	}

	if n := h.countRows(t, &model.Repository{}, "full_name = ?", "acme/legacy"); n != 1 {
		t.Fatalf("repositories named acme/legacy = %d, want 1", n)
	}

	var repo model.Repository
	if err := h.db.First(&repo, "id = ?", repoID).Error; err != nil {
		t.Fatalf("load repository: %v", err)
	}
	if repo.ExternalID != "7777" {
		t.Fatalf("external_id = %q, want backfilled 7777", repo.ExternalID)
	}
}

func TestIngestWebhookMalformedPayloadAcked(t *testing.T) {
	svc, h := setupService(t)
	ctx := context.Background()

	result, err := svc.IngestWebhook(ctx, domainreview.ProviderGitHub, "pull_request", "dlv-broken-1",
		[]byte(`{not json`))
	if err != nil {
		t.Fatalf("IngestWebhook() error = %v, malformed payloads must be acknowledged", err)
	}
	if result.Outcome != OutcomeMalformedPayload {
		t.Fatalf("outcome = %q, want malformed_payload", result.Outcome)
	}

	if n := h.countRows(t, &model.WebhookDelivery{}, "delivery_id = ?", "dlv-broken-1"); n != 0 {
		t.Fatalf("delivery rows = %d, want 0", n)
	}
}

// racingRepositoryStore commits a rival insert between the caller's lookups
// and its own create, reproducing two first-sightings racing.
type racingRepositoryStore struct {
	ports.RepositoryStore
	t     *testing.T
	rival ports.RepositoryCreate
	once  sync.Once
}

func (r *racingRepositoryStore) Create(ctx context.Context, input ports.RepositoryCreate) (ports.Repository, error) {
	r.once.Do(func() {
		if _, err := r.RepositoryStore.Create(ctx, r.rival); err != nil {
			r.t.Fatalf("rival create: %v", err)
		}
	})
	return r.RepositoryStore.Create(ctx, input)
}

func TestResolveRepositoryCreateRaceReturnsWinner(t *testing.T) {
	_, h := setupService(t)
	ctx := context.Background()

	race := &racingRepositoryStore{
		RepositoryStore: sqliterepo.NewRepositoryStore(h.db),
		t:               t,
		rival: ports.RepositoryCreate{
			ID:            "winner-row",
			Provider:      domainreview.ProviderGitHub,
			ExternalID:    "9201",
			Name:          "contended",
			FullName:      "acme/contended",
			URL:           "https://github.com/acme/contended",
			DefaultBranch: "main",
		},
	}
	svc := NewService(Deps{Repositories: race})

	repo, err := svc.resolveRepository(ctx, domainreview.NormalizedEvent{
		Provider:      domainreview.ProviderGitHub,
		ExternalID:    "9201",
		FullName:      "acme/contended",
		URL:           "https://github.com/acme/contended",
		DefaultBranch: "main",
		IsPublic:      true,
	})
	if err != nil {
		t.Fatalf("resolveRepository() error = %v", err)
	}
	if repo.ID != "winner-row" {
		t.Fatalf("resolved id = %q, want the winner's row", repo.ID)
	}
	if n := h.countRows(t, &model.Repository{}, "external_id = ?", "9201"); n != 1 {
		t.Fatalf("repositories = %d, want 1", n)
	}
}
