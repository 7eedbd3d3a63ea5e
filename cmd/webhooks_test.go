package cmd

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domainreview "reviewdeck/internal/domain/review"
	reviewuc "reviewdeck/internal/usecase/review"
)

type stubWebhookService struct {
	called     bool
	provider   domainreview.Provider
	eventType  string
	deliveryID string
	payload    []byte
	result     reviewuc.IngestResult
	err        error
}

func (s *stubWebhookService) IngestWebhook(_ context.Context, provider domainreview.Provider, eventType string, deliveryID string, payload []byte) (reviewuc.IngestResult, error) {
	s.called = true
	s.provider = provider
	s.eventType = eventType
	s.deliveryID = deliveryID
	s.payload = payload
	if s.err != nil {
		return reviewuc.IngestResult{}, s.err
	}
	return s.result, nil
}

func testGitHubSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookTestRouter(svc webhookIngestService, secrets reviewuc.WebhookSecrets) http.Handler {
	router := chi.NewRouter()
	newWebhookHandler(svc, secrets).mount(router)
	return router
}

func TestWebhookGitHubSignaturePass(t *testing.T) {
	t.Parallel()

	payload := `{"action":"opened"}`
	secret := "local-dev-secret"
	svc := &stubWebhookService{
		result: reviewuc.IngestResult{Outcome: reviewuc.OutcomeAccepted, ReviewID: "rev-1"},
	}

	handler := newWebhookTestRouter(svc, reviewuc.WebhookSecrets{GitHubSecret: secret})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(payload))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-GitHub-Delivery", "delivery-42")
	req.Header.Set("X-Hub-Signature-256", testGitHubSignature(secret, []byte(payload)))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if !svc.called {
		t.Fatalf("service should be called")
	}
	if svc.provider != domainreview.ProviderGitHub {
		t.Fatalf("provider = %q", svc.provider)
	}
	if svc.eventType != "pull_request" {
		t.Fatalf("event type = %q", svc.eventType)
	}
	if svc.deliveryID != "delivery-42" {
		t.Fatalf("delivery id = %q", svc.deliveryID)
	}

	var body webhookResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Received {
		t.Fatalf("received = false, want true")
	}
	if body.ReviewID != "rev-1" {
		t.Fatalf("review id = %q", body.ReviewID)
	}
}

func TestWebhookGitHubBadSignatureRejected(t *testing.T) {
	t.Parallel()

	svc := &stubWebhookService{}
	handler := newWebhookTestRouter(svc, reviewuc.WebhookSecrets{GitHubSecret: "real-secret"})

	payload := `{"action":"opened"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(payload))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", testGitHubSignature("wrong-secret", []byte(payload)))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
	if svc.called {
		t.Fatalf("service must not run on bad signature")
	}
}

func TestWebhookGitLabTokenPass(t *testing.T) {
	t.Parallel()

	svc := &stubWebhookService{
		result: reviewuc.IngestResult{Outcome: reviewuc.OutcomeIgnoredEvent},
	}
	handler := newWebhookTestRouter(svc, reviewuc.WebhookSecrets{GitLabToken: "glt-1"})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitlab", strings.NewReader(`{}`))
	req.Header.Set("X-Gitlab-Event", "Merge Request Hook")
	req.Header.Set("X-Gitlab-Event-UUID", "uuid-9")
	req.Header.Set("X-Gitlab-Token", "glt-1")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if svc.provider != domainreview.ProviderGitLab {
		t.Fatalf("provider = %q", svc.provider)
	}
	if svc.eventType != "Merge Request Hook" {
		t.Fatalf("event type = %q", svc.eventType)
	}
	if svc.deliveryID != "uuid-9" {
		t.Fatalf("delivery id = %q", svc.deliveryID)
	}
}

func TestWebhookGitLabWrongTokenRejected(t *testing.T) {
	t.Parallel()

	svc := &stubWebhookService{}
	handler := newWebhookTestRouter(svc, reviewuc.WebhookSecrets{GitLabToken: "glt-1"})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitlab", strings.NewReader(`{}`))
	req.Header.Set("X-Gitlab-Token", "nope")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
	if svc.called {
		t.Fatalf("service must not run on wrong token")
	}
}

func TestWebhookBitbucketAccepted(t *testing.T) {
	t.Parallel()

	svc := &stubWebhookService{
		result: reviewuc.IngestResult{Outcome: reviewuc.OutcomeAccepted, ReviewID: "rev-2"},
	}
	handler := newWebhookTestRouter(svc, reviewuc.WebhookSecrets{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/bitbucket", strings.NewReader(`{}`))
	req.Header.Set("X-Event-Key", "pullrequest:created")
	req.Header.Set("X-Request-UUID", "req-7")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if svc.provider != domainreview.ProviderBitbucket {
		t.Fatalf("provider = %q", svc.provider)
	}
	if svc.deliveryID != "req-7" {
		t.Fatalf("delivery id = %q", svc.deliveryID)
	}
}

func TestWebhookServiceErrorReturns500(t *testing.T) {
	t.Parallel()

	svc := &stubWebhookService{err: errors.New("database unavailable")}
	handler := newWebhookTestRouter(svc, reviewuc.WebhookSecrets{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.Code)
	}
}
