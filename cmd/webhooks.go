package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domainreview "reviewdeck/internal/domain/review"
	reviewuc "reviewdeck/internal/usecase/review"
)

type webhookIngestService interface {
	IngestWebhook(ctx context.Context, provider domainreview.Provider, eventType string, deliveryID string, payload []byte) (reviewuc.IngestResult, error)
}

type webhookHTTPHandler struct {
	svc     webhookIngestService
	secrets reviewuc.WebhookSecrets
}

type webhookResponse struct {
	Received bool   `json:"received"`
	ReviewID string `json:"review_id,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

func newWebhookHandler(svc webhookIngestService, secrets reviewuc.WebhookSecrets) *webhookHTTPHandler {
	return &webhookHTTPHandler{svc: svc, secrets: secrets}
}

func (h *webhookHTTPHandler) mount(r chi.Router) {
	r.Post("/webhooks/github", h.handleGitHub)
	r.Post("/webhooks/gitlab", h.handleGitLab)
	r.Post("/webhooks/bitbucket", h.handleBitbucket)
}

func (h *webhookHTTPHandler) handleGitHub(w http.ResponseWriter, r *http.Request) {
	h.handle(
		w,
		r,
		domainreview.ProviderGitHub,
		r.Header.Get("X-GitHub-Event"),
		strings.TrimSpace(r.Header.Get("X-GitHub-Delivery")),
		r.Header.Get("X-Hub-Signature-256"),
	)
}

func (h *webhookHTTPHandler) handleGitLab(w http.ResponseWriter, r *http.Request) {
	h.handle(
		w,
		r,
		domainreview.ProviderGitLab,
		r.Header.Get("X-Gitlab-Event"),
		strings.TrimSpace(r.Header.Get("X-Gitlab-Event-UUID")),
		r.Header.Get("X-Gitlab-Token"),
	)
}

func (h *webhookHTTPHandler) handleBitbucket(w http.ResponseWriter, r *http.Request) {
	h.handle(
		w,
		r,
		domainreview.ProviderBitbucket,
		r.Header.Get("X-Event-Key"),
		strings.TrimSpace(r.Header.Get("X-Request-UUID")),
		"",
	)
}

func (h *webhookHTTPHandler) handle(
	w http.ResponseWriter,
	r *http.Request,
	provider domainreview.Provider,
	eventType string,
	deliveryID string,
	authHeader string,
) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	// Verification runs on the raw body before anything touches the store.
	if err := reviewuc.VerifySignature(provider, payload, authHeader, h.secrets); err != nil {
		writeAPIError(w, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.svc.IngestWebhook(r.Context(), provider, eventType, deliveryID, payload)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeAPIJSON(w, http.StatusOK, webhookResponse{
		Received: true,
		ReviewID: result.ReviewID,
		Outcome:  string(result.Outcome),
	})
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeAPIJSON(w, status, apiErrorResponse{Error: message})
}

func writeAPIJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
