package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/ports"
	reviewuc "reviewdeck/internal/usecase/review"
)

type reviewAPIService interface {
	CreateReview(ctx context.Context, input reviewuc.CreateReviewInput) (ports.Review, error)
	GetReview(ctx context.Context, id string) (reviewuc.ReviewDetail, error)
	ListReviews(ctx context.Context, filter ports.ReviewFilter) (reviewuc.ReviewPage, error)
	AddComment(ctx context.Context, input reviewuc.AddCommentInput) (ports.Comment, error)
	ApplyAutoFix(ctx context.Context, findingID string) (ports.Finding, error)
}

type reviewAPIHandler struct {
	svc reviewAPIService
}

func newReviewAPIHandler(svc reviewAPIService) *reviewAPIHandler {
	return &reviewAPIHandler{svc: svc}
}

func (h *reviewAPIHandler) mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/reviews", h.handleCreateReview)
		r.Get("/reviews", h.handleListReviews)
		r.Get("/reviews/{id}", h.handleGetReview)
		r.Post("/reviews/{id}/comments", h.handleAddComment)
		r.Post("/findings/{id}/autofix", h.handleAutoFix)
	})
}

type reviewJSON struct {
	ID           string    `json:"id"`
	RepositoryID string    `json:"repository_id"`
	UserID       string    `json:"user_id"`
	Branch       string    `json:"branch"`
	CommitSHA    string    `json:"commit_sha"`
	PRNumber     int       `json:"pr_number,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	Score        *float64  `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type findingJSON struct {
	ID          string    `json:"id"`
	ReviewID    string    `json:"review_id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	FilePath    string    `json:"file_path"`
	StartLine   int       `json:"start_line"`
	EndLine     int       `json:"end_line"`
	Suggestion  string    `json:"suggestion,omitempty"`
	AutoFixable bool      `json:"auto_fixable"`
	Fixed       bool      `json:"fixed"`
	CreatedAt   time.Time `json:"created_at"`
}

type commentJSON struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	FilePath  string    `json:"file_path,omitempty"`
	Line      int       `json:"line,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewJSON(rec ports.Review) reviewJSON {
	return reviewJSON{
		ID:           rec.ID,
		RepositoryID: rec.RepositoryID,
		UserID:       rec.UserID,
		Branch:       rec.Branch,
		CommitSHA:    rec.CommitSHA,
		PRNumber:     rec.PRNumber,
		Title:        rec.Title,
		Description:  rec.Description,
		Status:       string(rec.Status),
		Score:        rec.Score,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func toFindingJSON(f ports.Finding) findingJSON {
	return findingJSON{
		ID:          f.ID,
		ReviewID:    f.ReviewID,
		Type:        string(f.Type),
		Severity:    string(f.Severity),
		Title:       f.Title,
		Description: f.Description,
		FilePath:    f.FilePath,
		StartLine:   f.StartLine,
		EndLine:     f.EndLine,
		Suggestion:  f.Suggestion,
		AutoFixable: f.AutoFixable,
		Fixed:       f.Fixed,
		CreatedAt:   f.CreatedAt,
	}
}

func toCommentJSON(c ports.Comment) commentJSON {
	return commentJSON{
		ID:        c.ID,
		ReviewID:  c.ReviewID,
		UserID:    c.UserID,
		Content:   c.Content,
		FilePath:  c.FilePath,
		Line:      c.Line,
		CreatedAt: c.CreatedAt,
	}
}

type createReviewRequest struct {
	RepositoryID string `json:"repository_id"`
	UserID       string `json:"user_id"`
	Branch       string `json:"branch"`
	CommitSHA    string `json:"commit_sha"`
	PRNumber     int    `json:"pr_number"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

func (h *reviewAPIHandler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.svc.CreateReview(r.Context(), reviewuc.CreateReviewInput{
		RepositoryID: req.RepositoryID,
		UserID:       req.UserID,
		Branch:       req.Branch,
		CommitSHA:    req.CommitSHA,
		PRNumber:     req.PRNumber,
		Title:        req.Title,
		Description:  req.Description,
	})
	if err != nil {
		writeAPIServiceError(w, err)
		return
	}

	writeAPIJSON(w, http.StatusCreated, toReviewJSON(rec))
}

func (h *reviewAPIHandler) handleGetReview(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAPIServiceError(w, err)
		return
	}

	findings := make([]findingJSON, 0, len(detail.Findings))
	for _, f := range detail.Findings {
		findings = append(findings, toFindingJSON(f))
	}
	comments := make([]commentJSON, 0, len(detail.Comments))
	for _, c := range detail.Comments {
		comments = append(comments, toCommentJSON(c))
	}

	writeAPIJSON(w, http.StatusOK, struct {
		reviewJSON
		Repository struct {
			ID       string `json:"id"`
			FullName string `json:"full_name"`
			Provider string `json:"provider"`
			URL      string `json:"url"`
		} `json:"repository"`
		Findings []findingJSON `json:"findings"`
		Comments []commentJSON `json:"comments"`
	}{
		reviewJSON: toReviewJSON(detail.Review),
		Repository: struct {
			ID       string `json:"id"`
			FullName string `json:"full_name"`
			Provider string `json:"provider"`
			URL      string `json:"url"`
		}{
			ID:       detail.Repository.ID,
			FullName: detail.Repository.FullName,
			Provider: string(detail.Repository.Provider),
			URL:      detail.Repository.URL,
		},
		Findings: findings,
		Comments: comments,
	})
}

func (h *reviewAPIHandler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := ports.ReviewFilter{
		RepositoryID: q.Get("repository_id"),
		Page:         page,
		Limit:        limit,
	}
	if raw := q.Get("status"); raw != "" {
		status := domainreview.Status(raw)
		if !status.Valid() {
			writeAPIError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = status
	}

	result, err := h.svc.ListReviews(r.Context(), filter)
	if err != nil {
		writeAPIServiceError(w, err)
		return
	}

	items := make([]reviewJSON, 0, len(result.Items))
	for _, rec := range result.Items {
		items = append(items, toReviewJSON(rec))
	}

	writeAPIJSON(w, http.StatusOK, struct {
		Items []reviewJSON `json:"items"`
		Total int64        `json:"total"`
		Page  int          `json:"page"`
		Limit int          `json:"limit"`
	}{Items: items, Total: result.Total, Page: result.Page, Limit: result.Limit})
}

type addCommentRequest struct {
	UserID   string `json:"user_id"`
	Content  string `json:"content"`
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
}

func (h *reviewAPIHandler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.svc.AddComment(r.Context(), reviewuc.AddCommentInput{
		ReviewID: chi.URLParam(r, "id"),
		UserID:   req.UserID,
		Content:  req.Content,
		FilePath: req.FilePath,
		Line:     req.Line,
	})
	if err != nil {
		writeAPIServiceError(w, err)
		return
	}

	writeAPIJSON(w, http.StatusCreated, toCommentJSON(comment))
}

func (h *reviewAPIHandler) handleAutoFix(w http.ResponseWriter, r *http.Request) {
	finding, err := h.svc.ApplyAutoFix(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAPIServiceError(w, err)
		return
	}

	writeAPIJSON(w, http.StatusOK, toFindingJSON(finding))
}

// writeAPIServiceError maps usecase errors onto HTTP statuses: not-found
// errors to 404, domain refusals to 400, anything else to 500.
func writeAPIServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrReviewNotFound),
		errors.Is(err, ports.ErrRepositoryNotFound),
		errors.Is(err, ports.ErrFindingNotFound),
		errors.Is(err, ports.ErrUserNotFound):
		writeAPIError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, reviewuc.ErrInvalidInput),
		errors.Is(err, reviewuc.ErrNotAutoFixable),
		errors.Is(err, reviewuc.ErrAlreadyFixed):
		writeAPIError(w, http.StatusBadRequest, err.Error())
	default:
		writeAPIError(w, http.StatusInternalServerError, err.Error())
	}
}
