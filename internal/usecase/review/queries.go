package review

import (
	"context"

	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

// ReviewDetail is one review with its repository and everything produced by
// the analysis run.
type ReviewDetail struct {
	Review     ports.Review
	Repository ports.Repository
	Findings   []ports.Finding
	Comments   []ports.Comment
}

func (s *Service) GetReview(ctx context.Context, id string) (ReviewDetail, error) {
	rec, err := s.reviews.Get(ctx, id)
	if err != nil {
		return ReviewDetail{}, err
	}

	repo, err := s.repos.GetByID(ctx, rec.RepositoryID)
	if err != nil {
		return ReviewDetail{}, errs.Wrap(err, "load review repository")
	}

	findings, err := s.findings.ListByReview(ctx, id)
	if err != nil {
		return ReviewDetail{}, errs.Wrap(err, "load review findings")
	}

	comments, err := s.comments.ListByReview(ctx, id)
	if err != nil {
		return ReviewDetail{}, errs.Wrap(err, "load review comments")
	}

	return ReviewDetail{
		Review:     rec,
		Repository: repo,
		Findings:   findings,
		Comments:   comments,
	}, nil
}

// ReviewPage is one page of the review list.
type ReviewPage struct {
	Items []ports.Review
	Total int64
	Page  int
	Limit int
}

func (s *Service) ListReviews(ctx context.Context, filter ports.ReviewFilter) (ReviewPage, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	items, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return ReviewPage{}, errs.Wrap(err, "list reviews")
	}

	return ReviewPage{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}
