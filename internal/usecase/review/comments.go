package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

var errContentRequired = fmt.Errorf("%w: content is required", ErrInvalidInput)

type AddCommentInput struct {
	ReviewID string
	UserID   string
	Content  string
	FilePath string
	Line     int
}

// AddComment attaches a discussion comment to a review, optionally anchored
// to a file and line.
func (s *Service) AddComment(ctx context.Context, input AddCommentInput) (ports.Comment, error) {
	if input.Content == "" {
		return ports.Comment{}, errContentRequired
	}
	if input.UserID == "" {
		return ports.Comment{}, errUserRequired
	}

	if _, err := s.reviews.Get(ctx, input.ReviewID); err != nil {
		return ports.Comment{}, err
	}
	if _, err := s.users.Get(ctx, input.UserID); err != nil {
		return ports.Comment{}, errs.Wrap(err, "look up comment author")
	}

	comment, err := s.comments.Create(ctx, ports.CommentCreate{
		ID:       uuid.NewString(),
		ReviewID: input.ReviewID,
		UserID:   input.UserID,
		Content:  input.Content,
		FilePath: input.FilePath,
		Line:     input.Line,
	})
	if err != nil {
		return ports.Comment{}, errs.Wrap(err, "create comment")
	}

	s.publisher.Publish(ctx, Channel(input.ReviewID), ports.EventNewComment, map[string]any{
		"id":        comment.ID,
		"review_id": comment.ReviewID,
		"user_id":   comment.UserID,
		"content":   comment.Content,
		"file_path": comment.FilePath,
		"line":      comment.Line,
	})

	return comment, nil
}
