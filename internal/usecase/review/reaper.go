package review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"reviewdeck/internal/bootstrap/logging"
	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

// SweepStaleReviews fails reviews stuck IN_PROGRESS longer than maxAge.
// A crash between review creation and the analysis pipeline's terminal
// write otherwise leaves the row in-progress forever.
func (s *Service) SweepStaleReviews(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	stale, err := s.reviews.ListStaleInProgress(ctx, cutoff)
	if err != nil {
		return 0, errs.Wrap(err, "list stale reviews")
	}

	swept := 0
	for _, rec := range stale {
		if err := s.reviews.Fail(ctx, rec.ID); err != nil {
			if errors.Is(err, ports.ErrReviewTerminal) {
				// The pipeline finished between our listing and this write.
				continue
			}
			logging.Error(ctx, "sweep stale review",
				slog.String("review_id", rec.ID),
				slog.Any("err", errs.Loggable(err)))
			continue
		}

		s.publisher.Publish(ctx, Channel(rec.ID), ports.EventAnalysisComplete, map[string]any{
			"review_id": rec.ID,
			"status":    string(domainreview.StatusFailed),
		})
		swept++
	}

	if swept > 0 {
		logging.Info(ctx, "stale reviews swept", slog.Int("count", swept))
	}
	return swept, nil
}
