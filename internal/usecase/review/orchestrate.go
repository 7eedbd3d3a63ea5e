package review

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"reviewdeck/internal/bootstrap/logging"
	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

// IngestOutcome classifies what a webhook delivery produced. Skips are
// normal operation, not faults; the transport acknowledges them with 200.
type IngestOutcome string

const (
	OutcomeAccepted          IngestOutcome = "accepted"
	OutcomeIgnoredEvent      IngestOutcome = "ignored_event"
	OutcomeMalformedPayload  IngestOutcome = "malformed_payload"
	OutcomeDuplicateDelivery IngestOutcome = "duplicate_delivery"
	OutcomeNoOwner           IngestOutcome = "no_owner"
)

type IngestResult struct {
	Outcome  IngestOutcome
	ReviewID string
}

// skipIngest aborts the ingest transaction without an error result.
type skipIngest struct {
	outcome IngestOutcome
}

func (s skipIngest) Error() string { return "ingest skipped: " + string(s.outcome) }

// IngestWebhook runs the full webhook pipeline for one verified delivery:
// normalize, resolve repository and owner, dedup the delivery, create the
// review and detach the analysis fan-out. Signature verification already
// happened at the transport; payloads that reach here are authentic.
//
// Repository resolution commits on its own: a skipped or failed delivery
// must still leave the repository record behind, it is idempotent either
// way. The delivery record and the review row share one transaction, so a
// half-ingested delivery leaves no dedup marker and the provider's retry
// gets a clean second attempt.
func (s *Service) IngestWebhook(ctx context.Context, provider domainreview.Provider, eventType string, deliveryID string, payload []byte) (IngestResult, error) {
	event, ok, err := Normalize(provider, eventType, payload)
	if err != nil {
		if errors.Is(err, errMalformedPayload) {
			// A broken body stays broken on redelivery; acknowledge it so
			// the provider stops retrying.
			logging.Warn(ctx, "webhook payload malformed",
				slog.String("provider", string(provider)),
				slog.String("event_type", eventType),
				slog.Any("err", errs.Loggable(err)))
			return IngestResult{Outcome: OutcomeMalformedPayload}, nil
		}
		return IngestResult{}, errs.Wrap(err, "normalize webhook")
	}
	if !ok {
		logging.Info(ctx, "webhook ignored",
			slog.String("provider", string(provider)),
			slog.String("event_type", eventType))
		return IngestResult{Outcome: OutcomeIgnoredEvent}, nil
	}
	event.DeliveryID = deliveryID

	repo, err := s.resolveRepository(ctx, event)
	if err != nil {
		return IngestResult{}, err
	}

	owner, err := s.users.FindRepositoryOwner(ctx, repo.ID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			// Nobody to attribute the review to; the repository is known
			// but unclaimed. Skip without failing the delivery.
			logging.Warn(ctx, "no owner for repository, skipping review",
				slog.String("repository", repo.FullName))
			return IngestResult{Outcome: OutcomeNoOwner}, nil
		}
		return IngestResult{}, errs.Wrap(err, "find repository owner")
	}

	var created ports.Review
	err = s.uow.WithTx(ctx, func(ctx context.Context) error {
		if event.DeliveryID != "" {
			if err := s.deliveries.Record(ctx, provider, event.DeliveryID); err != nil {
				if errors.Is(err, ports.ErrDuplicateDelivery) {
					return skipIngest{outcome: OutcomeDuplicateDelivery}
				}
				return errs.Wrap(err, "record webhook delivery")
			}
		}

		var err error
		created, err = s.createReviewRecord(ctx, CreateReviewInput{
			RepositoryID: repo.ID,
			UserID:       owner.ID,
			Branch:       event.Branch,
			CommitSHA:    event.CommitSHA,
			PRNumber:     event.PRNumber,
			Title:        event.Title,
			Description:  event.Description,
		})
		return err
	})
	if err != nil {
		var skip skipIngest
		if errors.As(err, &skip) {
			if skip.outcome == OutcomeDuplicateDelivery {
				logging.Info(ctx, "webhook delivery already processed",
					slog.String("provider", string(provider)),
					slog.String("delivery_id", event.DeliveryID))
			}
			return IngestResult{Outcome: skip.outcome}, nil
		}
		return IngestResult{}, err
	}

	s.detachAnalysis(ctx, created, repo)
	return IngestResult{Outcome: OutcomeAccepted, ReviewID: created.ID}, nil
}

type CreateReviewInput struct {
	RepositoryID string
	UserID       string
	Branch       string
	CommitSHA    string
	PRNumber     int
	Title        string
	Description  string
}

// CreateReview starts a review on explicit request (the API path, as
// opposed to webhook ingestion). The caller names repository, user, branch
// and commit directly.
func (s *Service) CreateReview(ctx context.Context, input CreateReviewInput) (ports.Review, error) {
	if input.RepositoryID == "" {
		return ports.Review{}, errRepositoryRequired
	}
	if input.UserID == "" {
		return ports.Review{}, errUserRequired
	}

	repo, err := s.repos.GetByID(ctx, input.RepositoryID)
	if err != nil {
		return ports.Review{}, errs.Wrap(err, "look up repository")
	}
	if _, err := s.users.Get(ctx, input.UserID); err != nil {
		return ports.Review{}, errs.Wrap(err, "look up user")
	}

	created, err := s.createReviewRecord(ctx, input)
	if err != nil {
		return ports.Review{}, err
	}

	s.detachAnalysis(ctx, created, repo)
	return created, nil
}

func (s *Service) createReviewRecord(ctx context.Context, input CreateReviewInput) (ports.Review, error) {
	if input.Branch == "" {
		return ports.Review{}, errBranchRequired
	}
	if input.CommitSHA == "" {
		return ports.Review{}, errCommitRequired
	}

	title := input.Title
	if title == "" {
		title = "Review: " + input.Branch
	}

	created, err := s.reviews.Create(ctx, ports.ReviewCreate{
		ID:           uuid.NewString(),
		RepositoryID: input.RepositoryID,
		UserID:       input.UserID,
		Branch:       input.Branch,
		CommitSHA:    input.CommitSHA,
		PRNumber:     input.PRNumber,
		Title:        title,
		Description:  input.Description,
	})
	if err != nil {
		return ports.Review{}, errs.Wrap(err, "create review")
	}
	return created, nil
}

// detachAnalysis hands the review to the analysis pipeline on a fresh
// context; the webhook request finishing must not cancel the run.
func (s *Service) detachAnalysis(ctx context.Context, rec ports.Review, repo ports.Repository) {
	logging.Info(ctx, "review started",
		slog.String("review_id", rec.ID),
		slog.String("repository", repo.FullName),
		slog.String("branch", rec.Branch),
		slog.String("commit", rec.CommitSHA))

	logger := logging.Logger(ctx)
	s.spawn(func() {
		bg := logging.WithLogger(context.Background(), logger)
		bg = logging.WithAttrs(bg, slog.String("review_id", rec.ID))
		s.analyzeAndRecord(bg, rec, repo)
	})
}
