package ports

import (
	"context"
	"errors"
	"time"

	"reviewdeck/internal/domain/review"
)

var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrReviewNotFound     = errors.New("review not found")
	ErrFindingNotFound    = errors.New("finding not found")
	ErrUserNotFound       = errors.New("user not found")

	// ErrDuplicateRepository is returned when a create loses the race
	// against a concurrent first-sighting of the same repository. Callers
	// re-fetch and use the winner.
	ErrDuplicateRepository = errors.New("repository already exists")

	// ErrDuplicateDelivery is returned when a webhook delivery ID has
	// already been recorded for the provider.
	ErrDuplicateDelivery = errors.New("webhook delivery already recorded")

	// ErrReviewTerminal is returned by writes against a review that has
	// already reached COMPLETED or FAILED.
	ErrReviewTerminal = errors.New("review is in a terminal state")
)

type Repository struct {
	ID            string
	Provider      review.Provider
	ExternalID    string
	Name          string
	FullName      string
	URL           string
	DefaultBranch string
	IsPrivate     bool
	Language      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RepositoryCreate struct {
	ID            string
	Provider      review.Provider
	ExternalID    string
	Name          string
	FullName      string
	URL           string
	DefaultBranch string
	IsPrivate     bool
	Language      string
}

type RepositoryMetadata struct {
	DefaultBranch string
	IsPrivate     bool
	Language      string
}

type RepositoryStore interface {
	GetByExternalID(ctx context.Context, provider review.Provider, externalID string) (Repository, error)
	GetByFullName(ctx context.Context, provider review.Provider, fullName string) (Repository, error)
	GetByID(ctx context.Context, id string) (Repository, error)
	Create(ctx context.Context, input RepositoryCreate) (Repository, error)
	UpdateMetadata(ctx context.Context, id string, meta RepositoryMetadata) error

	// SetExternalID backfills the provider's ID onto a repository that was
	// first recorded by name only, or whose ID changed upstream.
	SetExternalID(ctx context.Context, id string, externalID string) error
}

type Review struct {
	ID           string
	RepositoryID string
	UserID       string
	Branch       string
	CommitSHA    string
	PRNumber     int
	Title        string
	Description  string
	Status       review.Status
	Score        *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ReviewCreate struct {
	ID           string
	RepositoryID string
	UserID       string
	Branch       string
	CommitSHA    string
	PRNumber     int
	Title        string
	Description  string
}

type ReviewFilter struct {
	RepositoryID string
	Status       review.Status
	Page         int
	Limit        int
}

type ReviewStore interface {
	Create(ctx context.Context, input ReviewCreate) (Review, error)
	Get(ctx context.Context, id string) (Review, error)
	List(ctx context.Context, filter ReviewFilter) (items []Review, total int64, err error)

	// Complete and Fail transition an IN_PROGRESS review to its terminal
	// state. Both return ErrReviewTerminal when the review already left
	// IN_PROGRESS; the transition happens at most once.
	Complete(ctx context.Context, id string, score float64) error
	Fail(ctx context.Context, id string) error

	// ListStaleInProgress returns reviews still IN_PROGRESS that were
	// created before the cutoff, for the reaper sweep.
	ListStaleInProgress(ctx context.Context, cutoff time.Time) ([]Review, error)
}

type Finding struct {
	ID          string
	ReviewID    string
	Type        review.FindingType
	Severity    review.Severity
	Title       string
	Description string
	FilePath    string
	StartLine   int
	EndLine     int
	Suggestion  string
	AutoFixable bool
	Fixed       bool
	CreatedAt   time.Time
}

type FindingCreate struct {
	ID          string
	ReviewID    string
	Type        review.FindingType
	Severity    review.Severity
	Title       string
	Description string
	FilePath    string
	StartLine   int
	EndLine     int
	Suggestion  string
	AutoFixable bool
}

type FindingStore interface {
	// CreateBatch inserts findings for a review in one statement. The
	// review must still be IN_PROGRESS; ErrReviewTerminal otherwise.
	CreateBatch(ctx context.Context, reviewID string, findings []FindingCreate) error
	ListByReview(ctx context.Context, reviewID string) ([]Finding, error)
	Get(ctx context.Context, id string) (Finding, error)
	MarkFixed(ctx context.Context, id string) error
}

type User struct {
	ID    string
	Email string
	Name  string
}

type UserStore interface {
	Get(ctx context.Context, id string) (User, error)

	// FindRepositoryOwner resolves a user who owns the repository directly
	// or belongs to an organization that owns it. ErrUserNotFound when no
	// owner is resolvable; callers treat that as skip, not fault.
	FindRepositoryOwner(ctx context.Context, repositoryID string) (User, error)
}

type Comment struct {
	ID        string
	ReviewID  string
	UserID    string
	Content   string
	FilePath  string
	Line      int
	CreatedAt time.Time
}

type CommentCreate struct {
	ID       string
	ReviewID string
	UserID   string
	Content  string
	FilePath string
	Line     int
}

type CommentStore interface {
	Create(ctx context.Context, input CommentCreate) (Comment, error)
	ListByReview(ctx context.Context, reviewID string) ([]Comment, error)
}

type DeliveryStore interface {
	// Record stores a webhook delivery ID; ErrDuplicateDelivery when the
	// (provider, deliveryID) pair was already seen.
	Record(ctx context.Context, provider review.Provider, deliveryID string) error
}
