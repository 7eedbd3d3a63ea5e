package review

import (
	"errors"
	"fmt"

	"reviewdeck/internal/ports"
)

// ErrInvalidInput is the base of all request-validation failures; transports
// map it to a 400.
var ErrInvalidInput = errors.New("invalid input")

var (
	errRepositoryRequired = fmt.Errorf("%w: repository is required", ErrInvalidInput)
	errUserRequired       = fmt.Errorf("%w: user is required", ErrInvalidInput)
	errCommitRequired     = fmt.Errorf("%w: commit sha is required", ErrInvalidInput)
	errBranchRequired     = fmt.Errorf("%w: branch is required", ErrInvalidInput)
)

// Service owns the webhook normalization and review orchestration pipeline:
// it verifies nothing itself (transport does, with VerifySignature), turns
// provider payloads into normalized events, resolves repositories and
// owners, creates reviews, and runs the analysis fan-out.
type Service struct {
	repos      ports.RepositoryStore
	reviews    ports.ReviewStore
	findings   ports.FindingStore
	users      ports.UserStore
	comments   ports.CommentStore
	deliveries ports.DeliveryStore
	uow        ports.UnitOfWork
	cache      ports.Cache
	scms       ports.SCMRegistry
	analyzer   ports.CodeAnalyzer
	publisher  ports.Publisher

	maxConcurrentFiles int

	// spawn detaches the analysis fan-out from the webhook request path.
	// Tests replace it to run the pipeline inline.
	spawn func(fn func())
}

type Deps struct {
	Repositories ports.RepositoryStore
	Reviews      ports.ReviewStore
	Findings     ports.FindingStore
	Users        ports.UserStore
	Comments     ports.CommentStore
	Deliveries   ports.DeliveryStore
	UnitOfWork   ports.UnitOfWork
	Cache        ports.Cache
	SCMs         ports.SCMRegistry
	Analyzer     ports.CodeAnalyzer
	Publisher    ports.Publisher

	MaxConcurrentFiles int
}

func NewService(deps Deps) *Service {
	maxConcurrent := deps.MaxConcurrentFiles
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &Service{
		repos:              deps.Repositories,
		reviews:            deps.Reviews,
		findings:           deps.Findings,
		users:              deps.Users,
		comments:           deps.Comments,
		deliveries:         deps.Deliveries,
		uow:                deps.UnitOfWork,
		cache:              deps.Cache,
		scms:               deps.SCMs,
		analyzer:           deps.Analyzer,
		publisher:          deps.Publisher,
		maxConcurrentFiles: maxConcurrent,
		spawn:              func(fn func()) { go fn() },
	}
}

// Channel returns the pub/sub channel for one review's lifecycle events.
func Channel(reviewID string) string {
	return "review-" + reviewID
}
