package review

// NormalizedEvent is the provider-agnostic shape of a review-triggering
// webhook. It carries no identity of its own; it only decouples payload
// normalization from orchestration.
type NormalizedEvent struct {
	Provider      Provider
	ExternalID    string
	FullName      string
	URL           string
	DefaultBranch string
	IsPublic      bool
	Language      string

	Branch      string
	CommitSHA   string
	PRNumber    int
	Title       string
	Description string

	// DeliveryID is the provider's redelivery-stable identifier for this
	// webhook delivery, empty when the provider sends none.
	DeliveryID string
}

// ChangedFile is one file touched by the commit or pull request under
// review. Produced by an SCM client, consumed once by the fan-out engine.
type ChangedFile struct {
	Path      string
	Status    FileStatus
	Additions int
	Deletions int
}

type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileRemoved  FileStatus = "removed"
	FileRenamed  FileStatus = "renamed"
)
