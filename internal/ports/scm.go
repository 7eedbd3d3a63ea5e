package ports

import (
	"context"

	"reviewdeck/internal/domain/review"
)

// RepoRef locates a repository on its provider: FullName is "owner/name",
// ExternalID the provider-native identifier (GitLab project ID, Bitbucket
// repo UUID).
type RepoRef struct {
	FullName   string
	ExternalID string
}

// SCMClient is the common fetch capability over one Git hosting provider's
// REST API. Implementations translate auth headers, pagination and diff
// formats; callers never see provider-specific shapes.
type SCMClient interface {
	Provider() review.Provider

	// ListPullRequestFiles enumerates files changed by a PR/MR.
	ListPullRequestFiles(ctx context.Context, repo RepoRef, prNumber int) ([]review.ChangedFile, error)

	// ListCommitFiles enumerates files changed by a single commit.
	ListCommitFiles(ctx context.Context, repo RepoRef, sha string) ([]review.ChangedFile, error)

	// GetFileContent fetches the file content at ref.
	GetFileContent(ctx context.Context, repo RepoRef, path string, ref string) (string, error)
}

// SCMRegistry selects the SCMClient for a provider once at
// repository-resolution time; the chosen client is threaded through the
// rest of the pipeline.
type SCMRegistry interface {
	Client(provider review.Provider) (SCMClient, error)
}
