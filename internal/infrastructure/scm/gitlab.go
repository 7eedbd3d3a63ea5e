package scm

import (
	"context"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"reviewdeck/internal/bootstrap/config"
	"reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

type GitLabClient struct {
	client *gitlab.Client
}

var _ ports.SCMClient = (*GitLabClient)(nil)

func NewGitLabClient(cfg config.ProviderConfig) (*GitLabClient, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://gitlab.com"
	}

	client, err := gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(baseURL+"/api/v4"))
	if err != nil {
		return nil, errs.Wrap(err, "create gitlab client")
	}
	return &GitLabClient{client: client}, nil
}

func (c *GitLabClient) Provider() review.Provider {
	return review.ProviderGitLab
}

// projectID prefers the numeric external ID; the URL-encoded path form is
// the fallback for repositories recorded before the ID was captured.
func projectID(repo ports.RepoRef) any {
	if repo.ExternalID != "" {
		return repo.ExternalID
	}
	return repo.FullName
}

func (c *GitLabClient) ListPullRequestFiles(ctx context.Context, repo ports.RepoRef, prNumber int) ([]review.ChangedFile, error) {
	var files []review.ChangedFile
	opts := &gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	for {
		diffs, resp, err := c.client.MergeRequests.ListMergeRequestDiffs(projectID(repo), int64(prNumber), opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, errs.Wrapf(err, "list diffs for %s!%d", repo.FullName, prNumber)
		}
		for _, d := range diffs {
			files = append(files, review.ChangedFile{
				Path:      d.NewPath,
				Status:    gitlabFileStatus(d.NewFile, d.DeletedFile, d.RenamedFile),
				Additions: countDiffLines(d.Diff, "+"),
				Deletions: countDiffLines(d.Diff, "-"),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

func (c *GitLabClient) ListCommitFiles(ctx context.Context, repo ports.RepoRef, sha string) ([]review.ChangedFile, error) {
	var files []review.ChangedFile
	opts := &gitlab.GetCommitDiffOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	for {
		diffs, resp, err := c.client.Commits.GetCommitDiff(projectID(repo), sha, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, errs.Wrapf(err, "get commit diff %s@%s", repo.FullName, sha)
		}
		for _, d := range diffs {
			files = append(files, review.ChangedFile{
				Path:      d.NewPath,
				Status:    gitlabFileStatus(d.NewFile, d.DeletedFile, d.RenamedFile),
				Additions: countDiffLines(d.Diff, "+"),
				Deletions: countDiffLines(d.Diff, "-"),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

func (c *GitLabClient) GetFileContent(ctx context.Context, repo ports.RepoRef, path string, ref string) (string, error) {
	raw, _, err := c.client.RepositoryFiles.GetRawFile(projectID(repo), path, &gitlab.GetRawFileOptions{
		Ref: gitlab.Ptr(ref),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", errs.Wrapf(err, "get raw file %s:%s@%s", repo.FullName, path, ref)
	}
	return string(raw), nil
}

func gitlabFileStatus(newFile, deletedFile, renamedFile bool) review.FileStatus {
	switch {
	case newFile:
		return review.FileAdded
	case deletedFile:
		return review.FileRemoved
	case renamedFile:
		return review.FileRenamed
	default:
		return review.FileModified
	}
}

// countDiffLines counts changed lines in a unified diff body. GitLab's diff
// API does not report per-file stats, so they are derived from the patch.
func countDiffLines(diff string, prefix string) int {
	count := 0
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, prefix) && !strings.HasPrefix(line, prefix+prefix+prefix) {
			count++
		}
	}
	return count
}
