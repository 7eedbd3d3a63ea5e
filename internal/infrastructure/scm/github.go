package scm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"reviewdeck/internal/bootstrap/config"
	"reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

type GitHubClient struct {
	client *github.Client
}

var _ ports.SCMClient = (*GitHubClient)(nil)

func NewGitHubClient(cfg config.ProviderConfig) *GitHubClient {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	))

	client := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		// GitHub Enterprise; errors only on malformed URLs, which config
		// validation should have caught.
		if enterprise, err := client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL); err == nil {
			client = enterprise
		}
	}

	return &GitHubClient{client: client}
}

func (c *GitHubClient) Provider() review.Provider {
	return review.ProviderGitHub
}

func (c *GitHubClient) ListPullRequestFiles(ctx context.Context, repo ports.RepoRef, prNumber int) ([]review.ChangedFile, error) {
	owner, name, err := splitFullName(repo.FullName)
	if err != nil {
		return nil, err
	}

	var files []review.ChangedFile
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.client.PullRequests.ListFiles(ctx, owner, name, prNumber, opts)
		if err != nil {
			return nil, errs.Wrapf(err, "list files for %s#%d", repo.FullName, prNumber)
		}
		for _, f := range page {
			files = append(files, mapGitHubFile(f))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

func (c *GitHubClient) ListCommitFiles(ctx context.Context, repo ports.RepoRef, sha string) ([]review.ChangedFile, error) {
	owner, name, err := splitFullName(repo.FullName)
	if err != nil {
		return nil, err
	}

	var files []review.ChangedFile
	opts := &github.ListOptions{PerPage: 100}
	for {
		commit, resp, err := c.client.Repositories.GetCommit(ctx, owner, name, sha, opts)
		if err != nil {
			return nil, errs.Wrapf(err, "get commit %s@%s", repo.FullName, sha)
		}
		for _, f := range commit.Files {
			files = append(files, mapGitHubFile(f))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

func (c *GitHubClient) GetFileContent(ctx context.Context, repo ports.RepoRef, path string, ref string) (string, error) {
	owner, name, err := splitFullName(repo.FullName)
	if err != nil {
		return "", err
	}

	file, _, _, err := c.client.Repositories.GetContents(ctx, owner, name, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", errs.Wrapf(err, "get content %s:%s@%s", repo.FullName, path, ref)
	}
	if file == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", errs.Wrapf(err, "decode content %s", path)
	}
	return content, nil
}

func mapGitHubFile(f *github.CommitFile) review.ChangedFile {
	return review.ChangedFile{
		Path:      f.GetFilename(),
		Status:    review.FileStatus(f.GetStatus()),
		Additions: f.GetAdditions(),
		Deletions: f.GetDeletions(),
	}
}

func splitFullName(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("malformed repository full name %q", fullName)
	}
	return owner, name, nil
}
