package scm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reviewdeck/internal/bootstrap/config"
	"reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

// BitbucketClient talks to the Bitbucket Cloud 2.0 REST API directly; there
// is no maintained Go client for it.
type BitbucketClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ ports.SCMClient = (*BitbucketClient)(nil)

func NewBitbucketClient(cfg config.ProviderConfig) *BitbucketClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.bitbucket.org/2.0"
	}
	return &BitbucketClient{
		baseURL: baseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *BitbucketClient) Provider() review.Provider {
	return review.ProviderBitbucket
}

type bitbucketDiffStat struct {
	Status       string `json:"status"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	New          *struct {
		Path string `json:"path"`
	} `json:"new"`
	Old *struct {
		Path string `json:"path"`
	} `json:"old"`
}

type bitbucketDiffStatPage struct {
	Values []bitbucketDiffStat `json:"values"`
	Next   string              `json:"next"`
}

func (c *BitbucketClient) ListPullRequestFiles(ctx context.Context, repo ports.RepoRef, prNumber int) ([]review.ChangedFile, error) {
	endpoint := fmt.Sprintf("%s/repositories/%s/pullrequests/%d/diffstat", c.baseURL, repo.FullName, prNumber)
	return c.collectDiffStat(ctx, endpoint)
}

func (c *BitbucketClient) ListCommitFiles(ctx context.Context, repo ports.RepoRef, sha string) ([]review.ChangedFile, error) {
	endpoint := fmt.Sprintf("%s/repositories/%s/diffstat/%s", c.baseURL, repo.FullName, sha)
	return c.collectDiffStat(ctx, endpoint)
}

func (c *BitbucketClient) collectDiffStat(ctx context.Context, endpoint string) ([]review.ChangedFile, error) {
	var files []review.ChangedFile

	for endpoint != "" {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		var page bitbucketDiffStatPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, errs.Wrap(err, "decode diffstat page")
		}

		for _, stat := range page.Values {
			files = append(files, review.ChangedFile{
				Path:      bitbucketPath(stat),
				Status:    bitbucketFileStatus(stat.Status),
				Additions: stat.LinesAdded,
				Deletions: stat.LinesRemoved,
			})
		}
		endpoint = page.Next
	}
	return files, nil
}

func (c *BitbucketClient) GetFileContent(ctx context.Context, repo ports.RepoRef, path string, ref string) (string, error) {
	endpoint := fmt.Sprintf("%s/repositories/%s/src/%s/%s", c.baseURL, repo.FullName, url.PathEscape(ref), path)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *BitbucketClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.Wrap(err, "build bitbucket request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrapf(err, "GET %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bitbucket returned %d for %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(err, "read bitbucket response")
	}
	return body, nil
}

func bitbucketPath(stat bitbucketDiffStat) string {
	if stat.New != nil && stat.New.Path != "" {
		return stat.New.Path
	}
	if stat.Old != nil {
		return stat.Old.Path
	}
	return ""
}

func bitbucketFileStatus(status string) review.FileStatus {
	switch status {
	case "added":
		return review.FileAdded
	case "removed":
		return review.FileRemoved
	case "renamed":
		return review.FileRenamed
	default:
		return review.FileModified
	}
}
