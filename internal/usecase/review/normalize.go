package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainreview "reviewdeck/internal/domain/review"
)

// errMalformedPayload marks deliveries whose body cannot be decoded.
// Providers redeliver on error responses, so an undecodable body must be
// acknowledged and dropped, never failed.
var errMalformedPayload = errors.New("malformed webhook payload")

// Normalize maps one provider's webhook payload into the canonical event
// shape. shouldProcess=false means the event is intentionally ignored
// (wrong action, default-branch push, unrecognized type) and the delivery
// must still be acknowledged with 200 so the provider does not retry it.
func Normalize(provider domainreview.Provider, eventType string, payload []byte) (domainreview.NormalizedEvent, bool, error) {
	switch provider {
	case domainreview.ProviderGitHub:
		return normalizeGitHub(eventType, payload)
	case domainreview.ProviderGitLab:
		return normalizeGitLab(eventType, payload)
	case domainreview.ProviderBitbucket:
		return normalizeBitbucket(payload)
	default:
		return domainreview.NormalizedEvent{}, false, fmt.Errorf("unknown provider %q", provider)
	}
}

type githubRepository struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Language      string `json:"language"`
}

type githubPullRequestEvent struct {
	Action      string `json:"action"`
	PullRequest struct {
		Title  string `json:"title"`
		Body   string `json:"body"`
		Number int    `json:"number"`
		Head   struct {
			SHA string `json:"sha"`
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository githubRepository `json:"repository"`
}

type githubPushEvent struct {
	Ref        string            `json:"ref"`
	After      string            `json:"after"`
	Commits    []json.RawMessage `json:"commits"`
	Repository githubRepository  `json:"repository"`
}

func normalizeGitHub(eventType string, payload []byte) (domainreview.NormalizedEvent, bool, error) {
	switch eventType {
	case "pull_request":
		var event githubPullRequestEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return domainreview.NormalizedEvent{}, false, fmt.Errorf("%w: decode github pull_request payload: %v", errMalformedPayload, err)
		}

		if event.Action != "opened" && event.Action != "synchronize" {
			return domainreview.NormalizedEvent{}, false, nil
		}

		return domainreview.NormalizedEvent{
			Provider:      domainreview.ProviderGitHub,
			ExternalID:    fmt.Sprintf("%d", event.Repository.ID),
			FullName:      event.Repository.FullName,
			URL:           event.Repository.HTMLURL,
			DefaultBranch: event.Repository.DefaultBranch,
			IsPublic:      !event.Repository.Private,
			Language:      event.Repository.Language,
			Branch:        event.PullRequest.Head.Ref,
			CommitSHA:     event.PullRequest.Head.SHA,
			PRNumber:      event.PullRequest.Number,
			Title:         "Review: " + event.PullRequest.Title,
			Description:   event.PullRequest.Body,
		}, true, nil

	case "push":
		var event githubPushEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return domainreview.NormalizedEvent{}, false, fmt.Errorf("%w: decode github push payload: %v", errMalformedPayload, err)
		}

		if len(event.Commits) == 0 {
			return domainreview.NormalizedEvent{}, false, nil
		}
		branch := strings.TrimPrefix(event.Ref, "refs/heads/")
		if branch == event.Repository.DefaultBranch {
			// Reviews happen pre-merge; a merge to the default branch must
			// not trigger a second review storm.
			return domainreview.NormalizedEvent{}, false, nil
		}

		return domainreview.NormalizedEvent{
			Provider:      domainreview.ProviderGitHub,
			ExternalID:    fmt.Sprintf("%d", event.Repository.ID),
			FullName:      event.Repository.FullName,
			URL:           event.Repository.HTMLURL,
			DefaultBranch: event.Repository.DefaultBranch,
			IsPublic:      !event.Repository.Private,
			Language:      event.Repository.Language,
			Branch:        branch,
			CommitSHA:     event.After,
			Title:         "Review: Push to " + branch,
			Description:   fmt.Sprintf("Push with %d commits", len(event.Commits)),
		}, true, nil

	default:
		return domainreview.NormalizedEvent{}, false, nil
	}
}

type gitlabProject struct {
	ID                int64  `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
	DefaultBranch     string `json:"default_branch"`
	Visibility        string `json:"visibility"`
}

type gitlabMergeRequestEvent struct {
	ObjectAttributes struct {
		Action       string `json:"action"`
		IID          int    `json:"iid"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		SourceBranch string `json:"source_branch"`
		LastCommit   struct {
			ID string `json:"id"`
		} `json:"last_commit"`
	} `json:"object_attributes"`
	Project gitlabProject `json:"project"`
}

type gitlabPushEvent struct {
	Ref     string            `json:"ref"`
	After   string            `json:"after"`
	Commits []json.RawMessage `json:"commits"`
	Project gitlabProject     `json:"project"`
}

func normalizeGitLab(eventType string, payload []byte) (domainreview.NormalizedEvent, bool, error) {
	switch eventType {
	case "Merge Request Hook":
		var event gitlabMergeRequestEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return domainreview.NormalizedEvent{}, false, fmt.Errorf("%w: decode gitlab merge request payload: %v", errMalformedPayload, err)
		}

		if event.ObjectAttributes.Action != "open" && event.ObjectAttributes.Action != "update" {
			return domainreview.NormalizedEvent{}, false, nil
		}

		return domainreview.NormalizedEvent{
			Provider:      domainreview.ProviderGitLab,
			ExternalID:    fmt.Sprintf("%d", event.Project.ID),
			FullName:      event.Project.PathWithNamespace,
			URL:           event.Project.WebURL,
			DefaultBranch: event.Project.DefaultBranch,
			IsPublic:      event.Project.Visibility == "public",
			Branch:        event.ObjectAttributes.SourceBranch,
			CommitSHA:     event.ObjectAttributes.LastCommit.ID,
			PRNumber:      event.ObjectAttributes.IID,
			Title:         "Review: " + event.ObjectAttributes.Title,
			Description:   event.ObjectAttributes.Description,
		}, true, nil

	case "Push Hook":
		var event gitlabPushEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return domainreview.NormalizedEvent{}, false, fmt.Errorf("%w: decode gitlab push payload: %v", errMalformedPayload, err)
		}

		if len(event.Commits) == 0 {
			return domainreview.NormalizedEvent{}, false, nil
		}
		branch := strings.TrimPrefix(event.Ref, "refs/heads/")
		if branch == event.Project.DefaultBranch {
			return domainreview.NormalizedEvent{}, false, nil
		}

		return domainreview.NormalizedEvent{
			Provider:      domainreview.ProviderGitLab,
			ExternalID:    fmt.Sprintf("%d", event.Project.ID),
			FullName:      event.Project.PathWithNamespace,
			URL:           event.Project.WebURL,
			DefaultBranch: event.Project.DefaultBranch,
			IsPublic:      event.Project.Visibility == "public",
			Branch:        branch,
			CommitSHA:     event.After,
			Title:         "Review: Push to " + branch,
			Description:   fmt.Sprintf("Push with %d commits", len(event.Commits)),
		}, true, nil

	default:
		return domainreview.NormalizedEvent{}, false, nil
	}
}

type bitbucketRepository struct {
	UUID     string `json:"uuid"`
	FullName string `json:"full_name"`
	Links    struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
	MainBranch struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
	IsPrivate bool   `json:"is_private"`
	Language  string `json:"language"`
}

// Bitbucket sends no discriminating event-type header; the payload shape
// itself carries the event type.
type bitbucketEvent struct {
	PullRequest *struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Source      struct {
			Branch struct {
				Name string `json:"name"`
			} `json:"branch"`
			Commit struct {
				Hash string `json:"hash"`
			} `json:"commit"`
		} `json:"source"`
	} `json:"pullrequest"`
	Push *struct {
		Changes []struct {
			New struct {
				Name   string `json:"name"`
				Target struct {
					Hash string `json:"hash"`
				} `json:"target"`
			} `json:"new"`
		} `json:"changes"`
	} `json:"push"`
	Repository bitbucketRepository `json:"repository"`
}

func normalizeBitbucket(payload []byte) (domainreview.NormalizedEvent, bool, error) {
	var event bitbucketEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domainreview.NormalizedEvent{}, false, fmt.Errorf("%w: decode bitbucket payload: %v", errMalformedPayload, err)
	}

	base := domainreview.NormalizedEvent{
		Provider:      domainreview.ProviderBitbucket,
		ExternalID:    event.Repository.UUID,
		FullName:      event.Repository.FullName,
		URL:           event.Repository.Links.HTML.Href,
		DefaultBranch: event.Repository.MainBranch.Name,
		IsPublic:      !event.Repository.IsPrivate,
		Language:      event.Repository.Language,
	}

	switch {
	case event.PullRequest != nil:
		base.Branch = event.PullRequest.Source.Branch.Name
		base.CommitSHA = event.PullRequest.Source.Commit.Hash
		base.PRNumber = event.PullRequest.ID
		base.Title = "Review: " + event.PullRequest.Title
		base.Description = event.PullRequest.Description
		return base, true, nil

	case event.Push != nil:
		if len(event.Push.Changes) == 0 {
			return domainreview.NormalizedEvent{}, false, nil
		}
		change := event.Push.Changes[0]
		if change.New.Name == event.Repository.MainBranch.Name {
			return domainreview.NormalizedEvent{}, false, nil
		}
		base.Branch = change.New.Name
		base.CommitSHA = change.New.Target.Hash
		base.Title = "Review: Push to " + change.New.Name
		base.Description = "Push with changes"
		return base, true, nil

	default:
		return domainreview.NormalizedEvent{}, false, nil
	}
}
