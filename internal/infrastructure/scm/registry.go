package scm

import (
	"fmt"

	"reviewdeck/internal/bootstrap/config"
	"reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

// Registry holds one client per configured provider. Selection happens once
// at repository-resolution time; the chosen client is threaded through the
// pipeline instead of re-switching on the provider enum at every call site.
type Registry struct {
	clients map[review.Provider]ports.SCMClient
}

var _ ports.SCMRegistry = (*Registry)(nil)

func NewRegistry(cfg config.ProvidersConfig) (*Registry, error) {
	gitlabClient, err := NewGitLabClient(cfg.GitLab)
	if err != nil {
		return nil, errs.Wrap(err, "build gitlab client")
	}

	return &Registry{
		clients: map[review.Provider]ports.SCMClient{
			review.ProviderGitHub:    NewGitHubClient(cfg.GitHub),
			review.ProviderGitLab:    gitlabClient,
			review.ProviderBitbucket: NewBitbucketClient(cfg.Bitbucket),
		},
	}, nil
}

func (r *Registry) Client(provider review.Provider) (ports.SCMClient, error) {
	client, ok := r.clients[provider]
	if !ok {
		return nil, fmt.Errorf("no scm client for provider %q", provider)
	}
	return client, nil
}
