package review

import (
	"fmt"
	"strings"
)

// Provider identifies the Git hosting service a repository lives on.
type Provider string

const (
	ProviderGitHub    Provider = "GITHUB"
	ProviderGitLab    Provider = "GITLAB"
	ProviderBitbucket Provider = "BITBUCKET"
)

func ParseProvider(raw string) (Provider, error) {
	switch Provider(strings.ToUpper(strings.TrimSpace(raw))) {
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderGitLab:
		return ProviderGitLab, nil
	case ProviderBitbucket:
		return ProviderBitbucket, nil
	default:
		return "", fmt.Errorf("unknown provider %q", raw)
	}
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderGitHub, ProviderGitLab, ProviderBitbucket:
		return true
	default:
		return false
	}
}
