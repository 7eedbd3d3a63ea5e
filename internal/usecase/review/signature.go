package review

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
)

// WebhookSecrets carries the per-provider webhook authentication material.
// An empty secret disables verification for that provider. That is a
// deliberate operational fallback and is flagged at startup, not here.
type WebhookSecrets struct {
	GitHubSecret string
	GitLabToken  string
}

// VerifySignature authenticates a webhook delivery against the raw,
// unparsed request body. It must run before any body parsing with side
// effects. A nil return means the delivery is authentic (or verification is
// disabled); any error maps to a 401 with no further processing.
func VerifySignature(provider domainreview.Provider, rawBody []byte, header string, secrets WebhookSecrets) error {
	switch provider {
	case domainreview.ProviderGitHub:
		return verifyGitHubSignature(secrets.GitHubSecret, header, rawBody)
	case domainreview.ProviderGitLab:
		return verifyGitLabToken(secrets.GitLabToken, header)
	case domainreview.ProviderBitbucket:
		// Bitbucket has no first-class signature scheme; a deployer may
		// layer a custom one in front of this service.
		return nil
	default:
		return errors.New("unknown provider")
	}
}

func verifyGitHubSignature(secret string, signatureHeader string, payload []byte) error {
	normalizedSecret := strings.TrimSpace(secret)
	if normalizedSecret == "" {
		return nil
	}

	signature := strings.TrimSpace(signatureHeader)
	if signature == "" {
		return errors.New("missing X-Hub-Signature-256")
	}

	const prefix = "sha256="
	if len(signature) <= len(prefix) || !strings.EqualFold(signature[:len(prefix)], prefix) {
		return errors.New("invalid X-Hub-Signature-256 format")
	}

	decoded, err := hex.DecodeString(strings.TrimSpace(signature[len(prefix):]))
	if err != nil {
		return errors.New("invalid X-Hub-Signature-256 digest")
	}

	mac := hmac.New(sha256.New, []byte(normalizedSecret))
	if _, err := mac.Write(payload); err != nil {
		return errs.Wrap(err, "compute webhook signature")
	}

	if !hmac.Equal(decoded, mac.Sum(nil)) {
		return errors.New("invalid X-Hub-Signature-256")
	}
	return nil
}

func verifyGitLabToken(secret string, tokenHeader string) error {
	normalizedSecret := strings.TrimSpace(secret)
	if normalizedSecret == "" {
		return nil
	}

	token := strings.TrimSpace(tokenHeader)
	if token == "" {
		return errors.New("missing X-Gitlab-Token")
	}
	if !hmac.Equal([]byte(token), []byte(normalizedSecret)) {
		return errors.New("invalid X-Gitlab-Token")
	}
	return nil
}
