package review

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

// resolveRepository finds the repository record for a normalized event or
// creates it on first sighting. Lookup order: (provider, external_id),
// then (provider, full_name) for rows recorded before the provider ID was
// captured, which get the ID backfilled instead of a second row.
// Concurrent first-sightings are resolved by the unique
// (provider, external_id) index: the loser of the create race re-fetches
// the winner's row.
func (s *Service) resolveRepository(ctx context.Context, event domainreview.NormalizedEvent) (ports.Repository, error) {
	repo, err := s.repos.GetByExternalID(ctx, event.Provider, event.ExternalID)
	if err == nil {
		return s.refreshMetadata(ctx, repo, event)
	}
	if !errors.Is(err, ports.ErrRepositoryNotFound) {
		return ports.Repository{}, errs.Wrap(err, "look up repository")
	}

	repo, err = s.repos.GetByFullName(ctx, event.Provider, event.FullName)
	if err == nil {
		if repo.ExternalID != event.ExternalID {
			if err := s.repos.SetExternalID(ctx, repo.ID, event.ExternalID); err != nil {
				return ports.Repository{}, errs.Wrap(err, "backfill repository external id")
			}
			repo.ExternalID = event.ExternalID
		}
		return s.refreshMetadata(ctx, repo, event)
	}
	if !errors.Is(err, ports.ErrRepositoryNotFound) {
		return ports.Repository{}, errs.Wrap(err, "look up repository by name")
	}

	created, err := s.repos.Create(ctx, ports.RepositoryCreate{
		ID:            uuid.NewString(),
		Provider:      event.Provider,
		ExternalID:    event.ExternalID,
		Name:          repositoryName(event.FullName),
		FullName:      event.FullName,
		URL:           event.URL,
		DefaultBranch: event.DefaultBranch,
		IsPrivate:     !event.IsPublic,
		Language:      event.Language,
	})
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ports.ErrDuplicateRepository) {
		return ports.Repository{}, errs.Wrap(err, "create repository")
	}

	// Lost the race; someone else inserted the same repository between our
	// lookup and create.
	repo, err = s.repos.GetByExternalID(ctx, event.Provider, event.ExternalID)
	if err != nil {
		return ports.Repository{}, errs.Wrap(err, "re-fetch repository after create race")
	}
	return repo, nil
}

// refreshMetadata folds the webhook's view of mutable repository fields
// into an existing record. Default branch, visibility and primary language
// all drift over a repository's lifetime.
func (s *Service) refreshMetadata(ctx context.Context, repo ports.Repository, event domainreview.NormalizedEvent) (ports.Repository, error) {
	meta := ports.RepositoryMetadata{
		DefaultBranch: event.DefaultBranch,
		IsPrivate:     !event.IsPublic,
		Language:      event.Language,
	}
	if meta.DefaultBranch == repo.DefaultBranch &&
		meta.IsPrivate == repo.IsPrivate &&
		(meta.Language == repo.Language || meta.Language == "") {
		return repo, nil
	}

	if err := s.repos.UpdateMetadata(ctx, repo.ID, meta); err != nil {
		return ports.Repository{}, errs.Wrap(err, "refresh repository metadata")
	}

	repo.DefaultBranch = meta.DefaultBranch
	repo.IsPrivate = meta.IsPrivate
	if meta.Language != "" {
		repo.Language = meta.Language
	}
	return repo, nil
}

func repositoryName(fullName string) string {
	if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}
