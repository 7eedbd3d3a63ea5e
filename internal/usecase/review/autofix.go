package review

import (
	"context"
	"errors"

	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

var (
	ErrNotAutoFixable = errors.New("finding is not auto-fixable")
	ErrAlreadyFixed   = errors.New("finding is already fixed")
)

// ApplyAutoFix marks an auto-fixable finding as fixed. The suggested code
// itself is surfaced to the client; applying it to the repository is the
// client's act, this records that it happened.
func (s *Service) ApplyAutoFix(ctx context.Context, findingID string) (ports.Finding, error) {
	finding, err := s.findings.Get(ctx, findingID)
	if err != nil {
		return ports.Finding{}, err
	}

	if !finding.AutoFixable {
		return ports.Finding{}, ErrNotAutoFixable
	}
	if finding.Fixed {
		return ports.Finding{}, ErrAlreadyFixed
	}

	if err := s.findings.MarkFixed(ctx, findingID); err != nil {
		return ports.Finding{}, errs.Wrap(err, "mark finding fixed")
	}
	finding.Fixed = true

	return finding, nil
}
