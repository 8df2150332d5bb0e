package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/prepstack/identity-core/domain"
	autherrors "github.com/prepstack/identity-core/errors"
	"github.com/prepstack/identity-core/log"
)

// ProfileSynchronizer ensures exactly one internal identity record exists
// per mapped id. It runs after the session bridge has established a valid
// backing-store session and is safe to invoke repeatedly.
type ProfileSynchronizer struct {
	profiles domain.ProfileRepository
	logger   log.Logger
	timeout  time.Duration
}

// NewProfileSynchronizer wires the synchronizer.
func NewProfileSynchronizer(profiles domain.ProfileRepository, logger log.Logger, timeout time.Duration) *ProfileSynchronizer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProfileSynchronizer{profiles: profiles, logger: logger, timeout: timeout}
}

// ProfileCandidate is the profile derived from the currently authenticated
// identity, used only when no record exists yet.
type ProfileCandidate struct {
	FullName   string
	AvatarURL  string
	Role       domain.Role
	Provenance domain.Provenance
}

// EnsureProfile creates the internal identity record if absent and returns
// the stored record. A lookup hit never overwrites existing fields. A lookup
// error other than not-found aborts without attempting an insert, so a
// transient failure cannot produce duplicate or conflicting records.
func (s *ProfileSynchronizer) EnsureProfile(ctx context.Context, mappedID uuid.UUID, candidate ProfileCandidate) (*domain.Profile, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.profiles.GetByID(opCtx, mappedID.String())
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		s.logger.Error(ctx, "profile lookup failed, aborting sync", err, map[string]interface{}{
			"mapped_id": mappedID.String(),
		})
		return nil, autherrors.ProfileConflict(err)
	}

	profile := &domain.Profile{
		ID:         mappedID.String(),
		FullName:   candidate.FullName,
		AvatarURL:  candidate.AvatarURL,
		Role:       candidate.Role,
		Provenance: candidate.Provenance,
		CreatedAt:  time.Now().UTC(),
	}
	if profile.Role == "" {
		profile.Role = domain.RoleStudent
	}

	if err := s.profiles.Create(opCtx, profile); err != nil {
		if errors.Is(err, domain.ErrProfileExists) {
			// Lost a race with a concurrent sync for the same identity; the
			// stored record wins.
			return s.profiles.GetByID(opCtx, mappedID.String())
		}
		s.logger.Error(ctx, "profile insert failed", err, map[string]interface{}{
			"mapped_id": mappedID.String(),
		})
		return nil, autherrors.ProfileConflict(err)
	}

	s.logger.Info(ctx, "internal identity created", map[string]interface{}{
		"mapped_id":  profile.ID,
		"role":       profile.Role,
		"provenance": profile.Provenance,
	})
	return profile, nil
}
