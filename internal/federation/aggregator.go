package federation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/idmap"
	"github.com/prepstack/identity-core/log"
)

// Readiness is the tri-state readiness of the aggregate auth view.
type Readiness int

const (
	ReadinessLoading Readiness = iota
	ReadinessUnauthenticated
	ReadinessAuthenticated
)

func (r Readiness) String() string {
	switch r {
	case ReadinessLoading:
		return "loading"
	case ReadinessUnauthenticated:
		return "unauthenticated"
	case ReadinessAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Source tags which provider an observation resolved from.
type Source int

const (
	SourceNone Source = iota
	SourcePrimary
	SourceSecondary
)

// AuthSnapshot is the single normalized shape both identity sources resolve
// into, evaluated fresh on every observation.
type AuthSnapshot struct {
	Source      Source
	Readiness   Readiness
	ExternalID  string
	MappedID    uuid.UUID
	DisplayName string
	Email       string
	AvatarURL   string
	Role        domain.Role
	Marker      Marker
	// Generation identifies the identity this snapshot was taken for. A
	// completion tagged with a stale generation must be discarded.
	Generation uint64
}

// Authenticated reports a resolved, signed-in snapshot.
func (s AuthSnapshot) Authenticated() bool {
	return s.Readiness == ReadinessAuthenticated
}

// IsAdmin reports whether the resolved role is admin.
func (s AuthSnapshot) IsAdmin() bool { return s.Role == domain.RoleAdmin }

// IsStudent reports whether the resolved role is student.
func (s AuthSnapshot) IsStudent() bool { return s.Role == domain.RoleStudent }

// Aggregator unifies the two identity providers behind one observation
// surface. Precedence: while the primary provider has not loaded, the
// aggregate is loading; once loaded, a present primary identity is
// authoritative; otherwise the secondary provider's own state applies.
type Aggregator struct {
	primary   PrimaryProvider
	secondary SecondaryProvider
	profiles  domain.ProfileRepository
	roles     *RoleResolver
	markers   *MarkerStore
	logger    log.Logger
	timeout   time.Duration

	mu             sync.Mutex
	lastExternalID string
	generation     uint64
}

// NewAggregator wires the aggregator. markers may be shared with the guard;
// profiles backs the role predicates so they reflect the synchronized
// profile record instead of a constant.
func NewAggregator(
	primary PrimaryProvider,
	secondary SecondaryProvider,
	profiles domain.ProfileRepository,
	roles *RoleResolver,
	markers *MarkerStore,
	logger log.Logger,
	timeout time.Duration,
) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{
		primary:   primary,
		secondary: secondary,
		profiles:  profiles,
		roles:     roles,
		markers:   markers,
		logger:    logger,
		timeout:   timeout,
	}
}

// Generation returns the generation counter of the current identity.
func (a *Aggregator) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// noteIdentity bumps the generation when the observed external identity
// differs from the previous observation.
func (a *Aggregator) noteIdentity(externalID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if externalID != a.lastExternalID {
		a.lastExternalID = externalID
		a.generation++
	}
	return a.generation
}

// Observe resolves the current aggregate auth state. While the primary
// provider has not finished loading, the snapshot is loading and carries no
// identity; the generation is left untouched so in-flight work for the
// previous identity is neither confirmed nor discarded prematurely.
func (a *Aggregator) Observe(ctx context.Context) (AuthSnapshot, error) {
	marker := a.markers.Read()

	p := a.primary.Snapshot()
	if !p.Loaded {
		return AuthSnapshot{
			Readiness:  ReadinessLoading,
			Marker:     marker,
			Generation: a.Generation(),
		}, nil
	}

	if p.UserID != "" {
		return a.observePrimary(ctx, p, marker)
	}

	var s SecondarySnapshot
	if a.secondary != nil {
		s = a.secondary.Snapshot()
	}
	if s.Authenticated && s.User != nil {
		return a.observeSecondary(ctx, s, marker)
	}

	return AuthSnapshot{
		Readiness:   ReadinessUnauthenticated,
		Role:        domain.RoleNone,
		DisplayName: marker.Username,
		Marker:      marker,
		Generation:  a.noteIdentity(""),
	}, nil
}

func (a *Aggregator) observePrimary(ctx context.Context, p PrimarySnapshot, marker Marker) (AuthSnapshot, error) {
	mapped, err := idmap.Map(p.UserID)
	if err != nil {
		a.logger.Error(ctx, "identity mapping failed for primary user", err, map[string]interface{}{
			"provider_user_id": p.UserID,
		})
		return AuthSnapshot{}, err
	}

	snap := AuthSnapshot{
		Source:     SourcePrimary,
		Readiness:  ReadinessAuthenticated,
		ExternalID: p.UserID,
		MappedID:   mapped,
		Marker:     marker,
		Generation: a.noteIdentity(p.UserID),
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	identity, err := a.primary.FetchIdentity(fetchCtx)
	if err != nil {
		// Degraded: ids remain usable, display fields stay empty.
		a.logger.Warn(ctx, "failed to fetch primary identity", map[string]interface{}{
			"provider_user_id": p.UserID,
			"error":            err.Error(),
		})
	} else if identity != nil {
		snap.DisplayName = identity.DisplayName
		snap.Email = identity.Email
		snap.AvatarURL = identity.AvatarURL
	}

	snap.Role = a.resolveRole(ctx, mapped.String(), snap.Email)
	return snap, nil
}

func (a *Aggregator) observeSecondary(ctx context.Context, s SecondarySnapshot, marker Marker) (AuthSnapshot, error) {
	mapped, err := idmap.Map(s.User.ID)
	if err != nil {
		a.logger.Error(ctx, "identity mapping failed for legacy user", err, map[string]interface{}{
			"legacy_user_id": s.User.ID,
		})
		return AuthSnapshot{}, err
	}

	snap := AuthSnapshot{
		Source:      SourceSecondary,
		Readiness:   ReadinessAuthenticated,
		ExternalID:  s.User.ID,
		MappedID:    mapped,
		DisplayName: s.User.Name,
		Email:       s.User.Email,
		Marker:      marker,
		Generation:  a.noteIdentity(s.User.ID),
	}
	snap.Role = a.resolveRole(ctx, mapped.String(), s.User.Email)
	return snap, nil
}

// resolveRole reads the role from the synchronized profile record. When no
// profile exists yet the fixed operator-email rule applies to the account
// email, which is the same rule the synchronizer used to fill the record.
func (a *Aggregator) resolveRole(ctx context.Context, mappedID, email string) domain.Role {
	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	profile, err := a.profiles.GetByID(lookupCtx, mappedID)
	if err == nil && profile != nil {
		return profile.Role
	}
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		a.logger.Warn(ctx, "profile lookup failed during role resolution", map[string]interface{}{
			"mapped_id": mappedID,
			"error":     err.Error(),
		})
	}
	if email == "" {
		return domain.RoleNone
	}
	return a.roles.Resolve(email)
}
