package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/log"
)

// EntitlementState is the tri-state result of a subscription evaluation.
type EntitlementState int

const (
	EntitlementLoading EntitlementState = iota
	Entitled
	NotEntitled
)

func (s EntitlementState) String() string {
	switch s {
	case EntitlementLoading:
		return "loading"
	case Entitled:
		return "entitled"
	case NotEntitled:
		return "not_entitled"
	default:
		return "unknown"
	}
}

// GenerationSource reports the generation counter of the current identity.
// The aggregator implements it.
type GenerationSource interface {
	Generation() uint64
}

// SubscriptionGate resolves premium entitlement for the current mapped id
// from the most recently created subscription record. Every fetch failure
// resolves to NotEntitled: a feature is never granted on an error path.
type SubscriptionGate struct {
	subs    domain.SubscriptionRepository
	gens    GenerationSource
	logger  log.Logger
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	mappedID string
	state    EntitlementState
}

// NewSubscriptionGate wires the gate.
func NewSubscriptionGate(subs domain.SubscriptionRepository, gens GenerationSource, logger log.Logger, timeout time.Duration) *SubscriptionGate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SubscriptionGate{
		subs:    subs,
		gens:    gens,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
		state:   NotEntitled,
	}
}

// State returns the mapped id and entitlement of the last committed
// evaluation.
func (g *SubscriptionGate) State() (string, EntitlementState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mappedID, g.state
}

// Refresh re-evaluates entitlement for the given mapped id. generation must
// be the generation the observation was issued for; a completion whose
// generation is no longer current is discarded instead of applied, so a slow
// fetch for a previous identity can never overwrite the current one's state.
func (g *SubscriptionGate) Refresh(ctx context.Context, mappedID string, generation uint64) EntitlementState {
	g.begin(mappedID, generation)

	decision := g.evaluate(ctx, mappedID)
	return g.commit(mappedID, generation, decision)
}

func (g *SubscriptionGate) begin(mappedID string, generation uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stale(generation) {
		return
	}
	g.mappedID = mappedID
	g.state = EntitlementLoading
}

func (g *SubscriptionGate) evaluate(ctx context.Context, mappedID string) EntitlementState {
	if mappedID == "" {
		return NotEntitled
	}

	fetchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	sub, err := g.subs.LatestByProfileID(fetchCtx, mappedID)
	if err != nil {
		if !errors.Is(err, domain.ErrSubscriptionNotFound) {
			g.logger.Warn(ctx, "subscription fetch failed, failing closed", map[string]interface{}{
				"mapped_id": mappedID,
				"error":     err.Error(),
			})
		}
		return NotEntitled
	}
	if sub.Entitles(g.now()) {
		return Entitled
	}
	return NotEntitled
}

func (g *SubscriptionGate) commit(mappedID string, generation uint64, decision EntitlementState) EntitlementState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stale(generation) {
		// Identity changed while the fetch was in flight; the result is for
		// a previous user and must not be applied.
		return g.state
	}
	g.mappedID = mappedID
	g.state = decision
	return g.state
}

// stale reports whether the identity has moved past the given generation.
// Callers hold g.mu.
func (g *SubscriptionGate) stale(generation uint64) bool {
	return g.gens != nil && g.gens.Generation() != generation
}
