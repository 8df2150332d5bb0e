package errors

import (
	"errors"
	"fmt"
)

// Failure classes for the identity core. Components absorb these at their
// boundary: the HTTP guard only ever answers with a generic redirect, never
// with one of these errors.
var (
	// ErrProviderUnavailable marks a failed token exchange or provider call
	// during session bridging. The bridged session is cleared and the user is
	// treated as unauthenticated against the backing store.
	ErrProviderUnavailable = errors.New("identity: provider unavailable")

	// ErrProfileConflict marks a profile lookup failure other than not-found.
	// Synchronization aborts without writing anything.
	ErrProfileConflict = errors.New("identity: profile lookup conflict")

	// ErrSubscriptionFetch marks a failed subscription lookup. Entitlement
	// resolves to false.
	ErrSubscriptionFetch = errors.New("identity: subscription fetch failed")

	// ErrDeterministicMapping marks input the identity mapper cannot derive a
	// stable UUID from. There is deliberately no random fallback: a random id
	// would detach the user from every record keyed by the mapped id.
	ErrDeterministicMapping = errors.New("identity: deterministic mapping failed")
)

// ProviderUnavailable wraps cause as an ErrProviderUnavailable.
func ProviderUnavailable(cause error) error {
	if cause == nil {
		return ErrProviderUnavailable
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, cause)
}

// ProfileConflict wraps cause as an ErrProfileConflict.
func ProfileConflict(cause error) error {
	if cause == nil {
		return ErrProfileConflict
	}
	return fmt.Errorf("%w: %v", ErrProfileConflict, cause)
}

// SubscriptionFetch wraps cause as an ErrSubscriptionFetch.
func SubscriptionFetch(cause error) error {
	if cause == nil {
		return ErrSubscriptionFetch
	}
	return fmt.Errorf("%w: %v", ErrSubscriptionFetch, cause)
}

// DeterministicMapping wraps a description of the bad input.
func DeterministicMapping(detail string) error {
	if detail == "" {
		return ErrDeterministicMapping
	}
	return fmt.Errorf("%w: %s", ErrDeterministicMapping, detail)
}
