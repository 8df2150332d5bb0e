package federation

import "sync"

// Well-known keys of the persisted client-local elevation state.
const (
	markerFlagKey     = "adminLoggedIn"
	markerUsernameKey = "adminUsername"
)

// Marker is the elevated-access marker: an unsigned, client-local flag that
// the access control guard treats as satisfying an admin requirement. It is
// not part of the profile record and carries no server verification, so it
// must be handled as lower-trust than a resolved role.
type Marker struct {
	Present  bool
	Username string
}

// MarkerStore holds the process-local elevation state under the two
// well-known keys. Only the admin-login flow writes it; only the guard and
// the aggregator's fallback path read it.
type MarkerStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMarkerStore creates an empty marker store.
func NewMarkerStore() *MarkerStore {
	return &MarkerStore{values: make(map[string]string)}
}

// Set records the marker for the given username.
func (s *MarkerStore) Set(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[markerFlagKey] = "true"
	s.values[markerUsernameKey] = username
}

// Clear removes the marker.
func (s *MarkerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, markerFlagKey)
	delete(s.values, markerUsernameKey)
}

// Read returns the current marker state.
func (s *MarkerStore) Read() Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.values[markerFlagKey] != "true" {
		return Marker{}
	}
	return Marker{Present: true, Username: s.values[markerUsernameKey]}
}
