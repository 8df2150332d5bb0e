// Package idmap derives the internal record key from an external identity.
// The mapping is the join key between both identity providers and the
// profile/subscription tables, so it must be reproducible across processes
// and restarts.
package idmap

import (
	"strings"

	"github.com/google/uuid"

	autherrors "github.com/prepstack/identity-core/errors"
)

// Namespace anchors the UUIDv5 derivation. Changing it rekeys every stored
// record, so it is fixed for the lifetime of the product.
var Namespace = uuid.MustParse("8c2d9f1e-5b74-4a0b-9c63-2f8e41d7aa05")

// Map returns the deterministic UUID for a non-empty external identity.
// Identical input always yields identical output; there is no I/O and no
// randomness. Blank input is a hard failure rather than a random fallback:
// a random id would silently break the 1:1 invariant for that user in every
// later session.
func Map(externalID string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(externalID)
	if trimmed == "" {
		return uuid.Nil, autherrors.DeterministicMapping("external id is empty")
	}
	return uuid.NewSHA1(Namespace, []byte(trimmed)), nil
}

// MustMap is Map for inputs known to be valid, such as test fixtures.
func MustMap(externalID string) uuid.UUID {
	id, err := Map(externalID)
	if err != nil {
		panic(err)
	}
	return id
}
