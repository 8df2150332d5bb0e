package domain

import "time"

// Role is the resolved authorization role of an internal identity. Roles are
// derived once per authentication event, never freely settable.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleNone    Role = "none"
)

// Satisfies reports whether a resolved role meets a required one. Admin
// subsumes student.
func (r Role) Satisfies(required Role) bool {
	if required == "" {
		return true
	}
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// Provenance records which provider created an internal identity.
type Provenance string

const (
	ProvenancePrimary   Provenance = "primary"
	ProvenanceSecondary Provenance = "secondary"
)

// Profile is the internal identity record, keyed by the deterministic mapped
// UUID. Created on first successful sync; field updates happen only through
// explicit profile-edit flows elsewhere, and records are never deleted here.
type Profile struct {
	ID         string     `bson:"_id"` // mapped UUID
	FullName   string     `bson:"full_name,omitempty"`
	AvatarURL  string     `bson:"avatar_url,omitempty"`
	Role       Role       `bson:"role"`
	Provenance Provenance `bson:"provenance"`
	CreatedAt  time.Time  `bson:"created_at"`
}
