package domain

import "time"

// LegacyUser is an account in the secondary credential store. The store
// predates the hosted identity provider and keeps its own email/password
// pairs.
type LegacyUser struct {
	ID           string    `bson:"_id,omitempty"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"` // unique, case-insensitive
	PasswordHash string    `bson:"password_hash"`
	Role         Role      `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	LastLoginAt  time.Time `bson:"last_login_at,omitempty"`
}
