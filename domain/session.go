package domain

import "time"

// BridgedSession is the backing-store session derived from the primary
// provider's session. It exists only while authenticated and is destroyed on
// logout or expiry. Its lifetime never exceeds the provider token's declared
// expiry.
type BridgedSession struct {
	AccessToken       string    `bson:"access_token" json:"access_token"`
	RefreshToken      string    `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	ProviderSessionID string    `bson:"provider_session_id" json:"provider_session_id"`
	MappedID          string    `bson:"mapped_id" json:"mapped_id"`
	ExpiresAt         time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *BridgedSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
