package domain

// ExternalIdentity is the read-only view of a user at an upstream identity
// provider, fetched per session. It is not owned by this core.
type ExternalIdentity struct {
	ProviderUserID string
	DisplayName    string
	Email          string
	AvatarURL      string
	Raw            map[string]any
}
