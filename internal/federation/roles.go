package federation

import (
	"strings"

	"github.com/prepstack/identity-core/domain"
)

// RoleResolver derives the role for an authentication event. The rule is
// fixed and identical for both providers: an exact match against the known
// operator email resolves to admin, everything else to student.
type RoleResolver struct {
	operatorEmail string
}

// NewRoleResolver creates a resolver for the given operator email. An empty
// operator email disables admin resolution entirely.
func NewRoleResolver(operatorEmail string) *RoleResolver {
	return &RoleResolver{operatorEmail: strings.TrimSpace(operatorEmail)}
}

// Resolve returns the role for the given account email.
func (r *RoleResolver) Resolve(email string) domain.Role {
	trimmed := strings.TrimSpace(email)
	if r.operatorEmail != "" && strings.EqualFold(trimmed, r.operatorEmail) {
		return domain.RoleAdmin
	}
	return domain.RoleStudent
}
