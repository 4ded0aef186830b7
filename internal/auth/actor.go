package auth

// Actor is the verified identity attached to a single request.
type Actor struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Role           Role   `json:"role"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
}

// Privileged reports whether the actor ranks at or above admin.
func (a Actor) Privileged() bool {
	return a.Role.Privileged()
}

// InOrganization reports whether the actor belongs to orgID. Two absent
// organizations are considered equal.
func (a Actor) InOrganization(orgID *int64) bool {
	return SameOrganization(a.OrganizationID, orgID)
}

// SameOrganization compares two optional organization references.
func SameOrganization(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
