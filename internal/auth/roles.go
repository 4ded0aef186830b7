package auth

import "strings"

// Role is a closed, totally ordered set of privilege levels.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// rankTable is the single source of truth for role ordering.
var rankTable = map[Role]int{
	RoleViewer: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// ParseRole normalizes raw input into a Role. Unrecognized values resolve to RoleViewer.
func ParseRole(raw string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := rankTable[role]; ok {
		return role
	}
	return RoleViewer
}

// Rank returns the numeric rank of role. Unknown values rank as a viewer.
func Rank(role Role) int {
	if r, ok := rankTable[Role(strings.ToLower(string(role)))]; ok {
		return r
	}
	return rankTable[RoleViewer]
}

// AtLeast reports whether a ranks at or above b.
func AtLeast(a, b Role) bool {
	return Rank(a) >= Rank(b)
}

// Privileged reports whether the role ranks at or above admin.
func (r Role) Privileged() bool {
	return AtLeast(r, RoleAdmin)
}

// Is reports whether r and other name the same rank. Unknown values are
// treated as viewers, as everywhere else.
func (r Role) Is(other Role) bool {
	return Rank(r) == Rank(other)
}

// Valid reports whether r names a known role, ignoring case and surrounding space.
func (r Role) Valid() bool {
	_, ok := rankTable[Role(strings.ToLower(strings.TrimSpace(string(r))))]
	return ok
}

func (r Role) String() string { return string(r) }
