package model

// AccessLevel is the ordered privilege level a group holds on a resource.
type AccessLevel string

const (
	// AccessView allows reading a resource.
	AccessView AccessLevel = "VIEW"

	// AccessEdit allows reading and modifying a resource.
	AccessEdit AccessLevel = "EDIT"

	// AccessFull allows reading, modifying, deleting, and delegating a resource.
	AccessFull AccessLevel = "FULL"
)

var accessLevelRank = map[AccessLevel]int{
	AccessView: 1,
	AccessEdit: 2,
	AccessFull: 3,
}

// Rank returns the numeric position of the level in the VIEW < EDIT < FULL
// order. Unknown levels rank below every valid level.
func (l AccessLevel) Rank() int {
	return accessLevelRank[l]
}

// Valid reports whether the level is one of the defined enum values.
func (l AccessLevel) Valid() bool {
	_, ok := accessLevelRank[l]
	return ok
}

// GreaterOrEqual reports whether l grants at least the privilege of other.
func (l AccessLevel) GreaterOrEqual(other AccessLevel) bool {
	return l.Rank() >= other.Rank()
}

// GroupRole is the ordered role a user holds within a group.
type GroupRole string

const (
	// RoleMember is a plain group member with no management rights.
	RoleMember GroupRole = "MEMBER"

	// RoleAdmin may manage memberships and subgroups.
	RoleAdmin GroupRole = "ADMIN"

	// RoleOwner is the single permanent owner of a group.
	RoleOwner GroupRole = "OWNER"
)

var groupRoleRank = map[GroupRole]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// Rank returns the numeric position of the role in the MEMBER < ADMIN < OWNER
// order. Unknown roles rank below every valid role.
func (r GroupRole) Rank() int {
	return groupRoleRank[r]
}

// Valid reports whether the role is one of the defined enum values.
func (r GroupRole) Valid() bool {
	_, ok := groupRoleRank[r]
	return ok
}

// GreaterOrEqual reports whether r carries at least the privilege of other.
func (r GroupRole) GreaterOrEqual(other GroupRole) bool {
	return r.Rank() >= other.Rank()
}

// SiteRole is the site-wide role carried by an authenticated caller.
type SiteRole string

const (
	// SiteRoleAdmin bypasses every group-level access check.
	SiteRoleAdmin SiteRole = "ADMIN"

	// SiteRoleUser is a regular user subject to group-based access control.
	SiteRoleUser SiteRole = "USER"
)

// Caller is the authenticated identity every operation is evaluated for.
type Caller struct {
	UserID   int      `json:"user_id"`
	SiteRole SiteRole `json:"site_role"`
}

// IsSiteAdmin reports whether the caller holds the site-wide admin role.
func (c Caller) IsSiteAdmin() bool {
	return c.SiteRole == SiteRoleAdmin
}
