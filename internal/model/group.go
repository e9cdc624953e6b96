package model

import "time"

// Group is a named collection of users that permissions are granted to.
// ParentID is fixed at creation; a group is never reparented. The parent is
// only consulted when authorizing subgroup creation — permissions do not
// inherit down the hierarchy.
type Group struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID *int   `json:"parent_id,omitempty"`

	// Version increments on every update and guards concurrent
	// UpdateGroup calls against lost writes.
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership places a user in a group with a role. A nil ExpiresAt means the
// membership is permanent. Exactly one permanent OWNER membership exists per
// group.
type Membership struct {
	GroupID   int        `json:"group_id"`
	UserID    int        `json:"user_id"`
	Role      GroupRole  `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ActiveAt reports whether the membership is active at the given instant.
// A membership expiring exactly at t is already inactive.
func (m Membership) ActiveAt(t time.Time) bool {
	return m.ExpiresAt == nil || m.ExpiresAt.After(t)
}

// GroupPermission grants a group an access level on a single resource.
// At most one row per (group, resource) pair is kept; resolution collapses
// any duplicates to the highest level.
type GroupPermission struct {
	ID          int         `json:"id"`
	GroupID     int         `json:"group_id"`
	Resource    ResourceRef `json:"resource"`
	AccessLevel AccessLevel `json:"access_level"`
}

// GroupDetail is a group together with its memberships and permissions, as
// returned by the read endpoints.
type GroupDetail struct {
	Group       *Group            `json:"group"`
	Members     []Membership      `json:"members"`
	Permissions []GroupPermission `json:"permissions"`
}
