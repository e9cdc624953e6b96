package access

import (
	"context"
	"time"

	"github.com/edulane/edulane-backend/internal/model"
)

// Store is the persistence capability the engine and the lifecycle services
// require. The pgx-backed implementation lives in internal/repository; tests
// use the in-memory fake from the accesstest package.
//
// Multi-write operations (CreateGroup, ApplyGroupUpdate, TransferOwnership)
// must be transactional: either every write commits or none does.
type Store interface {
	// FindGroup returns the group or nil if it does not exist.
	FindGroup(ctx context.Context, groupID int) (*model.Group, error)

	// FindMembership returns the membership row for (groupID, userID) or
	// nil if there is none. Expired rows are returned as stored; activity
	// is decided by the caller.
	FindMembership(ctx context.Context, groupID, userID int) (*model.Membership, error)

	// FindGroupMemberships returns every membership row of a group.
	FindGroupMemberships(ctx context.Context, groupID int) ([]model.Membership, error)

	// FindActiveMemberships returns the memberships of a user that are
	// active at the given instant.
	FindActiveMemberships(ctx context.Context, userID int, now time.Time) ([]model.Membership, error)

	// FindGroupPermissions returns every permission row of a group.
	FindGroupPermissions(ctx context.Context, groupID int) ([]model.GroupPermission, error)

	// FindPermissionsForResources returns all permissions on any of the
	// given resources that belong to a group in which userID holds a
	// membership active at now.
	FindPermissionsForResources(ctx context.Context, refs []model.ResourceRef, userID int, now time.Time) ([]model.GroupPermission, error)

	// FindPermission returns the permission row or nil if it does not
	// exist.
	FindPermission(ctx context.Context, permissionID int) (*model.GroupPermission, error)

	// CreateGroup persists a group with its initial permissions and
	// memberships in one transaction, filling in generated ids.
	CreateGroup(ctx context.Context, group *model.Group, permissions []model.GroupPermission, members []model.Membership) error

	// ApplyGroupUpdate applies a diffed group update in one transaction.
	// The group row is updated only if its persisted version still equals
	// expectedVersion; otherwise ErrConflict is returned and nothing is
	// written.
	ApplyGroupUpdate(ctx context.Context, update GroupUpdate) error

	// DeleteGroup removes the group, cascading its memberships and
	// permissions.
	DeleteGroup(ctx context.Context, groupID int) error

	// UpsertMembership inserts or replaces the membership row keyed by
	// (GroupID, UserID).
	UpsertMembership(ctx context.Context, m model.Membership) error

	// DeleteMembership removes the membership row for (groupID, userID).
	DeleteMembership(ctx context.Context, groupID, userID int) error

	// TransferOwnership demotes the current owner to ADMIN and upserts
	// newOwnerID as permanent OWNER in one transaction. A partial failure
	// must leave the original owner untouched.
	TransferOwnership(ctx context.Context, groupID, currentOwnerID, newOwnerID int) error

	// UpsertPermission inserts or replaces the permission row keyed by
	// (GroupID, Resource), filling in the generated id on insert.
	UpsertPermission(ctx context.Context, p *model.GroupPermission) error

	// DeletePermission removes the permission row.
	DeletePermission(ctx context.Context, permissionID int) error
}

// GroupUpdate is the write set ApplyGroupUpdate commits atomically. Deletions
// are keyed the same way the diff is computed: memberships by user id,
// permissions by (kind, id) resource ref — course- and lesson-keyed rows are
// never cross-matched.
type GroupUpdate struct {
	GroupID         int
	ExpectedVersion int
	Name            string

	UpsertMembers     []model.Membership
	DeleteMemberIDs   []int
	UpsertPermissions []model.GroupPermission
	DeleteResources   []model.ResourceRef
}
