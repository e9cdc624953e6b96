package service

import (
	"context"
	"testing"
	"time"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/access/accesstest"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroupService(store *accesstest.Store) *GroupService {
	return NewGroupService(store, access.NewEngine(store), nil, zerolog.Nop())
}

func siteAdmin(userID int) model.Caller {
	return model.Caller{UserID: userID, SiteRole: model.SiteRoleAdmin}
}

func regularUser(userID int) model.Caller {
	return model.Caller{UserID: userID, SiteRole: model.SiteRoleUser}
}

func TestCreateGroupAsSiteAdmin(t *testing.T) {
	store := accesstest.New()
	svc := newGroupService(store)

	detail, err := svc.CreateGroup(context.Background(), siteAdmin(1), CreateGroupInput{
		Name: "Faculty",
		Permissions: []PermissionInput{
			{Resource: model.CourseRef("c1"), AccessLevel: model.AccessEdit},
		},
		Members: []MemberInput{
			{UserID: 2, Role: model.RoleMember},
		},
	})
	require.NoError(t, err)

	// The creator is the permanent OWNER on top of the listed members.
	owner := store.Owner(detail.Group.ID)
	require.NotNil(t, owner)
	assert.Equal(t, 1, owner.UserID)
	assert.Nil(t, owner.ExpiresAt)
	assert.Len(t, detail.Members, 2)
	assert.Len(t, detail.Permissions, 1)
}

func TestCreateGroupRootRequiresSiteAdmin(t *testing.T) {
	svc := newGroupService(accesstest.New())

	_, err := svc.CreateGroup(context.Background(), regularUser(1), CreateGroupInput{Name: "Rogue"})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestCreateSubgroupByParentAdmin(t *testing.T) {
	store := accesstest.New()
	parent := store.AddGroup("parent", nil)
	store.AddMembership(parent, 5, model.RoleAdmin, nil)
	store.AddPermission(parent, model.CourseRef("c1"), model.AccessFull)

	svc := newGroupService(store)

	detail, err := svc.CreateGroup(context.Background(), regularUser(5), CreateGroupInput{
		Name:     "child",
		ParentID: &parent,
		Permissions: []PermissionInput{
			{Resource: model.CourseRef("c1"), AccessLevel: model.AccessView},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, detail.Group.ParentID)
	assert.Equal(t, parent, *detail.Group.ParentID)
}

func TestCreateSubgroupDeniedWithoutParentAdmin(t *testing.T) {
	store := accesstest.New()
	parent := store.AddGroup("parent", nil)
	store.AddMembership(parent, 5, model.RoleMember, nil)

	svc := newGroupService(store)

	_, err := svc.CreateGroup(context.Background(), regularUser(5), CreateGroupInput{
		Name:     "child",
		ParentID: &parent,
	})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestCreateSubgroupCannotEscalate(t *testing.T) {
	// A parent admin holding only EDIT must not delegate any level.
	store := accesstest.New()
	parent := store.AddGroup("parent", nil)
	store.AddMembership(parent, 5, model.RoleAdmin, nil)
	store.AddPermission(parent, model.CourseRef("c1"), model.AccessEdit)

	svc := newGroupService(store)

	_, err := svc.CreateGroup(context.Background(), regularUser(5), CreateGroupInput{
		Name:     "child",
		ParentID: &parent,
		Permissions: []PermissionInput{
			{Resource: model.CourseRef("c1"), AccessLevel: model.AccessView},
		},
	})
	assert.ErrorIs(t, err, access.ErrForbidden)
	assert.Equal(t, 1, store.GroupCount(), "nothing persisted on denial")
}

func TestCreateGroupRejectsOwnerInMembers(t *testing.T) {
	svc := newGroupService(accesstest.New())

	_, err := svc.CreateGroup(context.Background(), siteAdmin(1), CreateGroupInput{
		Name:    "g",
		Members: []MemberInput{{UserID: 2, Role: model.RoleOwner}},
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)
}

func TestCreateGroupRejectsCreatorInMembers(t *testing.T) {
	svc := newGroupService(accesstest.New())

	_, err := svc.CreateGroup(context.Background(), siteAdmin(1), CreateGroupInput{
		Name:    "g",
		Members: []MemberInput{{UserID: 1, Role: model.RoleMember}},
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)
}

func TestCreateGroupRejectsMalformedInput(t *testing.T) {
	svc := newGroupService(accesstest.New())
	ctx := context.Background()

	_, err := svc.CreateGroup(ctx, siteAdmin(1), CreateGroupInput{Name: ""})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)

	_, err = svc.CreateGroup(ctx, siteAdmin(1), CreateGroupInput{
		Name:        "g",
		Permissions: []PermissionInput{{AccessLevel: model.AccessView}},
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest, "zero resource ref")

	_, err = svc.CreateGroup(ctx, siteAdmin(1), CreateGroupInput{
		Name:    "g",
		Members: []MemberInput{{UserID: 2, Role: model.GroupRole("LURKER")}},
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)
}

func seedGroupWithOwner(store *accesstest.Store, ownerID int) int {
	id := store.AddGroup("study", nil)
	store.AddMembership(id, ownerID, model.RoleOwner, nil)
	return id
}

func ownerSet(ownerID int, extra ...MemberInput) []MemberInput {
	return append([]MemberInput{{UserID: ownerID, Role: model.RoleOwner}}, extra...)
}

func TestUpdateGroupMissingIsForbidden(t *testing.T) {
	svc := newGroupService(accesstest.New())

	// A missing group and a denied update must be indistinguishable.
	_, err := svc.UpdateGroup(context.Background(), regularUser(1), UpdateGroupInput{
		ID: 999, Name: "x", Version: 1, Members: ownerSet(1),
	})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestUpdateGroupRequiresVersion(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)

	svc := newGroupService(store)

	// Omitting the read version would silently disable lost-update
	// detection, so the update is rejected outright.
	_, err := svc.UpdateGroup(context.Background(), regularUser(1), UpdateGroupInput{
		ID: g, Name: "study", Members: ownerSet(1),
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)
}

func TestUpdateGroupReparentForbidden(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)
	other := store.AddGroup("other", nil)

	svc := newGroupService(store)

	_, err := svc.UpdateGroup(context.Background(), regularUser(1), UpdateGroupInput{
		ID: g, Name: "study", ParentID: &other, Version: 1, Members: ownerSet(1),
	})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestUpdateGroupStaleVersionConflicts(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)

	svc := newGroupService(store)
	ctx := context.Background()

	detail, err := svc.UpdateGroup(ctx, regularUser(1), UpdateGroupInput{
		ID: g, Name: "study v2", Version: 1, Members: ownerSet(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Group.Version)

	// Replaying the stale version loses.
	_, err = svc.UpdateGroup(ctx, regularUser(1), UpdateGroupInput{
		ID: g, Name: "study v3", Version: 1, Members: ownerSet(1),
	})
	assert.ErrorIs(t, err, access.ErrConflict)
}

func TestUpdateGroupRenameRequiresOwner(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)
	store.AddMembership(g, 2, model.RoleAdmin, nil)

	svc := newGroupService(store)

	_, err := svc.UpdateGroup(context.Background(), regularUser(2), UpdateGroupInput{
		ID: g, Name: "renamed", Version: 1,
		Members: ownerSet(1, MemberInput{UserID: 2, Role: model.RoleAdmin}),
	})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestUpdateGroupMemberChangeRequiresAdmin(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)
	store.AddMembership(g, 2, model.RoleMember, nil)

	svc := newGroupService(store)

	// Member 2 tries to promote themselves.
	_, err := svc.UpdateGroup(context.Background(), regularUser(2), UpdateGroupInput{
		ID: g, Name: "study", Version: 1,
		Members: ownerSet(1, MemberInput{UserID: 2, Role: model.RoleAdmin}),
	})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestUpdateGroupPermissionChangeRequiresFull(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)

	svc := newGroupService(store)

	// The owner holds no FULL grant on the course, so adding a permission
	// on it is denied even for the owner.
	_, err := svc.UpdateGroup(context.Background(), regularUser(1), UpdateGroupInput{
		ID: g, Name: "study", Version: 1,
		Members: ownerSet(1),
		Permissions: []PermissionInput{
			{Resource: model.CourseRef("c1"), AccessLevel: model.AccessView},
		},
	})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestUpdateGroupOwnerSetInvariant(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)
	svc := newGroupService(store)
	ctx := context.Background()

	// No owner at all.
	_, err := svc.UpdateGroup(ctx, siteAdmin(9), UpdateGroupInput{
		ID: g, Name: "study", Version: 1,
		Members: []MemberInput{{UserID: 2, Role: model.RoleMember}},
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)

	// Two owners.
	_, err = svc.UpdateGroup(ctx, siteAdmin(9), UpdateGroupInput{
		ID: g, Name: "study", Version: 1,
		Members: []MemberInput{
			{UserID: 1, Role: model.RoleOwner},
			{UserID: 2, Role: model.RoleOwner},
		},
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)

	// An expiring owner.
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.UpdateGroup(ctx, siteAdmin(9), UpdateGroupInput{
		ID: g, Name: "study", Version: 1,
		Members: []MemberInput{{UserID: 1, Role: model.RoleOwner, ExpiresAt: &expiry}},
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)
}

func TestUpdateGroupFullReplaceAsSiteAdmin(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)
	store.AddMembership(g, 2, model.RoleMember, nil)
	store.AddPermission(g, model.CourseRef("c1"), model.AccessView)

	svc := newGroupService(store)

	detail, err := svc.UpdateGroup(context.Background(), siteAdmin(9), UpdateGroupInput{
		ID: g, Name: "restructured", Version: 1,
		Members: ownerSet(1, MemberInput{UserID: 3, Role: model.RoleAdmin}),
		Permissions: []PermissionInput{
			{Resource: model.LessonRef("l1"), AccessLevel: model.AccessEdit},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "restructured", detail.Group.Name)
	assert.Len(t, detail.Members, 2, "member 2 removed, member 3 added")
	require.Len(t, detail.Permissions, 1)
	assert.Equal(t, model.LessonRef("l1"), detail.Permissions[0].Resource)
}

func TestDeleteGroup(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)
	store.AddMembership(g, 2, model.RoleAdmin, nil)

	svc := newGroupService(store)
	ctx := context.Background()

	err := svc.DeleteGroup(ctx, regularUser(1), 999)
	assert.ErrorIs(t, err, access.ErrNotFound)

	err = svc.DeleteGroup(ctx, regularUser(2), g)
	assert.ErrorIs(t, err, access.ErrForbidden, "admin is not enough")

	err = svc.DeleteGroup(ctx, regularUser(1), g)
	require.NoError(t, err)
	assert.Equal(t, 0, store.GroupCount())
}

func TestGetGroupVisibility(t *testing.T) {
	store := accesstest.New()
	g := seedGroupWithOwner(store, 1)

	svc := newGroupService(store)
	ctx := context.Background()

	_, err := svc.GetGroup(ctx, regularUser(2), g)
	assert.ErrorIs(t, err, access.ErrForbidden)

	detail, err := svc.GetGroup(ctx, regularUser(1), g)
	require.NoError(t, err)
	assert.Equal(t, g, detail.Group.ID)

	_, err = svc.GetGroup(ctx, siteAdmin(9), g)
	assert.NoError(t, err)

	_, err = svc.GetGroup(ctx, siteAdmin(9), 999)
	assert.ErrorIs(t, err, access.ErrNotFound)
}
