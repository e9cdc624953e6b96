package service

import (
	"context"
	"testing"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/access/accesstest"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGrantService(store *accesstest.Store) *GrantService {
	return NewGrantService(store, access.NewEngine(store), nil, zerolog.Nop())
}

func TestGrantGroupPermissionRequiresFull(t *testing.T) {
	store := accesstest.New()
	target := store.AddGroup("target", nil)

	// Caller 5 holds FULL on c1 and only EDIT on c2 through another group.
	holders := store.AddGroup("holders", nil)
	store.AddMembership(holders, 5, model.RoleMember, nil)
	store.AddPermission(holders, model.CourseRef("c1"), model.AccessFull)
	store.AddPermission(holders, model.CourseRef("c2"), model.AccessEdit)

	svc := newGrantService(store)
	ctx := context.Background()

	p, err := svc.GrantGroupPermission(ctx, regularUser(5), target, PermissionInput{
		Resource: model.CourseRef("c1"), AccessLevel: model.AccessView,
	})
	require.NoError(t, err)
	assert.Equal(t, target, p.GroupID)

	_, err = svc.GrantGroupPermission(ctx, regularUser(5), target, PermissionInput{
		Resource: model.CourseRef("c2"), AccessLevel: model.AccessView,
	})
	assert.ErrorIs(t, err, access.ErrForbidden, "EDIT cannot delegate even VIEW")
}

func TestGrantGroupPermissionValidation(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)

	svc := newGrantService(store)
	ctx := context.Background()

	_, err := svc.GrantGroupPermission(ctx, siteAdmin(1), g, PermissionInput{
		AccessLevel: model.AccessView,
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest, "zero resource ref")

	_, err = svc.GrantGroupPermission(ctx, siteAdmin(1), g, PermissionInput{
		Resource: model.CourseRef("c1"), AccessLevel: model.AccessLevel("SUPER"),
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)

	_, err = svc.GrantGroupPermission(ctx, siteAdmin(1), 999, PermissionInput{
		Resource: model.CourseRef("c1"), AccessLevel: model.AccessView,
	})
	assert.ErrorIs(t, err, access.ErrNotFound)
}

func TestGrantGroupPermissionSiteAdmin(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)

	svc := newGrantService(store)

	p, err := svc.GrantGroupPermission(context.Background(), siteAdmin(1), g, PermissionInput{
		Resource: model.LessonRef("l1"), AccessLevel: model.AccessFull,
	})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
}

func TestGrantGroupPermissionUpsertsExisting(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	existing := store.AddPermission(g, model.CourseRef("c1"), model.AccessView)

	svc := newGrantService(store)

	p, err := svc.GrantGroupPermission(context.Background(), siteAdmin(1), g, PermissionInput{
		Resource: model.CourseRef("c1"), AccessLevel: model.AccessEdit,
	})
	require.NoError(t, err)
	assert.Equal(t, existing, p.ID, "re-granting re-levels the same row")
	assert.Equal(t, model.AccessEdit, p.AccessLevel)
}

func TestRevokeGroupPermission(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	store.AddMembership(g, 2, model.RoleAdmin, nil)
	store.AddMembership(g, 3, model.RoleMember, nil)
	permID := store.AddPermission(g, model.CourseRef("c1"), model.AccessView)

	svc := newGrantService(store)
	ctx := context.Background()

	// Missing permission and denial look identical.
	err := svc.RevokeGroupPermission(ctx, siteAdmin(1), 999)
	assert.ErrorIs(t, err, access.ErrForbidden)

	err = svc.RevokeGroupPermission(ctx, regularUser(3), permID)
	assert.ErrorIs(t, err, access.ErrForbidden, "plain member cannot revoke")

	err = svc.RevokeGroupPermission(ctx, regularUser(2), permID)
	require.NoError(t, err, "group admin revokes")
}

func TestRevokeGroupPermissionByResourceHolder(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	permID := store.AddPermission(g, model.CourseRef("c1"), model.AccessView)

	// Caller 5 is not in g at all but holds FULL on the resource.
	holders := store.AddGroup("holders", nil)
	store.AddMembership(holders, 5, model.RoleMember, nil)
	store.AddPermission(holders, model.CourseRef("c1"), model.AccessFull)

	svc := newGrantService(store)

	err := svc.RevokeGroupPermission(context.Background(), regularUser(5), permID)
	assert.NoError(t, err)
}
