package access_test

import (
	"context"
	"testing"
	"time"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/access/accesstest"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(store *accesstest.Store) *access.Engine {
	return access.NewEngineWithClock(store, func() time.Time { return testNow })
}

func TestResolveBestAccessPicksHighestLevel(t *testing.T) {
	store := accesstest.New()
	course := model.CourseRef("c1")

	viewers := store.AddGroup("viewers", nil)
	editors := store.AddGroup("editors", nil)
	store.AddMembership(viewers, 7, model.RoleMember, nil)
	store.AddMembership(editors, 7, model.RoleMember, nil)
	store.AddPermission(viewers, course, model.AccessView)
	store.AddPermission(editors, course, model.AccessEdit)

	best, err := newEngine(store).ResolveBestAccess(context.Background(), 7, course)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, model.AccessEdit, best.Level)
	assert.Equal(t, editors, best.GroupID)
}

func TestResolveBestAccessNoMembership(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	store.AddPermission(g, model.CourseRef("c1"), model.AccessFull)

	best, err := newEngine(store).ResolveBestAccess(context.Background(), 7, model.CourseRef("c1"))
	require.NoError(t, err)
	assert.Nil(t, best, "permission without membership grants nothing")
}

func TestHasAccessMonotonicity(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	store.AddMembership(g, 7, model.RoleMember, nil)
	store.AddPermission(g, model.CourseRef("c1"), model.AccessEdit)

	engine := newEngine(store)
	ctx := context.Background()

	// EDIT satisfies every level up to and including itself.
	for _, tc := range []struct {
		required model.AccessLevel
		want     bool
	}{
		{model.AccessView, true},
		{model.AccessEdit, true},
		{model.AccessFull, false},
	} {
		ok, err := engine.HasAccess(ctx, 7, model.CourseRef("c1"), tc.required)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "required %s", tc.required)
	}
}

func TestExpiredMembershipGrantsNothing(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	course := model.CourseRef("c1")
	store.AddPermission(g, course, model.AccessFull)

	engine := newEngine(store)
	ctx := context.Background()

	// Expiring one second after "now" is still active.
	future := testNow.Add(time.Second)
	store.AddMembership(g, 7, model.RoleMember, &future)
	ok, err := engine.HasAccess(ctx, 7, course, model.AccessFull)
	require.NoError(t, err)
	assert.True(t, ok)

	// Expiring exactly at "now" is already inactive.
	store.AddMembership(g, 7, model.RoleMember, &testNow)
	ok, err = engine.HasAccess(ctx, 7, course, model.AccessView)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveAllKeysPerKindAndID(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	store.AddMembership(g, 7, model.RoleMember, nil)

	// Same raw id on both kinds. The grants must not bleed into each other.
	store.AddPermission(g, model.CourseRef("42"), model.AccessFull)
	store.AddPermission(g, model.LessonRef("42"), model.AccessView)

	refs := []model.ResourceRef{model.CourseRef("42"), model.LessonRef("42")}
	best, err := newEngine(store).ResolveAll(context.Background(), 7, refs)
	require.NoError(t, err)

	require.Len(t, best, 2)
	assert.Equal(t, model.AccessFull, best[model.CourseRef("42").Key()].Level)
	assert.Equal(t, model.AccessView, best[model.LessonRef("42").Key()].Level)
}

func TestResolveAllOmitsUngranted(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	store.AddMembership(g, 7, model.RoleMember, nil)
	store.AddPermission(g, model.CourseRef("c1"), model.AccessView)

	refs := []model.ResourceRef{model.CourseRef("c1"), model.CourseRef("c2"), model.CourseRef("c1")}
	best, err := newEngine(store).ResolveAll(context.Background(), 7, refs)
	require.NoError(t, err)

	require.Len(t, best, 1)
	_, ok := best[model.CourseRef("c2").Key()]
	assert.False(t, ok)
}

func TestResolveAllRejectsZeroRef(t *testing.T) {
	store := accesstest.New()
	_, err := newEngine(store).ResolveAll(context.Background(), 7, []model.ResourceRef{{}})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)
}

func TestResolveBatchAllOrNothing(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	store.AddMembership(g, 7, model.RoleMember, nil)
	store.AddPermission(g, model.CourseRef("c1"), model.AccessFull)
	store.AddPermission(g, model.CourseRef("c2"), model.AccessView)

	engine := newEngine(store)
	ctx := context.Background()

	ok, err := engine.ResolveBatch(ctx, 7, []access.Check{
		{Resource: model.CourseRef("c1"), Required: model.AccessEdit},
		{Resource: model.CourseRef("c2"), Required: model.AccessView},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// One failing check fails the whole batch.
	ok, err = engine.ResolveBatch(ctx, 7, []access.Check{
		{Resource: model.CourseRef("c1"), Required: model.AccessEdit},
		{Resource: model.CourseRef("c2"), Required: model.AccessEdit},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveBatchEmptyPasses(t *testing.T) {
	ok, err := newEngine(accesstest.New()).ResolveBatch(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveBatchRejectsInvalidLevel(t *testing.T) {
	_, err := newEngine(accesstest.New()).ResolveBatch(context.Background(), 7, []access.Check{
		{Resource: model.CourseRef("c1"), Required: model.AccessLevel("SUPER")},
	})
	assert.ErrorIs(t, err, access.ErrInvalidRequest)
}

func TestHasGroupRole(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	store.AddMembership(g, 1, model.RoleOwner, nil)
	store.AddMembership(g, 2, model.RoleMember, nil)

	expired := testNow.Add(-time.Minute)
	store.AddMembership(g, 3, model.RoleAdmin, &expired)

	engine := newEngine(store)
	ctx := context.Background()

	ok, err := engine.HasGroupRole(ctx, g, 1, model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok, "owner outranks admin")

	ok, err = engine.HasGroupRole(ctx, g, 2, model.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = engine.HasGroupRole(ctx, g, 3, model.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok, "expired membership carries no role")

	ok, err = engine.HasGroupRole(ctx, g, 99, model.RoleMember)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSiteAdminBypassNeverReadsStore(t *testing.T) {
	store := accesstest.New()
	store.PanicOnRead = true

	engine := newEngine(store)
	ctx := context.Background()
	admin := model.Caller{UserID: 1, SiteRole: model.SiteRoleAdmin}

	ok, err := engine.EffectiveHasAccess(ctx, admin, model.CourseRef("c1"), model.AccessFull)
	require.NoError(t, err)
	assert.True(t, ok)

	best, err := engine.EffectiveBestAccess(ctx, admin, model.CourseRef("c1"))
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, model.AccessFull, best.Level)
	assert.Zero(t, best.GroupID)

	ok, err = engine.EffectiveHasAccessBatch(ctx, admin, []access.Check{
		{Resource: model.LessonRef("l1"), Required: model.AccessFull},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.EffectiveHasGroupRole(ctx, admin, 123, model.RoleOwner)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEffectiveWrappersDelegateForRegularUsers(t *testing.T) {
	store := accesstest.New()
	g := store.AddGroup("g", nil)
	store.AddMembership(g, 7, model.RoleMember, nil)
	store.AddPermission(g, model.CourseRef("c1"), model.AccessView)

	engine := newEngine(store)
	ctx := context.Background()
	user := model.Caller{UserID: 7, SiteRole: model.SiteRoleUser}

	ok, err := engine.EffectiveHasAccess(ctx, user, model.CourseRef("c1"), model.AccessView)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.EffectiveHasAccess(ctx, user, model.CourseRef("c1"), model.AccessFull)
	require.NoError(t, err)
	assert.False(t, ok)
}
