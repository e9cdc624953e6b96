package service

import (
	"testing"
	"time"

	"github.com/edulane/edulane-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDiffMembers(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	laterExpiry := expiry.Add(time.Hour)

	current := []model.Membership{
		{UserID: 1, Role: model.RoleOwner},
		{UserID: 2, Role: model.RoleMember, ExpiresAt: &expiry},
		{UserID: 3, Role: model.RoleMember},
	}
	desired := []MemberInput{
		{UserID: 1, Role: model.RoleOwner},                        // unchanged
		{UserID: 2, Role: model.RoleMember, ExpiresAt: &laterExpiry}, // expiry moved
		{UserID: 4, Role: model.RoleAdmin},                        // added
	}

	changed, removed := diffMembers(current, desired)

	assert.ElementsMatch(t, []int{2, 3, 4}, changed)
	assert.ElementsMatch(t, []int{3}, removed)
}

func TestDiffMembersNoChanges(t *testing.T) {
	current := []model.Membership{{UserID: 1, Role: model.RoleOwner}}
	desired := []MemberInput{{UserID: 1, Role: model.RoleOwner}}

	changed, removed := diffMembers(current, desired)
	assert.Empty(t, changed)
	assert.Empty(t, removed)
}

func TestDiffMembersRoleChange(t *testing.T) {
	current := []model.Membership{{UserID: 2, Role: model.RoleMember}}
	desired := []MemberInput{{UserID: 2, Role: model.RoleAdmin}}

	changed, removed := diffMembers(current, desired)
	assert.Equal(t, []int{2}, changed)
	assert.Empty(t, removed)
}

func TestDiffPermissions(t *testing.T) {
	current := []model.GroupPermission{
		{Resource: model.CourseRef("a"), AccessLevel: model.AccessView},
		{Resource: model.CourseRef("b"), AccessLevel: model.AccessEdit},
	}
	desired := []PermissionInput{
		{Resource: model.CourseRef("a"), AccessLevel: model.AccessView}, // unchanged
		{Resource: model.CourseRef("c"), AccessLevel: model.AccessFull}, // added
	}

	touched, removed := diffPermissions(current, desired)

	assert.ElementsMatch(t, []model.ResourceRef{model.CourseRef("b"), model.CourseRef("c")}, touched)
	assert.ElementsMatch(t, []model.ResourceRef{model.CourseRef("b")}, removed)
}

func TestDiffPermissionsLevelChangeTouches(t *testing.T) {
	current := []model.GroupPermission{{Resource: model.CourseRef("a"), AccessLevel: model.AccessView}}
	desired := []PermissionInput{{Resource: model.CourseRef("a"), AccessLevel: model.AccessEdit}}

	touched, removed := diffPermissions(current, desired)
	assert.Equal(t, []model.ResourceRef{model.CourseRef("a")}, touched)
	assert.Empty(t, removed)
}

func TestDiffPermissionsKindIsolation(t *testing.T) {
	// A course and a lesson with the same raw id are distinct entries.
	current := []model.GroupPermission{{Resource: model.CourseRef("42"), AccessLevel: model.AccessView}}
	desired := []PermissionInput{{Resource: model.LessonRef("42"), AccessLevel: model.AccessView}}

	touched, removed := diffPermissions(current, desired)
	assert.ElementsMatch(t, []model.ResourceRef{model.CourseRef("42"), model.LessonRef("42")}, touched)
	assert.ElementsMatch(t, []model.ResourceRef{model.CourseRef("42")}, removed)
}
