package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessLevelOrdering(t *testing.T) {
	levels := []AccessLevel{AccessView, AccessEdit, AccessFull}

	// Every pair is comparable and the order is total.
	for i, a := range levels {
		for j, b := range levels {
			assert.Equal(t, i >= j, a.GreaterOrEqual(b), "%s >= %s", a, b)
		}
	}
}

func TestAccessLevelUnknownRanksLowest(t *testing.T) {
	bogus := AccessLevel("SUPER")

	assert.False(t, bogus.Valid())
	assert.False(t, bogus.GreaterOrEqual(AccessView))
	assert.True(t, AccessView.GreaterOrEqual(bogus))
}

func TestGroupRoleOrdering(t *testing.T) {
	roles := []GroupRole{RoleMember, RoleAdmin, RoleOwner}

	for i, a := range roles {
		for j, b := range roles {
			assert.Equal(t, i >= j, a.GreaterOrEqual(b), "%s >= %s", a, b)
		}
	}

	assert.False(t, GroupRole("").Valid())
}

func TestCallerIsSiteAdmin(t *testing.T) {
	assert.True(t, Caller{UserID: 1, SiteRole: SiteRoleAdmin}.IsSiteAdmin())
	assert.False(t, Caller{UserID: 1, SiteRole: SiteRoleUser}.IsSiteAdmin())
	assert.False(t, Caller{UserID: 1}.IsSiteAdmin())
}
