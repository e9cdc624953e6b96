package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMembershipActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	permanent := Membership{Role: RoleOwner}
	assert.True(t, permanent.ActiveAt(now))

	expiring := Membership{Role: RoleMember, ExpiresAt: &later}
	assert.True(t, expiring.ActiveAt(now))
	assert.False(t, expiring.ActiveAt(later.Add(time.Second)))

	// Expiring exactly now is already inactive.
	atBoundary := Membership{Role: RoleMember, ExpiresAt: &now}
	assert.False(t, atBoundary.ActiveAt(now))
}
