package service

import (
	"time"

	"github.com/edulane/edulane-backend/internal/model"
)

// diffMembers compares persisted memberships against a desired set, keyed by
// user id. An entry counts as changed when it is absent on either side, or
// present on both with a different role or expiry instant. removed lists the
// user ids present only in the persisted set.
func diffMembers(current []model.Membership, desired []MemberInput) (changed, removed []int) {
	curByUser := make(map[int]model.Membership, len(current))
	for _, m := range current {
		curByUser[m.UserID] = m
	}

	desiredUsers := make(map[int]bool, len(desired))
	for _, d := range desired {
		desiredUsers[d.UserID] = true
		cur, ok := curByUser[d.UserID]
		if !ok {
			changed = append(changed, d.UserID)
			continue
		}
		if cur.Role != d.Role || !timeEqual(cur.ExpiresAt, d.ExpiresAt) {
			changed = append(changed, d.UserID)
		}
	}

	for _, m := range current {
		if !desiredUsers[m.UserID] {
			changed = append(changed, m.UserID)
			removed = append(removed, m.UserID)
		}
	}
	return changed, removed
}

// diffPermissions compares persisted permissions against a desired set,
// keyed by resource ref. Course-keyed and lesson-keyed entries with the same
// raw id are distinct keys and never match each other. touched lists every
// resource that is added, removed, or re-leveled; removed lists resources
// present only in the persisted set.
func diffPermissions(current []model.GroupPermission, desired []PermissionInput) (touched, removed []model.ResourceRef) {
	curByKey := make(map[string]model.GroupPermission, len(current))
	for _, p := range current {
		curByKey[p.Resource.Key()] = p
	}

	desiredKeys := make(map[string]bool, len(desired))
	for _, d := range desired {
		desiredKeys[d.Resource.Key()] = true
		cur, ok := curByKey[d.Resource.Key()]
		if !ok || cur.AccessLevel != d.AccessLevel {
			touched = append(touched, d.Resource)
		}
	}

	for _, p := range current {
		if !desiredKeys[p.Resource.Key()] {
			touched = append(touched, p.Resource)
			removed = append(removed, p.Resource)
		}
	}
	return touched, removed
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
