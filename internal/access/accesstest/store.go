// Package accesstest provides an in-memory access.Store for unit tests,
// including failure-injection knobs for transactional rollback scenarios.
package accesstest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/model"
)

// ErrInjected is returned by operations whose failure was requested via the
// Fail* knobs.
var ErrInjected = errors.New("injected store failure")

// Store is an in-memory access.Store. The zero value is not usable; create
// instances with New.
type Store struct {
	mu sync.Mutex

	groups      map[int]*model.Group
	memberships map[int]map[int]model.Membership // groupID -> userID -> row
	permissions map[int]model.GroupPermission    // permissionID -> row

	nextGroupID int
	nextPermID  int

	// PanicOnRead makes every Find* method panic. Used to prove the
	// site-admin bypass never touches the store.
	PanicOnRead bool

	// FailTransferPromote aborts TransferOwnership after the demote write
	// inside the transaction, forcing a rollback.
	FailTransferPromote bool

	// FailCreateGroup aborts CreateGroup before any write.
	FailCreateGroup bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		groups:      make(map[int]*model.Group),
		memberships: make(map[int]map[int]model.Membership),
		permissions: make(map[int]model.GroupPermission),
		nextGroupID: 1,
		nextPermID:  1,
	}
}

// ─── Seeding helpers ────────────────────────────────────────────────

// AddGroup seeds a group and returns its id.
func (s *Store) AddGroup(name string, parentID *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextGroupID
	s.nextGroupID++
	s.groups[id] = &model.Group{ID: id, Name: name, ParentID: parentID, Version: 1}
	s.memberships[id] = make(map[int]model.Membership)
	return id
}

// AddMembership seeds a membership row.
func (s *Store) AddMembership(groupID, userID int, role model.GroupRole, expiresAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[groupID] == nil {
		s.memberships[groupID] = make(map[int]model.Membership)
	}
	s.memberships[groupID][userID] = model.Membership{
		GroupID: groupID, UserID: userID, Role: role, ExpiresAt: expiresAt,
	}
}

// AddPermission seeds a permission row and returns its id.
func (s *Store) AddPermission(groupID int, resource model.ResourceRef, level model.AccessLevel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextPermID
	s.nextPermID++
	s.permissions[id] = model.GroupPermission{ID: id, GroupID: groupID, Resource: resource, AccessLevel: level}
	return id
}

// Owner returns the OWNER membership of a group, or nil.
func (s *Store) Owner(groupID int) *model.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships[groupID] {
		if m.Role == model.RoleOwner {
			row := m
			return &row
		}
	}
	return nil
}

// GroupCount returns the number of persisted groups.
func (s *Store) GroupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// ─── Reads ──────────────────────────────────────────────────────────

func (s *Store) checkRead() {
	if s.PanicOnRead {
		panic("accesstest: store read during a bypassed check")
	}
}

func (s *Store) FindGroup(ctx context.Context, groupID int) (*model.Group, error) {
	s.checkRead()
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, nil
	}
	row := *g
	return &row, nil
}

func (s *Store) FindMembership(ctx context.Context, groupID, userID int) (*model.Membership, error) {
	s.checkRead()
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[groupID][userID]
	if !ok {
		return nil, nil
	}
	row := m
	return &row, nil
}

func (s *Store) FindGroupMemberships(ctx context.Context, groupID int) ([]model.Membership, error) {
	s.checkRead()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Membership
	for _, m := range s.memberships[groupID] {
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) FindActiveMemberships(ctx context.Context, userID int, now time.Time) ([]model.Membership, error) {
	s.checkRead()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Membership
	for _, members := range s.memberships {
		if m, ok := members[userID]; ok && m.ActiveAt(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) FindGroupPermissions(ctx context.Context, groupID int) ([]model.GroupPermission, error) {
	s.checkRead()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.GroupPermission
	for _, p := range s.permissions {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) FindPermissionsForResources(ctx context.Context, refs []model.ResourceRef, userID int, now time.Time) ([]model.GroupPermission, error) {
	s.checkRead()
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(refs))
	for _, r := range refs {
		wanted[r.Key()] = true
	}

	var out []model.GroupPermission
	for _, p := range s.permissions {
		if !wanted[p.Resource.Key()] {
			continue
		}
		if m, ok := s.memberships[p.GroupID][userID]; ok && m.ActiveAt(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) FindPermission(ctx context.Context, permissionID int) (*model.GroupPermission, error) {
	s.checkRead()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.permissions[permissionID]
	if !ok {
		return nil, nil
	}
	row := p
	return &row, nil
}

// ─── Writes ─────────────────────────────────────────────────────────

func (s *Store) CreateGroup(ctx context.Context, group *model.Group, permissions []model.GroupPermission, members []model.Membership) error {
	if s.FailCreateGroup {
		return ErrInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	group.ID = s.nextGroupID
	s.nextGroupID++
	group.Version = 1
	row := *group
	s.groups[group.ID] = &row
	s.memberships[group.ID] = make(map[int]model.Membership)

	for i := range permissions {
		permissions[i].ID = s.nextPermID
		s.nextPermID++
		permissions[i].GroupID = group.ID
		s.permissions[permissions[i].ID] = permissions[i]
	}
	for i := range members {
		members[i].GroupID = group.ID
		s.memberships[group.ID][members[i].UserID] = members[i]
	}
	return nil
}

func (s *Store) ApplyGroupUpdate(ctx context.Context, update access.GroupUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[update.GroupID]
	if !ok {
		return access.ErrNotFound
	}
	if g.Version != update.ExpectedVersion {
		return access.ErrConflict
	}

	g.Name = update.Name
	g.Version++

	deleteRes := make(map[string]bool, len(update.DeleteResources))
	for _, r := range update.DeleteResources {
		deleteRes[r.Key()] = true
	}
	for id, p := range s.permissions {
		if p.GroupID == update.GroupID && deleteRes[p.Resource.Key()] {
			delete(s.permissions, id)
		}
	}
	for _, p := range update.UpsertPermissions {
		existing := 0
		for id, cur := range s.permissions {
			if cur.GroupID == update.GroupID && cur.Resource == p.Resource {
				existing = id
				break
			}
		}
		p.GroupID = update.GroupID
		if existing != 0 {
			p.ID = existing
		} else {
			p.ID = s.nextPermID
			s.nextPermID++
		}
		s.permissions[p.ID] = p
	}

	for _, userID := range update.DeleteMemberIDs {
		delete(s.memberships[update.GroupID], userID)
	}
	for _, m := range update.UpsertMembers {
		m.GroupID = update.GroupID
		s.memberships[update.GroupID][m.UserID] = m
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, groupID)
	delete(s.memberships, groupID)
	for id, p := range s.permissions {
		if p.GroupID == groupID {
			delete(s.permissions, id)
		}
	}
	return nil
}

func (s *Store) UpsertMembership(ctx context.Context, m model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[m.GroupID] == nil {
		s.memberships[m.GroupID] = make(map[int]model.Membership)
	}
	s.memberships[m.GroupID][m.UserID] = m
	return nil
}

func (s *Store) DeleteMembership(ctx context.Context, groupID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships[groupID], userID)
	return nil
}

func (s *Store) TransferOwnership(ctx context.Context, groupID, currentOwnerID, newOwnerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.memberships[groupID]
	if !ok {
		return access.ErrNotFound
	}

	// Snapshot for rollback so injected failures behave like a real
	// transaction abort.
	snapshot := make(map[int]model.Membership, len(members))
	for k, v := range members {
		snapshot[k] = v
	}

	if cur, ok := members[currentOwnerID]; ok && cur.Role == model.RoleOwner {
		cur.Role = model.RoleAdmin
		members[currentOwnerID] = cur
	}

	if s.FailTransferPromote {
		s.memberships[groupID] = snapshot
		return ErrInjected
	}

	next := members[newOwnerID]
	next.GroupID = groupID
	next.UserID = newOwnerID
	next.Role = model.RoleOwner
	next.ExpiresAt = nil
	members[newOwnerID] = next
	return nil
}

func (s *Store) UpsertPermission(ctx context.Context, p *model.GroupPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cur := range s.permissions {
		if cur.GroupID == p.GroupID && cur.Resource == p.Resource {
			p.ID = id
			s.permissions[id] = *p
			return nil
		}
	}
	p.ID = s.nextPermID
	s.nextPermID++
	s.permissions[p.ID] = *p
	return nil
}

func (s *Store) DeletePermission(ctx context.Context, permissionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.permissions, permissionID)
	return nil
}
