package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/rs/zerolog"
)

// PermissionInput is one requested grant of an access level on a resource.
type PermissionInput struct {
	Resource    model.ResourceRef `json:"resource"`
	AccessLevel model.AccessLevel `json:"access_level"`
}

// MemberInput is one requested membership entry.
type MemberInput struct {
	UserID    int        `json:"user_id"`
	Role      model.GroupRole `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateGroupInput carries everything needed to create a group. The creator
// is never listed in Members; they become the OWNER automatically.
type CreateGroupInput struct {
	Name        string
	ParentID    *int
	Permissions []PermissionInput
	Members     []MemberInput
}

// UpdateGroupInput is the full desired state of a group. Version is the
// version the caller read; a mismatch at apply time means a concurrent
// update won and the call fails with a conflict.
type UpdateGroupInput struct {
	ID          int
	Name        string
	ParentID    *int
	Version     int
	Permissions []PermissionInput
	Members     []MemberInput
}

// GroupService governs the group lifecycle: creation with authorization
// against the parent group, diff-based re-authorization of updates, and
// deletion.
type GroupService struct {
	store  access.Store
	engine *access.Engine
	feed   *ActivityFeed
	log    zerolog.Logger
}

// NewGroupService creates a new GroupService.
func NewGroupService(store access.Store, engine *access.Engine, feed *ActivityFeed, log zerolog.Logger) *GroupService {
	return &GroupService{
		store:  store,
		engine: engine,
		feed:   feed,
		log:    log.With().Str("component", "group_service").Logger(),
	}
}

// CreateGroup creates a group with its initial permissions and members, plus
// a permanent OWNER membership for the caller.
//
// Site admins may create any group. Other callers may only create subgroups:
// they must administer the parent group and hold FULL access to every
// resource named in Permissions.
func (s *GroupService) CreateGroup(ctx context.Context, caller model.Caller, input CreateGroupInput) (*model.GroupDetail, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: group name is required", access.ErrInvalidRequest)
	}
	for _, m := range input.Members {
		if m.Role == model.RoleOwner {
			return nil, fmt.Errorf("%w: OWNER is assigned to the creator, not granted via members", access.ErrInvalidRequest)
		}
		if !m.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", access.ErrInvalidRequest, m.Role)
		}
		if m.UserID == caller.UserID {
			// The creator becomes OWNER; listing them again would
			// leave two membership rows for one user.
			return nil, fmt.Errorf("%w: creator must not appear in members", access.ErrInvalidRequest)
		}
	}
	for _, p := range input.Permissions {
		if p.Resource.IsZero() || !p.AccessLevel.Valid() {
			return nil, fmt.Errorf("%w: malformed permission entry", access.ErrInvalidRequest)
		}
	}

	if !caller.IsSiteAdmin() {
		if input.ParentID == nil {
			return nil, fmt.Errorf("%w: root groups are created by site admins only", access.ErrForbidden)
		}
		isAdmin, err := s.engine.HasGroupRole(ctx, *input.ParentID, caller.UserID, model.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, fmt.Errorf("%w: not an admin of the parent group", access.ErrForbidden)
		}

		checks := make([]access.Check, 0, len(input.Permissions))
		for _, p := range input.Permissions {
			checks = append(checks, access.Check{Resource: p.Resource, Required: model.AccessFull})
		}
		ok, err := s.engine.ResolveBatch(ctx, caller.UserID, checks)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: FULL access required on every granted resource", access.ErrForbidden)
		}
	}

	group := &model.Group{Name: input.Name, ParentID: input.ParentID}

	permissions := make([]model.GroupPermission, 0, len(input.Permissions))
	for _, p := range input.Permissions {
		permissions = append(permissions, model.GroupPermission{Resource: p.Resource, AccessLevel: p.AccessLevel})
	}

	members := make([]model.Membership, 0, len(input.Members)+1)
	for _, m := range input.Members {
		members = append(members, model.Membership{UserID: m.UserID, Role: m.Role, ExpiresAt: m.ExpiresAt})
	}
	members = append(members, model.Membership{UserID: caller.UserID, Role: model.RoleOwner})

	if err := s.store.CreateGroup(ctx, group, permissions, members); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	s.log.Info().Int("group_id", group.ID).Int("creator", caller.UserID).Msg("Group created")
	s.feed.Publish(ctx, GroupEvent{GroupID: group.ID, Kind: EventGroupCreated, ActorID: caller.UserID})

	return s.detail(ctx, group)
}

// UpdateGroup replaces a group's name, member set, and permission set. Each
// changed aspect is authorized independently: name changes need OWNER,
// member changes need ADMIN, permission changes need FULL access to every
// resource the diff touches. Site admins bypass all three.
func (s *GroupService) UpdateGroup(ctx context.Context, caller model.Caller, input UpdateGroupInput) (*model.GroupDetail, error) {
	if input.ID == 0 {
		return nil, fmt.Errorf("%w: group id is required", access.ErrInvalidRequest)
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: group name is required", access.ErrInvalidRequest)
	}
	if input.Version < 1 {
		return nil, fmt.Errorf("%w: the group version the caller read is required", access.ErrInvalidRequest)
	}

	group, err := s.store.FindGroup(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	if group == nil {
		// Deliberately indistinguishable from a denied update.
		return nil, fmt.Errorf("%w: group update denied", access.ErrForbidden)
	}

	if !parentEqual(input.ParentID, group.ParentID) {
		return nil, fmt.Errorf("%w: a group cannot be reparented", access.ErrForbidden)
	}
	if input.Version != group.Version {
		return nil, fmt.Errorf("%w: group version %d is stale", access.ErrConflict, input.Version)
	}

	if err := validateOwnerSet(input.Members); err != nil {
		return nil, err
	}

	if input.Name != group.Name {
		isOwner, err := s.engine.EffectiveHasGroupRole(ctx, caller, group.ID, model.RoleOwner)
		if err != nil {
			return nil, err
		}
		if !isOwner {
			return nil, fmt.Errorf("%w: renaming a group requires OWNER", access.ErrForbidden)
		}
	}

	currentMembers, err := s.store.FindGroupMemberships(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	currentPerms, err := s.store.FindGroupPermissions(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}

	memberChanges, removedMemberIDs := diffMembers(currentMembers, input.Members)
	if len(memberChanges) > 0 {
		isAdmin, err := s.engine.EffectiveHasGroupRole(ctx, caller, group.ID, model.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, fmt.Errorf("%w: changing members requires ADMIN", access.ErrForbidden)
		}
	}

	touchedResources, removedResources := diffPermissions(currentPerms, input.Permissions)
	if len(touchedResources) > 0 && !caller.IsSiteAdmin() {
		checks := make([]access.Check, 0, len(touchedResources))
		for _, r := range touchedResources {
			checks = append(checks, access.Check{Resource: r, Required: model.AccessFull})
		}
		ok, err := s.engine.ResolveBatch(ctx, caller.UserID, checks)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: FULL access required on every changed resource", access.ErrForbidden)
		}
	}

	update := access.GroupUpdate{
		GroupID:         group.ID,
		ExpectedVersion: group.Version,
		Name:            input.Name,
		DeleteMemberIDs: removedMemberIDs,
		DeleteResources: removedResources,
	}
	for _, m := range input.Members {
		update.UpsertMembers = append(update.UpsertMembers, model.Membership{
			GroupID: group.ID, UserID: m.UserID, Role: m.Role, ExpiresAt: m.ExpiresAt,
		})
	}
	for _, p := range input.Permissions {
		update.UpsertPermissions = append(update.UpsertPermissions, model.GroupPermission{
			GroupID: group.ID, Resource: p.Resource, AccessLevel: p.AccessLevel,
		})
	}

	if err := s.store.ApplyGroupUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("apply group update: %w", err)
	}

	s.log.Info().Int("group_id", group.ID).Int("actor", caller.UserID).Msg("Group updated")
	s.feed.Publish(ctx, GroupEvent{GroupID: group.ID, Kind: EventGroupUpdated, ActorID: caller.UserID})

	updated, err := s.store.FindGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("reload group: %w", err)
	}
	return s.detail(ctx, updated)
}

// DeleteGroup removes a group and cascades its memberships and permissions.
// Requires site admin or group OWNER.
func (s *GroupService) DeleteGroup(ctx context.Context, caller model.Caller, groupID int) error {
	group, err := s.store.FindGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load group: %w", err)
	}
	if group == nil {
		return fmt.Errorf("%w: group %d", access.ErrNotFound, groupID)
	}

	isOwner, err := s.engine.EffectiveHasGroupRole(ctx, caller, groupID, model.RoleOwner)
	if err != nil {
		return err
	}
	if !isOwner {
		return fmt.Errorf("%w: deleting a group requires OWNER", access.ErrForbidden)
	}

	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	s.log.Info().Int("group_id", groupID).Int("actor", caller.UserID).Msg("Group deleted")
	s.feed.Publish(ctx, GroupEvent{GroupID: groupID, Kind: EventGroupDeleted, ActorID: caller.UserID})
	return nil
}

// GetGroup returns a group with its members and permissions. Visible to site
// admins and active members of the group.
func (s *GroupService) GetGroup(ctx context.Context, caller model.Caller, groupID int) (*model.GroupDetail, error) {
	group, err := s.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: group %d", access.ErrNotFound, groupID)
	}

	isMember, err := s.engine.EffectiveHasGroupRole(ctx, caller, groupID, model.RoleMember)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: not a member of this group", access.ErrForbidden)
	}

	return s.detail(ctx, group)
}

// ListMyGroups returns every group the caller actively belongs to, with the
// caller's own membership row.
func (s *GroupService) ListMyGroups(ctx context.Context, caller model.Caller) ([]model.GroupDetail, error) {
	memberships, err := s.store.FindActiveMemberships(ctx, caller.UserID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	out := make([]model.GroupDetail, 0, len(memberships))
	for _, m := range memberships {
		group, err := s.store.FindGroup(ctx, m.GroupID)
		if err != nil {
			return nil, fmt.Errorf("load group: %w", err)
		}
		if group == nil {
			continue
		}
		out = append(out, model.GroupDetail{Group: group, Members: []model.Membership{m}})
	}
	return out, nil
}

func (s *GroupService) detail(ctx context.Context, group *model.Group) (*model.GroupDetail, error) {
	members, err := s.store.FindGroupMemberships(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	perms, err := s.store.FindGroupPermissions(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	return &model.GroupDetail{Group: group, Members: members, Permissions: perms}, nil
}

// validateOwnerSet enforces the single-permanent-OWNER invariant on a
// supplied member set.
func validateOwnerSet(members []MemberInput) error {
	owners := 0
	for _, m := range members {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: unknown role %q", access.ErrInvalidRequest, m.Role)
		}
		if m.Role == model.RoleOwner {
			owners++
			if m.ExpiresAt != nil {
				return fmt.Errorf("%w: the OWNER membership cannot expire", access.ErrInvalidRequest)
			}
		}
	}
	if owners != 1 {
		return fmt.Errorf("%w: exactly one OWNER is required, got %d", access.ErrInvalidRequest, owners)
	}
	return nil
}

func parentEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
