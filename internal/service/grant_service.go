package service

import (
	"context"
	"fmt"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/rs/zerolog"
)

// GrantService manages a group's permissions on resources, independent of
// group membership: anyone holding FULL access on a resource may delegate
// access to any group.
type GrantService struct {
	store  access.Store
	engine *access.Engine
	feed   *ActivityFeed
	log    zerolog.Logger
}

// NewGrantService creates a new GrantService.
func NewGrantService(store access.Store, engine *access.Engine, feed *ActivityFeed, log zerolog.Logger) *GrantService {
	return &GrantService{
		store:  store,
		engine: engine,
		feed:   feed,
		log:    log.With().Str("component", "grant_service").Logger(),
	}
}

// GrantGroupPermission gives the group an access level on a resource.
// Requires site admin or FULL access to that resource; membership in the
// receiving group is not required.
func (s *GrantService) GrantGroupPermission(ctx context.Context, caller model.Caller, groupID int, input PermissionInput) (*model.GroupPermission, error) {
	if input.Resource.IsZero() || !input.AccessLevel.Valid() {
		return nil, fmt.Errorf("%w: malformed permission entry", access.ErrInvalidRequest)
	}

	group, err := s.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: group %d", access.ErrNotFound, groupID)
	}

	ok, err := s.engine.EffectiveHasAccess(ctx, caller, input.Resource, model.AccessFull)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: delegating access requires FULL on the resource", access.ErrForbidden)
	}

	p := model.GroupPermission{GroupID: groupID, Resource: input.Resource, AccessLevel: input.AccessLevel}
	if err := s.store.UpsertPermission(ctx, &p); err != nil {
		return nil, fmt.Errorf("upsert permission: %w", err)
	}

	s.log.Info().
		Int("group_id", groupID).
		Str("resource", input.Resource.Key()).
		Str("level", string(input.AccessLevel)).
		Msg("Permission granted")
	s.feed.Publish(ctx, GroupEvent{GroupID: groupID, Kind: EventPermissionGranted, ActorID: caller.UserID})
	return &p, nil
}

// RevokeGroupPermission deletes a permission row. Requires site admin, ADMIN
// of the holding group, or FULL access to the resource. A missing permission
// is reported as forbidden.
func (s *GrantService) RevokeGroupPermission(ctx context.Context, caller model.Caller, permissionID int) error {
	p, err := s.store.FindPermission(ctx, permissionID)
	if err != nil {
		return fmt.Errorf("load permission: %w", err)
	}
	if p == nil {
		return fmt.Errorf("%w: permission revoke denied", access.ErrForbidden)
	}

	allowed := caller.IsSiteAdmin()
	if !allowed {
		allowed, err = s.engine.HasGroupRole(ctx, p.GroupID, caller.UserID, model.RoleAdmin)
		if err != nil {
			return err
		}
	}
	if !allowed {
		allowed, err = s.engine.HasAccess(ctx, caller.UserID, p.Resource, model.AccessFull)
		if err != nil {
			return err
		}
	}
	if !allowed {
		return fmt.Errorf("%w: permission revoke denied", access.ErrForbidden)
	}

	if err := s.store.DeletePermission(ctx, permissionID); err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	s.log.Info().
		Int("group_id", p.GroupID).
		Str("resource", p.Resource.Key()).
		Msg("Permission revoked")
	s.feed.Publish(ctx, GroupEvent{GroupID: p.GroupID, Kind: EventPermissionRevoked, ActorID: caller.UserID})
	return nil
}
