package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/rs/zerolog"
)

// MembershipService grants and revokes non-owner memberships and performs
// atomic ownership transfers.
type MembershipService struct {
	store  access.Store
	engine *access.Engine
	feed   *ActivityFeed
	log    zerolog.Logger
}

// NewMembershipService creates a new MembershipService.
func NewMembershipService(store access.Store, engine *access.Engine, feed *ActivityFeed, log zerolog.Logger) *MembershipService {
	return &MembershipService{
		store:  store,
		engine: engine,
		feed:   feed,
		log:    log.With().Str("component", "membership_service").Logger(),
	}
}

// GrantGroupAccess upserts a MEMBER or ADMIN membership, optionally
// time-limited. OWNER is never granted here; use ChangeGroupOwner. Requires
// site admin or group ADMIN.
func (s *MembershipService) GrantGroupAccess(ctx context.Context, caller model.Caller, groupID, userID int, role model.GroupRole, durationMinutes *int) (*model.Membership, error) {
	if role == model.RoleOwner {
		return nil, fmt.Errorf("%w: ownership is transferred, not granted", access.ErrInvalidRequest)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", access.ErrInvalidRequest, role)
	}
	if durationMinutes != nil && *durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", access.ErrInvalidRequest)
	}

	isAdmin, err := s.engine.EffectiveHasGroupRole(ctx, caller, groupID, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, fmt.Errorf("%w: granting membership requires ADMIN", access.ErrForbidden)
	}

	// Upserting over the OWNER row would silently demote the owner and
	// leave the group ownerless.
	existing, err := s.store.FindMembership(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	if existing != nil && existing.Role == model.RoleOwner {
		return nil, fmt.Errorf("%w: the owner's membership cannot be replaced", access.ErrForbidden)
	}

	m := model.Membership{GroupID: groupID, UserID: userID, Role: role}
	if durationMinutes != nil {
		t := time.Now().Add(time.Duration(*durationMinutes) * time.Minute)
		m.ExpiresAt = &t
	}

	if err := s.store.UpsertMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("upsert membership: %w", err)
	}

	s.log.Info().Int("group_id", groupID).Int("user_id", userID).Str("role", string(role)).Msg("Membership granted")
	s.feed.Publish(ctx, GroupEvent{GroupID: groupID, Kind: EventMemberGranted, ActorID: caller.UserID, SubjectID: userID})
	return &m, nil
}

// RevokeGroupAccess deletes a non-owner membership. Requires site admin or
// group ADMIN. A missing membership is reported as forbidden so revoke
// probes do not reveal who belongs to a group.
func (s *MembershipService) RevokeGroupAccess(ctx context.Context, caller model.Caller, groupID, userID int) error {
	m, err := s.store.FindMembership(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("load membership: %w", err)
	}
	if m == nil {
		return fmt.Errorf("%w: membership revoke denied", access.ErrForbidden)
	}
	if m.Role == model.RoleOwner {
		return fmt.Errorf("%w: ownership cannot be revoked", access.ErrForbidden)
	}

	isAdmin, err := s.engine.EffectiveHasGroupRole(ctx, caller, groupID, model.RoleAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return fmt.Errorf("%w: revoking membership requires ADMIN", access.ErrForbidden)
	}

	if err := s.store.DeleteMembership(ctx, groupID, userID); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}

	s.log.Info().Int("group_id", groupID).Int("user_id", userID).Msg("Membership revoked")
	s.feed.Publish(ctx, GroupEvent{GroupID: groupID, Kind: EventMemberRevoked, ActorID: caller.UserID, SubjectID: userID})
	return nil
}

// ChangeGroupOwner atomically demotes the current owner to ADMIN and makes
// newOwnerID the permanent OWNER. Requires site admin or current OWNER. The
// store commits both writes in one transaction, so a failure leaves the
// group with its original single owner.
func (s *MembershipService) ChangeGroupOwner(ctx context.Context, caller model.Caller, groupID, newOwnerID int) error {
	members, err := s.store.FindGroupMemberships(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load memberships: %w", err)
	}

	var currentOwner *model.Membership
	for i := range members {
		if members[i].Role == model.RoleOwner {
			currentOwner = &members[i]
			break
		}
	}
	if currentOwner == nil {
		return fmt.Errorf("%w: group %d", access.ErrNotFound, groupID)
	}

	if !caller.IsSiteAdmin() && caller.UserID != currentOwner.UserID {
		return fmt.Errorf("%w: only the owner can transfer ownership", access.ErrForbidden)
	}

	if newOwnerID == currentOwner.UserID {
		return nil
	}

	if err := s.store.TransferOwnership(ctx, groupID, currentOwner.UserID, newOwnerID); err != nil {
		return fmt.Errorf("transfer ownership: %w", err)
	}

	s.log.Info().
		Int("group_id", groupID).
		Int("from", currentOwner.UserID).
		Int("to", newOwnerID).
		Msg("Ownership transferred")
	s.feed.Publish(ctx, GroupEvent{GroupID: groupID, Kind: EventOwnerChanged, ActorID: caller.UserID, SubjectID: newOwnerID})
	return nil
}
