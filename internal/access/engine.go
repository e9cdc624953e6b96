package access

import (
	"context"
	"fmt"
	"time"

	"github.com/edulane/edulane-backend/internal/model"
)

// Engine answers "does this user hold this access level on this resource"
// questions. It is stateless: every decision depends only on the arguments
// and the current store snapshot.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine creates an Engine over the given store.
func NewEngine(store Store) *Engine {
	return NewEngineWithClock(store, time.Now)
}

// NewEngineWithClock creates an Engine with a fixed clock. Used by tests to
// pin membership-expiry boundaries.
func NewEngineWithClock(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// BestAccess is the outcome of resolving a user's strongest grant on a
// resource: the level and one group that grants it.
type BestAccess struct {
	Level   model.AccessLevel `json:"level"`
	GroupID int               `json:"group_id"`
}

// Check pairs a resource with the level required on it.
type Check struct {
	Resource model.ResourceRef `json:"resource"`
	Required model.AccessLevel `json:"required"`
}

// ResolveBestAccess returns the highest access level the user holds on the
// resource through any active group membership, or nil if no active
// membership grants any level. When several groups grant the maximum, any
// one of them may be reported.
func (e *Engine) ResolveBestAccess(ctx context.Context, userID int, resource model.ResourceRef) (*BestAccess, error) {
	perms, err := e.store.FindPermissionsForResources(ctx, []model.ResourceRef{resource}, userID, e.now())
	if err != nil {
		return nil, fmt.Errorf("resolve best access: %w", err)
	}

	var best *BestAccess
	for _, p := range perms {
		if p.Resource != resource {
			continue
		}
		if best == nil || p.AccessLevel.Rank() > best.Level.Rank() {
			best = &BestAccess{Level: p.AccessLevel, GroupID: p.GroupID}
		}
	}
	return best, nil
}

// HasAccess reports whether the user holds at least the required level on
// the resource.
func (e *Engine) HasAccess(ctx context.Context, userID int, resource model.ResourceRef, required model.AccessLevel) (bool, error) {
	best, err := e.ResolveBestAccess(ctx, userID, resource)
	if err != nil {
		return false, err
	}
	return best != nil && best.Level.GreaterOrEqual(required), nil
}

// ResolveAll computes the user's best access for each of the given resources
// in one store round trip. The result maps ResourceRef.Key() to the best
// grant; resources with no grant are absent. Aggregation is keyed per
// (kind, id): a course and a lesson sharing a raw id never land in the same
// bucket.
func (e *Engine) ResolveAll(ctx context.Context, userID int, refs []model.ResourceRef) (map[string]BestAccess, error) {
	if len(refs) == 0 {
		return map[string]BestAccess{}, nil
	}

	unique := make([]model.ResourceRef, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, r := range refs {
		if r.IsZero() {
			return nil, fmt.Errorf("resolve all: %w: zero resource ref", ErrInvalidRequest)
		}
		if !seen[r.Key()] {
			seen[r.Key()] = true
			unique = append(unique, r)
		}
	}

	perms, err := e.store.FindPermissionsForResources(ctx, unique, userID, e.now())
	if err != nil {
		return nil, fmt.Errorf("resolve all: %w", err)
	}

	best := make(map[string]BestAccess, len(unique))
	for _, p := range perms {
		key := p.Resource.Key()
		if cur, ok := best[key]; !ok || p.AccessLevel.Rank() > cur.Level.Rank() {
			best[key] = BestAccess{Level: p.AccessLevel, GroupID: p.GroupID}
		}
	}
	return best, nil
}

// ResolveBatch evaluates all checks in one store round trip and reports
// whether every one of them passes.
func (e *Engine) ResolveBatch(ctx context.Context, userID int, checks []Check) (bool, error) {
	if len(checks) == 0 {
		return true, nil
	}

	refs := make([]model.ResourceRef, 0, len(checks))
	for _, c := range checks {
		if !c.Required.Valid() {
			return false, fmt.Errorf("resolve batch: %w: malformed check", ErrInvalidRequest)
		}
		refs = append(refs, c.Resource)
	}

	best, err := e.ResolveAll(ctx, userID, refs)
	if err != nil {
		return false, err
	}

	for _, c := range checks {
		got, ok := best[c.Resource.Key()]
		if !ok || !got.Level.GreaterOrEqual(c.Required) {
			return false, nil
		}
	}
	return true, nil
}

// HasGroupRole reports whether the user holds an active membership in the
// group with at least the given role.
func (e *Engine) HasGroupRole(ctx context.Context, groupID, userID int, minRole model.GroupRole) (bool, error) {
	m, err := e.store.FindMembership(ctx, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("has group role: %w", err)
	}
	if m == nil || !m.ActiveAt(e.now()) {
		return false, nil
	}
	return m.Role.GreaterOrEqual(minRole), nil
}

// ─── Caller-aware wrappers ──────────────────────────────────────────
//
// Site admins hold FULL access everywhere and outrank every group role.
// The wrappers short-circuit for them without touching the store.

// EffectiveHasAccess is HasAccess with the site-admin bypass.
func (e *Engine) EffectiveHasAccess(ctx context.Context, caller model.Caller, resource model.ResourceRef, required model.AccessLevel) (bool, error) {
	if caller.IsSiteAdmin() {
		return true, nil
	}
	return e.HasAccess(ctx, caller.UserID, resource, required)
}

// EffectiveBestAccess is ResolveBestAccess with the site-admin bypass; for a
// site admin it reports FULL with no granting group.
func (e *Engine) EffectiveBestAccess(ctx context.Context, caller model.Caller, resource model.ResourceRef) (*BestAccess, error) {
	if caller.IsSiteAdmin() {
		return &BestAccess{Level: model.AccessFull}, nil
	}
	return e.ResolveBestAccess(ctx, caller.UserID, resource)
}

// EffectiveHasAccessBatch is ResolveBatch with the site-admin bypass.
func (e *Engine) EffectiveHasAccessBatch(ctx context.Context, caller model.Caller, checks []Check) (bool, error) {
	if caller.IsSiteAdmin() {
		return true, nil
	}
	return e.ResolveBatch(ctx, caller.UserID, checks)
}

// EffectiveHasGroupRole is HasGroupRole with the site-admin bypass.
func (e *Engine) EffectiveHasGroupRole(ctx context.Context, caller model.Caller, groupID int, minRole model.GroupRole) (bool, error) {
	if caller.IsSiteAdmin() {
		return true, nil
	}
	return e.HasGroupRole(ctx, groupID, caller.UserID, minRole)
}
