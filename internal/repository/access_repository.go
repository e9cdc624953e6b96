package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessRepository is the pgx-backed access.Store. Multi-write operations
// run inside a single transaction so the engine's atomicity requirements
// hold at the storage boundary.
type AccessRepository struct {
	pool *pgxpool.Pool
}

// NewAccessRepository creates a new AccessRepository.
func NewAccessRepository(pool *pgxpool.Pool) *AccessRepository {
	return &AccessRepository{pool: pool}
}

// FindGroup returns the group or nil if it does not exist.
func (r *AccessRepository) FindGroup(ctx context.Context, groupID int) (*model.Group, error) {
	var g model.Group
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, parent_id, version, created_at, updated_at
		 FROM groups WHERE id = $1`, groupID,
	).Scan(&g.ID, &g.Name, &g.ParentID, &g.Version, &g.CreatedAt, &g.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FindMembership returns the membership row for (groupID, userID) or nil.
func (r *AccessRepository) FindMembership(ctx context.Context, groupID, userID int) (*model.Membership, error) {
	var m model.Membership
	err := r.pool.QueryRow(ctx,
		`SELECT group_id, user_id, role, expires_at
		 FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	).Scan(&m.GroupID, &m.UserID, &m.Role, &m.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindGroupMemberships returns every membership row of a group.
func (r *AccessRepository) FindGroupMemberships(ctx context.Context, groupID int) ([]model.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT group_id, user_id, role, expires_at
		 FROM group_memberships WHERE group_id = $1 ORDER BY user_id`, groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// FindActiveMemberships returns the user's memberships active at now.
func (r *AccessRepository) FindActiveMemberships(ctx context.Context, userID int, now time.Time) ([]model.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT group_id, user_id, role, expires_at
		 FROM group_memberships
		 WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		 ORDER BY group_id`, userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// FindGroupPermissions returns every permission row of a group.
func (r *AccessRepository) FindGroupPermissions(ctx context.Context, groupID int) ([]model.GroupPermission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, group_id, resource_kind, resource_id, access_level
		 FROM group_permissions WHERE group_id = $1 ORDER BY id`, groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// FindPermissionsForResources returns permissions on the given resources
// held by groups in which userID has an active membership. Resources are
// matched on the (kind, id) pair, so a course and a lesson sharing a raw id
// never match each other's rows.
func (r *AccessRepository) FindPermissionsForResources(ctx context.Context, refs []model.ResourceRef, userID int, now time.Time) ([]model.GroupPermission, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.Key()
	}

	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.group_id, p.resource_kind, p.resource_id, p.access_level
		 FROM group_permissions p
		 JOIN group_memberships m ON m.group_id = p.group_id
		 WHERE m.user_id = $1
		   AND (m.expires_at IS NULL OR m.expires_at > $2)
		   AND p.resource_kind || ':' || p.resource_id = ANY($3)`,
		userID, now, keys,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// FindPermission returns the permission row or nil.
func (r *AccessRepository) FindPermission(ctx context.Context, permissionID int) (*model.GroupPermission, error) {
	var (
		p    model.GroupPermission
		kind model.ResourceKind
		id   string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, group_id, resource_kind, resource_id, access_level
		 FROM group_permissions WHERE id = $1`, permissionID,
	).Scan(&p.ID, &p.GroupID, &kind, &id, &p.AccessLevel)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Resource, err = model.NewResourceRef(kind, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateGroup persists the group with its initial permissions and members in
// one transaction, filling in generated ids and timestamps.
func (r *AccessRepository) CreateGroup(ctx context.Context, group *model.Group, permissions []model.GroupPermission, members []model.Membership) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO groups (name, parent_id)
			 VALUES ($1, $2)
			 RETURNING id, version, created_at, updated_at`,
			group.Name, group.ParentID,
		).Scan(&group.ID, &group.Version, &group.CreatedAt, &group.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}

		for i := range permissions {
			permissions[i].GroupID = group.ID
			if err := upsertPermission(ctx, tx, &permissions[i]); err != nil {
				return fmt.Errorf("insert permission: %w", err)
			}
		}
		for i := range members {
			members[i].GroupID = group.ID
			if err := upsertMembership(ctx, tx, members[i]); err != nil {
				return fmt.Errorf("insert membership: %w", err)
			}
		}
		return nil
	})
}

// ApplyGroupUpdate commits a diffed group update atomically, guarded by the
// group's version column.
func (r *AccessRepository) ApplyGroupUpdate(ctx context.Context, update access.GroupUpdate) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE groups SET name = $1, version = version + 1, updated_at = now()
			 WHERE id = $2 AND version = $3`,
			update.Name, update.GroupID, update.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update group: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)`, update.GroupID,
			).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return access.ErrConflict
			}
			return access.ErrNotFound
		}

		if len(update.DeleteResources) > 0 {
			keys := make([]string, len(update.DeleteResources))
			for i, ref := range update.DeleteResources {
				keys[i] = ref.Key()
			}
			_, err = tx.Exec(ctx,
				`DELETE FROM group_permissions
				 WHERE group_id = $1 AND resource_kind || ':' || resource_id = ANY($2)`,
				update.GroupID, keys,
			)
			if err != nil {
				return fmt.Errorf("delete permissions: %w", err)
			}
		}
		for i := range update.UpsertPermissions {
			update.UpsertPermissions[i].GroupID = update.GroupID
			if err := upsertPermission(ctx, tx, &update.UpsertPermissions[i]); err != nil {
				return fmt.Errorf("upsert permission: %w", err)
			}
		}

		if len(update.DeleteMemberIDs) > 0 {
			_, err = tx.Exec(ctx,
				`DELETE FROM group_memberships WHERE group_id = $1 AND user_id = ANY($2)`,
				update.GroupID, update.DeleteMemberIDs,
			)
			if err != nil {
				return fmt.Errorf("delete memberships: %w", err)
			}
		}
		for _, m := range update.UpsertMembers {
			m.GroupID = update.GroupID
			if err := upsertMembership(ctx, tx, m); err != nil {
				return fmt.Errorf("upsert membership: %w", err)
			}
		}
		return nil
	})
}

// DeleteGroup removes the group; memberships and permissions cascade via
// foreign keys.
func (r *AccessRepository) DeleteGroup(ctx context.Context, groupID int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	return err
}

// UpsertMembership inserts or replaces a membership row.
func (r *AccessRepository) UpsertMembership(ctx context.Context, m model.Membership) error {
	return upsertMembership(ctx, r.pool, m)
}

// DeleteMembership removes a membership row.
func (r *AccessRepository) DeleteMembership(ctx context.Context, groupID, userID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	return err
}

// TransferOwnership demotes the current owner and promotes the new one in a
// single transaction. If the expected owner row is gone (a concurrent
// transfer won), nothing is written and ErrConflict is returned.
func (r *AccessRepository) TransferOwnership(ctx context.Context, groupID, currentOwnerID, newOwnerID int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE group_memberships SET role = $1
			 WHERE group_id = $2 AND user_id = $3 AND role = $4`,
			model.RoleAdmin, groupID, currentOwnerID, model.RoleOwner,
		)
		if err != nil {
			return fmt.Errorf("demote owner: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return access.ErrConflict
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO group_memberships (group_id, user_id, role, expires_at)
			 VALUES ($1, $2, $3, NULL)
			 ON CONFLICT (group_id, user_id)
			 DO UPDATE SET role = EXCLUDED.role, expires_at = NULL`,
			groupID, newOwnerID, model.RoleOwner,
		)
		if err != nil {
			return fmt.Errorf("promote owner: %w", err)
		}
		return nil
	})
}

// UpsertPermission inserts or replaces a permission row, filling in the id.
func (r *AccessRepository) UpsertPermission(ctx context.Context, p *model.GroupPermission) error {
	return upsertPermission(ctx, r.pool, p)
}

// DeletePermission removes a permission row.
func (r *AccessRepository) DeletePermission(ctx context.Context, permissionID int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM group_permissions WHERE id = $1`, permissionID)
	return err
}

// ─── Internal helpers ───────────────────────────────────────────────

// querier is the subset of pgxpool.Pool and pgx.Tx the upsert helpers need,
// so the same statements serve both transactional and standalone writes.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertMembership(ctx context.Context, q querier, m model.Membership) error {
	_, err := q.Exec(ctx,
		`INSERT INTO group_memberships (group_id, user_id, role, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (group_id, user_id)
		 DO UPDATE SET role = EXCLUDED.role, expires_at = EXCLUDED.expires_at`,
		m.GroupID, m.UserID, m.Role, m.ExpiresAt,
	)
	return err
}

func upsertPermission(ctx context.Context, q querier, p *model.GroupPermission) error {
	return q.QueryRow(ctx,
		`INSERT INTO group_permissions (group_id, resource_kind, resource_id, access_level)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (group_id, resource_kind, resource_id)
		 DO UPDATE SET access_level = EXCLUDED.access_level
		 RETURNING id`,
		p.GroupID, p.Resource.Kind(), p.Resource.ID(), p.AccessLevel,
	).Scan(&p.ID)
}

func scanMemberships(rows pgx.Rows) ([]model.Membership, error) {
	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanPermissions(rows pgx.Rows) ([]model.GroupPermission, error) {
	var out []model.GroupPermission
	for rows.Next() {
		var (
			p    model.GroupPermission
			kind model.ResourceKind
			id   string
		)
		if err := rows.Scan(&p.ID, &p.GroupID, &kind, &id, &p.AccessLevel); err != nil {
			return nil, err
		}
		ref, err := model.NewResourceRef(kind, id)
		if err != nil {
			return nil, err
		}
		p.Resource = ref
		out = append(out, p)
	}
	return out, rows.Err()
}
