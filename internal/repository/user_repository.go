package repository

import (
	"context"

	"github.com/edulane/edulane-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user account data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by id, or nil if not found.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	return r.get(ctx, `SELECT id, email, name, password_hash, site_role, created_at, updated_at
		FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email, or nil if not found.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, `SELECT id, email, name, password_hash, site_role, created_at, updated_at
		FROM users WHERE email = $1`, email)
}

// Create inserts a new user and fills in generated fields.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, site_role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		user.Email, user.Name, user.PasswordHash, user.SiteRole,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.SiteRole, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
