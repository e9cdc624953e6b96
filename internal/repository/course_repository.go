package repository

import (
	"context"

	"github.com/edulane/edulane-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CourseRepository handles course data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetByID retrieves a course by id, or nil if not found.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var c model.Course
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, created_by, created_at, updated_at
		 FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List retrieves all courses ordered by creation time.
func (r *CourseRepository) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, created_by, created_at, updated_at
		 FROM courses ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Create inserts a new course and fills in generated fields.
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (id, title, description, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		course.ID, course.Title, course.Description, course.CreatedBy,
	).Scan(&course.CreatedAt, &course.UpdatedAt)
}

// Update modifies an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *model.Course) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE courses SET title = $1, description = $2, updated_at = now() WHERE id = $3`,
		course.Title, course.Description, course.ID,
	)
	return err
}

// Delete removes a course; its lessons cascade.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}
