package repository

import (
	"context"

	"github.com/edulane/edulane-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LessonRepository handles lesson data access.
type LessonRepository struct {
	pool *pgxpool.Pool
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{pool: pool}
}

// GetByID retrieves a lesson by id, or nil if not found.
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	var l model.Lesson
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, title, content, position, created_at, updated_at
		 FROM lessons WHERE id = $1`, id,
	).Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByCourse retrieves a course's lessons in position order.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]model.Lesson, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, title, content, position, created_at, updated_at
		 FROM lessons WHERE course_id = $1 ORDER BY position, created_at`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []model.Lesson
	for rows.Next() {
		var l model.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// Create inserts a new lesson and fills in generated fields.
func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO lessons (id, course_id, title, content, position)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.Content, lesson.Position,
	).Scan(&lesson.CreatedAt, &lesson.UpdatedAt)
}

// Update modifies an existing lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *model.Lesson) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE lessons SET title = $1, content = $2, position = $3, updated_at = now()
		 WHERE id = $4`,
		lesson.Title, lesson.Content, lesson.Position, lesson.ID,
	)
	return err
}

// Delete removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	return err
}
