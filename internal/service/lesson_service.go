package service

import (
	"context"
	"fmt"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/edulane/edulane-backend/internal/repository"
	"github.com/google/uuid"
)

// LessonService handles lesson CRUD. A lesson's access is keyed on its own
// LessonRef, independent of the parent course; listing a course's lessons
// needs VIEW on the course, reading a lesson needs VIEW on the lesson.
type LessonService struct {
	lessonRepo *repository.LessonRepository
	engine     *access.Engine
}

// NewLessonService creates a new LessonService.
func NewLessonService(lessonRepo *repository.LessonRepository, engine *access.Engine) *LessonService {
	return &LessonService{lessonRepo: lessonRepo, engine: engine}
}

// ListByCourse returns a course's lessons. Requires VIEW on the course.
func (s *LessonService) ListByCourse(ctx context.Context, caller model.Caller, courseID string) ([]model.Lesson, error) {
	ok, err := s.engine.EffectiveHasAccess(ctx, caller, model.CourseRef(courseID), model.AccessView)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: viewing this course", access.ErrForbidden)
	}
	return s.lessonRepo.ListByCourse(ctx, courseID)
}

// Get returns a lesson the caller may view.
func (s *LessonService) Get(ctx context.Context, caller model.Caller, id string) (*model.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, fmt.Errorf("%w: lesson %s", access.ErrNotFound, id)
	}

	ok, err := s.engine.EffectiveHasAccess(ctx, caller, model.LessonRef(id), model.AccessView)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: viewing this lesson", access.ErrForbidden)
	}
	return lesson, nil
}

// Create adds a lesson to a course. Requires FULL on the parent course.
func (s *LessonService) Create(ctx context.Context, caller model.Caller, lesson *model.Lesson) error {
	ok, err := s.engine.EffectiveHasAccess(ctx, caller, model.CourseRef(lesson.CourseID), model.AccessFull)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: adding lessons to this course", access.ErrForbidden)
	}

	lesson.ID = uuid.New().String()
	return s.lessonRepo.Create(ctx, lesson)
}

// Update modifies a lesson. Requires EDIT on the lesson.
func (s *LessonService) Update(ctx context.Context, caller model.Caller, lesson *model.Lesson) error {
	existing, err := s.lessonRepo.GetByID(ctx, lesson.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: lesson %s", access.ErrNotFound, lesson.ID)
	}

	ok, err := s.engine.EffectiveHasAccess(ctx, caller, model.LessonRef(lesson.ID), model.AccessEdit)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: editing this lesson", access.ErrForbidden)
	}
	return s.lessonRepo.Update(ctx, lesson)
}

// Delete removes a lesson. Requires FULL on the lesson.
func (s *LessonService) Delete(ctx context.Context, caller model.Caller, id string) error {
	ok, err := s.engine.EffectiveHasAccess(ctx, caller, model.LessonRef(id), model.AccessFull)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: deleting this lesson", access.ErrForbidden)
	}
	return s.lessonRepo.Delete(ctx, id)
}
