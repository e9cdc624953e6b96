package service

import (
	"context"
	"fmt"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/edulane/edulane-backend/internal/repository"
	"github.com/google/uuid"
)

// CourseService handles course CRUD, gated through the access engine:
// VIEW to read, EDIT to update, FULL to delete. Courses are created by site
// admins; access for everyone else is delegated via group permissions.
type CourseService struct {
	courseRepo *repository.CourseRepository
	engine     *access.Engine
}

// NewCourseService creates a new CourseService.
func NewCourseService(courseRepo *repository.CourseRepository, engine *access.Engine) *CourseService {
	return &CourseService{courseRepo: courseRepo, engine: engine}
}

// List returns the courses the caller may at least view. The visibility
// filter is computed in one access resolution round trip.
func (s *CourseService) List(ctx context.Context, caller model.Caller) ([]model.Course, error) {
	courses, err := s.courseRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if caller.IsSiteAdmin() || len(courses) == 0 {
		return courses, nil
	}

	refs := make([]model.ResourceRef, len(courses))
	for i, c := range courses {
		refs[i] = model.CourseRef(c.ID)
	}
	best, err := s.engine.ResolveAll(ctx, caller.UserID, refs)
	if err != nil {
		return nil, err
	}

	visible := courses[:0]
	for i, c := range courses {
		if _, ok := best[refs[i].Key()]; ok {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// Get returns a course the caller may view.
func (s *CourseService) Get(ctx context.Context, caller model.Caller, id string) (*model.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course %s", access.ErrNotFound, id)
	}

	ok, err := s.engine.EffectiveHasAccess(ctx, caller, model.CourseRef(id), model.AccessView)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: viewing this course", access.ErrForbidden)
	}
	return course, nil
}

// Create makes a new course. Site admins only; everyone else receives access
// through group permissions afterwards.
func (s *CourseService) Create(ctx context.Context, caller model.Caller, title, description string) (*model.Course, error) {
	if !caller.IsSiteAdmin() {
		return nil, fmt.Errorf("%w: creating courses", access.ErrForbidden)
	}
	course := &model.Course{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		CreatedBy:   caller.UserID,
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// Update modifies a course. Requires EDIT.
func (s *CourseService) Update(ctx context.Context, caller model.Caller, course *model.Course) error {
	existing, err := s.courseRepo.GetByID(ctx, course.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: course %s", access.ErrNotFound, course.ID)
	}

	ok, err := s.engine.EffectiveHasAccess(ctx, caller, model.CourseRef(course.ID), model.AccessEdit)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: editing this course", access.ErrForbidden)
	}
	return s.courseRepo.Update(ctx, course)
}

// Delete removes a course and its lessons. Requires FULL.
func (s *CourseService) Delete(ctx context.Context, caller model.Caller, id string) error {
	ok, err := s.engine.EffectiveHasAccess(ctx, caller, model.CourseRef(id), model.AccessFull)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: deleting this course", access.ErrForbidden)
	}
	return s.courseRepo.Delete(ctx, id)
}
