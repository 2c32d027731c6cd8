package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	apperrors "github.com/dev-tahsin7/LMS-TestApp/pkg/errors"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/slug"
)

// CatalogService lists courses and handles enrollment.
type CatalogService struct {
	api    CourseAPI
	logger *slog.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(api CourseAPI, logger *slog.Logger) *CatalogService {
	return &CatalogService{api: api, logger: logger}
}

// List returns every course in the catalog.
func (s *CatalogService) List(ctx context.Context) ([]domain.Course, error) {
	courses, err := s.api.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Enroll enrolls in a course and marks it enrolled in courses, the caller's
// local copy of the list. On error courses is left untouched.
func (s *CatalogService) Enroll(ctx context.Context, courses []domain.Course, id int64) error {
	if err := s.api.Enroll(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "enrollment failed",
			slog.Int64("course_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("enroll in course %d: %w", id, err)
	}

	for i := range courses {
		if courses[i].ID == id {
			courses[i].MarkEnrolled()
		}
	}
	return nil
}

// ResolveID turns a course reference, either a numeric id or the slug of a
// title, into a course id.
func (s *CatalogService) ResolveID(ctx context.Context, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}

	courses, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range courses {
		if slug.Matches(ref, c.Title) {
			return c.ID, nil
		}
	}
	return 0, apperrors.NotFound("course", ref)
}
