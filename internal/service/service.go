// Package service implements the learner-facing use cases on top of the LMS
// API: the dashboard, the course catalog, course detail and lessons.
package service

import (
	"context"

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
)

// CourseAPI is the part of the LMS client the views need.
type CourseAPI interface {
	ListCourses(ctx context.Context) ([]domain.Course, error)
	GetCourse(ctx context.Context, id int64) (domain.Course, error)
	Enroll(ctx context.Context, courseID int64) error
	ListEnrolledCourses(ctx context.Context) ([]domain.Course, error)
	MarkLessonComplete(ctx context.Context, lessonID int64) error
	MarkLessonIncomplete(ctx context.Context, lessonID int64) error
	GetLesson(ctx context.Context, id int64) (domain.Lesson, error)
}

// CurrentUser reports the signed-in user, or nil.
type CurrentUser interface {
	User() *domain.User
}
