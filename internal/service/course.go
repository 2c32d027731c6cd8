package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	apperrors "github.com/dev-tahsin7/LMS-TestApp/pkg/errors"
)

// Raw HTML in lesson content is escaped; WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// CourseDetail is a course with its computed progress.
type CourseDetail struct {
	Course    domain.Course       `json:"course"`
	Completed int                 `json:"completed_lessons"`
	Total     int                 `json:"total_lessons"`
	Percent   int                 `json:"progress"`
	Band      domain.ProgressBand `json:"band"`
	Minutes   int                 `json:"total_duration"`
}

// NewCourseDetail computes the progress summary for c.
func NewCourseDetail(c domain.Course) CourseDetail {
	percent := c.ProgressPercent()
	return CourseDetail{
		Course:    c,
		Completed: c.CompletedLessons(),
		Total:     c.TotalLessons(),
		Percent:   percent,
		Band:      domain.BandFor(percent),
		Minutes:   c.TotalDuration(),
	}
}

// LessonView is a lesson with its markdown content rendered to HTML.
type LessonView struct {
	Lesson domain.Lesson `json:"lesson"`
	HTML   string        `json:"html"`
}

// CourseService backs the course detail and lesson views.
type CourseService struct {
	api    CourseAPI
	logger *slog.Logger
}

// NewCourseService creates a course service.
func NewCourseService(api CourseAPI, logger *slog.Logger) *CourseService {
	return &CourseService{api: api, logger: logger}
}

// Get fetches a course with modules and lessons in display order.
func (s *CourseService) Get(ctx context.Context, id int64) (domain.Course, error) {
	c, err := s.api.GetCourse(ctx, id)
	if err != nil {
		return domain.Course{}, fmt.Errorf("get course %d: %w", id, err)
	}
	c.SortByOrder()
	return c, nil
}

// ToggleLesson flips a lesson's completion on the server, then in course.
// On error course is left untouched.
func (s *CourseService) ToggleLesson(ctx context.Context, course *domain.Course, lessonID int64) error {
	lesson, _, ok := course.FindLesson(lessonID)
	if !ok {
		return apperrors.NotFound("lesson", strconv.FormatInt(lessonID, 10))
	}

	wasCompleted := lesson.Completed()
	var err error
	if wasCompleted {
		err = s.api.MarkLessonIncomplete(ctx, lessonID)
	} else {
		err = s.api.MarkLessonComplete(ctx, lessonID)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to update lesson progress",
			slog.Int64("lesson_id", lessonID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("update lesson %d: %w", lessonID, err)
	}

	course.SetLessonCompleted(lessonID, !wasCompleted)
	return nil
}

// SetLesson marks a lesson complete or incomplete regardless of its local
// state. It is used where no course has been loaded.
func (s *CourseService) SetLesson(ctx context.Context, lessonID int64, completed bool) error {
	var err error
	if completed {
		err = s.api.MarkLessonComplete(ctx, lessonID)
	} else {
		err = s.api.MarkLessonIncomplete(ctx, lessonID)
	}
	if err != nil {
		return fmt.Errorf("update lesson %d: %w", lessonID, err)
	}
	return nil
}

// Lesson fetches a lesson and renders its content.
func (s *CourseService) Lesson(ctx context.Context, id int64) (LessonView, error) {
	l, err := s.api.GetLesson(ctx, id)
	if err != nil {
		return LessonView{}, fmt.Errorf("get lesson %d: %w", id, err)
	}

	html, err := RenderMarkdown(l.Content)
	if err != nil {
		return LessonView{}, fmt.Errorf("render lesson %d: %w", id, err)
	}
	return LessonView{Lesson: l, HTML: html}, nil
}

// RenderMarkdown converts lesson markdown to HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
