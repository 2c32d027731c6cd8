package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
)

// CourseProgress is one enrolled course as the dashboard shows it.
type CourseProgress struct {
	Course  domain.Course       `json:"course"`
	Modules int                 `json:"modules"`
	Percent int                 `json:"progress"`
	Band    domain.ProgressBand `json:"band"`
}

// Dashboard is the signed-in landing view.
type Dashboard struct {
	Greeting string           `json:"greeting"`
	User     *domain.User     `json:"user,omitempty"`
	Courses  []CourseProgress `json:"courses"`
}

// DashboardService builds the dashboard.
type DashboardService struct {
	api    CourseAPI
	users  CurrentUser
	logger *slog.Logger
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(api CourseAPI, users CurrentUser, logger *slog.Logger) *DashboardService {
	return &DashboardService{api: api, users: users, logger: logger}
}

// Load fetches the enrolled courses and pairs them with the current user.
func (s *DashboardService) Load(ctx context.Context) (Dashboard, error) {
	courses, err := s.api.ListEnrolledCourses(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load enrolled courses", slog.String("error", err.Error()))
		return Dashboard{}, fmt.Errorf("load enrolled courses: %w", err)
	}

	d := Dashboard{
		User:    s.users.User(),
		Courses: make([]CourseProgress, 0, len(courses)),
	}
	d.Greeting = greeting(d.User)

	for _, c := range courses {
		percent := c.ReportedProgress()
		d.Courses = append(d.Courses, CourseProgress{
			Course:  c,
			Modules: len(c.Modules),
			Percent: percent,
			Band:    domain.BandFor(percent),
		})
	}
	return d, nil
}

func greeting(u *domain.User) string {
	if u == nil || u.FirstName == "" {
		return "Welcome back!"
	}
	return fmt.Sprintf("Welcome back, %s!", u.FirstName)
}
