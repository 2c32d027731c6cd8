package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
)

// Login exchanges credentials for a token pair and the user.
func (c *Client) Login(ctx context.Context, creds domain.LoginCredentials) (domain.AuthResponse, error) {
	var resp domain.AuthResponse
	err := c.call(ctx, endpoint{name: "login", method: http.MethodPost, path: "/auth/login/"}, creds, &resp)
	return resp, err
}

// Signup creates an account and returns its token pair and user.
func (c *Client) Signup(ctx context.Context, creds domain.SignupCredentials) (domain.AuthResponse, error) {
	var resp domain.AuthResponse
	err := c.call(ctx, endpoint{name: "signup", method: http.MethodPost, path: "/auth/signup/"}, creds, &resp)
	return resp, err
}

// RefreshToken mints a new access token. It is never itself recovered on 401.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var resp domain.TokenRefresh
	err := c.call(ctx, endpoint{name: "token_refresh", method: http.MethodPost, path: "/auth/token/refresh/", bare: true},
		map[string]string{"refresh": refresh}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", fmt.Errorf("decode token_refresh response: empty access token")
	}
	return resp.Access, nil
}

// Logout revokes the stored refresh token when there is one and clears the
// store. The store is cleared even when the server call fails; that error is
// still returned.
func (c *Client) Logout(ctx context.Context) error {
	s, err := c.store.Get(ctx)
	if err != nil {
		s.RefreshToken = ""
	}

	var postErr error
	if s.RefreshToken != "" {
		postErr = c.call(ctx, endpoint{name: "logout", method: http.MethodPost, path: "/auth/logout/"},
			map[string]string{"refresh": s.RefreshToken}, nil)
	}

	if err := c.store.Clear(ctx); err != nil {
		if postErr != nil {
			return fmt.Errorf("logout: %w (clear session: %v)", postErr, err)
		}
		return fmt.Errorf("clear session: %w", err)
	}
	if postErr != nil {
		return fmt.Errorf("logout: %w", postErr)
	}
	return nil
}

// CurrentUser fetches the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := c.call(ctx, endpoint{name: "current_user", method: http.MethodGet, path: "/auth/user/"}, nil, &u)
	return u, err
}

// UpdateProfile applies a partial update and returns the server's user.
func (c *Client) UpdateProfile(ctx context.Context, patch domain.UserPatch) (domain.User, error) {
	var u domain.User
	err := c.call(ctx, endpoint{name: "update_profile", method: http.MethodPatch, path: "/auth/user/"}, patch, &u)
	return u, err
}

// ListCourses returns the course catalog.
func (c *Client) ListCourses(ctx context.Context) ([]domain.Course, error) {
	var courses []domain.Course
	if err := c.call(ctx, endpoint{name: "list_courses", method: http.MethodGet, path: "/courses/"}, nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCourse fetches one course with its modules and lessons.
func (c *Client) GetCourse(ctx context.Context, id int64) (domain.Course, error) {
	var course domain.Course
	err := c.call(ctx, endpoint{name: "get_course", method: http.MethodGet, path: idPath("/courses/%s/", id)}, nil, &course)
	return course, err
}

// Enroll enrolls the current user in a course.
func (c *Client) Enroll(ctx context.Context, courseID int64) error {
	return c.call(ctx, endpoint{name: "enroll", method: http.MethodPost, path: idPath("/courses/%s/enroll/", courseID)}, nil, nil)
}

// ListEnrolledCourses returns the courses the current user is enrolled in.
func (c *Client) ListEnrolledCourses(ctx context.Context) ([]domain.Course, error) {
	var courses []domain.Course
	if err := c.call(ctx, endpoint{name: "list_enrolled_courses", method: http.MethodGet, path: "/courses/enrolled/"}, nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// MarkLessonComplete records a lesson as completed.
func (c *Client) MarkLessonComplete(ctx context.Context, lessonID int64) error {
	return c.call(ctx, endpoint{name: "mark_lesson_complete", method: http.MethodPost, path: idPath("/lessons/%s/complete/", lessonID)}, nil, nil)
}

// MarkLessonIncomplete clears a lesson's completion.
func (c *Client) MarkLessonIncomplete(ctx context.Context, lessonID int64) error {
	return c.call(ctx, endpoint{name: "mark_lesson_incomplete", method: http.MethodDelete, path: idPath("/lessons/%s/complete/", lessonID)}, nil, nil)
}

// GetLesson fetches one lesson.
func (c *Client) GetLesson(ctx context.Context, id int64) (domain.Lesson, error) {
	var lesson domain.Lesson
	err := c.call(ctx, endpoint{name: "get_lesson", method: http.MethodGet, path: idPath("/lessons/%s/", id)}, nil, &lesson)
	return lesson, err
}
