// Package activity publishes learning events (sign-ins, enrollments and
// lesson progress) to Kafka as the client performs them.
package activity

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dev-tahsin7/LMS-TestApp/internal/auth"
	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	"github.com/dev-tahsin7/LMS-TestApp/internal/service"
	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/kafka"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/logger"
)

// Event types.
const (
	EventSignedIn         = "session.signed_in"
	EventSignedOut        = "session.signed_out"
	EventCourseEnrolled   = "course.enrolled"
	EventLessonCompleted  = "lesson.completed"
	EventLessonIncomplete = "lesson.uncompleted"
)

// LMS is the backend surface the tracker wraps.
type LMS interface {
	auth.API
	service.CourseAPI
}

// Publisher writes an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// SessionPayload is the data of session events.
type SessionPayload struct {
	UserID    int64  `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Method    string `json:"method,omitempty"`
	ServerAck *bool  `json:"server_ack,omitempty"`
}

// CoursePayload is the data of enrollment events.
type CoursePayload struct {
	CourseID int64 `json:"course_id"`
	UserID   int64 `json:"user_id,omitempty"`
}

// LessonPayload is the data of lesson progress events.
type LessonPayload struct {
	LessonID  int64 `json:"lesson_id"`
	UserID    int64 `json:"user_id,omitempty"`
	Completed bool  `json:"completed"`
}

// Tracker forwards every call to the wrapped LMS and publishes an event
// after each successful state change. Publish failures are logged and never
// reach the caller.
type Tracker struct {
	LMS

	pub    Publisher
	store  session.Store
	source string
	logger *slog.Logger
}

// Wrap returns lms with activity tracking.
func Wrap(lms LMS, pub Publisher, store session.Store, source string, logger *slog.Logger) *Tracker {
	return &Tracker{LMS: lms, pub: pub, store: store, source: source, logger: logger}
}

func (t *Tracker) Login(ctx context.Context, creds domain.LoginCredentials) (domain.AuthResponse, error) {
	resp, err := t.LMS.Login(ctx, creds)
	if err != nil {
		return resp, err
	}
	t.publishSignIn(ctx, resp.User, "login")
	return resp, nil
}

func (t *Tracker) Signup(ctx context.Context, creds domain.SignupCredentials) (domain.AuthResponse, error) {
	resp, err := t.LMS.Signup(ctx, creds)
	if err != nil {
		return resp, err
	}
	t.publishSignIn(ctx, resp.User, "signup")
	return resp, nil
}

// Logout publishes a sign-out whether or not the server acknowledged it;
// server_ack records which.
func (t *Tracker) Logout(ctx context.Context) error {
	userID := t.userID(ctx)
	err := t.LMS.Logout(ctx)

	ack := err == nil
	t.publish(ctx, "session", "signed_out", EventSignedOut, formatID(userID), userID,
		SessionPayload{UserID: userID, ServerAck: &ack})
	return err
}

func (t *Tracker) Enroll(ctx context.Context, courseID int64) error {
	if err := t.LMS.Enroll(ctx, courseID); err != nil {
		return err
	}
	userID := t.userID(ctx)
	t.publish(ctx, "course", "enrolled", EventCourseEnrolled, formatID(courseID), userID,
		CoursePayload{CourseID: courseID, UserID: userID})
	return nil
}

func (t *Tracker) MarkLessonComplete(ctx context.Context, lessonID int64) error {
	if err := t.LMS.MarkLessonComplete(ctx, lessonID); err != nil {
		return err
	}
	userID := t.userID(ctx)
	t.publish(ctx, "lesson", "completed", EventLessonCompleted, formatID(lessonID), userID,
		LessonPayload{LessonID: lessonID, UserID: userID, Completed: true})
	return nil
}

func (t *Tracker) MarkLessonIncomplete(ctx context.Context, lessonID int64) error {
	if err := t.LMS.MarkLessonIncomplete(ctx, lessonID); err != nil {
		return err
	}
	userID := t.userID(ctx)
	t.publish(ctx, "lesson", "uncompleted", EventLessonIncomplete, formatID(lessonID), userID,
		LessonPayload{LessonID: lessonID, UserID: userID, Completed: false})
	return nil
}

func (t *Tracker) publishSignIn(ctx context.Context, user domain.User, method string) {
	t.publish(ctx, "session", "signed_in", EventSignedIn, formatID(user.ID), user.ID,
		SessionPayload{UserID: user.ID, Username: user.Username, Method: method})
}

func (t *Tracker) publish(ctx context.Context, aggregateType, action, eventType, aggregateID string, userID int64, data any) {
	event, err := kafka.NewEvent(eventType, aggregateID, aggregateType, t.source, data)
	if err != nil {
		t.logger.WarnContext(ctx, "failed to build activity event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))
	if userID != 0 {
		event.WithMetadata("user_id", formatID(userID))
	}

	if err := t.pub.Publish(ctx, kafka.Topic(aggregateType, action), event); err != nil {
		t.logger.WarnContext(ctx, "failed to publish activity event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// userID reads the signed-in user from the store; 0 when unknown.
func (t *Tracker) userID(ctx context.Context) int64 {
	s, err := t.store.Get(ctx)
	if err != nil || s.User == nil {
		return 0
	}
	return s.User.ID
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
