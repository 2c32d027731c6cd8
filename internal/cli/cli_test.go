package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-tahsin7/LMS-TestApp/internal/auth"
	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	"github.com/dev-tahsin7/LMS-TestApp/internal/service"
	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/pagination"
)

// ============================================================================
// Mock LMS API
// ============================================================================

type mockLMS struct {
	mock.Mock
}

func (m *mockLMS) Login(ctx context.Context, creds domain.LoginCredentials) (domain.AuthResponse, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.AuthResponse), args.Error(1)
}

func (m *mockLMS) Signup(ctx context.Context, creds domain.SignupCredentials) (domain.AuthResponse, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.AuthResponse), args.Error(1)
}

func (m *mockLMS) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockLMS) CurrentUser(ctx context.Context) (domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockLMS) UpdateProfile(ctx context.Context, patch domain.UserPatch) (domain.User, error) {
	args := m.Called(ctx, patch)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockLMS) ListCourses(ctx context.Context) ([]domain.Course, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Course), args.Error(1)
}

func (m *mockLMS) GetCourse(ctx context.Context, id int64) (domain.Course, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Course), args.Error(1)
}

func (m *mockLMS) Enroll(ctx context.Context, courseID int64) error {
	return m.Called(ctx, courseID).Error(0)
}

func (m *mockLMS) ListEnrolledCourses(ctx context.Context) ([]domain.Course, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Course), args.Error(1)
}

func (m *mockLMS) MarkLessonComplete(ctx context.Context, lessonID int64) error {
	return m.Called(ctx, lessonID).Error(0)
}

func (m *mockLMS) MarkLessonIncomplete(ctx context.Context, lessonID int64) error {
	return m.Called(ctx, lessonID).Error(0)
}

func (m *mockLMS) GetLesson(ctx context.Context, id int64) (domain.Lesson, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Lesson), args.Error(1)
}

// ============================================================================
// Helpers
// ============================================================================

type testCLI struct {
	*CLI
	lms    *mockLMS
	store  *session.MemoryStore
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestCLI(t *testing.T, jsonOutput bool, stdin string) *testCLI {
	t.Helper()
	t.Setenv("LMS_PASSWORD", "")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lms := new(mockLMS)
	store := session.NewMemoryStore()
	manager := auth.NewManager(lms, store, logger)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	c := New(Deps{
		Auth:       manager,
		Dashboard:  service.NewDashboardService(lms, manager, logger),
		Catalog:    service.NewCatalogService(lms, logger),
		Courses:    service.NewCourseService(lms, logger),
		Store:      store,
		APIBaseURL: "https://lms.example.com",
	}, stdout, stderr, strings.NewReader(stdin), jsonOutput)
	manager.SetNavigator(c.Navigator())

	return &testCLI{CLI: c, lms: lms, store: store, stdout: stdout, stderr: stderr}
}

func ada() domain.User {
	return domain.User{ID: 7, Username: "ada", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}
}

func boolPtr(b bool) *bool { return &b }

func storeSession(t *testing.T, store session.Store) {
	t.Helper()
	u := ada()
	require.NoError(t, store.Set(context.Background(), domain.Session{
		AccessToken: "access", RefreshToken: "refresh", User: &u,
	}))
}

func sampleCourse() domain.Course {
	return domain.Course{
		ID:         9,
		Title:      "C++ for Beginners",
		Instructor: domain.User{FirstName: "Bjarne", LastName: "Stroustrup"},
		Modules: []domain.Module{
			{ID: 1, Title: "Basics", Order: 1, Lessons: []domain.Lesson{
				{ID: 11, Title: "Hello", Duration: 10, Order: 1, IsCompleted: boolPtr(true)},
				{ID: 12, Title: "Types", Duration: 20, Order: 2},
			}},
		},
	}
}

// ============================================================================
// Globals and dispatch
// ============================================================================

func TestParseGlobals(t *testing.T) {
	g, err := ParseGlobals([]string{"--json", "--api-url", "http://localhost:8000", "courses", "--page", "2"}, io.Discard)

	require.NoError(t, err)
	assert.True(t, g.JSON)
	assert.Equal(t, []string{"courses", "--page", "2"}, g.Args)
	assert.Equal(t, "http://localhost:8000", g.Overrides()["LMS_API_BASE_URL"])
	assert.Empty(t, g.Overrides()["LMS_SESSION_BACKEND"])
}

func TestParseGlobals_SessionFlags(t *testing.T) {
	g, err := ParseGlobals([]string{"--session-backend", "memory", "--session-file", "/tmp/s.json", "--log-level", "debug", "whoami"}, io.Discard)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"LMS_API_BASE_URL":    "",
		"LMS_SESSION_BACKEND": "memory",
		"LMS_SESSION_FILE":    "/tmp/s.json",
		"LOG_LEVEL":           "debug",
	}, g.Overrides())
	assert.Equal(t, []string{"whoami"}, g.Args)
}

func TestParseGlobals_MissingCommand(t *testing.T) {
	_, err := ParseGlobals(nil, io.Discard)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParseGlobals_UnknownFlag(t *testing.T) {
	_, err := ParseGlobals([]string{"--nope", "courses"}, io.Discard)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParseGlobals_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseGlobals([]string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "Commands:")
}

func TestRun_UnknownCommand(t *testing.T) {
	c := newTestCLI(t, false, "")
	err := c.Run(context.Background(), []string{"frobnicate"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestRun_Help(t *testing.T) {
	c := newTestCLI(t, false, "")
	require.NoError(t, c.Run(context.Background(), []string{"help"}))
	for _, name := range []string{"login", "courses", "status", "toggle"} {
		assert.Contains(t, c.stdout.String(), name)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 0, ExitCode(flag.ErrHelp))
	assert.Equal(t, 2, ExitCode(ErrUsage))
	assert.Equal(t, 1, ExitCode(ErrNotSignedIn))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
}

// ============================================================================
// Auth commands
// ============================================================================

func TestLogin_WithPasswordFlag(t *testing.T) {
	c := newTestCLI(t, false, "")
	creds := domain.LoginCredentials{Email: "ada@example.com", Password: "secret"}
	c.lms.On("Login", mock.Anything, creds).Return(domain.AuthResponse{Access: "a", Refresh: "r", User: ada()}, nil)

	err := c.Run(context.Background(), []string{"login", "--email", "ada@example.com", "--password", "secret"})

	require.NoError(t, err)
	assert.Equal(t, "Signed in as Ada Lovelace <ada@example.com>.\n", c.stdout.String())
	s, err := c.store.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Valid())
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	c := newTestCLI(t, false, "from-stdin\n")
	creds := domain.LoginCredentials{Email: "ada@example.com", Password: "from-stdin"}
	c.lms.On("Login", mock.Anything, creds).Return(domain.AuthResponse{Access: "a", Refresh: "r", User: ada()}, nil)

	require.NoError(t, c.Run(context.Background(), []string{"login", "--email", "ada@example.com"}))
	assert.Contains(t, c.stderr.String(), "Password: ")
}

func TestLogin_PasswordFromEnv(t *testing.T) {
	c := newTestCLI(t, false, "")
	t.Setenv("LMS_PASSWORD", "from-env")
	creds := domain.LoginCredentials{Email: "ada@example.com", Password: "from-env"}
	c.lms.On("Login", mock.Anything, creds).Return(domain.AuthResponse{Access: "a", Refresh: "r", User: ada()}, nil)

	require.NoError(t, c.Run(context.Background(), []string{"login", "--email", "ada@example.com"}))
}

func TestLogin_ValidationFailsBeforeRequest(t *testing.T) {
	c := newTestCLI(t, false, "")
	err := c.Run(context.Background(), []string{"login", "--email", "not-an-email", "--password", "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email address")
	c.lms.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_UnexpectedArgument(t *testing.T) {
	c := newTestCLI(t, false, "")
	err := c.Run(context.Background(), []string{"login", "extra"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestSignup_JSON(t *testing.T) {
	c := newTestCLI(t, true, "")
	creds := domain.SignupCredentials{
		Username: "ada", Email: "ada@example.com", Password: "correct-horse", FirstName: "Ada", LastName: "Lovelace",
	}
	c.lms.On("Signup", mock.Anything, creds).Return(domain.AuthResponse{Access: "a", Refresh: "r", User: ada()}, nil)

	err := c.Run(context.Background(), []string{"signup",
		"--username", "ada", "--email", "ada@example.com", "--first-name", "Ada", "--last-name", "Lovelace",
		"--password", "correct-horse"})

	require.NoError(t, err)
	var snap struct {
		State string       `json:"state"`
		User  *domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(c.stdout.Bytes(), &snap))
	assert.Equal(t, "authenticated", snap.State)
	assert.Equal(t, "ada", snap.User.Username)
}

func TestLogout(t *testing.T) {
	c := newTestCLI(t, false, "")
	storeSession(t, c.store)
	c.lms.On("Logout", mock.Anything).Return(nil)

	require.NoError(t, c.Run(context.Background(), []string{"logout"}))
	assert.Equal(t, "Signed out.\n", c.stdout.String())
}

func TestNavigatorPrintsHint(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.Navigator().RedirectToLogin(context.Background())
	assert.Contains(t, c.stderr.String(), "lmsctl login")
}

// ============================================================================
// Profile commands
// ============================================================================

func TestWhoami_NotSignedIn(t *testing.T) {
	c := newTestCLI(t, false, "")
	err := c.Run(context.Background(), []string{"whoami"})
	assert.ErrorIs(t, err, ErrNotSignedIn)
	c.lms.AssertNotCalled(t, "CurrentUser", mock.Anything)
}

func TestWhoami_ResumesStoredSession(t *testing.T) {
	c := newTestCLI(t, false, "")
	storeSession(t, c.store)
	c.lms.On("CurrentUser", mock.Anything).Return(ada(), nil).Once()

	require.NoError(t, c.Run(context.Background(), []string{"whoami"}))
	out := c.stdout.String()
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "Instructor:  no")

	require.NoError(t, c.Run(context.Background(), []string{"whoami"}))
	c.lms.AssertNumberOfCalls(t, "CurrentUser", 1)
}

func TestProfile_Update(t *testing.T) {
	c := newTestCLI(t, true, "")
	storeSession(t, c.store)
	c.lms.On("CurrentUser", mock.Anything).Return(ada(), nil)

	name := "Augusta"
	updated := ada()
	updated.FirstName = name
	c.lms.On("UpdateProfile", mock.Anything, domain.UserPatch{FirstName: &name}).Return(updated, nil)

	require.NoError(t, c.Run(context.Background(), []string{"profile", "--first-name", name}))

	var u domain.User
	require.NoError(t, json.Unmarshal(c.stdout.Bytes(), &u))
	assert.Equal(t, name, u.FirstName)

	s, err := c.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, name, s.User.FirstName)
}

func TestProfile_ShowWithoutFlags(t *testing.T) {
	c := newTestCLI(t, false, "")
	storeSession(t, c.store)
	c.lms.On("CurrentUser", mock.Anything).Return(ada(), nil)

	require.NoError(t, c.Run(context.Background(), []string{"profile"}))
	assert.Contains(t, c.stdout.String(), "Username:")
	c.lms.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
}

func TestProfile_NotSignedIn(t *testing.T) {
	c := newTestCLI(t, false, "")
	err := c.Run(context.Background(), []string{"profile", "--email", "x@example.com"})
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestPatchFromFlags_ExplicitEmpty(t *testing.T) {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.String("last-name", "", "")
	fs.String("email", "", "")
	require.NoError(t, fs.Parse([]string{"--last-name="}))

	patch := patchFromFlags(fs)
	require.NotNil(t, patch.LastName)
	assert.Empty(t, *patch.LastName)
	assert.Nil(t, patch.Email)
}

// ============================================================================
// Course commands
// ============================================================================

func TestDashboard_Empty(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.lms.On("ListEnrolledCourses", mock.Anything).Return([]domain.Course{}, nil)

	require.NoError(t, c.Run(context.Background(), []string{"dashboard"}))
	assert.Contains(t, c.stdout.String(), "Welcome back!")
	assert.Contains(t, c.stdout.String(), "not enrolled")
}

func TestDashboard_Table(t *testing.T) {
	c := newTestCLI(t, false, "")
	storeSession(t, c.store)
	c.lms.On("CurrentUser", mock.Anything).Return(ada(), nil)
	progress := 85.0
	c.lms.On("ListEnrolledCourses", mock.Anything).Return([]domain.Course{{ID: 3, Title: "Go", Progress: &progress}}, nil)

	require.NoError(t, c.Run(context.Background(), []string{"enrolled"}))
	out := c.stdout.String()
	assert.Contains(t, out, "Welcome back, Ada!")
	assert.Contains(t, out, "85%")
	assert.Contains(t, out, "high")
}

func TestCourses_Paginated(t *testing.T) {
	c := newTestCLI(t, true, "")
	c.lms.On("ListCourses", mock.Anything).Return([]domain.Course{{ID: 1}, {ID: 2}, {ID: 3}}, nil)

	require.NoError(t, c.Run(context.Background(), []string{"courses", "--page", "2", "--per-page", "2"}))

	var page pagination.Result[domain.Course]
	require.NoError(t, json.Unmarshal(c.stdout.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(3), page.Data[0].ID)
	assert.Equal(t, 2, page.TotalPages)
}

func TestCourses_Text(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.lms.On("ListCourses", mock.Anything).Return([]domain.Course{
		{ID: 1, Title: "Intro to Go", IsEnrolled: boolPtr(true), EnrolledStudents: 12},
	}, nil)

	require.NoError(t, c.Run(context.Background(), []string{"courses"}))
	out := c.stdout.String()
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Intro to Go")
	assert.Contains(t, out, "page 1 of 1 (1 courses)")
}

func TestCourse_BySlug(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.lms.On("ListCourses", mock.Anything).Return([]domain.Course{sampleCourse()}, nil)
	c.lms.On("GetCourse", mock.Anything, int64(9)).Return(sampleCourse(), nil)

	require.NoError(t, c.Run(context.Background(), []string{"course", "c-plus-plus-for-beginners"}))

	out := c.stdout.String()
	assert.Contains(t, out, "C++ for Beginners")
	assert.Contains(t, out, "Bjarne Stroustrup")
	assert.Contains(t, out, "1/2 lessons, 50% (medium)")
	assert.Contains(t, out, "[x]")
	assert.Contains(t, out, "[ ]")
}

func TestCourse_MissingArgument(t *testing.T) {
	c := newTestCLI(t, false, "")
	err := c.Run(context.Background(), []string{"course"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestEnroll(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.lms.On("Enroll", mock.Anything, int64(4)).Return(nil)

	require.NoError(t, c.Run(context.Background(), []string{"enroll", "4"}))
	assert.Equal(t, "Enrolled in course 4.\n", c.stdout.String())
}

// ============================================================================
// Lesson commands
// ============================================================================

func TestCompleteAndIncomplete(t *testing.T) {
	c := newTestCLI(t, true, "")
	c.lms.On("MarkLessonComplete", mock.Anything, int64(5)).Return(nil)
	c.lms.On("MarkLessonIncomplete", mock.Anything, int64(5)).Return(nil)

	require.NoError(t, c.Run(context.Background(), []string{"complete", "5"}))
	assert.JSONEq(t, `{"lesson_id":5,"is_completed":true}`, c.stdout.String())

	c.stdout.Reset()
	require.NoError(t, c.Run(context.Background(), []string{"incomplete", "5"}))
	assert.JSONEq(t, `{"lesson_id":5,"is_completed":false}`, c.stdout.String())
}

func TestComplete_InvalidID(t *testing.T) {
	c := newTestCLI(t, false, "")
	err := c.Run(context.Background(), []string{"complete", "abc"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestToggle(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.lms.On("GetCourse", mock.Anything, int64(9)).Return(sampleCourse(), nil)
	c.lms.On("MarkLessonComplete", mock.Anything, int64(12)).Return(nil)

	require.NoError(t, c.Run(context.Background(), []string{"toggle", "9", "12"}))
	out := c.stdout.String()
	assert.Contains(t, out, "Lesson 12 marked complete.")
	assert.Contains(t, out, "Course progress: 100%")
}

func TestToggle_UnknownLesson(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.lms.On("GetCourse", mock.Anything, int64(9)).Return(sampleCourse(), nil)

	err := c.Run(context.Background(), []string{"toggle", "9", "99"})
	require.Error(t, err)
	c.lms.AssertNotCalled(t, "MarkLessonComplete", mock.Anything, mock.Anything)
}

func TestLesson_HTML(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.lms.On("GetLesson", mock.Anything, int64(11)).Return(domain.Lesson{
		ID: 11, Title: "Hello", Duration: 10, Content: "# Hello", VideoURL: "https://video.example/1",
	}, nil)

	require.NoError(t, c.Run(context.Background(), []string{"lesson", "--html", "11"}))
	out := c.stdout.String()
	assert.Contains(t, out, "[ ] Hello")
	assert.Contains(t, out, "https://video.example/1")
	assert.Contains(t, out, "<h1>Hello</h1>")
}

func TestLesson_Markdown(t *testing.T) {
	c := newTestCLI(t, false, "")
	c.lms.On("GetLesson", mock.Anything, int64(11)).Return(domain.Lesson{ID: 11, Title: "Hello", Content: "# Hello"}, nil)

	require.NoError(t, c.Run(context.Background(), []string{"lesson", "11"}))
	assert.Contains(t, c.stdout.String(), "# Hello")
	assert.NotContains(t, c.stdout.String(), "<h1>")
}

// ============================================================================
// Status
// ============================================================================

func TestStatus(t *testing.T) {
	c := newTestCLI(t, false, "")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7, "token_type": "access", "exp": now.Add(5 * time.Minute).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7, "token_type": "refresh", "exp": now.Add(-time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	u := ada()
	require.NoError(t, c.store.Set(context.Background(), domain.Session{AccessToken: access, RefreshToken: refresh, User: &u}))

	require.NoError(t, c.Run(context.Background(), []string{"status"}))
	out := c.stdout.String()
	assert.Contains(t, out, "https://lms.example.com")
	assert.Contains(t, out, "ada (id 7)")
	assert.Contains(t, out, "(5m0s left)")
	assert.Contains(t, out, "expired at")
	assert.NotContains(t, out, access)
}

func TestStatus_NoSession(t *testing.T) {
	c := newTestCLI(t, true, "")
	require.NoError(t, c.Run(context.Background(), []string{"status"}))
	assert.JSONEq(t, `{"api":"https://lms.example.com","signed_in":false}`, c.stdout.String())
}

func TestDescribeToken(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "none", describeToken("", nil, now))
	assert.Equal(t, "present (not a JWT)", describeToken("opaque", nil, now))
	assert.Equal(t, "present (no expiry)", describeToken("x", &session.TokenInfo{}, now))
}
