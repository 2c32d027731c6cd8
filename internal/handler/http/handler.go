package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dev-tahsin7/LMS-TestApp/internal/api"
	"github.com/dev-tahsin7/LMS-TestApp/internal/auth"
	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	"github.com/dev-tahsin7/LMS-TestApp/internal/service"
	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
	apperrors "github.com/dev-tahsin7/LMS-TestApp/pkg/errors"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/httputil"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/pagination"
)

// Handler serves the learner views as JSON.
type Handler struct {
	auth      *auth.Manager
	dashboard *service.DashboardService
	catalog   *service.CatalogService
	courses   *service.CourseService
	store     session.Store
	logger    *slog.Logger
	loginPath string
}

// NewHandler creates the web handler.
func NewHandler(
	manager *auth.Manager,
	dashboard *service.DashboardService,
	catalog *service.CatalogService,
	courses *service.CourseService,
	store session.Store,
	logger *slog.Logger,
	loginPath string,
) *Handler {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Handler{
		auth:      manager,
		dashboard: dashboard,
		catalog:   catalog,
		courses:   courses,
		store:     store,
		logger:    logger,
		loginPath: loginPath,
	}
}

// --- Response DTOs ---

// SessionResponse describes the current session without exposing tokens.
type SessionResponse struct {
	auth.Snapshot
	AccessToken  *session.TokenInfo `json:"access_token,omitempty"`
	RefreshToken *session.TokenInfo `json:"refresh_token,omitempty"`
}

// EnrollmentResponse is returned after a successful enrollment.
type EnrollmentResponse struct {
	CourseID   int64 `json:"course_id"`
	IsEnrolled bool  `json:"is_enrolled"`
}

// LessonProgressResponse is returned after a completion change.
type LessonProgressResponse struct {
	LessonID    int64 `json:"lesson_id"`
	IsCompleted bool  `json:"is_completed"`
}

// --- Auth ---

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.LoginCredentials
	if !h.decode(w, r, &creds) {
		return
	}
	if err := h.auth.Login(r.Context(), creds); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.auth.Snapshot())
}

// Signup handles POST /signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var creds domain.SignupCredentials
	if !h.decode(w, r, &creds) {
		return
	}
	if err := h.auth.Signup(r.Context(), creds); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, h.auth.Snapshot())
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context())
	httputil.WriteData(w, http.StatusOK, h.auth.Snapshot())
}

// Session handles GET /session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{Snapshot: h.auth.Snapshot()}

	s, err := h.store.Get(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp.AccessToken = inspect(s.AccessToken)
	resp.RefreshToken = inspect(s.RefreshToken)

	httputil.WriteData(w, http.StatusOK, resp)
}

func inspect(token string) *session.TokenInfo {
	if token == "" {
		return nil
	}
	info, err := session.InspectToken(token)
	if err != nil {
		return nil
	}
	return &info
}

// --- Profile ---

// GetProfile handles GET /profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u := h.auth.User()
	if u == nil {
		h.writeError(w, r, apperrors.Unauthorized("not signed in"))
		return
	}
	httputil.WriteData(w, http.StatusOK, u)
}

// UpdateProfile handles PATCH /profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch domain.UserPatch
	if !h.decode(w, r, &patch) {
		return
	}
	u, err := h.auth.UpdateUser(r.Context(), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, u)
}

// --- Courses ---

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Load(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, d)
}

// ListCourses handles GET /courses?page=&per_page=
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, pagination.Slice(courses, pagination.FromRequest(r)))
}

// Enroll handles POST /courses/{id}/enroll
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.catalog.Enroll(r.Context(), nil, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, EnrollmentResponse{CourseID: id, IsEnrolled: true})
}

// GetCourse handles GET /courses/{id}
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	c, err := h.courses.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, service.NewCourseDetail(c))
}

// CompleteLesson handles POST /lessons/{id}/complete
func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	h.setLesson(w, r, true)
}

// UncompleteLesson handles DELETE /lessons/{id}/complete
func (h *Handler) UncompleteLesson(w http.ResponseWriter, r *http.Request) {
	h.setLesson(w, r, false)
}

func (h *Handler) setLesson(w http.ResponseWriter, r *http.Request, completed bool) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.courses.SetLesson(r.Context(), id, completed); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, LessonProgressResponse{LessonID: id, IsCompleted: completed})
}

// GetLesson handles GET /lessons/{id}
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	v, err := h.courses.Lesson(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, v)
}

// --- Helpers ---

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "REQUEST_TOO_LARGE", Message: "request body exceeds 1 MB"},
			})
			return false
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}
	return true
}

// writeError sends the user back to the login page when the session could
// not be recovered; everything else goes through the JSON error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, api.ErrSessionExpired) {
		http.Redirect(w, r, h.loginPath, http.StatusSeeOther)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// sessionUser adapts the session context to middleware.RequireSession.
func (h *Handler) sessionUser(context.Context) (string, bool) {
	u := h.auth.User()
	if u == nil {
		return "", false
	}
	return strconv.FormatInt(u.ID, 10), true
}
