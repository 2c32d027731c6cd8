package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dev-tahsin7/LMS-TestApp/pkg/logger"
)

func signedOut(context.Context) (string, bool) { return "", false }

func TestRequireSession_Authenticated(t *testing.T) {
	var userID string
	h := RequireSession(func(context.Context) (string, bool) { return "42", true }, "/login")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID = logger.UserIDFromContext(r.Context())
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", userID)
}

func TestRequireSession_BrowserRedirectsToLogin(t *testing.T) {
	h := RequireSession(signedOut, "/login")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/courses/3?tab=lessons", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fcourses%2F3%3Ftab%3Dlessons", rec.Header().Get("Location"))
}

func TestRequireSession_APIGets401(t *testing.T) {
	h := RequireSession(signedOut, "/login")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestLoginRedirect(t *testing.T) {
	assert.Equal(t, "/login", LoginRedirect("/login", ""))
	assert.Equal(t, "/login", LoginRedirect("/login", "/login"))
	assert.Equal(t, "/login?next=%2Fprofile", LoginRedirect("/login", "/profile"))
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
