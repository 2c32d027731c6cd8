package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dev-tahsin7/LMS-TestApp/pkg/httputil"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/logger"
)

// SessionFunc reports whether the caller has an authenticated session and,
// if so, the id of the signed-in user.
type SessionFunc func(ctx context.Context) (userID string, ok bool)

// RequireSession guards routes that need a signed-in user. Browsers are
// redirected to loginPath with the original path in ?next=; API callers get
// a 401 JSON error.
func RequireSession(check SessionFunc, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := check(r.Context())
			if !ok {
				if WantsHTML(r) {
					http.Redirect(w, r, LoginRedirect(loginPath, r.URL.RequestURI()), http.StatusSeeOther)
					return
				}
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "UNAUTHORIZED",
						Message:   "sign in required",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}

			ctx := logger.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WantsHTML reports whether the request prefers an HTML response.
func WantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// LoginRedirect builds the login URL carrying the page to return to.
func LoginRedirect(loginPath, next string) string {
	if next == "" || next == loginPath {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

// NoStore marks responses as uncacheable. Session-bearing pages must not be
// kept by shared caches.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
