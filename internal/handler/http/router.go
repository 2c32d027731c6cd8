package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dev-tahsin7/LMS-TestApp/pkg/health"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/middleware"
)

// DefaultRoute is where "/" and unknown paths land.
const DefaultRoute = "/dashboard"

// RouterOptions tunes the web router.
type RouterOptions struct {
	CORS       middleware.CORSConfig
	PprofCIDRs []string
	// RequireSession guards the content routes. The learner views are
	// public by default.
	RequireSession bool
}

// NewRouter creates a chi router with all web companion routes registered.
func NewRouter(h *Handler, healthHandler *health.Handler, logger *slog.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(opts.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger, "/health", "/metrics"))
	r.Use(middleware.PrometheusMetrics("lmsweb"))
	r.Use(middleware.Tracing("lmsweb"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, opts.PprofCIDRs, logger)

	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore)

		r.Post("/login", h.Login)
		r.Post("/signup", h.Signup)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.Session)
	})

	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		if opts.RequireSession {
			r.Use(middleware.RequireSession(h.sessionUser, h.loginPath))
		}

		r.Get("/dashboard", h.Dashboard)
		r.Get("/courses", h.ListCourses)
		r.Get("/courses/{id}", h.GetCourse)
		r.Post("/courses/{id}/enroll", h.Enroll)
		r.Get("/lessons/{id}", h.GetLesson)
		r.Post("/lessons/{id}/complete", h.CompleteLesson)
		r.Delete("/lessons/{id}/complete", h.UncompleteLesson)

		r.With(middleware.NoStore).Get("/profile", h.GetProfile)
		r.With(middleware.NoStore).Patch("/profile", h.UpdateProfile)
	})

	r.Get("/", redirectHome)
	r.NotFound(redirectHome)

	return r
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, DefaultRoute, http.StatusFound)
}
