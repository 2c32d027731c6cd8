// Package app wires the LMS client's dependencies for the two binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dev-tahsin7/LMS-TestApp/internal/config"
	handler "github.com/dev-tahsin7/LMS-TestApp/internal/handler/http"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/database"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/health"
)

// App wires together all dependencies and runs the web companion.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	core       *Core
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies
// and resuming any stored session.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	core, err := NewCore(ctx, cfg, "lmsweb", logger)
	if err != nil {
		return nil, err
	}

	core.Auth.Init(ctx)
	logger.Info("session context ready",
		slog.String("state", core.Auth.State().String()),
	)

	// Health checks. The hosted API sleeps when idle, so it does not gate
	// readiness.
	healthHandler := health.NewHandler()
	healthHandler.RegisterNonCritical("lms-api", core.API.Reachable)
	if rdb := core.Redis(); rdb != nil {
		healthHandler.Register("redis", database.RedisChecker(rdb))
	}
	if core.Events != nil {
		healthHandler.RegisterNonCritical("kafka", core.Events.Ping)
	}

	h := handler.NewHandler(
		core.Auth,
		core.Dashboard,
		core.Catalog,
		core.Courses,
		core.Store,
		logger,
		cfg.LoginPath,
	)
	router := handler.NewRouter(h, healthHandler, logger, handler.RouterOptions{
		CORS:           cfg.CORSConfig(),
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RequireSession: cfg.RequireSession,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		core:       core,
		httpServer: httpServer,
	}, nil
}

// Handler returns the HTTP handler served by Run.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("api", a.core.API.BaseURL()),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.core.Close(context.Background())
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.core.Close(shutdownCtx)

	a.logger.Info("application shutdown complete")
	return nil
}
