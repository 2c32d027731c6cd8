package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dev-tahsin7/LMS-TestApp/internal/activity"
	"github.com/dev-tahsin7/LMS-TestApp/internal/api"
	"github.com/dev-tahsin7/LMS-TestApp/internal/auth"
	"github.com/dev-tahsin7/LMS-TestApp/internal/config"
	"github.com/dev-tahsin7/LMS-TestApp/internal/service"
	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/database"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/kafka"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/tracing"
)

// Core is the dependency graph shared by lmsctl and lmsweb: the session
// store, the API client, the session context and the view services.
type Core struct {
	Store     session.Store
	API       *api.Client
	Auth      *auth.Manager
	Dashboard *service.DashboardService
	Catalog   *service.CatalogService
	Courses   *service.CourseService

	// Events is nil unless activity publishing is configured.
	Events *kafka.Producer

	logger         *slog.Logger
	rdb            *redis.Client
	shutdownTracer func(context.Context) error
}

// NewCore builds the dependency graph. The session context is left in the
// Initializing state; callers run Auth.Init when they need the user.
func NewCore(ctx context.Context, cfg *config.Config, serviceName string, logger *slog.Logger) (*Core, error) {
	shutdownTracer, err := tracing.InitTracer(ctx, cfg.TracingConfig(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	database.SetSlowOpLogging(cfg.SlowOpThreshold(), logger)

	store, rdb, err := newStore(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, err
	}

	client, err := api.New(cfg.APIConfig(), store, logger)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = shutdownTracer(ctx)
		return nil, fmt.Errorf("create api client: %w", err)
	}

	var (
		lms    activity.LMS = client
		events *kafka.Producer
	)
	if cfg.EventsEnabled() {
		events = kafka.NewProducer(cfg.ProducerConfig(), logger)
		lms = activity.Wrap(client, events, store, serviceName, logger)
		logger.Info("publishing activity events",
			slog.Any("brokers", cfg.EventBrokers),
		)
	}

	manager := auth.NewManager(lms, store, logger)
	client.SetNavigator(manager)

	return &Core{
		Store:          store,
		API:            client,
		Auth:           manager,
		Dashboard:      service.NewDashboardService(lms, manager, logger),
		Catalog:        service.NewCatalogService(lms, logger),
		Courses:        service.NewCourseService(lms, logger),
		Events:         events,
		logger:         logger,
		rdb:            rdb,
		shutdownTracer: shutdownTracer,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, *redis.Client, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return session.NewMemoryStore(), nil, nil

	case config.BackendRedis:
		rc := cfg.RedisConfig()
		rdb, err := database.NewRedisClient(ctx, rc)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", rc.Addr()),
			slog.Int("db", rc.DB),
		)
		return session.NewRedisStore(rdb, cfg.SessionKeyPrefix), rdb, nil

	default:
		path, err := cfg.SessionFilePath()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve session file: %w", err)
		}
		logger.Debug("using session file", slog.String("path", path))
		return session.NewFileStore(path), nil, nil
	}
}

// Redis returns the redis client behind the store, or nil.
func (c *Core) Redis() *redis.Client {
	return c.rdb
}

// Close flushes pending events and spans and releases the store connection.
func (c *Core) Close(ctx context.Context) {
	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			c.logger.Error("event producer close error", slog.String("error", err.Error()))
		}
	}
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			c.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if err := c.shutdownTracer(ctx); err != nil {
		c.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}
}
