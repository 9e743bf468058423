// Package main provides the entry point for the recipe form web service.
// The service renders the HTMX form and forwards submissions to the recipe
// generation backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/alchemorsel/recipe-form/internal/application/form"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/cache"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/hotreload"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/http/webserver"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-form/internal/ports/inbound"
	"github.com/alchemorsel/recipe-form/internal/ports/outbound"
	"github.com/alchemorsel/recipe-form/pkg/healthcheck"
	"github.com/alchemorsel/recipe-form/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	rateLimitCleanupInterval = time.Minute

	// pendingGrace is added to the backend timeout before a stored loading
	// state counts as abandoned
	pendingGrace = 30 * time.Second
)

func main() {
	app := fx.New(
		fx.NopLogger,

		// Configuration
		fx.Provide(func() (*config.Config, error) {
			return config.Load(os.Getenv("RECIPE_CONFIG"))
		}),

		// Logger
		fx.Provide(func(cfg *config.Config) (*zap.Logger, error) {
			return logger.New(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
			})
		}),

		// Backend client
		fx.Provide(
			webserver.NewAPIClient,
			func(c *webserver.APIClient) outbound.RecipeGenerator { return c },
		),

		// Session state
		fx.Provide(
			webserver.NewSessions,
			newRedisClient,
			newStateStore,
		),

		// Observability
		fx.Provide(
			newMetricsCollector,
			newRecorder,
			newTracingProvider,
		),

		// Form
		fx.Provide(func(cfg *config.Config, gen outbound.RecipeGenerator, store form.StateStore, rec form.Recorder, log *zap.Logger) *form.Service {
			svc := form.NewService(gen, store, rec, log)
			if cfg.API.Timeout > 0 {
				svc.SetPendingTimeout(cfg.API.Timeout + pendingGrace)
			}
			return svc
		}),
		fx.Provide(func(s *form.Service) inbound.RecipeForm { return s }),

		// Rate limiting and health
		fx.Provide(middleware.NewRateLimiter),
		fx.Provide(func(cfg *config.Config, log *zap.Logger) *healthcheck.HealthCheck {
			hc := healthcheck.New(cfg.App.Version, log)
			hc.SetCacheTTL(cfg.Monitoring.HealthCacheTTL)
			return hc
		}),

		// Web Server
		fx.Provide(func(
			cfg *config.Config,
			log *zap.Logger,
			forms inbound.RecipeForm,
			sessions *webserver.Sessions,
			hc *healthcheck.HealthCheck,
			metrics *monitoring.MetricsCollector,
			limiter *middleware.RateLimiter,
		) (*webserver.WebServer, error) {
			return webserver.NewWebServer(cfg, log, forms, sessions, hc, metrics, limiter)
		}),

		// Lifecycle
		fx.Invoke(initializeHealthChecks),
		fx.Invoke(registerLifecycleHooks),
	)

	app.Run()
}

// redisHandle holds a client only when sessions are kept in Redis
type redisHandle struct {
	client *redis.Client
}

func newRedisClient(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (redisHandle, error) {
	if cfg.Session.Backend != config.SessionBackendRedis {
		return redisHandle{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.NewRedisClient(ctx, &cfg.Redis, log)
	if err != nil {
		return redisHandle{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return redisHandle{client: client}, nil
}

func newStateStore(lc fx.Lifecycle, cfg *config.Config, rh redisHandle, log *zap.Logger) form.StateStore {
	if rh.client != nil {
		log.Info("Keeping session state in Redis", zap.String("addr", cfg.Redis.Addr()))
		return cache.NewSessionStateStore(rh.client, cfg.Session.TTL, log)
	}

	store := webserver.NewMemoryStateStore(cfg.Session.TTL, log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store
}

func newMetricsCollector(cfg *config.Config, log *zap.Logger) *monitoring.MetricsCollector {
	if !cfg.Monitoring.EnableMetrics {
		return nil
	}
	return monitoring.NewMetricsCollector(log)
}

// newRecorder keeps a disabled collector from becoming a non-nil interface
func newRecorder(metrics *monitoring.MetricsCollector) form.Recorder {
	if metrics == nil {
		return nil
	}
	return metrics
}

func newTracingProvider(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
	tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfigFrom(cfg), log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: tp.Shutdown,
	})
	return tp, nil
}

// initializeHealthChecks registers the checks of the web service
func initializeHealthChecks(
	cfg *config.Config,
	log *zap.Logger,
	hc *healthcheck.HealthCheck,
	apiClient *webserver.APIClient,
	rh redisHandle,
) {
	hc.Register("system", healthcheck.NewCustomChecker("system", func(context.Context) (healthcheck.Status, string, interface{}) {
		return healthcheck.StatusHealthy, "System operational", map[string]interface{}{
			"service":     cfg.App.Name,
			"version":     cfg.App.Version,
			"environment": cfg.App.Environment,
		}
	}))

	hc.Register("recipe_api", apiClient.HealthChecker("recipe_api"))

	if rh.client != nil {
		hc.Register("redis", healthcheck.NewRedisChecker(rh.client))
	}

	log.Info("Health checks initialized", zap.Bool("redis", rh.client != nil))
}

func registerLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	server *webserver.WebServer,
	limiter *middleware.RateLimiter,
	_ *monitoring.TracingProvider,
) {
	stop := make(chan struct{})
	watchCtx, cancelWatch := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Starting recipe form",
				zap.String("environment", cfg.App.Environment),
				zap.String("version", cfg.App.Version),
			)

			if cfg.RateLimit.Enable {
				go limiter.Run(rateLimitCleanupInterval, stop)
			}

			if cfg.Server.TemplatesDir != "" && cfg.IsDevelopment() {
				watcher, err := hotreload.New(cfg.Server.TemplatesDir, server.ReloadTemplates, log)
				if err != nil {
					cancelWatch()
					return err
				}
				go watcher.Run(watchCtx)
			}

			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Web server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			cancelWatch()

			if cfg.Server.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
			}
			return server.Shutdown(ctx)
		},
	})
}
