package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/calibration"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/cache"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/config"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/db"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/email"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/jobs"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/metrics"
	audithandler "github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/handlers/audit"
	calibrationhandler "github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/handlers/calibration"
	notificationshandler "github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/handlers/notifications"
	orghandler "github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/handlers/org"
	performancehandler "github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/handlers/performance"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/middleware"
)

// Stores groups the persistence ports the services run on. Postgres backs
// all of them in production; tests pass the in-memory store.
type Stores struct {
	Org           org.StoreAPI
	Performance   performance.StoreAPI
	Campaigns     performance.CampaignActivator
	Calibration   calibration.StoreAPI
	Notifications notifications.StoreAPI
	Audit         audit.StoreAPI
	Runs          jobs.RunStore
}

type Services struct {
	Org           *org.Service
	Performance   *performance.Service
	Calibration   *calibration.Service
	Notifications *notifications.Service
	Audit         *audit.Service
	Jobs          *jobs.Service
}

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Metrics  *metrics.Collector
	Services Services
	Router   http.Handler
}

func PostgresStores(pool *pgxpool.Pool) Stores {
	perf := performance.NewStore(pool)
	return Stores{
		Org:           org.NewStore(pool),
		Performance:   perf,
		Campaigns:     performance.NewCampaignStore(pool),
		Calibration:   calibration.NewStore(pool),
		Notifications: notifications.NewStore(pool),
		Audit:         audit.NewStore(pool),
		Runs:          jobs.NewStore(pool),
	}
}

// NewServices wires the domain services. ratings must be the performance
// store seen by calibration for rating reads and overrides.
func NewServices(cfg config.Config, stores Stores, ratings calibration.Ratings, hierarchy cache.Store, mailer notifications.Mailer, collector *metrics.Collector) Services {
	orgSvc := org.NewService(stores.Org, hierarchy, cfg.Hierarchy.MaxDepth)
	builder := access.NewBuilder(orgSvc.Departments)

	notifySvc := notifications.New(stores.Notifications, mailer)
	dispatcher := notifications.NewDispatcher(notifySvc, cfg.NotifyMinDelay)

	perf := performance.NewService(stores.Performance, orgSvc, builder, performance.Weights{
		Self:    cfg.Weights.Self,
		Manager: cfg.Weights.Manager,
		Peer:    cfg.Weights.Peer,
		Upward:  cfg.Weights.Upward,
	})
	if collector != nil {
		orgSvc.WithObserver(collector)
		dispatcher.WithObserver(collector)
		perf.WithObserver(collector)
	}
	jobsSvc := jobs.New(stores.Runs, perf, cfg.ActivationInterval, cfg.JobQueueSize)
	if collector != nil {
		jobsSvc.WithObserver(collector)
	}
	perf.RegisterHandlers(stores.Campaigns, dispatcher)
	perf.Events.UseQueue(jobsSvc)

	return Services{
		Org:           orgSvc,
		Performance:   perf,
		Calibration:   calibration.NewService(stores.Calibration, ratings, orgSvc, builder, dispatcher),
		Notifications: notifySvc,
		Audit:         audit.New(stores.Audit),
		Jobs:          jobsSvc,
	}
}

// NewRouter builds the HTTP surface. ready may be nil when there is no
// dependency to probe.
func NewRouter(cfg config.Config, svcs Services, collector *metrics.Collector, ready func(context.Context) error) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	var recorder middleware.RequestRecorder
	if collector != nil {
		recorder = collector
	}
	router.Use(middleware.Logger(recorder))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				slog.Warn("readiness probe failed", "err", err)
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && collector != nil {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute))

		performancehandler.NewHandler(svcs.Performance, svcs.Jobs, svcs.Audit).RegisterRoutes(r)
		calibrationhandler.NewHandler(svcs.Calibration, svcs.Audit).RegisterRoutes(r)
		orghandler.NewHandler(svcs.Org, svcs.Audit).RegisterRoutes(r)
		notificationshandler.NewHandler(svcs.Notifications, svcs.Audit).RegisterRoutes(r)
		audithandler.NewHandler(svcs.Audit).RegisterRoutes(r)
	})

	return router
}

// New connects to Postgres (and Redis when configured), migrates, seeds and
// wires the router. Close releases what New opened.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app := &App{Config: cfg, DB: pool, Metrics: metrics.New()}

	if cfg.RunMigrations {
		if err := db.Migrate(pool); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	var hierarchy cache.Store = cache.NewLRU(cfg.Hierarchy.CacheSize, cfg.Hierarchy.CacheTTL)
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	switch {
	case err != nil:
		slog.Warn("redis unavailable, using in-process hierarchy cache", "addr", cfg.Redis.Addr, "err", err)
	case redisClient != nil:
		app.Redis = redisClient
		hierarchy = cache.NewRedis(redisClient, cfg.Hierarchy.CacheTTL)
		slog.Info("hierarchy cache backed by redis", "addr", cfg.Redis.Addr)
	}

	stores := PostgresStores(pool)
	app.Services = NewServices(cfg, stores, stores.Performance, hierarchy, email.New(cfg), app.Metrics)

	if cfg.SeedTenantName != "" {
		if err := seedTenant(ctx, pool, app.Services.Performance, cfg.SeedTenantName); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.Router = NewRouter(cfg, app.Services, app.Metrics, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		if app.Redis != nil {
			return app.Redis.Ping(ctx).Err()
		}
		return nil
	})
	return app, nil
}

func seedTenant(ctx context.Context, pool *pgxpool.Pool, perf *performance.Service, name string) error {
	tenantID, err := db.EnsureTenant(ctx, pool, name)
	if err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}
	res, err := perf.SeedDefaults(ctx, access.Scope{TenantID: tenantID, Role: auth.RoleAccountOwner})
	if err != nil {
		return fmt.Errorf("seed competencies: %w", err)
	}
	slog.Info("seeded tenant", "tenantId", tenantID, "competencies", res.Created, "skipped", res.Skipped)
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("redis close failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until SIGINT or SIGTERM, then drains requests and background jobs.
func Run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Services.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("performance engine listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", "err", err)
	}
	app.Services.Jobs.Wait()
	return nil
}
