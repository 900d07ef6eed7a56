package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelhq/roster/pkg/audit"
	"github.com/kestrelhq/roster/pkg/authz"
	"github.com/kestrelhq/roster/pkg/catalog"
	"github.com/kestrelhq/roster/pkg/config"
	"github.com/kestrelhq/roster/pkg/identity"
	"github.com/kestrelhq/roster/pkg/middleware"
	"github.com/kestrelhq/roster/pkg/observability"
	"github.com/kestrelhq/roster/pkg/orgs"
	"github.com/kestrelhq/roster/pkg/roles"
	"github.com/kestrelhq/roster/pkg/server"
	"github.com/kestrelhq/roster/pkg/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(parseLogLevel(cfg.LogLevel), os.Stdout)
	logger.WithField("addr", cfg.Addr()).Info("starting rosterd")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("rosterd exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.DatabaseURL,
		ReplicaURLs: postgres.ParseReplicaURLs(cfg.DatabaseReplicaURLs),
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
		Timeout:     cfg.DatabaseTimeout,
		MaxLifetime: cfg.DatabaseMaxLifetime,
		MaxIdleTime: cfg.DatabaseMaxIdleTime,
	})
	if err != nil {
		return err
	}
	defer cm.Close()

	if err := postgres.RunMigrations(ctx, cm.Primary()); err != nil {
		return err
	}

	catalogStore := catalog.NewStore(cm.Primary())
	if err := catalogStore.Seed(ctx); err != nil {
		return err
	}
	if err := catalogStore.Verify(ctx); err != nil {
		return err
	}
	logger.Info("permission catalog seeded and verified")

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	auditLogger := audit.NewDBLogger(cm.Primary())

	var joinLimiter *middleware.RateLimiter
	var redisClient *redis.Client
	if cfg.RedisURL != "" && !cfg.RateLimitDisabled {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		joinLimiter = middleware.NewRateLimiter(redisClient, cfg.JoinRateLimit, cfg.JoinRateWindow, "join", metrics)
	} else {
		logger.Warn("join-code rate limiting disabled")
	}

	var resolver orgs.IdentityResolver
	if cfg.IdentityURL != "" {
		resolver = identity.NewHTTPResolver(cfg.IdentityURL, cfg.IdentityTimeout)
	} else {
		// Listings stay useful without enrichment; they just carry ids only
		logger.Warn("identity resolution disabled, member listings will not carry emails")
	}

	orgService := orgs.NewService(cm.Primary(), cm.Replica(), auditLogger, metrics, resolver)
	roleStore := roles.NewStore(cm.Primary())
	checker := authz.NewChecker(cm.Primary(), metrics)

	router := server.NewRouter(server.Deps{
		Orgs:        orgService,
		OrgHandler:  orgs.NewHandler(orgService),
		RoleHandler: roles.NewHandler(roleStore, catalogStore, auditLogger, metrics),
		CatHandler:  catalog.NewHandler(catalogStore),
		Checker:     checker,
		Metrics:     metrics,
		Logger:      logger,
		AuditLog:    auditLogger,
		JoinLimiter: joinLimiter,
	})

	scheduler := cron.New()
	purger := audit.NewPurger(auditLogger, cfg.AuditRetention, logger)
	if _, err := scheduler.AddJob(cfg.AuditPurgeSchedule, purger); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	apiServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr(),
		Handler: metricsHandler(cm, metrics),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", metricsServer.Addr).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Refresh database pool gauges periodically
	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				metrics.UpdateDBStats(cm.Stats())
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown error")
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("metrics server shutdown error")
		}
		return nil
	})

	return g.Wait()
}

// metricsHandler serves /metrics and the health endpoints on the internal
// port.
func metricsHandler(cm *postgres.ConnectionManager, metrics *observability.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := cm.HealthCheck(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func parseLogLevel(level string) observability.LogLevel {
	switch level {
	case "debug":
		return observability.DebugLevel
	case "warn":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}
