// Command progressiond runs the progression ledger HTTP service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	app "github.com/bloom-app/progression/internal/app"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/httpapi"
	"github.com/bloom-app/progression/internal/app/metrics"
	"github.com/bloom-app/progression/internal/app/storage/postgres"
	"github.com/bloom-app/progression/internal/cache"
	"github.com/bloom-app/progression/internal/config"
	"github.com/bloom-app/progression/internal/middleware"
	"github.com/bloom-app/progression/internal/platform/database"
	"github.com/bloom-app/progression/internal/platform/migrations"
	"github.com/bloom-app/progression/pkg/logger"
)

func main() {
	_ = godotenv.Load() // allow .env for local runs

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging).WithField("component", "progressiond")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("service exited")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		db, err := database.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if cfg.Database.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		}
		if cfg.Database.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		}
		if cfg.Database.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
		}

		if err := migrations.Apply(ctx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		store := postgres.New(db)
		stores = app.Stores{Users: store, Ledger: store, Activities: store}
		log.Info("using postgres store")
	} else {
		log.Warn("no database configured, using in-memory store")
	}

	var progressCache *cache.ProgressCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		progressCache = cache.New(client, log)
		log.WithField("addr", cfg.Redis.Addr).Info("progress cache enabled")
	}

	anchor := progression.AnchorToday
	if cfg.Progression.StreakAnchor == "yesterday" {
		anchor = progression.AnchorYesterday
	}

	application, err := app.New(stores, app.Options{
		ProgressCache: progressCache,
		StreakAnchor:  anchor,
	}, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer application.Stop(context.Background())

	limiter := middleware.NewRateLimiter(50, 100, log)
	limiter.StartCleanup(10 * time.Minute)

	handler := httpapi.NewHandler(application)
	handler = httpapi.WrapWithAuth(handler, cfg.AuthTokens)
	handler, err = httpapi.WrapWithAudit(handler, cfg.Audit.MaxEntries, cfg.Audit.FilePath)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	handler = limiter.Handler(handler)
	handler = middleware.NewCORSMiddleware([]string{"*"}).Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
