package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	httpapi "assettracker-backend/internal/api/http"
	"assettracker-backend/internal/config"
	"assettracker-backend/internal/database"
	"assettracker-backend/internal/jobs"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/metrics"
	"assettracker-backend/internal/scheduler"
	"assettracker-backend/internal/security"
	"assettracker-backend/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Asset Tracker Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped. Goodbye!")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize Database
	logger.Debug("Connecting to database...", "driver", cfg.Database.Driver, "connection", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	store, err := database.Open(ctx, cfg.Database, cfg.GetDatabaseConnectionString())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()
	logger.Info("Database connection established")

	// Metrics are wired only when enabled so disabled collectors stay nil.
	var (
		recorder       service.TransitionRecorder
		gauges         jobs.Gauges
		httpMetrics    httpapi.HTTPMetrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		m := metrics.New()
		recorder, gauges, httpMetrics, metricsHandler = m, m, m, m.Handler()
	}

	// Initialize Security and Services
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	authSvc := service.NewAuthService(store.Users(), tokenManager, service.AuthOptions{
		AllowAdminSignup: cfg.Auth.AllowAdminSignup,
		BcryptCost:       cfg.Auth.BcryptCost,
	})
	assetSvc := service.NewAssetService(store, recorder)
	requestSvc := service.NewRequestService(store, recorder)

	var limiter *httpapi.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = httpapi.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Auth:               authSvc,
		Assets:             assetSvc,
		Requests:           requestSvc,
		Tokens:             tokenManager,
		Store:              store,
		Metrics:            httpMetrics,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					limiter.Cleanup()
				}
			}
		})
	}

	// In-process scheduler, for deployments without a separate cronjob runner
	if cfg.Scheduler.Enabled {
		cronScheduler, err := scheduler.NewScheduler(jobs.NewJobRunner(store, gauges), cfg.Scheduler)
		if err != nil {
			return err
		}
		cronScheduler.Start()
		g.Go(func() error {
			<-ctx.Done()
			cronScheduler.Stop()
			return nil
		})
	}

	return g.Wait()
}
