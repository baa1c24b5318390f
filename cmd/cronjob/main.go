package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"assettracker-backend/internal/config"
	"assettracker-backend/internal/database"
	"assettracker-backend/internal/jobs"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/metrics"
	"assettracker-backend/internal/scheduler"
)

const (
	pushJobName = "assettracker_cronjob"
	pushTimeout = 10 * time.Second
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (reconcile-assignments, refresh-inventory, all)")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Asset Tracker Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "port", cfg.Database.Port)
	store, err := database.Open(context.Background(), cfg.Database, cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close(context.Background())
	logger.Info("Database connection established")

	// Counts always go to the log. With a Pushgateway configured they are also pushed
	// after every run, since nothing scrapes this process.
	var gauges jobs.Gauges
	if cfg.Metrics.PushGatewayURL != "" {
		logger.Info("Pushing job metrics", "gateway", cfg.Metrics.PushGatewayURL)
		gauges = &pushingGauges{Metrics: metrics.New(), gatewayURL: cfg.Metrics.PushGatewayURL}
	}
	jobRunner := jobs.NewJobRunner(store, gauges)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			store.Close(context.Background())
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner, cfg.Scheduler)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and returns its error
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	switch jobName {
	case jobs.JobReconcileAssignments:
		return jobRunner.ReconcileAssignments()
	case jobs.JobRefreshInventory:
		return jobRunner.RefreshInventoryGauges()
	case "all":
		return jobRunner.RunAll()
	default:
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - %s\n", jobs.JobReconcileAssignments)
		fmt.Printf("  - %s\n", jobs.JobRefreshInventory)
		fmt.Printf("  - all\n")
		return fmt.Errorf("unknown job %q", jobName)
	}
}

// pushingGauges records into a private registry and pushes it once a job finishes.
type pushingGauges struct {
	*metrics.Metrics
	gatewayURL string
}

func (g *pushingGauges) RecordJob(job string, duration time.Duration, success bool) {
	g.Metrics.RecordJob(job, duration, success)

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := g.PushJobMetrics(ctx, g.gatewayURL, pushJobName); err != nil {
		logger.Error("Failed to push job metrics", "job", job, "error", err)
	}
}
