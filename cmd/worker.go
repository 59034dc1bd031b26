package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/orvilledev/smw-spd-formatter/config"
	"github.com/orvilledev/smw-spd-formatter/internal/metrics"
	"github.com/orvilledev/smw-spd-formatter/internal/models"
	"github.com/orvilledev/smw-spd-formatter/internal/repositories"
	"github.com/orvilledev/smw-spd-formatter/internal/services"
	"github.com/orvilledev/smw-spd-formatter/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that prunes old run records on a schedule`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Initialize database connection
	db, err := initDatabaseForWorker(cfg)
	if err != nil {
		return err
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	// Initialize services
	runRepo := repositories.NewRunRepository(db, db)
	manifestService := services.NewManifestService(
		runRepo, nil, nil, nil, metrics.NewMetrics(), tracer, cfg.Pipeline)

	// Start the retention cron job
	g.Go(func() error {
		log.Info().
			Dur("max_age", cfg.Retention.MaxAge).
			Dur("interval", cfg.Retention.Interval).
			Msg("Starting run retention cron job")

		// Create a scheduler
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Add the cleanup job on the configured interval
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Retention.Interval),
			gocron.NewTask(func() {
				deleted, err := manifestService.CleanupRuns(ctx, cfg.Retention.MaxAge)
				if err != nil {
					log.Error().Err(err).Msg("Failed to clean up old runs")
					return
				}
				if deleted > 0 {
					log.Info().Int64("deleted", deleted).Msg("Pruned old run records")
				}
			}),
		)
		if err != nil {
			return err
		}

		// Start the scheduler
		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		// Shutdown the scheduler
		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

func initDatabaseForWorker(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the database
	if err := models.SetupModels(db); err != nil {
		return nil, err
	}

	// Get the underlying SQL DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Set connection pool parameters for long-running processes
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
