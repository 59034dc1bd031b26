package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/orvilledev/smw-spd-formatter/config"
	"github.com/orvilledev/smw-spd-formatter/internal/api"
	"github.com/orvilledev/smw-spd-formatter/internal/cache"
	"github.com/orvilledev/smw-spd-formatter/internal/messaging"
	"github.com/orvilledev/smw-spd-formatter/internal/metrics"
	"github.com/orvilledev/smw-spd-formatter/internal/models"
	"github.com/orvilledev/smw-spd-formatter/internal/repositories"
	"github.com/orvilledev/smw-spd-formatter/internal/search"
	"github.com/orvilledev/smw-spd-formatter/internal/services"
	"github.com/orvilledev/smw-spd-formatter/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server to receive manifest uploads and serve generated workbooks`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
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

	// Initialize database connections; the service runs processing-only
	// without run history when the database is unreachable.
	var runStore services.RunStore
	db, readOnlyDB, err := initDatabases(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to database, continuing without run history")
	} else {
		runStore = repositories.NewRunRepository(db, readOnlyDB)
	}

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without artifact downloads")
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without run search")
	}

	// Initialize Service Bus publisher
	busClient, err := messaging.NewServiceBusClient(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Service Bus client, continuing without run events")
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize services
	manifestService := services.NewManifestService(
		runStore, redisCache, elasticClient, busClient, metricsCollector, tracer, cfg.Pipeline)

	// Initialize and start the server
	server := api.NewServer(cfg, manifestService, metricsCollector)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Shutdown the server
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

func initDatabases(cfg config.Config) (*gorm.DB, *gorm.DB, error) {
	// Initialize write database
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	// Initialize read-only database
	readOnlyDB, err := gorm.Open(postgres.Open(cfg.DB.ReadOnlyDSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	// Auto-migrate only the write database
	if err := models.SetupModels(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to run migrations")
	}

	return db, readOnlyDB, nil
}
