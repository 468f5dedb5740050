package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aura-labs/aura/internal/api/handlers"
	"github.com/aura-labs/aura/internal/chunker"
	"github.com/aura-labs/aura/internal/config"
	"github.com/aura-labs/aura/internal/database"
	"github.com/aura-labs/aura/internal/extract"
	"github.com/aura-labs/aura/internal/jobs"
	"github.com/aura-labs/aura/internal/openai"
	"github.com/aura-labs/aura/internal/repository"
	"github.com/aura-labs/aura/internal/server"
	"github.com/aura-labs/aura/internal/service"
	"github.com/aura-labs/aura/internal/storage"
	"github.com/aura-labs/aura/internal/telemetry"
	"github.com/aura-labs/aura/internal/vectorindex"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the aura API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("AURA_OPENAI_API_KEY is required to serve")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	cacheRepo := repository.NewDocumentCacheRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	index := vectorindex.NewPgIndex(pool)

	var archiver service.DocumentArchiver
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiver = s3Client
	}

	backoff := openai.BackoffConfig{
		Initial:    cfg.BackoffInitial,
		MaxElapsed: cfg.BackoffMax,
	}
	embedder := openai.NewEmbeddingClientWithConfig(openai.Config{
		APIKey:    cfg.OpenAIAPIKey,
		BatchSize: cfg.EmbedBatchSize,
		Backoff:   backoff,
	})
	generator := openai.NewGenerationClientWithConfig(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Backoff: backoff,
	})

	extractor := extract.NewHTTPExtractor(cfg.MaxDocumentBytes())

	ingestionSvc := service.NewIngestionService(cacheRepo, extractor, embedder, index, archiver, chunker.Config{
		Window:  cfg.ChunkWindow,
		Overlap: cfg.ChunkOverlap,
	})
	retriever := service.NewRetriever(embedder, index, cfg.TopK, cfg.MinRelevance)
	synthesizer := service.NewSynthesizer(generator)
	pipeline := service.NewPipelineService(ingestionSvc, retriever, synthesizer, queryLogRepo, cfg.QuestionTimeout)

	router := server.NewRouter(server.RouterConfig{
		APIToken:       cfg.APIToken,
		QueryHandler:   handlers.NewQueryHandler(pipeline),
		StatsHandler:   handlers.NewStatsHandler(cacheRepo, index, queryLogRepo),
		LogsHandler:    handlers.NewLogsHandler(queryLogRepo),
		RequestTimeout: cfg.RequestTimeout,
	})

	var evictionWorker *jobs.Worker
	if cfg.CacheTTL > 0 {
		evictionWorker = jobs.NewWorker(jobs.NewEvictionWorker(cacheRepo, index, cfg.CacheTTL), cfg.EvictInterval)
		go evictionWorker.Start(ctx)
		log.Printf("eviction worker started (ttl %v)", cfg.CacheTTL)
	}

	// Headroom past the context deadline so the timeout response itself
	// still gets written.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if evictionWorker != nil {
		evictionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
