// Package cli holds the daemon's cobra commands.
package cli

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

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/mentanova-ai/mentanova/internal/api/handlers"
	"github.com/mentanova-ai/mentanova/internal/cohere"
	"github.com/mentanova-ai/mentanova/internal/config"
	"github.com/mentanova-ai/mentanova/internal/database"
	"github.com/mentanova-ai/mentanova/internal/jobs"
	"github.com/mentanova-ai/mentanova/internal/openai"
	"github.com/mentanova-ai/mentanova/internal/repository"
	"github.com/mentanova-ai/mentanova/internal/server"
	"github.com/mentanova-ai/mentanova/internal/service"
	"github.com/mentanova-ai/mentanova/internal/storage"
	"github.com/mentanova-ai/mentanova/internal/telemetry"
	"github.com/mentanova-ai/mentanova/internal/tokens"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the retrieval API server",
		Long:  "Start the mentanova retrieval API server on the specified port",
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

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

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

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	retrievalLogRepo := repository.NewRetrievalLogRepository(pool)

	var s3Client *storage.S3Client
	if cfg.HasS3() {
		s3Client, err = storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	var embedder service.Embedder
	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embedder = openai.NewClient(cfg.OpenAIAPIKey)

		embeddingSvc := service.NewEmbeddingService(chunkRepo, documentRepo, embedder)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
		embeddingWorker = jobs.NewWorker("embedding", embeddingProcessor, 10*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	} else {
		embedder = &noEmbedder{}
		log.Println("OPENAI_API_KEY not set; semantic search disabled")
	}

	var rerankClient service.RerankClient
	if cfg.HasCohere() {
		rerankClient = cohere.NewClientWithConfig(cohere.Config{
			APIKey: cfg.CohereAPIKey,
			Model:  cfg.RerankModel,
		})
	}

	pipeline := service.NewPipeline(
		service.NewQueryProcessor(),
		embedder,
		chunkRepo,
		service.NewFusion(cfg.HybridAlpha, cfg.RRFK),
		service.NewContextExpander(chunkRepo, cfg.ExpandTopN, cfg.NeighborsBefore, cfg.NeighborsAfter, cfg.ExpandWorkers),
		service.NewReranker(rerankClient, cfg.RerankEnabled, cfg.RerankTopN, service.DefaultRerankAttempts),
		service.NewContextAssembler(tokens.NewCounter(), cfg.MaxContextTokens),
		retrievalLogRepo,
		service.PipelineConfig{
			TopK:                cfg.RetrievalTopK,
			SimilarityThreshold: cfg.SimilarityThreshold,
		},
	)

	var downloader handlers.FileDownloader
	if s3Client != nil {
		downloader = s3Client
	}

	router := server.NewRouter(server.RouterConfig{
		RetrievalHandler: handlers.NewRetrievalHandler(pipeline),
		DocumentHandler:  handlers.NewDocumentHandler(documentRepo, downloader),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
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

	if embeddingWorker != nil {
		embeddingWorker.Stop()
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
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: database at version %d", version)
	}

	return nil
}

// noEmbedder keeps the pipeline alive for keyword-only queries when no
// embedding provider is configured.
type noEmbedder struct{}

func (noEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}
