package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/ai"
	"github.com/docask/docask/internal/chunker"
	"github.com/docask/docask/internal/config"
	"github.com/docask/docask/internal/db"
	"github.com/docask/docask/internal/embedcache"
	"github.com/docask/docask/internal/extract"
	"github.com/docask/docask/internal/filestore"
	"github.com/docask/docask/internal/handler"
	"github.com/docask/docask/internal/job"
	"github.com/docask/docask/internal/middleware"
	"github.com/docask/docask/internal/repo"
	"github.com/docask/docask/internal/schedule"
	"github.com/docask/docask/internal/service"
	"github.com/docask/docask/internal/vectorindex"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docask",
		Short: "document question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			dbc, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer dbc.Close()
			if err := db.ApplyMigrations(dbc); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			if err := db.CheckVectorDimension(dbc, cfg.AI.EmbedDimension); err != nil {
				return fmt.Errorf("schema check: %w", err)
			}
			return runServer(cfg, dbc)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, dbc *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("embed_provider", cfg.AI.EmbedProvider),
		zap.String("index_type", cfg.RAG.IndexType),
		zap.String("file_store", cfg.FileStore.Type),
	)

	genProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedData)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	generator := ai.NewGenerator(genProvider, cfg.AI.Model)
	embedder := embedcache.WrapLRU(
		ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel, cfg.AI.EmbedDimension),
		cfg.RAG.QueryCacheSize,
		time.Duration(cfg.RAG.QueryCacheTTLMin)*time.Minute,
	)

	index, err := vectorindex.New(cfg.RAG.IndexType, vectorindex.Options{
		DB:        dbc,
		Dimension: cfg.AI.EmbedDimension,
		ModelName: cfg.AI.EmbedModel,
	})
	if err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}
	defer index.Close()

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	docRepo := repo.NewDocumentRepo(dbc)
	chunkRepo := repo.NewChunkRepo(dbc)
	locks := &service.DocLocks{}

	ingestService := service.NewIngestService(
		docRepo, index,
		extract.NewPDFExtractor(),
		chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder, store, locks,
		cfg.Upload.MaxSizeMB*1024*1024,
	)
	documentService := service.NewDocumentService(docRepo, index, store, locks)
	queryService := service.NewQueryService(
		docRepo,
		service.NewRetriever(index, cfg.RAG.ScoreFloor),
		service.NewSynthesizer(generator, cfg.AI.MaxTokens),
		embedder, index,
		service.QueryLimits{
			DefaultMaxChunks: cfg.RAG.DefaultMaxChunks,
			MaxChunksLimit:   cfg.RAG.MaxChunksLimit,
			Timeout:          time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		},
	)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler([]byte(cfg.JWTSecret), time.Duration(cfg.JWTTTLHours)*time.Hour),
		Documents: handler.NewDocumentHandler(ingestService, documentService),
		Queries:   handler.NewQueryHandler(queryService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewStaleIngestJob(docRepo, index, time.Duration(cfg.Jobs.StaleIngestAgeMin)*time.Minute), cfg.Jobs.StaleIngestSpec); err != nil {
		return fmt.Errorf("schedule stale ingest job: %w", err)
	}
	if err := scheduler.AddJob(job.NewOrphanChunkJob(chunkRepo), cfg.Jobs.OrphanChunkSpec); err != nil {
		return fmt.Errorf("schedule orphan chunk job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
