package main

import (
	"context"
	"encoding/json"
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

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/config"
	"github.com/doclibre/ragline/internal/extract"
	"github.com/doclibre/ragline/internal/filestore"
	"github.com/doclibre/ragline/internal/handler"
	"github.com/doclibre/ragline/internal/index"
	"github.com/doclibre/ragline/internal/ingest"
	"github.com/doclibre/ragline/internal/job"
	"github.com/doclibre/ragline/internal/middleware"
	"github.com/doclibre/ragline/internal/reference"
	"github.com/doclibre/ragline/internal/retrieve"
	"github.com/doclibre/ragline/internal/schedule"
	"github.com/doclibre/ragline/internal/service"
	"github.com/doclibre/ragline/internal/summarize"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragline",
		Short: "document retrieval pipeline",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest <key>",
		Short: "index one object from the file store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			pipe, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			report, err := pipe.ingest.Ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	resyncCmd := &cobra.Command{
		Use:   "resync",
		Short: "re-index everything under the configured prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			pipe, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			report, err := pipe.ingest.Resync(cmd.Context(), cfg.Resync.Prefix)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	queryCmd := &cobra.Command{
		Use:   "query <text>",
		Short: "run retrieval for a query and print the assembled context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			pipe, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			result, err := pipe.chat.Retrieve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	rootCmd.AddCommand(runCmd, ingestCmd, resyncCmd, queryCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

type pipeline struct {
	store  filestore.Store
	idx    index.Store
	names  index.Names
	ingest *ingest.Service
	chat   *service.ChatService
}

func buildPipeline(cfg *config.Config) (*pipeline, error) {
	genProvider, err := ai.NewProvider(cfg.AI.Generator.Provider, cfg.AI.Generator.Data)
	if err != nil {
		return nil, fmt.Errorf("init generator provider: %w", err)
	}
	embProvider, err := ai.NewProvider(cfg.AI.Embedder.Provider, cfg.AI.Embedder.Data)
	if err != nil {
		return nil, fmt.Errorf("init embedder provider: %w", err)
	}
	generator := ai.NewGenerator(genProvider, cfg.AI.Generator.Model)
	embedder := ai.NewEmbedder(embProvider, cfg.AI.Embedder.Model)

	idx, err := index.New(cfg.Index.Type, cfg.Index.Data, embedder)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	names := index.Names{
		FullText: cfg.Index.Names.FullText,
		Summary:  cfg.Index.Names.Summary,
		Date:     cfg.Index.Names.Date,
	}.WithDefaults()

	store, err := filestore.New(cfg.FileStore.Type, cfg.FileStore.Data)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}

	if err := extract.CheckPDFAvailable(); err != nil {
		logutil.GetLogger(context.Background()).Warn("pdf tooling missing, pdf ingestion will fail", zap.Error(err))
	}

	summarizer := summarize.New(generator, summarize.Options{
		CoarseSize:    cfg.Ingest.Summary.CoarseSize,
		CoarseOverlap: cfg.Ingest.Summary.CoarseOverlap,
		MaxSentences:  cfg.Ingest.Summary.MaxSentences,
		RefusalMarker: cfg.Ingest.Summary.RefusalMarker,
	})

	ingestSvc := ingest.NewService(store, idx, summarizer, names, ingest.Options{
		MaxFileSize:      cfg.Ingest.MaxFileSize,
		ChunkSize:        cfg.Ingest.ChunkSize,
		ChunkOverlap:     cfg.Ingest.ChunkOverlap,
		SummaryMaxLength: cfg.Ingest.SummaryMaxLength,
	})

	ranker := retrieve.NewRanker(idx, names)
	formatter := reference.NewFormatter(cfg.Links)
	chatSvc := service.NewChatService(ranker, generator, formatter, service.Options{
		PromptTemplate: cfg.Chat.PromptTemplate,
		BlockedMessage: cfg.Chat.BlockedMessage,
		CacheSize:      cfg.Chat.AnswerCacheSize,
		CacheTTL:       time.Duration(cfg.Chat.AnswerCacheTTLMins) * time.Minute,
		Retrieve:       cfg.Retrieve,
	})

	return &pipeline{
		store:  store,
		idx:    idx,
		names:  names,
		ingest: ingestSvc,
		chat:   chatSvc,
	}, nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("index", cfg.Index.Type),
	)

	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	deps := handler.RouterDeps{
		Chat:   handler.NewChatHandler(pipe.chat),
		Events: handler.NewEventHandler(pipe.ingest),
		Status: handler.NewStatusHandler(pipe.idx, pipe.names),
	}

	extraMiddlewares := []gin.HandlerFunc{
		middleware.CORS(cfg.CORSAllowlist),
		gzip.Gzip(gzip.DefaultCompression),
	}
	if cfg.RateLimitWindowMS > 0 {
		extraMiddlewares = append(extraMiddlewares,
			middleware.RateLimit(time.Duration(cfg.RateLimitWindowMS)*time.Millisecond))
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(extraMiddlewares...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler *schedule.CronScheduler
	if cfg.Resync.Cron != "" {
		scheduler = schedule.NewCronScheduler()
		if err := scheduler.AddJob(job.NewResyncJob(pipe.ingest, cfg.Resync.Prefix), cfg.Resync.Cron); err != nil {
			return fmt.Errorf("schedule resync: %w", err)
		}
		scheduler.Start(ctx)
	}

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	if scheduler != nil {
		scheduler.Stop()
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
