package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/backfill"
	"github.com/kapu/koreanow-go/internal/config"
	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/service/ai"
	"github.com/kapu/koreanow-go/internal/service/cache"
	"github.com/kapu/koreanow-go/internal/service/content"
	"github.com/kapu/koreanow-go/internal/service/database"
	"github.com/kapu/koreanow-go/internal/util"
)

func main() {
	var (
		limit     int
		workers   int
		dryRun    bool
		refine    bool
		useOpenAI bool
		model     string
	)

	flag.IntVar(&limit, "limit", 50, "maximum number of editorial bodies to process (0 = all)")
	flag.IntVar(&workers, "workers", constants.AIConfig.BackfillWorkers, "concurrent generation requests")
	flag.BoolVar(&dryRun, "dry-run", false, "print generated glossaries without writing them")
	flag.BoolVar(&refine, "refine", false, "rewrite generated definitions in a second pass")
	flag.BoolVar(&useOpenAI, "use-openai", false, "use OpenAI as the primary provider")
	flag.StringVar(&model, "model", "", "model override for the primary provider")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, "console", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, backfill.Options{Limit: limit, Workers: workers, DryRun: dryRun, Refine: refine}, strings.TrimSpace(model), useOpenAI); err != nil {
		logger.Error("Glossary backfill failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts backfill.Options, model string, useOpenAI bool) error {
	postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
		SSLMode:  cfg.Postgres.SSLMode,
	}, logger)
	if err != nil {
		return err
	}
	defer postgresSvc.Close()

	models, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:       cfg.Gemini.APIKey,
		OpenAIAPIKey:       cfg.OpenAI.APIKey,
		DefaultGeminiModel: cfg.Gemini.Model,
		DefaultOpenAIModel: cfg.OpenAI.Model,
		EnableFallback:     cfg.OpenAI.EnableFallback,
		PreferOpenAI:       useOpenAI,
	}, logger)
	if err != nil {
		return err
	}

	repo := content.NewRepository(postgresSvc.GetDB(), logger)
	generator := ai.NewGlossaryGenerator(models, model, logger)
	runner := backfill.NewRunner(repo, generator, logger)

	logger.Info("Glossary backfill starting",
		zap.Int("limit", opts.Limit),
		zap.Int("workers", opts.Workers),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("refine", opts.Refine),
	)

	result, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}

	if opts.DryRun {
		out, err := json.MarshalIndent(result.Preview, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}

	logger.Info("Glossary backfill finished",
		zap.Int("scanned", result.Scanned),
		zap.Int64("updated", result.Updated),
		zap.Int64("empty", result.Empty),
		zap.Int64("failed", result.Failed),
	)

	if result.Updated > 0 {
		invalidateCache(ctx, cfg, repo, logger)
	}
	return nil
}

// invalidateCache drops cached content so pages pick up the new glossaries.
// The server falls back to cache expiry when Redis is unreachable here.
func invalidateCache(ctx context.Context, cfg *config.Config, repo *content.Repository, logger *zap.Logger) {
	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Warn("Skipping cache invalidation", zap.Error(err))
		return
	}
	defer cacheSvc.Close()

	if _, err := content.NewService(repo, cacheSvc, logger).Invalidate(ctx); err != nil {
		logger.Warn("Cache invalidation failed", zap.Error(err))
	}
}
