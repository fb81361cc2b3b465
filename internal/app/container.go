package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/config"
	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/glossary"
	"github.com/kapu/koreanow-go/internal/server"
	"github.com/kapu/koreanow-go/internal/service/cache"
	"github.com/kapu/koreanow-go/internal/service/content"
	"github.com/kapu/koreanow-go/internal/service/database"
	"github.com/kapu/koreanow-go/internal/service/page"
	"github.com/kapu/koreanow-go/internal/service/youtube"
	"github.com/kapu/koreanow-go/pkg/errors"
)

// Container bundles assembled services for the HTTP server.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Content *content.Service
	Pages   *page.Service
	Videos  *youtube.Service
	Server  *server.Server

	closers []func()
}

// Close releases infrastructure connections in reverse construction order.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles all infrastructure services and returns a container with a
// fully-wired server. Connections opened before a failure are closed.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Cache and database
	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache service: %w", err)
	}
	closers = append(closers, func() {
		_ = cacheSvc.Close()
	})

	postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
		SSLMode:  cfg.Postgres.SSLMode,

		MaxOpenConns: cfg.Postgres.MaxConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() {
		_ = postgresSvc.Close()
	})

	// Content and pages
	repo := content.NewRepository(postgresSvc.GetDB(), logger)
	contentSvc := content.NewService(repo, cacheSvc, logger)
	pageSvc := page.NewService(contentSvc, glossary.NewMatcherCache(0), cfg.Site, logger)

	deps := server.Dependencies{
		Content: contentSvc,
		Pages:   pageSvc,
		Checks: map[string]server.HealthCheck{
			"postgres": postgresSvc.Ping,
			"redis": func(ctx context.Context) error {
				if !cacheSvc.IsConnected(ctx) {
					return errors.NewCacheError("redis is unreachable", "ping", "", nil)
				}
				return nil
			},
		},
	}

	// Optional trending videos
	var videoSvc *youtube.Service
	if cfg.YouTubeEnabled() {
		client, ytErr := youtube.NewAPIClient(ctx, cfg.YouTube.APIKey)
		if ytErr != nil {
			logger.Warn("Failed to initialize YouTube client (optional feature)", zap.Error(ytErr))
		} else {
			videoSvc = youtube.NewService(client, cacheSvc, cfg.YouTube.RegionCode, logger)
			deps.Videos = videoSvc
			logger.Info("Trending videos enabled",
				zap.String("region", cfg.YouTube.RegionCode),
				zap.Int("daily_quota", constants.YouTubeConfig.DailyQuota))
		}
	}

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Content: contentSvc,
		Pages:   pageSvc,
		Videos:  videoSvc,
		Server:  server.New(cfg.Server, cfg.Site, deps, logger),
		closers: closers,
	}, nil
}
