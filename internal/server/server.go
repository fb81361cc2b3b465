// Package server exposes the content service over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/config"
	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/glossary"
	"github.com/kapu/koreanow-go/internal/service/page"
	"github.com/kapu/koreanow-go/internal/util"
)

// ContentService is the cached read surface of the content tables. Missing
// single items are returned as nil, nil.
type ContentService interface {
	Editorials(ctx context.Context, limit int) ([]*domain.Editorial, error)
	FeaturedEditorials(ctx context.Context, limit int) ([]*domain.Editorial, error)
	Editorial(ctx context.Context, id string) (*domain.EditorialFull, error)
	Restaurants(ctx context.Context, filter domain.RestaurantFilter) ([]*domain.Restaurant, error)
	Restaurant(ctx context.Context, slugOrID string) (*domain.RestaurantFull, error)
	Regions(ctx context.Context) ([]string, error)
	RegionDetails(ctx context.Context, region string) ([]string, error)
	Episodes(ctx context.Context) ([]*domain.EpisodeCard, error)
	FeaturedEpisodes(ctx context.Context, limit int) ([]*domain.EpisodeCard, error)
	Episode(ctx context.Context, id int64) (*domain.Episode, error)
	Glossary(ctx context.Context) ([]domain.GlossaryEntry, error)
}

// PageService assembles annotated pages.
type PageService interface {
	EditorialPage(ctx context.Context, id string) (*page.EditorialPage, error)
	RestaurantPage(ctx context.Context, slugOrID string) (*page.RestaurantPage, error)
	Annotate(text string, sources ...glossary.Source) (glossary.Document, error)
}

// VideoService serves trending videos. It is optional.
type VideoService interface {
	TrendingFoodVideos(ctx context.Context, limit int) ([]*domain.Video, error)
}

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Content ContentService
	Pages   PageService
	Videos  VideoService
	Checks  map[string]HealthCheck
}

type Server struct {
	cfg      config.ServerConfig
	site     config.SiteConfig
	deps     Dependencies
	logger   *zap.Logger
	upgrader websocket.Upgrader
	started  time.Time
}

func New(cfg config.ServerConfig, site config.SiteConfig, deps Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		site:    site,
		deps:    deps,
		logger:  logger,
		started: time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      s.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		s.logger.Warn("WebSocket connection rejected: missing Origin header")
		return false
	}
	if util.Contains(s.cfg.CORSOrigins, "*") || util.Contains(s.cfg.CORSOrigins, origin) {
		return true
	}
	s.logger.Warn("WebSocket connection rejected from unauthorized origin", zap.String("origin", origin))
	return false
}
