package youtube

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/util"
	"github.com/kapu/koreanow-go/pkg/errors"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// VideoClient fetches one page of the most popular chart.
type VideoClient interface {
	MostPopular(ctx context.Context, regionCode, categoryID string, maxResults int64, pageToken string) (*youtube.VideoListResponse, error)
}

// Store caches results and keeps the shared daily quota counter.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, delta int64, expireAt time.Time) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

type apiClient struct {
	service *youtube.Service
}

// NewAPIClient builds a VideoClient backed by the YouTube Data API v3.
func NewAPIClient(ctx context.Context, apiKey string) (VideoClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &apiClient{service: service}, nil
}

func (c *apiClient) MostPopular(ctx context.Context, regionCode, categoryID string, maxResults int64, pageToken string) (*youtube.VideoListResponse, error) {
	call := c.service.Videos.List([]string{"snippet", "statistics"}).
		Chart("mostPopular").
		RegionCode(regionCode).
		VideoCategoryId(categoryID).
		MaxResults(maxResults)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Context(ctx).Do()
}

// Service serves trending Korean food videos from the most popular chart.
type Service struct {
	client     VideoClient
	store      Store
	regionCode string
	keywords   []string
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(client VideoClient, store Store, regionCode string, logger *zap.Logger) *Service {
	if regionCode == "" {
		regionCode = "KR"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	keywords := make([]string, len(constants.FoodKeywords))
	for i, kw := range constants.FoodKeywords {
		keywords[i] = util.Normalize(kw)
	}

	return &Service{
		client:     client,
		store:      store,
		regionCode: regionCode,
		keywords:   keywords,
		logger:     logger,
		now:        time.Now,
	}
}

// TrendingFoodVideos returns up to limit food videos from the chart, paging
// until enough pass the keyword filter or the chart runs out.
func (s *Service) TrendingFoodVideos(ctx context.Context, limit int) ([]*domain.Video, error) {
	if limit <= 0 {
		limit = constants.YouTubeConfig.DefaultLimit
	}

	cacheKey := fmt.Sprintf("youtube:trending:%s:%d", s.regionCode, limit)
	var cached []*domain.Video
	if found, err := s.store.Get(ctx, cacheKey, &cached); err != nil {
		s.logger.Warn("Trending cache read failed", zap.Error(err))
	} else if found {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.YouTubeConfig.RequestTimeout)
	defer cancel()

	videos := make([]*domain.Video, 0, limit)
	pageToken := ""
	pages := 0

	for len(videos) < limit {
		batch := int64(limit - len(videos) + constants.YouTubeConfig.FetchOverhead)
		if batch > constants.YouTubeConfig.MaxResults {
			batch = constants.YouTubeConfig.MaxResults
		}

		if err := s.reserveQuota(ctx, constants.YouTubeConfig.ListQuotaCost); err != nil {
			return nil, err
		}

		resp, err := s.client.MostPopular(ctx, s.regionCode, constants.YouTubeConfig.CategoryID, batch, pageToken)
		if err != nil {
			return nil, s.wrapAPIError(err)
		}
		pages++

		for _, item := range resp.Items {
			if !s.isFoodVideo(item) {
				continue
			}
			videos = append(videos, toVideo(item))
			if len(videos) == limit {
				break
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	s.logger.Info("Fetched trending food videos",
		zap.Int("videos", len(videos)),
		zap.Int("pages", pages),
		zap.String("region", s.regionCode))

	if err := s.store.Set(ctx, cacheKey, videos, constants.CacheTTL.TrendingVideos); err != nil {
		s.logger.Warn("Trending cache write failed", zap.Error(err))
	}
	return videos, nil
}

// QuotaStatus reports units used today and when the counter resets.
func (s *Service) QuotaStatus(ctx context.Context) (used int64, reset time.Time, err error) {
	reset = nextQuotaReset(s.now())
	used, err = s.store.GetInt(ctx, quotaKey(reset))
	return used, reset, err
}

// reserveQuota takes cost units from the daily budget shared by every
// instance. The request is refused once the budget would be exceeded.
func (s *Service) reserveQuota(ctx context.Context, cost int) error {
	reset := nextQuotaReset(s.now())
	used, err := s.store.IncrBy(ctx, quotaKey(reset), int64(cost), reset)
	if err != nil {
		s.logger.Warn("Quota counter unavailable", zap.Error(err))
		return nil
	}

	limit := constants.YouTubeConfig.DailyQuota
	if used > int64(limit) {
		return errors.NewQuotaExceededError("youtube", int(used)-cost, limit, cost, reset)
	}

	if remaining := int64(limit) - used; remaining < int64(limit/10) {
		s.logger.Warn("YouTube API quota running low",
			zap.Int64("remaining", remaining),
			zap.Time("resetTime", reset))
	}
	return nil
}

func (s *Service) wrapAPIError(err error) error {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		for _, item := range apiErr.Errors {
			if item.Reason == "quotaExceeded" || item.Reason == "dailyLimitExceeded" {
				limit := constants.YouTubeConfig.DailyQuota
				return errors.NewQuotaExceededError("youtube", limit, limit, constants.YouTubeConfig.ListQuotaCost, nextQuotaReset(s.now()))
			}
		}
	}
	return errors.NewServiceError("YouTube API request failed", "youtube", "videos.list", err)
}

func (s *Service) isFoodVideo(item *youtube.Video) bool {
	if item == nil || item.Id == "" || item.Snippet == nil {
		return false
	}
	text := strings.ToLower(item.Snippet.Title + " " + item.Snippet.Description)
	for _, kw := range s.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func toVideo(item *youtube.Video) *domain.Video {
	v := &domain.Video{
		ID:           item.Id,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ThumbnailURL: thumbnailURL(item.Snippet.Thumbnails),
		ChannelTitle: item.Snippet.ChannelTitle,
		VideoURL:     watchURLPrefix + item.Id,
	}
	if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		v.PublishedAt = t
	}
	if item.Statistics != nil {
		v.ViewCount = item.Statistics.ViewCount
		if item.Statistics.LikeCount > 0 {
			likes := item.Statistics.LikeCount
			v.LikeCount = &likes
		}
	}
	return v
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

// nextQuotaReset is the next midnight Pacific time, when the API resets quotas.
func nextQuotaReset(now time.Time) time.Time {
	return util.NextPacificMidnight(now)
}

func quotaKey(reset time.Time) string {
	return "youtube:quota:" + reset.Format("2006-01-02")
}
