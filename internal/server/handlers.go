package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/util"
	"github.com/kapu/koreanow-go/pkg/errors"
)

type healthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
	Matcher *matcherStats     `json:"matcher_cache,omitempty"`
	Quota   *quotaStats       `json:"youtube_quota,omitempty"`
}

type matcherStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type quotaStats struct {
	Used  int64     `json:"used"`
	Limit int       `json:"limit"`
	Reset time.Time `json:"reset"`
}

type matcherStatsReporter interface {
	MatcherStats() (hits, misses int64)
}

type quotaReporter interface {
	QuotaStatus(ctx context.Context) (used int64, reset time.Time, err error)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Uptime: time.Since(s.started).Round(time.Second).String(), Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	if m, ok := s.deps.Pages.(matcherStatsReporter); ok {
		hits, misses := m.MatcherStats()
		resp.Matcher = &matcherStats{Hits: hits, Misses: misses}
	}
	if q, ok := s.deps.Videos.(quotaReporter); ok {
		if used, reset, err := q.QuotaStatus(ctx); err == nil {
			resp.Quota = &quotaStats{Used: used, Limit: constants.YouTubeConfig.DailyQuota, Reset: reset}
		}
	}
	respondJSON(w, nil, s.logger, status, &APIResponse{Data: resp})
}

// parseLimit reads ?limit=, defaulting to def and capped at the page size limit.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.NewValidationError("limit must be a positive integer", "limit", raw)
	}
	return util.Clamp(limit, 1, constants.ListingLimits.MaxPageSize), nil
}

func (s *Server) handleEditorials(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, constants.ListingLimits.DefaultEditorials)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	editorials, err := s.deps.Content.Editorials(r.Context(), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, editorials, len(editorials))
}

func (s *Server) handleFeaturedEditorials(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, constants.ListingLimits.FeaturedEditorials)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	editorials, err := s.deps.Content.FeaturedEditorials(r.Context(), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, editorials, len(editorials))
}

func (s *Server) handleEditorial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	editorial, err := s.deps.Content.Editorial(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if editorial == nil {
		s.respondNotFound(w, "editorial", id)
		return
	}
	respondData(w, r, s.logger, editorial, -1)
}

func (s *Server) handleEditorialPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.deps.Pages.EditorialPage(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if p == nil {
		s.respondNotFound(w, "editorial", id)
		return
	}
	respondData(w, r, s.logger, p, -1)
}

func (s *Server) handleRestaurants(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, constants.ListingLimits.DefaultRestaurants)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	q := r.URL.Query()
	filter := domain.RestaurantFilter{
		Limit:            limit,
		Region:           strings.ToUpper(strings.TrimSpace(q.Get("region"))),
		RegionDetail:     strings.TrimSpace(q.Get("region_detail")),
		RegionDetailName: strings.TrimSpace(q.Get("region_detail_name")),
	}

	restaurants, err := s.deps.Content.Restaurants(r.Context(), filter)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, restaurants, len(restaurants))
}

func (s *Server) handleRestaurant(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	restaurant, err := s.deps.Content.Restaurant(r.Context(), slug)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if restaurant == nil {
		s.respondNotFound(w, "restaurant", slug)
		return
	}
	respondData(w, r, s.logger, restaurant, -1)
}

func (s *Server) handleRestaurantPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := s.deps.Pages.RestaurantPage(r.Context(), slug)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if p == nil {
		s.respondNotFound(w, "restaurant", slug)
		return
	}
	respondData(w, r, s.logger, p, -1)
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.deps.Content.Regions(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, regions, len(regions))
}

func (s *Server) handleRegionDetails(w http.ResponseWriter, r *http.Request) {
	region := strings.ToUpper(chi.URLParam(r, "region"))
	details, err := s.deps.Content.RegionDetails(r.Context(), region)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, details, len(details))
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.deps.Content.Episodes(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, episodes, len(episodes))
}

func (s *Server) handleFeaturedEpisodes(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, constants.ListingLimits.FeaturedEpisodes)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	episodes, err := s.deps.Content.FeaturedEpisodes(r.Context(), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, episodes, len(episodes))
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondErr(w, errors.NewValidationError("episode id must be numeric", "id", raw))
		return
	}
	episode, err := s.deps.Content.Episode(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if episode == nil {
		s.respondNotFound(w, "episode", raw)
		return
	}
	respondData(w, r, s.logger, episode, -1)
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if s.deps.Videos == nil {
		respondError(w, s.logger, http.StatusServiceUnavailable, errors.CodeService, "videos are not configured", nil)
		return
	}
	limit, err := parseLimit(r, constants.YouTubeConfig.DefaultLimit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	videos, err := s.deps.Videos.TrendingFoodVideos(r.Context(), limit)
	if err != nil {
		s.logger.Warn("Trending videos unavailable", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, videos, len(videos))
}

func (s *Server) handleGlossary(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Content.Glossary(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondData(w, r, s.logger, entries, len(entries))
}
