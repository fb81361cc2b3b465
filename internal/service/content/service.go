package content

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/glossary"
	"github.com/kapu/koreanow-go/internal/util"
)

// Store is the JSON key/value cache content reads go through.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// GlossarySources is the aggregation order of the glossary page. The first
// source to define a term wins.
var GlossarySources = []domain.GlossarySourceType{
	domain.GlossarySourceEditorial,
	domain.GlossarySourceEditorialContent,
	domain.GlossarySourceRestaurant,
	domain.GlossarySourceRestaurantDetail,
}

// Service assembles content from the repository behind a read-through cache.
// A nil Store disables caching.
type Service struct {
	repo    Querier
	store   Store
	logger  *zap.Logger
	shuffle func(n int, swap func(i, j int))
}

func NewService(repo Querier, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		store:   store,
		logger:  logger,
		shuffle: rand.Shuffle,
	}
}

func cacheKey(parts ...string) string {
	return constants.RedisConfig.KeyPrefix + strings.Join(parts, ":")
}

// readThrough serves key from the store, loading and storing it on a miss.
// Store failures fall back to the loader. Nil results are not stored.
func readThrough[T any](ctx context.Context, s *Service, key string, ttl time.Duration, isNil func(T) bool, load func(context.Context) (T, error)) (T, error) {
	var value T
	if s.store != nil {
		found, err := s.store.Get(ctx, key, &value)
		if err != nil {
			s.logger.Warn("Content cache read failed", zap.String("key", key), zap.Error(err))
		} else if found {
			return value, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if s.store != nil && !isNil(value) {
		if err := s.store.Set(ctx, key, value, ttl); err != nil {
			s.logger.Warn("Content cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

func isNilPtr[T any](v *T) bool { return v == nil }
func never[T any](T) bool       { return false }

func (s *Service) Editorials(ctx context.Context, limit int) ([]*domain.Editorial, error) {
	return readThrough(ctx, s, cacheKey("editorials", strconv.Itoa(limit)), constants.CacheTTL.EditorialList, never[[]*domain.Editorial],
		func(ctx context.Context) ([]*domain.Editorial, error) {
			return s.repo.ListEditorials(ctx, limit)
		})
}

// FeaturedEditorials picks limit editorials at random from the most recent pool.
func (s *Service) FeaturedEditorials(ctx context.Context, limit int) ([]*domain.Editorial, error) {
	candidates, err := s.Editorials(ctx, constants.ListingLimits.FeaturedPool)
	if err != nil {
		return nil, err
	}

	shuffled := make([]*domain.Editorial, len(candidates))
	copy(shuffled, candidates)
	s.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:util.Clamp(limit, 0, len(shuffled))], nil
}

// Editorial returns the header and body of an editorial, or nil when missing.
func (s *Service) Editorial(ctx context.Context, id string) (*domain.EditorialFull, error) {
	return readThrough(ctx, s, cacheKey("editorial", id), constants.CacheTTL.EditorialDetail, isNilPtr[domain.EditorialFull],
		func(ctx context.Context) (*domain.EditorialFull, error) {
			header, err := s.repo.GetEditorial(ctx, id)
			if err != nil || header == nil {
				return nil, err
			}

			body, err := s.repo.GetEditorialContent(ctx, header.Site, header.URL)
			if err != nil {
				s.logger.Warn("Failed to load editorial content", zap.String("id", id), zap.Error(err))
			}
			return &domain.EditorialFull{Editorial: *header, Content: body}, nil
		})
}

// EditorialByURL loads header and body concurrently.
func (s *Service) EditorialByURL(ctx context.Context, site, url string) (*domain.EditorialFull, error) {
	var (
		header *domain.Editorial
		body   *domain.EditorialContent
	)

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		header, err = s.repo.GetEditorialByURL(ctx, site, url)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		body, err = s.repo.GetEditorialContent(ctx, site, url)
		if err != nil {
			s.logger.Warn("Failed to load editorial content", zap.String("url", url), zap.Error(err))
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	if header == nil {
		return nil, nil
	}
	return &domain.EditorialFull{Editorial: *header, Content: body}, nil
}

func (s *Service) Restaurants(ctx context.Context, filter domain.RestaurantFilter) ([]*domain.Restaurant, error) {
	key := cacheKey("restaurants", strconv.Itoa(filter.Limit), strings.ToUpper(filter.Region), filter.RegionDetail, filter.RegionDetailName)

	return readThrough(ctx, s, key, constants.CacheTTL.RestaurantList, never[[]*domain.Restaurant],
		func(ctx context.Context) ([]*domain.Restaurant, error) {
			restaurants, err := s.repo.ListRestaurants(ctx, filter)
			if err != nil {
				return nil, err
			}
			for _, r := range restaurants {
				assignSlug(r)
			}
			return restaurants, nil
		})
}

// Restaurant resolves a numeric ID or a "{region}-{name}" slug to the full
// restaurant, or nil when nothing matches.
func (s *Service) Restaurant(ctx context.Context, slugOrID string) (*domain.RestaurantFull, error) {
	return readThrough(ctx, s, cacheKey("restaurant", slugOrID), constants.CacheTTL.RestaurantFull, isNilPtr[domain.RestaurantFull],
		func(ctx context.Context) (*domain.RestaurantFull, error) {
			header, err := s.findRestaurant(ctx, slugOrID)
			if err != nil || header == nil {
				return nil, err
			}
			assignSlug(header)
			return s.completeRestaurant(ctx, header)
		})
}

func (s *Service) findRestaurant(ctx context.Context, slugOrID string) (*domain.Restaurant, error) {
	if id, err := strconv.ParseInt(slugOrID, 10, 64); err == nil {
		return s.repo.GetRestaurant(ctx, id)
	}

	region, name := util.ParseRestaurantSlug(slugOrID)
	if region == "" || name == "" {
		return nil, nil
	}

	candidates, err := s.repo.RestaurantsInRegion(ctx, region)
	if err != nil {
		return nil, err
	}

	want := util.NormalizeSlugName(name)
	for _, r := range candidates {
		if util.NormalizeSlugName(r.Name) == want {
			return r, nil
		}
	}
	return nil, nil
}

// completeRestaurant loads the translated and raw details concurrently. A
// failing detail table degrades to a header-only restaurant.
func (s *Service) completeRestaurant(ctx context.Context, header *domain.Restaurant) (*domain.RestaurantFull, error) {
	full := &domain.RestaurantFull{Restaurant: *header}

	url := header.SourceURL()
	if url == "" {
		return full, nil
	}

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		detail, err := s.repo.GetRestaurantDetail(ctx, url)
		if err != nil {
			s.logger.Warn("Failed to load restaurant detail", zap.String("url", url), zap.Error(err))
			return nil
		}
		full.Detail = detail
		return nil
	})
	p.Go(func(ctx context.Context) error {
		raw, err := s.repo.GetRestaurantDetailRaw(ctx, url)
		if err != nil {
			s.logger.Warn("Failed to load raw restaurant detail", zap.String("url", url), zap.Error(err))
			return nil
		}
		full.DetailRaw = raw
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return full, nil
}

func assignSlug(r *domain.Restaurant) {
	r.Slug = util.GenerateRestaurantSlug(r.Name, r.RegionName)
}

// RegionDetails returns the sorted detail region names within region.
func (s *Service) RegionDetails(ctx context.Context, region string) ([]string, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return []string{}, nil
	}

	return readThrough(ctx, s, cacheKey("region_details", region), constants.CacheTTL.RegionDetails, never[[]string],
		func(ctx context.Context) ([]string, error) {
			details, err := s.repo.RegionDetails(ctx, region)
			if err != nil {
				return nil, err
			}
			sort.Strings(details)
			return details, nil
		})
}

// Regions returns the filterable region codes.
func (s *Service) Regions(ctx context.Context) ([]string, error) {
	return readThrough(ctx, s, cacheKey("regions"), constants.CacheTTL.RegionDetails, never[[]string],
		func(ctx context.Context) ([]string, error) {
			codes, err := s.repo.RegionCodes(ctx)
			if err != nil {
				return nil, err
			}
			return GroupRegions(codes), nil
		})
}

// GroupRegions puts SEOUL and its districts first, followed by the remaining
// codes in order.
func GroupRegions(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	districts := make(map[string]bool, len(constants.SeoulDistricts))
	for _, d := range constants.SeoulDistricts {
		districts[d] = true
	}

	var seoul, others []string
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		if districts[code] {
			continue
		}
		others = append(others, code)
	}

	for _, d := range constants.SeoulDistricts {
		if seen[d] {
			seoul = append(seoul, d)
		}
	}

	result := make([]string, 0, len(seoul)+len(others)+1)
	if len(seoul) > 0 {
		result = append(result, constants.RegionSeoul)
		result = append(result, seoul...)
	}
	sort.Strings(others)
	return append(result, others...)
}

// Episodes returns one card per detail region and episode, newest first.
func (s *Service) Episodes(ctx context.Context) ([]*domain.EpisodeCard, error) {
	return readThrough(ctx, s, cacheKey("episodes"), constants.CacheTTL.Episodes, never[[]*domain.EpisodeCard],
		func(ctx context.Context) ([]*domain.EpisodeCard, error) {
			episodes, err := s.repo.ListEpisodes(ctx)
			if err != nil {
				return nil, err
			}
			return EpisodeCards(episodes), nil
		})
}

// EpisodeCards transforms episodes and keeps the first card per DedupKey.
func EpisodeCards(episodes []*domain.Episode) []*domain.EpisodeCard {
	seen := make(map[string]bool, len(episodes))
	cards := make([]*domain.EpisodeCard, 0, len(episodes))
	for _, e := range episodes {
		card := domain.NewEpisodeCard(e)
		key := card.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		cards = append(cards, card)
	}
	return cards
}

func (s *Service) FeaturedEpisodes(ctx context.Context, limit int) ([]*domain.EpisodeCard, error) {
	cards, err := s.Episodes(ctx)
	if err != nil {
		return nil, err
	}
	return cards[:util.Clamp(limit, 0, len(cards))], nil
}

func (s *Service) Episode(ctx context.Context, id int64) (*domain.Episode, error) {
	return s.repo.GetEpisode(ctx, id)
}

// Glossary aggregates every stored glossary. The four sources are queried
// concurrently and merged in GlossarySources order.
func (s *Service) Glossary(ctx context.Context) ([]domain.GlossaryEntry, error) {
	return readThrough(ctx, s, cacheKey("glossary"), constants.CacheTTL.Glossary, never[[]domain.GlossaryEntry],
		func(ctx context.Context) ([]domain.GlossaryEntry, error) {
			rows := make([][]GlossaryRow, len(GlossarySources))

			p := pool.New().WithContext(ctx).WithCancelOnError()
			for i, source := range GlossarySources {
				i, source := i, source
				p.Go(func(ctx context.Context) error {
					result, err := s.repo.GlossaryRows(ctx, source)
					if err != nil {
						return err
					}
					rows[i] = result
					return nil
				})
			}
			if err := p.Wait(); err != nil {
				return nil, fmt.Errorf("failed to aggregate glossary: %w", err)
			}

			return AggregateGlossary(GlossarySources, rows, s.logger), nil
		})
}

// AggregateGlossary merges glossary rows source by source with the same
// precedence as glossary.Merge. Entries are sorted alphabetically, ignoring case.
func AggregateGlossary(sources []domain.GlossarySourceType, rows [][]GlossaryRow, logger *zap.Logger) []domain.GlossaryEntry {
	b := glossary.NewBuilder()
	entries := make([]domain.GlossaryEntry, 0)

	for i, source := range sources {
		if i >= len(rows) {
			break
		}
		for _, row := range rows[i] {
			pairs, err := row.Glossary.Source()
			if err != nil {
				logger.Warn("Skipping malformed glossary",
					zap.String("source", string(source)),
					zap.String("url", row.SourceURL),
					zap.Error(err),
				)
				continue
			}

			for _, pair := range pairs {
				kept, ok := b.Add(pair)
				if !ok {
					continue
				}
				entries = append(entries, domain.GlossaryEntry{
					Term:       kept.Term,
					Definition: kept.Explain,
					SourceType: source,
					SourceURL:  row.SourceURL,
				})
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return glossary.Less(entries[i].Term, entries[j].Term)
	})
	return entries
}

// Invalidate drops every cached content key.
func (s *Service) Invalidate(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	deleted, err := s.store.DeleteByPattern(ctx, constants.RedisConfig.KeyPrefix+"*")
	if err != nil {
		return deleted, err
	}
	s.logger.Info("Content cache invalidated", zap.Int64("keys", deleted))
	return deleted, nil
}
