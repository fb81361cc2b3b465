package youtube

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/pkg/errors"
)

type fakeClient struct {
	pages      []*youtube.VideoListResponse
	calls      int
	maxResults []int64
	err        error
}

func (f *fakeClient) MostPopular(_ context.Context, regionCode, categoryID string, maxResults int64, pageToken string) (*youtube.VideoListResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if regionCode != "KR" || categoryID != constants.YouTubeConfig.CategoryID {
		return nil, fmt.Errorf("unexpected chart %s/%s", regionCode, categoryID)
	}
	if want := fmt.Sprintf("p%d", f.calls); f.calls > 0 && pageToken != want {
		return nil, fmt.Errorf("expected page token %s, got %s", want, pageToken)
	}
	f.maxResults = append(f.maxResults, maxResults)
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

type memoryStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	counters map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string][]byte{}, counters: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	return nil
}

func (m *memoryStore) IncrBy(_ context.Context, key string, delta int64, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] += delta
	return m.counters[key], nil
}

func (m *memoryStore) GetInt(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}

func video(id, title string, views uint64) *youtube.Video {
	return &youtube.Video{
		Id: id,
		Snippet: &youtube.VideoSnippet{
			Title:        title,
			ChannelTitle: "channel",
			PublishedAt:  "2025-03-01T09:00:00Z",
			Thumbnails: &youtube.ThumbnailDetails{
				Default: &youtube.Thumbnail{Url: "default.jpg"},
				Medium:  &youtube.Thumbnail{Url: "medium.jpg"},
			},
		},
		Statistics: &youtube.VideoStatistics{ViewCount: views, LikeCount: 7},
	}
}

func TestTrendingFoodVideosFiltersAndPages(t *testing.T) {
	client := &fakeClient{pages: []*youtube.VideoListResponse{
		{Items: []*youtube.Video{video("a", "강남 맛집 투어", 10), video("b", "게임 리뷰", 5)}, NextPageToken: "p1"},
		{Items: []*youtube.Video{video("c", "MUKBANG 먹방", 3), video("d", "포장마차 야식", 2)}},
	}}
	svc := NewService(client, newMemoryStore(), "KR", zap.NewNop())

	videos, err := svc.TrendingFoodVideos(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != "a" || videos[1].ID != "c" {
		t.Fatalf("unexpected videos: %+v", videos)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 pages, got %d", client.calls)
	}
	if client.maxResults[0] != 22 || client.maxResults[1] != 21 {
		t.Fatalf("unexpected batch sizes: %v", client.maxResults)
	}

	v := videos[0]
	if v.ThumbnailURL != "medium.jpg" || v.VideoURL != "https://www.youtube.com/watch?v=a" {
		t.Fatalf("unexpected video mapping: %+v", v)
	}
	if v.LikeCount == nil || *v.LikeCount != 7 || v.ViewCount != 10 {
		t.Fatalf("unexpected statistics: %+v", v)
	}
	if v.PublishedAt.IsZero() {
		t.Fatalf("expected published time to be parsed")
	}
}

func TestTrendingFoodVideosCapsBatchSize(t *testing.T) {
	client := &fakeClient{pages: []*youtube.VideoListResponse{{}}}
	svc := NewService(client, newMemoryStore(), "KR", zap.NewNop())

	videos, err := svc.TrendingFoodVideos(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 0 {
		t.Fatalf("expected no videos")
	}
	if client.maxResults[0] != constants.YouTubeConfig.MaxResults {
		t.Fatalf("expected batch capped at %d, got %d", constants.YouTubeConfig.MaxResults, client.maxResults[0])
	}
}

func TestTrendingFoodVideosCached(t *testing.T) {
	store := newMemoryStore()
	client := &fakeClient{pages: []*youtube.VideoListResponse{
		{Items: []*youtube.Video{video("a", "점심 메뉴", 1)}},
	}}
	svc := NewService(client, store, "KR", zap.NewNop())

	for i := 0; i < 2; i++ {
		videos, err := svc.TrendingFoodVideos(context.Background(), 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(videos) != 1 {
			t.Fatalf("expected 1 video, got %d", len(videos))
		}
	}
	if client.calls != 1 {
		t.Fatalf("expected second call served from cache, got %d API calls", client.calls)
	}

	used, _, err := svc.QuotaStatus(context.Background())
	if err != nil || used != 1 {
		t.Fatalf("expected 1 quota unit used, got %d (%v)", used, err)
	}
}

func TestTrendingFoodVideosQuotaExceeded(t *testing.T) {
	store := newMemoryStore()
	client := &fakeClient{pages: []*youtube.VideoListResponse{{}}}
	svc := NewService(client, store, "KR", zap.NewNop())
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	store.counters[quotaKey(nextQuotaReset(fixed))] = int64(constants.YouTubeConfig.DailyQuota)

	_, err := svc.TrendingFoodVideos(context.Background(), 5)
	var quotaErr *errors.QuotaExceededError
	if !stderrors.As(err, &quotaErr) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("expected no API call once quota is spent")
	}
}

func TestTrendingFoodVideosMapsAPIQuotaError(t *testing.T) {
	client := &fakeClient{err: &googleapi.Error{
		Code:   403,
		Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}},
	}}
	svc := NewService(client, newMemoryStore(), "KR", zap.NewNop())

	_, err := svc.TrendingFoodVideos(context.Background(), 5)
	if errors.Code(err) != errors.CodeQuotaExceeded {
		t.Fatalf("expected quota error code, got %v", err)
	}

	client.err = stderrors.New("network down")
	_, err = svc.TrendingFoodVideos(context.Background(), 5)
	if errors.Code(err) != errors.CodeService {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestNextQuotaReset(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	reset := nextQuotaReset(now)
	if !reset.After(now) || reset.Sub(now) > 24*time.Hour {
		t.Fatalf("unexpected reset %v", reset)
	}
	if h, m := reset.Hour(), reset.Minute(); h != 0 || m != 0 {
		t.Fatalf("expected midnight, got %02d:%02d", h, m)
	}
}

