package content

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/glossary"
)

type fakeQuerier struct {
	mu sync.Mutex

	editorials  []*domain.Editorial
	contents    map[string]*domain.EditorialContent
	restaurants []*domain.Restaurant
	details     map[string]*domain.RestaurantDetail
	raws        map[string]*domain.RestaurantDetailRaw
	detailErr   error
	regionCodes []string
	episodes    []*domain.Episode
	glossaries  map[domain.GlossarySourceType][]GlossaryRow
	glossaryErr error

	listCalls int
}

func (f *fakeQuerier) ListEditorials(_ context.Context, limit int) ([]*domain.Editorial, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if limit > 0 && limit < len(f.editorials) {
		return f.editorials[:limit], nil
	}
	return f.editorials, nil
}

func (f *fakeQuerier) GetEditorial(_ context.Context, id string) (*domain.Editorial, error) {
	for _, e := range f.editorials {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeQuerier) GetEditorialByURL(_ context.Context, site, url string) (*domain.Editorial, error) {
	for _, e := range f.editorials {
		if e.Site == site && e.URL == url {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeQuerier) GetEditorialContent(_ context.Context, _, url string) (*domain.EditorialContent, error) {
	return f.contents[url], nil
}

func (f *fakeQuerier) ListRestaurants(_ context.Context, _ domain.RestaurantFilter) ([]*domain.Restaurant, error) {
	return f.restaurants, nil
}

func (f *fakeQuerier) GetRestaurant(_ context.Context, id int64) (*domain.Restaurant, error) {
	for _, r := range f.restaurants {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeQuerier) RestaurantsInRegion(_ context.Context, region string) ([]*domain.Restaurant, error) {
	var out []*domain.Restaurant
	for _, r := range f.restaurants {
		if strings.HasPrefix(strings.ToUpper(r.RegionName), strings.ToUpper(region)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeQuerier) GetRestaurantDetail(_ context.Context, url string) (*domain.RestaurantDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.details[url], nil
}

func (f *fakeQuerier) GetRestaurantDetailRaw(_ context.Context, url string) (*domain.RestaurantDetailRaw, error) {
	return f.raws[url], nil
}

func (f *fakeQuerier) RegionDetails(_ context.Context, _ string) ([]string, error) {
	return []string{"Yeosu", "Jindo", "Wando"}, nil
}

func (f *fakeQuerier) RegionCodes(_ context.Context) ([]string, error) {
	return f.regionCodes, nil
}

func (f *fakeQuerier) ListEpisodes(_ context.Context) ([]*domain.Episode, error) {
	return f.episodes, nil
}

func (f *fakeQuerier) GetEpisode(_ context.Context, id int64) (*domain.Episode, error) {
	for _, e := range f.episodes {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeQuerier) GlossaryRows(_ context.Context, source domain.GlossarySourceType) ([]GlossaryRow, error) {
	if f.glossaryErr != nil && source == domain.GlossarySourceRestaurant {
		return nil, f.glossaryErr
	}
	return f.glossaries[source], nil
}

type memoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string][]byte)}
}

func (m *memoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

func (m *memoryStore) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			delete(m.values, k)
			n++
		}
	}
	return n, nil
}

func TestEditorialsReadThroughCache(t *testing.T) {
	repo := &fakeQuerier{editorials: []*domain.Editorial{
		{ID: "a", TitleTranslated: "Kimchi Guide", Glossary: domain.GlossaryJSON(`{"kimchi":"fermented cabbage"}`)},
	}}
	store := newMemoryStore()
	svc := NewService(repo, store, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := svc.Editorials(ctx, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].TitleTranslated != "Kimchi Guide" {
			t.Fatalf("unexpected editorials: %+v", got)
		}
		src, err := got[0].Glossary.Source()
		if err != nil || len(src) != 1 || src[0].Term != "kimchi" {
			t.Fatalf("expected glossary to survive caching, got %v (%v)", src, err)
		}
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected one repository call, got %d", repo.listCalls)
	}

	if n, err := svc.Invalidate(ctx); err != nil || n != 1 {
		t.Fatalf("expected one key invalidated, got %d (%v)", n, err)
	}
	if _, err := svc.Editorials(ctx, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected reload after invalidation")
	}
}

func TestStoreFailureFallsBackToRepository(t *testing.T) {
	repo := &fakeQuerier{editorials: []*domain.Editorial{{ID: "a"}}}
	store := newMemoryStore()
	store.getErr = stderrors.New("redis down")
	svc := NewService(repo, store, zap.NewNop())

	got, err := svc.Editorials(context.Background(), 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected repository result, got %v (%v)", got, err)
	}
}

func TestFeaturedEditorialsShufflesPool(t *testing.T) {
	repo := &fakeQuerier{editorials: []*domain.Editorial{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	svc := NewService(repo, nil, nil)
	svc.shuffle = func(n int, swap func(i, j int)) { swap(0, n-1) }

	got, err := svc.FeaturedEditorials(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "2" {
		t.Fatalf("unexpected featured editorials: %v, %v", got[0].ID, got[1].ID)
	}
	if repo.editorials[0].ID != "1" {
		t.Fatalf("shuffle must not reorder the source slice")
	}

	got, _ = svc.FeaturedEditorials(context.Background(), 10)
	if len(got) != 3 {
		t.Fatalf("expected limit clamped to pool size, got %d", len(got))
	}
}

func TestEditorialCombinesHeaderAndBody(t *testing.T) {
	repo := &fakeQuerier{
		editorials: []*domain.Editorial{{ID: "x", Site: "s", URL: "https://s/1"}},
		contents:   map[string]*domain.EditorialContent{"https://s/1": {ContentTranslated: "Body"}},
	}
	svc := NewService(repo, newMemoryStore(), zap.NewNop())

	full, err := svc.Editorial(context.Background(), "x")
	if err != nil || full == nil || full.Content == nil || full.Content.ContentTranslated != "Body" {
		t.Fatalf("unexpected editorial: %+v (%v)", full, err)
	}

	missing, err := svc.Editorial(context.Background(), "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing editorial, got %+v (%v)", missing, err)
	}

	byURL, err := svc.EditorialByURL(context.Background(), "s", "https://s/1")
	if err != nil || byURL == nil || byURL.Content == nil {
		t.Fatalf("unexpected editorial by url: %+v (%v)", byURL, err)
	}
}

func TestRestaurantBySlugAndID(t *testing.T) {
	repo := &fakeQuerier{
		restaurants: []*domain.Restaurant{
			{ID: 1, Name: "Mingles (밍글스)", RegionName: "GANGNAM 1", OriginalURL: "https://siksin/1"},
			{ID: 2, Name: "Jungsik", RegionName: "GANGNAM 2"},
		},
		details: map[string]*domain.RestaurantDetail{"https://siksin/1": {DescriptionTranslated: "Modern hansik"}},
		raws:    map[string]*domain.RestaurantDetailRaw{"https://siksin/1": {ImageURLs: []string{"a.jpg"}}},
	}
	svc := NewService(repo, nil, zap.NewNop())
	ctx := context.Background()

	full, err := svc.Restaurant(ctx, "gangnam-mingles")
	if err != nil || full == nil {
		t.Fatalf("expected slug match, got %+v (%v)", full, err)
	}
	if full.ID != 1 || full.Slug != "gangnam-mingles" {
		t.Fatalf("unexpected restaurant: %+v", full.Restaurant)
	}
	if full.Detail == nil || full.DetailRaw == nil || full.Images()[0] != "a.jpg" {
		t.Fatalf("expected details to be attached: %+v", full)
	}

	byID, err := svc.Restaurant(ctx, "2")
	if err != nil || byID == nil || byID.Name != "Jungsik" {
		t.Fatalf("expected id lookup, got %+v (%v)", byID, err)
	}

	for _, slug := range []string{"gangnam-unknown", "busan-mingles", "gangnam"} {
		if r, err := svc.Restaurant(ctx, slug); err != nil || r != nil {
			t.Fatalf("expected no match for %q, got %+v (%v)", slug, r, err)
		}
	}
}

func TestRestaurantDetailFailureDegrades(t *testing.T) {
	repo := &fakeQuerier{
		restaurants: []*domain.Restaurant{{ID: 1, Name: "Mingles", RegionName: "GANGNAM", URL: "u"}},
		detailErr:   stderrors.New("relation does not exist"),
	}
	svc := NewService(repo, nil, zap.NewNop())

	full, err := svc.Restaurant(context.Background(), "1")
	if err != nil || full == nil || full.Detail != nil {
		t.Fatalf("expected header-only restaurant, got %+v (%v)", full, err)
	}
}

func TestRestaurantsAssignSlugs(t *testing.T) {
	repo := &fakeQuerier{restaurants: []*domain.Restaurant{{ID: 1, Name: "Ok-dong-sik", RegionName: "MAPO 3"}}}
	svc := NewService(repo, nil, zap.NewNop())

	got, err := svc.Restaurants(context.Background(), domain.RestaurantFilter{Region: "mapo"})
	if err != nil || got[0].Slug != "mapo-ok-dong-sik" {
		t.Fatalf("unexpected restaurants: %+v (%v)", got, err)
	}
}

func TestRegionDetailsSorted(t *testing.T) {
	svc := NewService(&fakeQuerier{}, nil, zap.NewNop())

	got, err := svc.RegionDetails(context.Background(), "jeonnam")
	if err != nil || strings.Join(got, ",") != "Jindo,Wando,Yeosu" {
		t.Fatalf("unexpected details: %v (%v)", got, err)
	}
	if got, _ := svc.RegionDetails(context.Background(), ""); len(got) != 0 {
		t.Fatalf("expected no details for blank region")
	}
}

func TestGroupRegions(t *testing.T) {
	got := GroupRegions([]string{"jeju", "GANGBUK", "BUSAN", "gangnam", "BUSAN", ""})
	want := "SEOUL,GANGNAM,GANGBUK,BUSAN,JEJU"
	if strings.Join(got, ",") != want {
		t.Fatalf("expected %s, got %v", want, got)
	}

	if got := GroupRegions([]string{"DAEGU"}); strings.Join(got, ",") != "DAEGU" {
		t.Fatalf("expected no SEOUL entry without districts, got %v", got)
	}
}

func TestEpisodesDeduplicatedPerRegionAndEpisode(t *testing.T) {
	repo := &fakeQuerier{episodes: []*domain.Episode{
		{ID: 1, Episode: 5, RegionName: "전남", RegionDetailNameEng: "Jindo", EpisodeDesc: "First."},
		{ID: 2, Episode: 5, RegionName: "전남", RegionDetailNameEng: "Jindo", EpisodeDesc: "Duplicate."},
		{ID: 3, Episode: 4, RegionName: "전남", RegionDetailNameEng: "Jindo", EpisodeDesc: "Earlier."},
		{ID: 4, Episode: 5, RegionName: "부산", RegionDetailNameEng: "Haeundae", EpisodeDesc: "Other."},
	}}
	svc := NewService(repo, nil, zap.NewNop())

	cards, err := svc.Episodes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 3 || cards[0].ID != 1 || cards[1].ID != 3 || cards[2].ID != 4 {
		t.Fatalf("unexpected cards: %+v", cards)
	}

	featured, _ := svc.FeaturedEpisodes(context.Background(), 2)
	if len(featured) != 2 {
		t.Fatalf("expected 2 featured episodes, got %d", len(featured))
	}
}

func TestGlossaryAggregationFirstSourceWins(t *testing.T) {
	repo := &fakeQuerier{glossaries: map[domain.GlossarySourceType][]GlossaryRow{
		domain.GlossarySourceEditorial: {
			{SourceURL: "e1", Glossary: domain.GlossaryJSON(`{"Kimchi": "from editorial", "soju": "spirit"}`)},
		},
		domain.GlossarySourceEditorialContent: {
			{SourceURL: "c1", Glossary: domain.GlossaryJSON(`{"kimchi": "from content", "banchan": "sides"}`)},
			{SourceURL: "c2", Glossary: domain.GlossaryJSON(`not json`)},
		},
		domain.GlossarySourceRestaurant: {
			{SourceURL: "r1", Glossary: domain.GlossaryJSON(`[{"term": "Tteok", "explain": "rice cake"}, {"term": " ", "explain": "blank"}]`)},
		},
		domain.GlossarySourceRestaurantDetail: {
			{SourceURL: "d1", Glossary: domain.GlossaryJSON(`[{"term": "SOJU", "explain": "ignored"}]`)},
		},
	}}
	svc := NewService(repo, nil, zap.NewNop())

	entries, err := svc.Glossary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var terms []string
	for _, e := range entries {
		terms = append(terms, e.Term)
	}
	if strings.Join(terms, ",") != "banchan,Kimchi,soju,Tteok" {
		t.Fatalf("unexpected terms: %v", terms)
	}
	if entries[1].Definition != "from editorial" || entries[1].SourceType != domain.GlossarySourceEditorial {
		t.Fatalf("expected editorial definition to win: %+v", entries[1])
	}
	if entries[3].SourceType != domain.GlossarySourceRestaurant || entries[3].SourceURL != "r1" {
		t.Fatalf("unexpected attribution: %+v", entries[3])
	}
}

func TestAggregateGlossaryAgreesWithMerge(t *testing.T) {
	sources := []domain.GlossarySourceType{domain.GlossarySourceEditorial, domain.GlossarySourceRestaurant}
	rows := [][]GlossaryRow{
		{
			{SourceURL: "e1", Glossary: domain.GlossaryJSON(`{" Bap ": "rice", "kimchi": "cabbage", "": "blank"}`)},
			{SourceURL: "e2", Glossary: domain.GlossaryJSON(`{"BAP": "shadowed", "Soju": "spirit"}`)},
		},
		{
			{SourceURL: "r1", Glossary: domain.GlossaryJSON(`[{"term": "KIMCHI", "explain": "shadowed"}, {"term": "jeon", "explain": "pancake"}]`)},
		},
	}

	entries := AggregateGlossary(sources, rows, zap.NewNop())

	var merged []glossary.Source
	for _, group := range rows {
		for _, row := range group {
			src, err := row.Glossary.Source()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			merged = append(merged, src)
		}
	}
	want := glossary.Merge(merged...).Entries()

	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), entries)
	}
	for i, e := range entries {
		if e.Term != want[i].Term || e.Definition != want[i].Explain {
			t.Fatalf("entry %d: got %q=%q, want %q=%q", i, e.Term, e.Definition, want[i].Term, want[i].Explain)
		}
	}
	if entries[0].Term != "Bap" || entries[0].SourceURL != "e1" {
		t.Fatalf("expected trimmed term from the first row: %+v", entries[0])
	}
}

func TestGlossaryPropagatesQueryError(t *testing.T) {
	repo := &fakeQuerier{glossaryErr: stderrors.New("boom")}
	svc := NewService(repo, nil, zap.NewNop())

	if _, err := svc.Glossary(context.Background()); err == nil {
		t.Fatalf("expected aggregation error")
	}
}
