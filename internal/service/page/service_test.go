package page

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/config"
	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/glossary"
)

type fakeContent struct {
	editorials  map[string]*domain.EditorialFull
	restaurants map[string]*domain.RestaurantFull
	err         error
}

func (f *fakeContent) Editorial(_ context.Context, id string) (*domain.EditorialFull, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.editorials[id], nil
}

func (f *fakeContent) Restaurant(_ context.Context, slugOrID string) (*domain.RestaurantFull, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.restaurants[slugOrID], nil
}

func newTestService(content ContentSource) *Service {
	site := config.SiteConfig{BaseURL: "https://example.test", Name: "KoreaNow", Language: "en"}
	return NewService(content, glossary.NewMatcherCache(8), site, zap.NewNop())
}

func termDefinitions(doc glossary.Document) map[string]string {
	out := make(map[string]string)
	for _, seg := range doc.Flatten() {
		if seg.IsTerm() {
			out[seg.Content] = seg.Definition
		}
	}
	return out
}

func sampleEditorial() *domain.EditorialFull {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return &domain.EditorialFull{
		Editorial: domain.Editorial{
			ID:                "42",
			Site:              "mangoplate",
			URL:               "https://source.test/post/42",
			TitleTranslated:   "A Winter of Kimchi",
			SummaryTranslated: "Long summary about kimchi and makgeolli.",
			SummaryShort:      "Kimchi season is here.",
			SummaryBullets:    []string{"Kimchi is fermented", "Pair it with makgeolli"},
			Glossary:          domain.GlossaryJSON(`{"kimchi": "header definition"}`),
			ImageURL:          "https://img.test/42.jpg",
			CreatedAt:         created,
		},
		Content: &domain.EditorialContent{
			ID:                "c42",
			ContentTranslated: "First we make kimchi.\n\nThen we pour makgeolli.\n\nFinally we eat.",
			Glossary:          domain.GlossaryJSON(`[{"term": "kimchi", "explain": "body definition"}, {"term": "makgeolli", "explain": "rice wine"}]`),
			Images:            []string{"a.jpg", "b.jpg"},
		},
	}
}

func TestEditorialPageHeaderGlossaryWins(t *testing.T) {
	svc := newTestService(&fakeContent{editorials: map[string]*domain.EditorialFull{"42": sampleEditorial()}})

	page, err := svc.EditorialPage(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page == nil {
		t.Fatalf("expected page")
	}

	if defs := termDefinitions(page.Summary); defs["Kimchi"] != "header definition" {
		t.Fatalf("expected header definition in summary, got %v", defs)
	}
	if len(page.Bullets) != 2 {
		t.Fatalf("expected 2 bullets, got %d", len(page.Bullets))
	}
	if defs := termDefinitions(page.Bullets[1]); defs["makgeolli"] != "rice wine" {
		t.Fatalf("expected body glossary to fill missing terms, got %v", defs)
	}
	if len(page.Glossary) != 2 || page.Glossary[0].Term != "kimchi" || page.Glossary[0].Explain != "header definition" {
		t.Fatalf("unexpected merged glossary: %v", page.Glossary)
	}
}

func TestEditorialPagePositionsImages(t *testing.T) {
	svc := newTestService(&fakeContent{editorials: map[string]*domain.EditorialFull{"42": sampleEditorial()}})

	page, err := svc.EditorialPage(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(page.Paragraphs))
	}

	total := 0
	for _, p := range page.Paragraphs {
		total += len(p.Images)
	}
	if total != 2 {
		t.Fatalf("expected every image placed once, got %d", total)
	}
	if page.Paragraphs[0].Text.Terms() != 1 {
		t.Fatalf("expected kimchi annotated in first paragraph")
	}
}

func TestEditorialPageSEO(t *testing.T) {
	svc := newTestService(&fakeContent{editorials: map[string]*domain.EditorialFull{"42": sampleEditorial()}})

	page, err := svc.EditorialPage(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seo := page.SEO
	if seo.Canonical != "https://example.test/editorials/42" {
		t.Fatalf("unexpected canonical %q", seo.Canonical)
	}
	if seo.Description != "Kimchi season is here." || seo.OGType != "article" {
		t.Fatalf("unexpected seo: %+v", seo)
	}
	if len(seo.Images) != 1 || seo.Images[0].Width != 1200 || seo.Images[0].Height != 630 {
		t.Fatalf("unexpected og images: %+v", seo.Images)
	}
	if seo.PublishedTime == nil || seo.ModifiedTime == nil || !seo.ModifiedTime.Equal(*seo.PublishedTime) {
		t.Fatalf("expected modified time to fall back to created time")
	}

	var ld map[string]any
	if err := json.Unmarshal([]byte(seo.StructuredData), &ld); err != nil {
		t.Fatalf("invalid structured data: %v", err)
	}
	if ld["@type"] != "Article" || ld["keywords"] != "Kimchi is fermented, Pair it with makgeolli" {
		t.Fatalf("unexpected structured data: %v", ld)
	}
	if body, _ := ld["articleBody"].(string); !strings.Contains(body, "First we make kimchi.") {
		t.Fatalf("expected article body, got %q", body)
	}
}

func TestEditorialPageWithoutContent(t *testing.T) {
	e := sampleEditorial()
	e.Content = nil
	e.SummaryBullets = nil
	svc := newTestService(&fakeContent{editorials: map[string]*domain.EditorialFull{"42": e}})

	page, err := svc.EditorialPage(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Paragraphs) != 0 {
		t.Fatalf("expected no paragraphs")
	}
	if !strings.Contains(page.SEO.StructuredData, `"keywords":"Korean food, Korean culture, Korea"`) {
		t.Fatalf("expected default keywords, got %s", page.SEO.StructuredData)
	}
}

func TestEditorialPageMissingAndErrors(t *testing.T) {
	svc := newTestService(&fakeContent{})
	page, err := svc.EditorialPage(context.Background(), "missing")
	if err != nil || page != nil {
		t.Fatalf("expected nil page without error, got %v (%v)", page, err)
	}

	boom := errors.New("db down")
	svc = newTestService(&fakeContent{err: boom})
	if _, err := svc.EditorialPage(context.Background(), "42"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestMalformedGlossaryIsIgnored(t *testing.T) {
	e := sampleEditorial()
	e.Glossary = domain.GlossaryJSON(`{"broken": `)
	svc := newTestService(&fakeContent{editorials: map[string]*domain.EditorialFull{"42": e}})

	page, err := svc.EditorialPage(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if defs := termDefinitions(page.Summary); defs["Kimchi"] != "body definition" {
		t.Fatalf("expected body glossary after malformed header, got %v", defs)
	}
}

func sampleRestaurant() *domain.RestaurantFull {
	rating := 4.5
	count := 120
	lat, lng := 37.52, 127.04
	return &domain.RestaurantFull{
		Restaurant: domain.Restaurant{
			ID:           7,
			Name:         "Mingles",
			Slug:         "gangnam-mingles",
			RegionName:   "GANGNAM",
			SummaryShort: "Modern hansik with doenjang.",
			Glossary:     domain.GlossaryJSON(`{"hansik": "Korean cuisine"}`),
			ImageURL:     "https://img.test/mingles.jpg",
		},
		Detail: &domain.RestaurantDetail{
			NameTranslated:        "Mingles Seoul",
			DescriptionTranslated: "A hansik tasting menu.",
			MenusTranslated:       "Jang trio",
			Glossary:              domain.GlossaryJSON(`{"hansik": "detail def", "jang": "fermented sauces"}`),
			Latitude:              &lat,
			Longitude:             &lng,
			AddressTranslated:     "19 Dosan-daero, Gangnam",
		},
		DetailRaw: &domain.RestaurantDetailRaw{
			Rating:      &rating,
			RatingCount: &count,
			ImageURLs:   []string{"g1.jpg", "g2.jpg"},
			Menus:       json.RawMessage(`[{"name": "Jang dessert", "price": 25000}, {"name": ""}, {"price": "1"}]`),
		},
	}
}

func TestRestaurantPage(t *testing.T) {
	svc := newTestService(&fakeContent{restaurants: map[string]*domain.RestaurantFull{"gangnam-mingles": sampleRestaurant()}})

	page, err := svc.RestaurantPage(context.Background(), "gangnam-mingles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Name != "Mingles Seoul" {
		t.Fatalf("expected translated name, got %q", page.Name)
	}
	if defs := termDefinitions(page.Description); defs["hansik"] != "Korean cuisine" {
		t.Fatalf("expected header definition to win, got %v", defs)
	}
	if defs := termDefinitions(page.Menu); defs["Jang"] != "fermented sauces" {
		t.Fatalf("expected menus annotated, got %v", defs)
	}
	if len(page.MenuItems) != 1 || page.MenuItems[0].Price != "25000" {
		t.Fatalf("unexpected menu items: %+v", page.MenuItems)
	}
	if len(page.Images) != 2 {
		t.Fatalf("expected gallery images, got %v", page.Images)
	}
	if page.SEO.Canonical != "https://example.test/restaurants/gangnam-mingles" || page.SEO.OGType != "website" {
		t.Fatalf("unexpected seo: %+v", page.SEO)
	}

	var ld map[string]any
	if err := json.Unmarshal([]byte(page.SEO.StructuredData), &ld); err != nil {
		t.Fatalf("invalid structured data: %v", err)
	}
	if ld["@type"] != "Restaurant" || ld["geo"] == nil || ld["aggregateRating"] == nil {
		t.Fatalf("unexpected structured data: %v", ld)
	}
}

func TestRestaurantPageWithoutDetails(t *testing.T) {
	r := sampleRestaurant()
	r.Detail = nil
	r.DetailRaw = nil
	r.SummaryShort = ""
	svc := newTestService(&fakeContent{restaurants: map[string]*domain.RestaurantFull{"7": r}})

	page, err := svc.RestaurantPage(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Name != "Mingles" || len(page.MenuItems) != 0 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.SEO.Description != "Discover Mingles in Korea" {
		t.Fatalf("unexpected description fallback %q", page.SEO.Description)
	}
	if strings.Contains(page.SEO.StructuredData, "aggregateRating") {
		t.Fatalf("expected no rating without raw detail")
	}
}

func TestStructuredDataEscapesScriptClose(t *testing.T) {
	r := sampleRestaurant()
	r.Detail.NameTranslated = "</script><b>"
	svc := newTestService(&fakeContent{restaurants: map[string]*domain.RestaurantFull{"x": r}})

	page, err := svc.RestaurantPage(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(page.SEO.StructuredData, "</script>") {
		t.Fatalf("structured data must not contain a raw closing tag: %s", page.SEO.StructuredData)
	}
}

func TestAnnotateUsesSourcePriority(t *testing.T) {
	svc := newTestService(&fakeContent{})

	doc, err := svc.Annotate("Banchan time",
		glossary.FromMap(map[string]string{"banchan": "D1"}),
		glossary.FromMap(map[string]string{"banchan": "D2"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if defs := termDefinitions(doc); defs["Banchan"] != "D1" {
		t.Fatalf("unexpected definitions: %v", defs)
	}
}

func TestParseMenuItems(t *testing.T) {
	items := ParseMenuItems(json.RawMessage(`[{"name": "Bibimbap", "price": "12,000"}, {"name": "Soju", "price": 5000}, {"name": "Water"}]`))
	if len(items) != 3 || items[0].Price != "12,000" || items[1].Price != "5000" || items[2].Price != "" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if ParseMenuItems(json.RawMessage(`{"not": "a list"}`)) != nil {
		t.Fatalf("expected nil for unsupported shape")
	}
	if ParseMenuItems(nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}
