// Package page assembles annotated editorial and restaurant pages: merged
// glossaries, tooltip segments for every annotated field and SEO metadata.
package page

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/article"
	"github.com/kapu/koreanow-go/internal/config"
	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/glossary"
)

// ContentSource loads the stored content a page is built from. Missing
// content is reported as nil, nil.
type ContentSource interface {
	Editorial(ctx context.Context, id string) (*domain.EditorialFull, error)
	Restaurant(ctx context.Context, slugOrID string) (*domain.RestaurantFull, error)
}

type Service struct {
	content  ContentSource
	matchers *glossary.MatcherCache
	site     config.SiteConfig
	logger   *zap.Logger
}

func NewService(content ContentSource, matchers *glossary.MatcherCache, site config.SiteConfig, logger *zap.Logger) *Service {
	if matchers == nil {
		matchers = glossary.NewMatcherCache(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{content: content, matchers: matchers, site: site, logger: logger}
}

// Paragraph is one annotated body paragraph with the images shown after it.
type Paragraph struct {
	Text   glossary.Document `json:"text"`
	Images []string          `json:"images,omitempty"`
}

type EditorialPage struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Summary    glossary.Document   `json:"summary"`
	Bullets    []glossary.Document `json:"bullets"`
	Paragraphs []Paragraph         `json:"paragraphs"`
	Glossary   []glossary.Pair     `json:"glossary"`
	Image      string              `json:"image,omitempty"`
	SourceURL  string              `json:"source_url"`
	CreatedAt  time.Time           `json:"created_at"`
	SEO        SEO                 `json:"seo"`
}

// EditorialPage builds the page for editorial id, or returns nil when it does
// not exist. The header glossary takes priority over the body glossary.
func (s *Service) EditorialPage(ctx context.Context, id string) (*EditorialPage, error) {
	editorial, err := s.content.Editorial(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load editorial %s: %w", id, err)
	}
	if editorial == nil {
		return nil, nil
	}

	sources := []domain.GlossaryJSON{editorial.Glossary}
	if editorial.Content != nil {
		sources = append(sources, editorial.Content.Glossary)
	}
	annotator, err := s.annotatorFor(sources...)
	if err != nil {
		return nil, err
	}

	page := &EditorialPage{
		ID:         editorial.ID,
		Title:      editorial.TitleTranslated,
		Summary:    annotator.Annotate(editorial.Description()),
		Bullets:    annotateAll(annotator, editorial.SummaryBullets),
		Paragraphs: []Paragraph{},
		Glossary:   entriesOrEmpty(annotator.Dictionary()),
		Image:      editorial.DisplayImage(),
		SourceURL:  editorial.URL,
		CreatedAt:  editorial.CreatedAt,
	}

	body := ""
	if editorial.Content != nil {
		body = editorial.Content.ContentTranslated
		page.Paragraphs = layoutParagraphs(annotator, body, editorial.Content.Images)
	}

	page.SEO = s.editorialSEO(editorial, body)
	return page, nil
}

func layoutParagraphs(annotator *glossary.Annotator, body string, images []string) []Paragraph {
	texts := article.Paragraphs(body)
	positions := article.ImagePositions(len(texts), len(images))

	paragraphs := make([]Paragraph, 0, len(texts))
	for i, text := range texts {
		p := Paragraph{Text: annotator.Annotate(text)}
		for _, idx := range positions[i] {
			p.Images = append(p.Images, images[idx])
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs
}

func (s *Service) editorialSEO(e *domain.EditorialFull, body string) SEO {
	canonical := s.site.BaseURL + "/editorials/" + e.ID
	description := e.Description()
	if description == "" {
		description = article.Excerpt(body, constants.StringLimits.SEODescription)
	}

	seo := newSEO(e.TitleTranslated, description, canonical, s.site.Name, "article", e.ImageURL)
	created := e.CreatedAt
	seo.PublishedTime = &created
	seo.ModifiedTime = &created
	if e.UpdatedAt != nil {
		seo.ModifiedTime = e.UpdatedAt
	}

	keywords := "Korean food, Korean culture, Korea"
	if len(e.SummaryBullets) > 0 {
		keywords = strings.Join(e.SummaryBullets, ", ")
	}
	articleBody := article.PlainText(body)
	if articleBody == "" {
		articleBody = e.SummaryTranslated
	}

	org := schemaOrganization{Type: "Organization", Name: s.site.Name, URL: s.site.BaseURL}
	ld := schemaArticle{
		Context:          "https://schema.org",
		Type:             "Article",
		Headline:         e.TitleTranslated,
		Description:      description,
		DatePublished:    seo.PublishedTime,
		DateModified:     seo.ModifiedTime,
		Author:           org,
		Publisher:        org,
		URL:              canonical,
		MainEntityOfPage: schemaWebPage{Type: "WebPage", ID: canonical},
		ArticleBody:      articleBody,
		Keywords:         keywords,
	}
	if e.ImageURL != "" {
		ld.Image = []string{e.ImageURL}
	}
	seo.StructuredData = structuredData(ld)
	return seo
}

// MenuItem is one priced dish from the scraped menu.
type MenuItem struct {
	Name  glossary.Document `json:"name"`
	Price string            `json:"price,omitempty"`
}

type RestaurantPage struct {
	ID             int64               `json:"id"`
	Slug           string              `json:"slug"`
	Name           string              `json:"name"`
	Region         string              `json:"region,omitempty"`
	Category       string              `json:"category,omitempty"`
	Summary        glossary.Document   `json:"summary"`
	Bullets        []glossary.Document `json:"bullets"`
	Description    glossary.Document   `json:"description"`
	Menu           glossary.Document   `json:"menu"`
	MenuItems      []MenuItem          `json:"menu_items"`
	OperatingHours glossary.Document   `json:"operating_hours"`
	Facilities     glossary.Document   `json:"facilities"`
	Tips           glossary.Document   `json:"tips"`
	Content        glossary.Document   `json:"content"`
	Address        string              `json:"address,omitempty"`
	Phone          string              `json:"phone,omitempty"`
	Website        string              `json:"website,omitempty"`
	Rating         *float64            `json:"rating,omitempty"`
	RatingCount    *int                `json:"rating_count,omitempty"`
	Latitude       *float64            `json:"latitude,omitempty"`
	Longitude      *float64            `json:"longitude,omitempty"`
	Images         []string            `json:"images"`
	SourceURL      string              `json:"source_url,omitempty"`
	Glossary       []glossary.Pair     `json:"glossary"`
	SEO            SEO                 `json:"seo"`
}

// RestaurantPage builds the page for a restaurant slug or ID, or returns nil
// when nothing matches. The header glossary takes priority over the detail
// glossary.
func (s *Service) RestaurantPage(ctx context.Context, slugOrID string) (*RestaurantPage, error) {
	r, err := s.content.Restaurant(ctx, slugOrID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant %s: %w", slugOrID, err)
	}
	if r == nil {
		return nil, nil
	}

	detail := r.Detail
	if detail == nil {
		detail = &domain.RestaurantDetail{}
	}
	raw := r.DetailRaw
	if raw == nil {
		raw = &domain.RestaurantDetailRaw{}
	}

	annotator, err := s.annotatorFor(r.Glossary, detail.Glossary)
	if err != nil {
		return nil, err
	}

	page := &RestaurantPage{
		ID:             r.ID,
		Slug:           r.Slug,
		Name:           firstNonEmpty(detail.NameTranslated, r.Name),
		Region:         r.RegionName,
		Category:       firstNonEmpty(detail.CategoryTranslated, r.CategoryTranslated),
		Summary:        annotator.Annotate(firstNonEmpty(detail.SummaryShort, r.SummaryShort)),
		Description:    annotator.Annotate(detail.DescriptionTranslated),
		Menu:           annotator.Annotate(firstNonEmpty(detail.MenusTranslated, detail.MenuTranslated, r.Menu)),
		MenuItems:      []MenuItem{},
		OperatingHours: annotator.Annotate(firstNonEmpty(detail.OperatingHoursTranslated, raw.OperatingHours)),
		Facilities:     annotator.Annotate(detail.FacilitiesTranslated),
		Tips:           annotator.Annotate(detail.TipsTranslated),
		Content:        annotator.Annotate(detail.ContentTranslated),
		Address:        firstNonEmpty(detail.AddressTranslated, r.Address),
		Phone:          raw.Phone,
		Website:        raw.Website,
		Rating:         raw.Rating,
		RatingCount:    raw.RatingCount,
		Latitude:       detail.Latitude,
		Longitude:      detail.Longitude,
		Images:         r.Images(),
		SourceURL:      r.SourceURL(),
		Glossary:       entriesOrEmpty(annotator.Dictionary()),
	}

	bullets := detail.SummaryBullets
	if len(bullets) == 0 {
		bullets = r.SummaryBullets
	}
	page.Bullets = annotateAll(annotator, bullets)

	for _, item := range ParseMenuItems(raw.Menus) {
		page.MenuItems = append(page.MenuItems, MenuItem{Name: annotator.Annotate(item.Name), Price: item.Price})
	}

	page.SEO = s.restaurantSEO(r, page, slugOrID)
	return page, nil
}

func (s *Service) restaurantSEO(r *domain.RestaurantFull, page *RestaurantPage, requested string) SEO {
	slug := page.Slug
	if slug == "" {
		slug = requested
	}
	canonical := s.site.BaseURL + "/restaurants/" + slug

	description := firstNonEmpty(r.SummaryShort, page.Summary.Text())
	if description == "" {
		description = fmt.Sprintf("Discover %s in Korea", r.Name)
	}

	image := r.DisplayImage()
	seo := newSEO(r.Name, description, canonical, s.site.Name, "website", image)

	ld := schemaRestaurant{
		Context:       "https://schema.org",
		Type:          "Restaurant",
		Name:          page.Name,
		Description:   description,
		URL:           canonical,
		ServesCuisine: page.Category,
		Telephone:     page.Phone,
	}
	if len(page.Images) > 0 {
		ld.Image = page.Images
	}
	if page.Address != "" {
		ld.Address = &schemaPostalAddress{Type: "PostalAddress", StreetAddress: page.Address, AddressCountry: "KR"}
	}
	if page.Latitude != nil && page.Longitude != nil {
		ld.Geo = &schemaGeo{Type: "GeoCoordinates", Latitude: *page.Latitude, Longitude: *page.Longitude}
	}
	if page.Rating != nil {
		rating := &schemaRating{Type: "AggregateRating", RatingValue: *page.Rating, BestRating: 5}
		if page.RatingCount != nil {
			rating.ReviewCount = *page.RatingCount
		}
		ld.AggregateRating = rating
	}
	seo.StructuredData = structuredData(ld)
	return seo
}

// Annotate segments free text against the given glossary sources, highest
// priority first.
func (s *Service) Annotate(text string, sources ...glossary.Source) (glossary.Document, error) {
	annotator, err := s.matchers.Annotator(glossary.Merge(sources...))
	if err != nil {
		return glossary.Document{}, err
	}
	return annotator.Annotate(text), nil
}

// MatcherStats reports matcher cache hits and misses.
func (s *Service) MatcherStats() (hits, misses int64) {
	return s.matchers.Stats()
}

// annotatorFor merges stored glossaries in priority order. A malformed glossary
// is logged and treated as empty.
func (s *Service) annotatorFor(raws ...domain.GlossaryJSON) (*glossary.Annotator, error) {
	sources := make([]glossary.Source, 0, len(raws))
	for _, raw := range raws {
		src, err := raw.Source()
		if err != nil {
			s.logger.Warn("Ignoring malformed glossary", zap.Error(err))
			continue
		}
		sources = append(sources, src)
	}

	annotator, err := s.matchers.Annotator(glossary.Merge(sources...))
	if err != nil {
		return nil, fmt.Errorf("failed to compile glossary: %w", err)
	}
	return annotator, nil
}

func annotateAll(annotator *glossary.Annotator, texts []string) []glossary.Document {
	docs := make([]glossary.Document, 0, len(texts))
	for _, text := range texts {
		docs = append(docs, annotator.Annotate(text))
	}
	return docs
}

func entriesOrEmpty(dict *glossary.Dictionary) []glossary.Pair {
	if entries := dict.Entries(); entries != nil {
		return entries
	}
	return []glossary.Pair{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// RawMenuItem is a menu entry decoded from the scraped menus column.
type RawMenuItem struct {
	Name  string
	Price string
}

// ParseMenuItems decodes [{"name": ..., "price": ...}] menus. Other shapes
// yield no items.
func ParseMenuItems(raw json.RawMessage) []RawMenuItem {
	if len(raw) == 0 {
		return nil
	}

	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	items := make([]RawMenuItem, 0, len(entries))
	for _, entry := range entries {
		name := scalarString(entry["name"])
		if strings.TrimSpace(name) == "" {
			continue
		}
		items = append(items, RawMenuItem{Name: name, Price: scalarString(entry["price"])})
	}
	return items
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return ""
	}
}
