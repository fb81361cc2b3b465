package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"

	"github.com/kapu/koreanow-go/internal/glossary"
	"github.com/kapu/koreanow-go/internal/service/page"
)

func annotate(t *testing.T, text string, defs map[string]string) glossary.Document {
	t.Helper()
	doc, err := glossary.Annotate(text, glossary.FromMap(defs))
	if err != nil {
		t.Fatalf("failed to annotate: %v", err)
	}
	return doc
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	return doc
}

func TestFragmentRendersTooltipsAndBreaks(t *testing.T) {
	doc := annotate(t, "Eat kimchi\n<b>daily</b>", map[string]string{"kimchi": `fermented "napa" cabbage`})

	html, err := Fragment(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := string(html)
	if strings.Contains(out, "<b>") {
		t.Fatalf("plain text must be escaped: %s", out)
	}
	if strings.Count(out, "<br>") != 1 {
		t.Fatalf("expected one line break, got %s", out)
	}

	dom := parse(t, out)
	button := dom.Find("button.glossary-term")
	if button.Length() != 1 {
		t.Fatalf("expected one tooltip button, got %d", button.Length())
	}
	if label, _ := button.Attr("aria-label"); label != "Definition of kimchi" {
		t.Fatalf("unexpected aria-label %q", label)
	}
	if def, _ := button.Attr("data-definition"); def != `fermented "napa" cabbage` {
		t.Fatalf("unexpected definition %q", def)
	}
	if typ, _ := button.Attr("type"); typ != "button" {
		t.Fatalf("expected type=button, got %q", typ)
	}
}

func TestEditorialPage(t *testing.T) {
	defs := map[string]string{"kimchi": "fermented cabbage"}
	published := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	structured, _ := json.Marshal(map[string]string{"@type": "Article", "headline": "</script>"})

	p := &page.EditorialPage{
		ID:        "42",
		Title:     "A Winter of Kimchi",
		Summary:   annotate(t, "Kimchi season", defs),
		Bullets:   []glossary.Document{annotate(t, "Make kimchi", defs)},
		CreatedAt: published,
		SourceURL: "https://source.test/42",
		Paragraphs: []page.Paragraph{
			{Text: annotate(t, "First paragraph about kimchi.", defs), Images: []string{"https://img.test/a.jpg"}},
			{Text: annotate(t, "Second paragraph.", defs)},
		},
		Glossary: []glossary.Pair{{Term: "kimchi", Explain: "fermented cabbage"}},
		SEO: page.SEO{
			Title:          "A Winter of Kimchi",
			Description:    "Kimchi season",
			Canonical:      "https://example.test/editorials/42",
			SiteName:       "KoreaNow",
			Locale:         "en_US",
			OGType:         "article",
			Images:         []page.OGImage{{URL: "https://img.test/hero.jpg", Width: 1200, Height: 630}},
			TwitterCard:    "summary_large_image",
			PublishedTime:  &published,
			ModifiedTime:   &published,
			StructuredData: string(structured),
		},
	}

	var buf bytes.Buffer
	if err := Editorial(&buf, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dom := parse(t, buf.String())

	if got := dom.Find("title").Text(); got != "A Winter of Kimchi | KoreaNow" {
		t.Fatalf("unexpected title %q", got)
	}
	if href, _ := dom.Find(`link[rel="canonical"]`).Attr("href"); href != p.SEO.Canonical {
		t.Fatalf("unexpected canonical %q", href)
	}
	if v, _ := dom.Find(`meta[property="article:published_time"]`).Attr("content"); v != "2025-03-01T09:00:00Z" {
		t.Fatalf("unexpected published time %q", v)
	}
	if n := dom.Find("button.glossary-term").Length(); n != 3 {
		t.Fatalf("expected 3 annotated terms, got %d", n)
	}
	if n := dom.Find(".content figure img").Length(); n != 1 {
		t.Fatalf("expected one inline image, got %d", n)
	}
	if dom.Find("dl dt").Text() != "kimchi" {
		t.Fatalf("expected glossary section")
	}

	script := dom.Find(`script[type="application/ld+json"]`).Text()
	var ld map[string]string
	if err := json.Unmarshal([]byte(script), &ld); err != nil {
		t.Fatalf("invalid structured data %q: %v", script, err)
	}
	if ld["headline"] != "</script>" {
		t.Fatalf("unexpected headline %q", ld["headline"])
	}
}

func TestRestaurantPage(t *testing.T) {
	defs := map[string]string{"hansik": "Korean cuisine"}
	rating := 4.46
	count := 12

	p := &page.RestaurantPage{
		Name:        "Mingles",
		Category:    "Korean",
		Summary:     annotate(t, "Modern hansik", defs),
		Description: annotate(t, "A hansik tasting menu.", defs),
		MenuItems:   []page.MenuItem{{Name: annotate(t, "Hansik course", defs), Price: "250000"}},
		Phone:       "02-515-7306",
		Rating:      &rating,
		RatingCount: &count,
		Images:      []string{"g1.jpg"},
		SEO:         page.SEO{Title: "Mingles", SiteName: "KoreaNow", OGType: "website"},
	}

	var buf bytes.Buffer
	if err := Restaurant(&buf, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dom := parse(t, buf.String())

	if got := strings.TrimSpace(dom.Find(".rating").Text()); got != "4.5 (12 reviews)" {
		t.Fatalf("unexpected rating %q", got)
	}
	if dom.Find("section.description").Length() != 1 {
		t.Fatalf("expected description section")
	}
	if dom.Find("section.hours").Length() != 0 {
		t.Fatalf("expected empty sections to be omitted")
	}
	if got := dom.Find(".menu-items .price").Text(); got != "250000" {
		t.Fatalf("unexpected price %q", got)
	}
	if n := dom.Find("button.glossary-term").Length(); n != 3 {
		t.Fatalf("expected 3 annotated terms, got %d", n)
	}
	if dom.Find("section.glossary").Length() != 0 {
		t.Fatalf("expected no glossary section without entries")
	}
}
