package server

import (
	"context"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/util"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type staticPage struct {
	path       string
	changeFreq string
	priority   string
}

var staticPages = []staticPage{
	{"", "daily", "1.0"},
	{"/editorials", "daily", "0.9"},
	{"/restaurants", "daily", "0.9"},
	{"/videos", "hourly", "0.8"},
	{"/glossary", "weekly", "0.7"},
	{"/privacy", "monthly", "0.3"},
	{"/terms", "monthly", "0.3"},
}

// buildSitemap lists static pages, then editorials and restaurants. A failing
// content query leaves its section out instead of failing the sitemap.
func (s *Server) buildSitemap(ctx context.Context, now time.Time) *urlSet {
	base := s.site.BaseURL
	today := util.FormatKST(now, "2006-01-02")

	set := &urlSet{XMLNS: sitemapNS}
	for _, p := range staticPages {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + p.path, LastMod: today, ChangeFreq: p.changeFreq, Priority: p.priority})
	}

	var (
		editorials  []*domain.Editorial
		restaurants []*domain.Restaurant
	)
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		if editorials, err = s.deps.Content.Editorials(ctx, constants.ListingLimits.SitemapItems); err != nil {
			s.logger.Warn("Sitemap editorials unavailable", zap.Error(err))
			editorials = nil
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		restaurants, err = s.deps.Content.Restaurants(ctx, domain.RestaurantFilter{Limit: constants.ListingLimits.SitemapItems})
		if err != nil {
			s.logger.Warn("Sitemap restaurants unavailable", zap.Error(err))
			restaurants = nil
		}
		return nil
	})
	_ = p.Wait()

	for _, e := range editorials {
		modified := e.CreatedAt
		if e.UpdatedAt != nil {
			modified = *e.UpdatedAt
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/editorials/" + e.ID,
			LastMod:    modified.UTC().Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	for _, r := range restaurants {
		if r.Slug == "" {
			continue
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/restaurants/" + r.Slug,
			LastMod:    r.CreatedAt.UTC().Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	return set
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	set := s.buildSitemap(r.Context(), time.Now())

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		s.respondHTMLError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}
