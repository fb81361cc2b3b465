package page

import (
	"time"

	"github.com/goccy/go-json"
)

const (
	ogImageWidth  = 1200
	ogImageHeight = 630
	ogLocale      = "en_US"
	twitterCard   = "summary_large_image"
)

// OGImage is an OpenGraph image reference.
type OGImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Alt    string `json:"alt"`
}

// SEO carries the head metadata of a rendered page.
type SEO struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Canonical      string     `json:"canonical"`
	SiteName       string     `json:"site_name"`
	Locale         string     `json:"locale"`
	OGType         string     `json:"og_type"`
	Images         []OGImage  `json:"images"`
	TwitterCard    string     `json:"twitter_card"`
	PublishedTime  *time.Time `json:"published_time,omitempty"`
	ModifiedTime   *time.Time `json:"modified_time,omitempty"`
	StructuredData string     `json:"structured_data,omitempty"`
}

func newSEO(title, description, canonical, siteName, ogType, image string) SEO {
	seo := SEO{
		Title:       title,
		Description: description,
		Canonical:   canonical,
		SiteName:    siteName,
		Locale:      ogLocale,
		OGType:      ogType,
		Images:      []OGImage{},
		TwitterCard: twitterCard,
	}
	if image != "" {
		seo.Images = append(seo.Images, OGImage{URL: image, Width: ogImageWidth, Height: ogImageHeight, Alt: title})
	}
	return seo
}

// structuredData encodes a schema.org object. HTML-sensitive characters are
// escaped so the result can sit inside a script element.
func structuredData(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

type schemaOrganization struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type schemaWebPage struct {
	Type string `json:"@type"`
	ID   string `json:"@id"`
}

type schemaArticle struct {
	Context          string             `json:"@context"`
	Type             string             `json:"@type"`
	Headline         string             `json:"headline"`
	Description      string             `json:"description"`
	Image            []string           `json:"image,omitempty"`
	DatePublished    *time.Time         `json:"datePublished,omitempty"`
	DateModified     *time.Time         `json:"dateModified,omitempty"`
	Author           schemaOrganization `json:"author"`
	Publisher        schemaOrganization `json:"publisher"`
	URL              string             `json:"url"`
	MainEntityOfPage schemaWebPage      `json:"mainEntityOfPage"`
	ArticleBody      string             `json:"articleBody,omitempty"`
	Keywords         string             `json:"keywords"`
}

type schemaPostalAddress struct {
	Type           string `json:"@type"`
	StreetAddress  string `json:"streetAddress"`
	AddressCountry string `json:"addressCountry"`
}

type schemaGeo struct {
	Type      string  `json:"@type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type schemaRating struct {
	Type        string  `json:"@type"`
	RatingValue float64 `json:"ratingValue"`
	ReviewCount int     `json:"reviewCount,omitempty"`
	BestRating  int     `json:"bestRating"`
}

type schemaRestaurant struct {
	Context         string               `json:"@context"`
	Type            string               `json:"@type"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	Image           []string             `json:"image,omitempty"`
	URL             string               `json:"url"`
	Address         *schemaPostalAddress `json:"address,omitempty"`
	Geo             *schemaGeo           `json:"geo,omitempty"`
	ServesCuisine   string               `json:"servesCuisine,omitempty"`
	Telephone       string               `json:"telephone,omitempty"`
	AggregateRating *schemaRating        `json:"aggregateRating,omitempty"`
}
