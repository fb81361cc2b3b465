package domain

import (
	"time"

	"github.com/goccy/go-json"
)

// Restaurant is a localized restaurant row (popular_restaurants_localizations).
type Restaurant struct {
	ID                 int64        `json:"id"`
	RestaurantID       string       `json:"restaurant_id,omitempty"`
	URL                string       `json:"url,omitempty"`
	Lang               string       `json:"lang"`
	Name               string       `json:"name"`
	SummaryShort       string       `json:"summary_short,omitempty"`
	SummaryBullets     []string     `json:"summary_bullets,omitempty"`
	RegionName         string       `json:"region_name,omitempty"`
	RegionDetail       string       `json:"region_detail,omitempty"`
	RegionDetailName   string       `json:"region_detail_name,omitempty"`
	ShortDescription   string       `json:"short_description,omitempty"`
	Address            string       `json:"address,omitempty"`
	Menu               string       `json:"menu,omitempty"`
	Glossary           GlossaryJSON `json:"glossary,omitempty"`
	ImageURL           string       `json:"image_url,omitempty"`
	OriginalImageURL   string       `json:"original_image_url,omitempty"`
	OriginalURL        string       `json:"original_url,omitempty"`
	CategoryTranslated string       `json:"category_translated,omitempty"`
	Slug               string       `json:"slug"`
	CreatedAt          time.Time    `json:"created_at"`
}

func (r *Restaurant) DisplayImage() string {
	if r.OriginalImageURL != "" {
		return r.OriginalImageURL
	}
	return r.ImageURL
}

// SourceURL is the URL detail tables are keyed by.
func (r *Restaurant) SourceURL() string {
	if r.OriginalURL != "" {
		return r.OriginalURL
	}
	return r.URL
}

// RestaurantDetail is the translated detail (popular_restaurants_detail_translations).
type RestaurantDetail struct {
	ID                       int64        `json:"id"`
	Site                     string       `json:"site"`
	URL                      string       `json:"url"`
	Lang                     string       `json:"lang"`
	NameTranslated           string       `json:"name_translated,omitempty"`
	CategoryTranslated       string       `json:"category_translated,omitempty"`
	DescriptionTranslated    string       `json:"description_translated,omitempty"`
	AddressTranslated        string       `json:"address_translated,omitempty"`
	OperatingHoursTranslated string       `json:"operating_hours_translated,omitempty"`
	MenusTranslated          string       `json:"menus_translated,omitempty"`
	FacilitiesTranslated     string       `json:"facilities_translated,omitempty"`
	ContentTranslated        string       `json:"content_translated,omitempty"`
	MenuTranslated           string       `json:"menu_translated,omitempty"`
	TipsTranslated           string       `json:"tips_translated,omitempty"`
	SummaryShort             string       `json:"summary_short,omitempty"`
	SummaryBullets           []string     `json:"summary_bullets,omitempty"`
	Glossary                 GlossaryJSON `json:"glossary,omitempty"`
	Latitude                 *float64     `json:"geo_w,omitempty"`
	Longitude                *float64     `json:"geo_g,omitempty"`
}

// RestaurantDetailRaw is the scraped source detail (popular_restaurants_detail).
type RestaurantDetailRaw struct {
	ID             int64           `json:"id"`
	Site           string          `json:"site"`
	URL            string          `json:"url"`
	Name           string          `json:"name"`
	Category       string          `json:"category,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Website        string          `json:"website,omitempty"`
	OperatingHours string          `json:"operating_hours,omitempty"`
	Rating         *float64        `json:"rating,omitempty"`
	RatingCount    *int            `json:"rating_count,omitempty"`
	ImageURLs      []string        `json:"image_urls,omitempty"`
	Menus          json.RawMessage `json:"menus,omitempty"`
}

// RestaurantFull combines the header with translated and raw details.
type RestaurantFull struct {
	Restaurant
	Detail    *RestaurantDetail    `json:"detail,omitempty"`
	DetailRaw *RestaurantDetailRaw `json:"detail_raw,omitempty"`
}

// Images prefers the scraped gallery, falling back to the header image.
func (r *RestaurantFull) Images() []string {
	if r.DetailRaw != nil && len(r.DetailRaw.ImageURLs) > 0 {
		return r.DetailRaw.ImageURLs
	}
	if img := r.DisplayImage(); img != "" {
		return []string{img}
	}
	return []string{}
}

// RestaurantFilter narrows ListRestaurants.
type RestaurantFilter struct {
	Limit            int
	Region           string
	RegionDetail     string
	RegionDetailName string
}
