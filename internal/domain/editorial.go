package domain

import "time"

// Editorial is a translated editorial header (food_editorial_posts_translations).
type Editorial struct {
	ID                string       `json:"id"`
	Site              string       `json:"site"`
	URL               string       `json:"url"`
	Lang              string       `json:"lang"`
	TitleTranslated   string       `json:"title_translated"`
	SummaryTranslated string       `json:"summary_translated,omitempty"`
	SummaryShort      string       `json:"summary_short,omitempty"`
	SummaryBullets    []string     `json:"summary_bullets,omitempty"`
	Glossary          GlossaryJSON `json:"glossary,omitempty"`
	ImageURL          string       `json:"image_url,omitempty"`
	OriginalImageURL  string       `json:"original_image_url,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         *time.Time   `json:"updated_at,omitempty"`
}

// DisplayImage prefers the source site's image over the re-hosted one.
func (e *Editorial) DisplayImage() string {
	if e.OriginalImageURL != "" {
		return e.OriginalImageURL
	}
	return e.ImageURL
}

// Description is the short summary, falling back to the full summary.
func (e *Editorial) Description() string {
	if e.SummaryShort != "" {
		return e.SummaryShort
	}
	return e.SummaryTranslated
}

// EditorialContent is the translated body (food_editorial_post_content_translations).
type EditorialContent struct {
	ID                string       `json:"id"`
	Site              string       `json:"site"`
	URL               string       `json:"url"`
	Lang              string       `json:"lang"`
	ContentTranslated string       `json:"content_translated"`
	ContentSummary    string       `json:"content_summary,omitempty"`
	ContentBullets    []string     `json:"content_bullets,omitempty"`
	Glossary          GlossaryJSON `json:"glossary,omitempty"`
	Images            []string     `json:"images,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// EditorialFull combines the header with its body.
type EditorialFull struct {
	Editorial
	Content *EditorialContent `json:"content,omitempty"`
}
