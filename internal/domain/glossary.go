package domain

import (
	"bytes"
	"database/sql/driver"
	"fmt"

	"github.com/kapu/koreanow-go/internal/glossary"
)

// GlossarySourceType names the table a glossary entry was aggregated from.
type GlossarySourceType string

const (
	GlossarySourceEditorial        GlossarySourceType = "editorial"
	GlossarySourceEditorialContent GlossarySourceType = "editorial_content"
	GlossarySourceRestaurant       GlossarySourceType = "restaurant"
	GlossarySourceRestaurantDetail GlossarySourceType = "restaurant_detail"
)

// GlossaryEntry is one row of the aggregated glossary page.
type GlossaryEntry struct {
	Term       string             `json:"term"`
	Definition string             `json:"definition"`
	SourceType GlossarySourceType `json:"source_type"`
	SourceURL  string             `json:"source_url"`
}

// GlossaryJSON is a raw jsonb glossary column. It holds either stored shape
// ({"term": "definition"} or [{"term": ..., "explain": ...}]) untouched until
// Source is called.
type GlossaryJSON []byte

// Scan implements sql.Scanner.
func (g *GlossaryJSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*g = nil
	case []byte:
		*g = append((*g)[:0], v...)
	case string:
		*g = GlossaryJSON(v)
	default:
		return fmt.Errorf("unsupported glossary column type %T", src)
	}
	return nil
}

// Value implements driver.Valuer. The text form keeps lib/pq from sending bytea.
func (g GlossaryJSON) Value() (driver.Value, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	return string(g), nil
}

func (g GlossaryJSON) MarshalJSON() ([]byte, error) {
	if g.IsEmpty() {
		return []byte("null"), nil
	}
	return []byte(g), nil
}

func (g *GlossaryJSON) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*g = nil
		return nil
	}
	*g = append((*g)[:0], data...)
	return nil
}

func (g GlossaryJSON) IsEmpty() bool {
	trimmed := bytes.TrimSpace(g)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Source normalizes the stored glossary into its ordered canonical form.
func (g GlossaryJSON) Source() (glossary.Source, error) {
	return glossary.ParseSource(g)
}
