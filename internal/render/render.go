// Package render turns assembled pages into server-side HTML.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"github.com/kapu/koreanow-go/internal/glossary"
	"github.com/kapu/koreanow-go/internal/service/page"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	pageTemplates *template.Template
	templatesOnce sync.Once
	templatesErr  error
)

func loadTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		funcMap := template.FuncMap{
			// Structured data is produced by the JSON encoder with HTML escaping on.
			"jsonld": func(s string) template.JS { return template.JS(s) },
			"iso": func(t *time.Time) string {
				if t == nil {
					return ""
				}
				return t.UTC().Format(time.RFC3339)
			},
			"date": func(t time.Time) string { return t.Format("January 2, 2006") },
			"empty": func(doc glossary.Document) bool {
				return len(doc.Lines) == 0 || doc.Text() == ""
			},
			"float": func(f *float64) float64 {
				if f == nil {
					return 0
				}
				return *f
			},
			"dict": dict,
		}
		pageTemplates, templatesErr = template.New("pages").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	})
	return pageTemplates, templatesErr
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict requires key/value pairs")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func execute(w io.Writer, name string, data any) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	// Buffer so a failing template never leaves a half-written response.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// Editorial writes the full editorial document.
func Editorial(w io.Writer, p *page.EditorialPage) error {
	return execute(w, "editorial", p)
}

// Restaurant writes the full restaurant document.
func Restaurant(w io.Writer, p *page.RestaurantPage) error {
	return execute(w, "restaurant", p)
}

// Fragment renders an annotated document as inline HTML with tooltip buttons.
func Fragment(doc glossary.Document) (template.HTML, error) {
	var buf bytes.Buffer
	if err := execute(&buf, "document", doc); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
