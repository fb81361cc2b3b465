// Package prompt renders the model prompts used for glossary generation.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.txt
var templateFS embed.FS

type TemplateName string

const (
	TemplateGlossaryExtraction TemplateName = "glossary_extraction.txt"
	TemplateGlossaryRefine     TemplateName = "glossary_refine.txt"
)

var funcMap = template.FuncMap{
	"join": strings.Join,
	// oneline keeps a value from breaking the prompt's list layout.
	"oneline": func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	},
}

// PromptBuilder parses every embedded template on first use and renders them
// by file name.
type PromptBuilder struct {
	once    sync.Once
	set     *template.Template
	loadErr error
}

var defaultBuilder = &PromptBuilder{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

func DefaultPromptBuilder() *PromptBuilder {
	return defaultBuilder
}

func (pb *PromptBuilder) load() (*template.Template, error) {
	pb.once.Do(func() {
		pb.set, pb.loadErr = template.New("prompts").Funcs(funcMap).ParseFS(templateFS, "templates/*.txt")
		if pb.loadErr != nil {
			pb.loadErr = fmt.Errorf("parse prompt templates: %w", pb.loadErr)
		}
	})
	return pb.set, pb.loadErr
}

// Render executes the named template. Output is trimmed of surrounding blank lines.
func (pb *PromptBuilder) Render(name TemplateName, data any) (string, error) {
	set, err := pb.load()
	if err != nil {
		return "", err
	}
	if set.Lookup(string(name)) == nil {
		return "", fmt.Errorf("unknown prompt template %s", name)
	}

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, string(name), data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
