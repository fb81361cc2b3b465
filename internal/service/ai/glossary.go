package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/glossary"
	"github.com/kapu/koreanow-go/internal/prompt"
)

// JSONGenerator is the part of ModelManager the generator needs.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, preset ModelPreset, dest any, opts *GenerateOptions) (*GenerateMetadata, error)
}

// GlossaryGenerator extracts glossary terms from translated article bodies.
type GlossaryGenerator struct {
	models   JSONGenerator
	model    string
	maxTerms int
	logger   *zap.Logger
}

func NewGlossaryGenerator(models JSONGenerator, model string, logger *zap.Logger) *GlossaryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GlossaryGenerator{models: models, model: model, maxTerms: 12, logger: logger}
}

type glossaryResponse struct {
	Glossary []struct {
		Term    string `json:"term"`
		Explain string `json:"explain"`
	} `json:"glossary"`
}

// Generate asks the model for terms found in content. Terms the model
// invents, terms already in existing, and duplicates are dropped.
func (g *GlossaryGenerator) Generate(ctx context.Context, title, content string, existing glossary.Source) (glossary.Source, *GenerateMetadata, error) {
	body := truncateRunes(strings.TrimSpace(content), constants.AIConfig.MaxContentRunes)
	if body == "" {
		return nil, nil, fmt.Errorf("content is empty")
	}

	known := make([]string, 0, len(existing))
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known = append(known, p.Term)
		seen[glossary.Key(p.Term)] = struct{}{}
	}

	text, err := prompt.BuildGlossaryPrompt(prompt.GlossaryPromptData{
		Title:    title,
		Content:  body,
		MaxTerms: g.maxTerms,
		Existing: known,
	})
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.AIConfig.RequestTimeout)
	defer cancel()

	var resp glossaryResponse
	var opts *GenerateOptions
	if g.model != "" {
		opts = &GenerateOptions{Model: g.model}
	}
	meta, err := g.models.GenerateJSON(ctx, text, PresetExtraction, &resp, opts)
	if err != nil {
		return nil, nil, err
	}

	lowered := strings.ToLower(body)
	out := make(glossary.Source, 0, len(resp.Glossary))
	for _, item := range resp.Glossary {
		term := strings.TrimSpace(item.Term)
		explain := strings.TrimSpace(item.Explain)
		key := glossary.Key(term)
		if term == "" || explain == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if !strings.Contains(lowered, key) {
			g.logger.Debug("Dropping term not present in content", zap.String("term", term))
			continue
		}
		seen[key] = struct{}{}
		out = append(out, glossary.Pair{Term: term, Explain: explain})
	}
	return out, meta, nil
}

// Refine rewrites the explanations of terms. Terms keep their order and
// spelling; anything the model adds or leaves blank keeps its original text.
func (g *GlossaryGenerator) Refine(ctx context.Context, title string, terms glossary.Source) (glossary.Source, *GenerateMetadata, error) {
	if len(terms) == 0 {
		return terms, nil, nil
	}

	data := prompt.GlossaryRefineData{Title: title, Terms: make([]prompt.GlossaryTerm, 0, len(terms))}
	for _, p := range terms {
		data.Terms = append(data.Terms, prompt.GlossaryTerm{Term: p.Term, Explain: p.Explain})
	}
	text, err := prompt.BuildGlossaryRefinePrompt(data)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.AIConfig.RequestTimeout)
	defer cancel()

	var resp glossaryResponse
	var opts *GenerateOptions
	if g.model != "" {
		opts = &GenerateOptions{Model: g.model}
	}
	meta, err := g.models.GenerateJSON(ctx, text, PresetRefine, &resp, opts)
	if err != nil {
		return nil, nil, err
	}

	rewritten := make(map[string]string, len(resp.Glossary))
	for _, item := range resp.Glossary {
		if explain := strings.TrimSpace(item.Explain); explain != "" {
			rewritten[glossary.Key(item.Term)] = explain
		}
	}

	out := make(glossary.Source, len(terms))
	for i, p := range terms {
		out[i] = p
		if explain, ok := rewritten[glossary.Key(p.Term)]; ok {
			out[i].Explain = explain
		}
	}
	return out, meta, nil
}

// Encode stores a glossary in the list shape.
func Encode(src glossary.Source) (domain.GlossaryJSON, error) {
	type item struct {
		Term    string `json:"term"`
		Explain string `json:"explain"`
	}
	items := make([]item, 0, len(src))
	for _, p := range src {
		items = append(items, item{Term: p.Term, Explain: p.Explain})
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return domain.GlossaryJSON(data), nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
