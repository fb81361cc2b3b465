package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/glossary"
)

type fakeGenerator struct {
	response string
	prompt   string
	opts     *GenerateOptions
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, prompt string, _ ModelPreset, dest any, opts *GenerateOptions) (*GenerateMetadata, error) {
	f.prompt = prompt
	f.opts = opts
	return &GenerateMetadata{Provider: "fake"}, json.Unmarshal([]byte(f.response), dest)
}

func TestGlossaryGeneratorFiltersTerms(t *testing.T) {
	gen := &fakeGenerator{response: `{"glossary": [
		{"term": "Gochugaru", "explain": "Korean chili flakes."},
		{"term": "kimchi", "explain": "already known"},
		{"term": "bulgogi", "explain": "not in the text"},
		{"term": "gochugaru", "explain": "duplicate"},
		{"term": "jeotgal", "explain": ""}
	]}`}
	g := NewGlossaryGenerator(gen, "gemini-2.5-pro", zap.NewNop())

	existing := glossary.FromPairs([]glossary.Pair{{Term: "Kimchi", Explain: "fermented cabbage"}})
	out, meta, err := g.Generate(context.Background(), "Winter Kimchi", "We seasoned kimchi with gochugaru and jeotgal.", existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Provider != "fake" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if len(out) != 1 || out[0].Term != "Gochugaru" {
		t.Fatalf("unexpected terms: %v", out)
	}
	if !strings.Contains(gen.prompt, "do not repeat them: Kimchi") {
		t.Fatalf("expected existing terms in prompt")
	}
	if gen.opts == nil || gen.opts.Model != "gemini-2.5-pro" {
		t.Fatalf("expected model override, got %+v", gen.opts)
	}
}

func TestGlossaryGeneratorRefineKeepsTerms(t *testing.T) {
	gen := &fakeGenerator{response: `{"glossary": [
		{"term": "TTEOK", "explain": "Chewy rice cake."},
		{"term": "japchae", "explain": "  "},
		{"term": "invented", "explain": "should be ignored"}
	]}`}
	g := NewGlossaryGenerator(gen, "", zap.NewNop())

	terms := glossary.FromPairs([]glossary.Pair{
		{Term: "tteok", Explain: "rice cake thing"},
		{Term: "japchae", Explain: "glass noodles"},
	})
	out, _, err := g.Refine(context.Background(), "Market snacks", terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("unexpected terms: %v", out)
	}
	if out[0].Term != "tteok" || out[0].Explain != "Chewy rice cake." {
		t.Fatalf("first term = %+v", out[0])
	}
	if out[1].Explain != "glass noodles" {
		t.Fatalf("blank rewrite should keep original, got %+v", out[1])
	}
	if terms[0].Explain != "rice cake thing" {
		t.Fatalf("input was modified")
	}
	if !strings.Contains(gen.prompt, "- japchae: glass noodles") {
		t.Fatalf("expected terms in prompt")
	}
	if gen.opts != nil {
		t.Fatalf("expected no model override, got %+v", gen.opts)
	}
}

func TestGlossaryGeneratorRejectsEmptyContent(t *testing.T) {
	g := NewGlossaryGenerator(&fakeGenerator{}, "", zap.NewNop())
	if _, _, err := g.Generate(context.Background(), "t", "   ", nil); err == nil {
		t.Fatalf("expected error for empty content")
	}
}

func TestEncodeUsesListShape(t *testing.T) {
	raw, err := Encode(glossary.Source{{Term: "jang", Explain: "sauces"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `[{"term":"jang","explain":"sauces"}]` {
		t.Fatalf("unexpected encoding %s", raw)
	}

	src, err := raw.Source()
	if err != nil || len(src) != 1 || src[0].Explain != "sauces" {
		t.Fatalf("expected encoded glossary to parse back, got %v (%v)", src, err)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("김치찌개", 2); got != "김치" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateRunes("abc", 0); got != "abc" {
		t.Fatalf("expected no truncation for non-positive limit")
	}
}
