package prompt

import "strings"

// GlossaryPromptData feeds the glossary extraction prompt.
type GlossaryPromptData struct {
	Title    string
	Content  string
	MaxTerms int
	Existing []string
}

// GlossaryRefineData feeds the prompt that rewrites weak definitions.
type GlossaryRefineData struct {
	Title string
	Terms []GlossaryTerm
}

type GlossaryTerm struct {
	Term    string
	Explain string
}

// BuildGlossaryPrompt renders the extraction prompt with the default builder.
func BuildGlossaryPrompt(data GlossaryPromptData) (string, error) {
	if data.MaxTerms <= 0 {
		data.MaxTerms = 12
	}
	data.Content = strings.TrimSpace(data.Content)
	return DefaultPromptBuilder().Render(TemplateGlossaryExtraction, data)
}

// BuildGlossaryRefinePrompt renders the refinement prompt with the default builder.
func BuildGlossaryRefinePrompt(data GlossaryRefineData) (string, error) {
	return DefaultPromptBuilder().Render(TemplateGlossaryRefine, data)
}
