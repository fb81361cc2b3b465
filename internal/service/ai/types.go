package ai

// ModelPreset selects sampling settings for a generation task.
type ModelPreset string

const (
	PresetExtraction ModelPreset = "extraction" // 용어 추출
	PresetRefine     ModelPreset = "refine"     // 정의 다듬기
)

// ModelConfig holds Gemini sampling settings.
type ModelConfig struct {
	Temperature      float32
	TopP             float32
	TopK             int
	MaxOutputTokens  int
	ResponseMimeType string // "application/json" or "text/plain"
}

// OpenAIConfig holds OpenAI-specific sampling settings.
type OpenAIConfig struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// GenerateMetadata describes which provider answered.
type GenerateMetadata struct {
	Provider     string
	Model        string
	UsedFallback bool
}

// GenerateOptions holds per-call overrides.
type GenerateOptions struct {
	Model     string
	JSONMode  bool
	Overrides *ModelConfig
}

func GetPresetConfig(preset ModelPreset) ModelConfig {
	switch preset {
	case PresetRefine:
		return ModelConfig{
			Temperature:     0.3,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 2048,
		}
	default:
		return ModelConfig{
			Temperature:     0.1,
			TopP:            0.9,
			TopK:            20,
			MaxOutputTokens: 4096,
		}
	}
}

func GetOpenAIPresetConfig(preset ModelPreset) OpenAIConfig {
	switch preset {
	case PresetRefine:
		return OpenAIConfig{Temperature: 0.3, MaxTokens: 2048, TopP: 0.95}
	default:
		return OpenAIConfig{Temperature: 0.1, MaxTokens: 4096, TopP: 0.9}
	}
}
