package ai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/util"
	"github.com/kapu/koreanow-go/pkg/errors"
)

var (
	statusCodePattern = regexp.MustCompile(`\b(5\d{2})\b`)
	geminiCodePattern = regexp.MustCompile(`"code":\s*(\d{3})`)
	openaiCodePattern = regexp.MustCompile(`^(\d{3})\s`)
)

// ModelManager routes JSON generation to the primary provider and falls back
// to the secondary one, behind a shared circuit breaker.
type ModelManager struct {
	primary        JSONProvider
	fallback       JSONProvider
	logger         *zap.Logger
	circuitBreaker *util.CircuitBreaker
}

type ModelManagerConfig struct {
	GeminiAPIKey       string
	OpenAIAPIKey       string
	DefaultGeminiModel string
	DefaultOpenAIModel string
	EnableFallback     bool
	// PreferOpenAI swaps the provider order.
	PreferOpenAI bool
}

func NewModelManager(ctx context.Context, cfg ModelManagerConfig, logger *zap.Logger) (*ModelManager, error) {
	defaultGemini := cfg.DefaultGeminiModel
	if defaultGemini == "" {
		defaultGemini = "gemini-2.5-flash"
	}
	defaultOpenAI := cfg.DefaultOpenAIModel
	if defaultOpenAI == "" {
		defaultOpenAI = "gpt-5-mini"
	}

	var gemini JSONProvider
	if cfg.GeminiAPIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		gemini = NewGeminiProvider(client, defaultGemini, logger)
	}

	var openaiProvider JSONProvider
	if p := NewOpenAIProvider(cfg.OpenAIAPIKey, defaultOpenAI, logger); p != nil {
		openaiProvider = p
	}

	primary, secondary := gemini, openaiProvider
	if cfg.PreferOpenAI || primary == nil {
		primary, secondary = openaiProvider, gemini
	}
	if primary == nil {
		return nil, fmt.Errorf("no AI provider configured: set GEMINI_API_KEY or OPENAI_API_KEY")
	}
	if !cfg.EnableFallback {
		secondary = nil
	}

	mm := NewModelManagerWithProviders(primary, secondary, logger)
	logger.Info("Model manager initialized",
		zap.String("primary", primary.Name()),
		zap.Bool("fallback", secondary != nil),
	)
	return mm, nil
}

// NewModelManagerWithProviders wires explicit providers. fallback may be nil.
func NewModelManagerWithProviders(primary, fallback JSONProvider, logger *zap.Logger) *ModelManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelManager{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		circuitBreaker: util.NewCircuitBreaker(
			"ai",
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger,
		),
	}
}

// GenerateJSON asks for a JSON answer and decodes it into dest.
func (mm *ModelManager) GenerateJSON(ctx context.Context, prompt string, preset ModelPreset, dest any, opts *GenerateOptions) (*GenerateMetadata, error) {
	if !mm.circuitBreaker.CanExecute() {
		status := mm.circuitBreaker.Status()
		mm.logger.Error("AI service unavailable (Circuit OPEN)",
			zap.String("state", status.State.String()),
			zap.Int("failure_count", status.FailureCount),
		)
		return nil, errors.NewServiceError("AI service temporarily unavailable", "ai", "generate_json", nil)
	}

	var options GenerateOptions
	if opts != nil {
		options = *opts
	}
	options.JSONMode = true

	result, primaryErr := mm.primary.Generate(ctx, prompt, preset, &options)
	if primaryErr == nil {
		mm.circuitBreaker.RecordSuccess()
		return mm.decodeJSON(result.Text, &GenerateMetadata{Provider: mm.primary.Name(), Model: result.Model}, dest)
	}

	if mm.fallback != nil {
		// Model overrides name a primary model and do not carry over.
		fallbackOpts := options
		fallbackOpts.Model = ""

		mm.logger.Warn("Primary provider failed, trying fallback",
			zap.String("primary", mm.primary.Name()),
			zap.Error(primaryErr),
		)
		result, fallbackErr := mm.fallback.Generate(ctx, prompt, preset, &fallbackOpts)
		if fallbackErr == nil {
			mm.circuitBreaker.RecordSuccess()
			return mm.decodeJSON(result.Text, &GenerateMetadata{
				Provider:     mm.fallback.Name(),
				Model:        result.Model,
				UsedFallback: true,
			}, dest)
		}

		mm.recordFailure(primaryErr)
		mm.recordFailure(fallbackErr)
		return nil, errors.NewServiceError("all AI providers failed", "ai", "generate_json", fallbackErr)
	}

	mm.recordFailure(primaryErr)
	return nil, errors.NewServiceError("AI generation failed", "ai", "generate_json", primaryErr)
}

func (mm *ModelManager) decodeJSON(text string, metadata *GenerateMetadata, dest any) (*GenerateMetadata, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%s API returned empty response", metadata.Provider)
	}

	if err := json.Unmarshal([]byte(cleaned), dest); err != nil {
		mm.logger.Error("Failed to unmarshal JSON response",
			zap.String("provider", metadata.Provider),
			zap.Error(err),
			zap.String("response_preview", util.TruncateString(cleaned, 200)),
		)
		return nil, fmt.Errorf("invalid JSON from %s: %w", metadata.Provider, err)
	}
	return metadata, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```json"))
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```"))
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "```"))
	}
	return cleaned
}

func (mm *ModelManager) recordFailure(err error) {
	if !isServiceFailure(err) {
		return
	}

	timeout := constants.CircuitBreakerConfig.ResetTimeout
	if isRateLimitError(err) {
		timeout = constants.CircuitBreakerConfig.RateLimitTimeout
	}
	mm.circuitBreaker.RecordFailure(timeout)
}

// isServiceFailure reports upstream outages: timeouts, rate limits and 5xx.
// Bad requests do not count against the breaker.
func isServiceFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return true
	}
	if isRateLimitError(err) {
		return true
	}
	if code, ok := providerStatusCode(msg); ok {
		return code >= 500 && code < 600
	}
	return statusCodePattern.MatchString(msg)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if strings.Contains(msg, "429") || strings.Contains(msg, "Rate limit") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return true
	}
	code, ok := providerStatusCode(msg)
	return ok && code == 429
}

func providerStatusCode(msg string) (int, bool) {
	for _, pattern := range []*regexp.Regexp{geminiCodePattern, openaiCodePattern} {
		if m := pattern.FindStringSubmatch(msg); len(m) > 1 {
			if code, err := strconv.Atoi(m[1]); err == nil {
				return code, true
			}
		}
	}
	return 0, false
}

func (mm *ModelManager) CircuitStatus() util.CircuitBreakerStatus {
	return mm.circuitBreaker.Status()
}

func (mm *ModelManager) ResetCircuit() {
	mm.circuitBreaker.Reset()
}
