package llm

import (
	"github.com/socialchef/tracechain/internal/config"
	apperrors "github.com/socialchef/tracechain/internal/errors"
)

// NewProvider creates the provider selected by cfg.Provider. A missing API
// key is a startup error: the chat loop cannot run without a model.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch ProviderType(cfg.Provider) {
	case ProviderGroq:
		if cfg.GroqKey == "" {
			return nil, missingKey("GROQ_API_KEY")
		}
		return NewGroqProvider(cfg.GroqKey, "", cfg.Model, cfg.Temperature), nil
	case ProviderAnthropic:
		if cfg.AnthropicKey == "" {
			return nil, missingKey("ANTHROPIC_API_KEY")
		}
		return NewAnthropicProvider(cfg.AnthropicKey, "", cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	case ProviderOpenAI, "":
		if cfg.OpenAIKey == "" {
			return nil, missingKey("OPENAI_API_KEY")
		}
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.Temperature), nil
	default:
		return nil, apperrors.NewStartupError("unknown LLM provider "+cfg.Provider, "UNKNOWN_PROVIDER", nil)
	}
}

func missingKey(name string) *apperrors.AppError {
	return apperrors.NewStartupError(name+" not set", "MISSING_API_KEY", nil)
}
