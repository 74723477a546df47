package llm

import "context"

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderGroq      ProviderType = "groq"
	ProviderAnthropic ProviderType = "anthropic"
)

// Settings describe how a provider calls its model.
type Settings struct {
	System      string
	Model       string
	Temperature float64
}

// Provider sends a single prompt to a chat model and returns the reply text.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Settings() Settings
}
