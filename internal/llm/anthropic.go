package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "github.com/socialchef/tracechain/internal/errors"
	"github.com/socialchef/tracechain/internal/httpclient"
)

const anthropicSystem = "Anthropic"

var ErrNoText = errors.New("response contained no text blocks")

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	settings  Settings
	maxTokens int64
}

// NewAnthropicProvider creates a provider for the Anthropic API. The SDK's
// built-in retries are disabled so failures reach the caller directly.
func NewAnthropicProvider(apiKey, baseURL, model string, temperature float64, maxTokens int64) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpclient.New(httpclient.DefaultTimeout)),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		settings: Settings{
			System:      anthropicSystem,
			Model:       model,
			Temperature: temperature,
		},
		maxTokens: maxTokens,
	}
}

func (p *AnthropicProvider) Settings() Settings {
	return p.settings
}

// Complete sends prompt as a single user message and joins the text blocks of the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.settings.Model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	params.Temperature = anthropic.Float(p.settings.Temperature)

	message, err := p.client.Messages.New(httpclient.WithProvider(ctx, anthropicSystem), params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			classified := apperrors.FromStatus(anthropicSystem, apiErr.StatusCode, apiErr.Error())
			classified.Err = apiErr
			return "", classified
		}
		return "", err
	}

	var text strings.Builder
	found := false
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			found = true
		}
	}
	if !found {
		return "", apperrors.NewMalformedResponseError(anthropicSystem, ErrNoText)
	}

	return text.String(), nil
}
