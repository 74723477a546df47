package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/socialchef/tracechain/internal/errors"
	"github.com/socialchef/tracechain/internal/httpclient"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	GroqBaseURL   = "https://api.groq.com/openai/v1"
)

var ErrNoChoices = errors.New("response contained no choices")

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIProvider talks to an OpenAI-compatible chat completions endpoint.
// Groq is served by the same type with a different base URL.
type OpenAIProvider struct {
	system   string
	apiKey   string
	baseURL  string
	settings Settings
	client   *http.Client
}

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(apiKey, baseURL, model string, temperature float64) *OpenAIProvider {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return newChatCompletionsProvider("OpenAI", apiKey, baseURL, model, temperature)
}

// NewGroqProvider creates a provider for Groq's OpenAI-compatible API.
func NewGroqProvider(apiKey, baseURL, model string, temperature float64) *OpenAIProvider {
	if baseURL == "" {
		baseURL = GroqBaseURL
	}
	return newChatCompletionsProvider("Groq", apiKey, baseURL, model, temperature)
}

func newChatCompletionsProvider(system, apiKey, baseURL, model string, temperature float64) *OpenAIProvider {
	return &OpenAIProvider{
		system:  system,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		settings: Settings{
			System:      system,
			Model:       model,
			Temperature: temperature,
		},
		client: httpclient.New(httpclient.DefaultTimeout),
	}
}

func (p *OpenAIProvider) Settings() Settings {
	return p.settings
}

// Complete sends prompt as a single user message and returns the reply verbatim.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:       p.settings.Model,
		Temperature: p.settings.Temperature,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, p.system), http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		return "", apperrors.FromStatus(p.system, resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", apperrors.NewMalformedResponseError(p.system, err)
	}

	if len(chatResp.Choices) == 0 {
		return "", apperrors.NewMalformedResponseError(p.system, ErrNoChoices)
	}

	return chatResp.Choices[0].Message.Content, nil
}
