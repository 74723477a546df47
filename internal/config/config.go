package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	apperrors "github.com/socialchef/tracechain/internal/errors"
)

const (
	DefaultAppName     = "tracechain"
	DefaultProvider    = "openai"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 1024
	DefaultBaseURL     = "http://localhost:3000"
	DefaultLanguage    = "English"
	DefaultRunName     = "chain2-two-step"

	DefaultCityTemplate   = "Which city is {person} from?"
	DefaultAnswerTemplate = "Which country is the city {city} in? Answer concisely in {language}."
)

var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"groq":      "llama-3.3-70b-versatile",
	"anthropic": "claude-3-5-haiku-latest",
}

type Config struct {
	Env     string
	AppName string

	LLM      LLMConfig
	Langfuse LangfuseConfig
	Pipeline PipelineConfig
}

type LLMConfig struct {
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	GroqKey       string
	AnthropicKey  string
	Model         string
	Temperature   float64
	MaxTokens     int64
}

type LangfuseConfig struct {
	PublicKey string
	SecretKey string
	BaseURL   string
}

type PipelineConfig struct {
	Language       string `yaml:"language"`
	RunName        string `yaml:"run_name"`
	CityTemplate   string `yaml:"city_template"`
	AnswerTemplate string `yaml:"answer_template"`
}

// Load reads the environment and the optional YAML file at path.
// Missing Langfuse keys are valid; malformed numbers are not.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Env:     os.Getenv("ENV"),
		AppName: os.Getenv("APP_NAME"),
		LLM: LLMConfig{
			Provider:      os.Getenv("LLM_PROVIDER"),
			OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
			GroqKey:       os.Getenv("GROQ_API_KEY"),
			AnthropicKey:  os.Getenv("ANTHROPIC_API_KEY"),
			Model:         firstNonEmpty(os.Getenv("LLM_MODEL"), os.Getenv("OPENAI_MODEL")),
		},
		Langfuse: LangfuseConfig{
			PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
			SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
			BaseURL:   firstNonEmpty(os.Getenv("LANGFUSE_BASE_URL"), os.Getenv("LANGFUSE_HOST")),
		},
		Pipeline: PipelineConfig{
			Language: os.Getenv("PIPELINE_LANGUAGE"),
			RunName:  os.Getenv("RUN_NAME"),
		},
	}

	tempKey, tempRaw := firstEnv("LLM_TEMPERATURE", "OPENAI_TEMPERATURE")
	temperature, err := parseFloat(tempKey, tempRaw, DefaultTemperature)
	if err != nil {
		return nil, err
	}
	cfg.LLM.Temperature = temperature

	maxTokens, err := parseInt("ANTHROPIC_MAX_TOKENS", os.Getenv("ANTHROPIC_MAX_TOKENS"), DefaultMaxTokens)
	if err != nil {
		return nil, err
	}
	cfg.LLM.MaxTokens = maxTokens

	// Load from YAML file if available
	if err := cfg.LoadFromYAML(path); err != nil {
		return nil, apperrors.NewConfigurationError("failed to load YAML config", "CONFIG_YAML_INVALID", err)
	}

	cfg.SetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromYAML overlays the pipeline section of the file at path.
// A missing file is not an error.
func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Pipeline PipelineConfig `yaml:"pipeline"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlConfig.Pipeline.Language != "" {
		c.Pipeline.Language = yamlConfig.Pipeline.Language
	}
	if yamlConfig.Pipeline.RunName != "" {
		c.Pipeline.RunName = yamlConfig.Pipeline.RunName
	}
	if yamlConfig.Pipeline.CityTemplate != "" {
		c.Pipeline.CityTemplate = yamlConfig.Pipeline.CityTemplate
	}
	if yamlConfig.Pipeline.AnswerTemplate != "" {
		c.Pipeline.AnswerTemplate = yamlConfig.Pipeline.AnswerTemplate
	}

	return nil
}

func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultProvider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}
	if c.Langfuse.BaseURL == "" {
		c.Langfuse.BaseURL = DefaultBaseURL
	}
	if c.Pipeline.Language == "" {
		c.Pipeline.Language = DefaultLanguage
	}
	if c.Pipeline.RunName == "" {
		c.Pipeline.RunName = DefaultRunName
	}
	if c.Pipeline.CityTemplate == "" {
		c.Pipeline.CityTemplate = DefaultCityTemplate
	}
	if c.Pipeline.AnswerTemplate == "" {
		c.Pipeline.AnswerTemplate = DefaultAnswerTemplate
	}
}

func (c *Config) validate() error {
	if _, ok := defaultModels[c.LLM.Provider]; !ok {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLM.Provider), "CONFIG_UNKNOWN_PROVIDER", nil)
	}
	return nil
}

func parseFloat(name, raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewConfigurationError(name+" must be a number", "CONFIG_INVALID_NUMBER", err)
	}
	return v, nil
}

func parseInt(name, raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewConfigurationError(name+" must be an integer", "CONFIG_INVALID_NUMBER", err)
	}
	return v, nil
}

// firstEnv returns the first of keys that is set, with its value.
func firstEnv(keys ...string) (string, string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return key, v
		}
	}
	return keys[0], ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
