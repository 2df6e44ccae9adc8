package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// ProviderConfig holds the credentials and model of one provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string // OpenAI-compatible providers only
}

// Config selects and configures the LLM provider.
type Config struct {
	Provider string

	Anthropic  ProviderConfig
	OpenAI     ProviderConfig
	Gemini     ProviderConfig
	OpenRouter ProviderConfig

	Retry RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

// RetryConfig controls exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns the defaults: Anthropic Haiku, three attempts,
// a 60s budget per call.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  ProviderConfig{Model: "claude-haiku"},
		OpenAI:     ProviderConfig{Model: "gpt-4o-mini"},
		Gemini:     ProviderConfig{Model: "gemini-flash"},
		OpenRouter: ProviderConfig{Model: "google/gemini-2.0-flash-001", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 60 * time.Second,
	}
}

// providers returns the per-provider sections keyed by provider name.
func (c *Config) providers() map[string]*ProviderConfig {
	return map[string]*ProviderConfig{
		ProviderAnthropic:  &c.Anthropic,
		ProviderOpenAI:     &c.OpenAI,
		ProviderGemini:     &c.Gemini,
		ProviderOpenRouter: &c.OpenRouter,
	}
}

// ConfigFromEnv overlays TRACKWISE_LLM_PROVIDER and the
// TRACKWISE_<PROVIDER>_{API_KEY,MODEL,BASE_URL} variables on the
// defaults. When no provider is named, the first provider with a
// TRACKWISE_ or vendor API key (GEMINI_API_KEY, OPENAI_API_KEY,
// ANTHROPIC_API_KEY, OPENROUTER_API_KEY) is selected.
func ConfigFromEnv() Config {
	return configFromLookup(os.Getenv)
}

func configFromLookup(getenv func(string) string) Config {
	cfg := DefaultConfig()
	for name, pc := range cfg.providers() {
		prefix := "TRACKWISE_" + strings.ToUpper(name) + "_"
		if v := getenv(prefix + "API_KEY"); v != "" {
			pc.APIKey = v
		} else if v := getenv(strings.ToUpper(name) + "_API_KEY"); v != "" {
			pc.APIKey = v
		}
		if v := getenv(prefix + "MODEL"); v != "" {
			pc.Model = v
		}
		if v := getenv(prefix + "BASE_URL"); v != "" {
			pc.BaseURL = v
		}
	}
	if d, err := time.ParseDuration(getenv("TRACKWISE_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}

	if p := getenv("TRACKWISE_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
		return cfg
	}
	providers := cfg.providers()
	for _, name := range []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter} {
		if providers[name].APIKey != "" {
			cfg.Provider = name
			break
		}
	}
	return cfg
}

// Validate checks that the selected provider is known and has a key.
func (c Config) Validate() error {
	if c.Provider == ProviderMock {
		return nil
	}
	pc, ok := c.providers()[c.Provider]
	if !ok {
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if pc.APIKey == "" {
		return fmt.Errorf("TRACKWISE_%s_API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
	}
	return nil
}
