package llm

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-haiku-4-5-20251001",
	ProviderGemini:    "gemini-2.0-flash",
	ProviderMock:      "mock",
}

// Config holds completion service configuration.
type Config struct {
	// Provider selects the backing service: "openai", "anthropic", "gemini" or "mock".
	Provider string

	APIKey  string
	BaseURL string // Optional. OpenAI-compatible endpoints and tests.
	Model   string
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// Validate checks that the selected provider is known and has a credential.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		if c.APIKey == "" {
			return &ConfigError{Provider: c.Provider, Msg: "API key is not configured"}
		}
	case ProviderMock:
		// No credential needed.
	default:
		return &ConfigError{Provider: c.Provider, Msg: "unknown provider"}
	}
	return nil
}

func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel(c.Provider)
}
