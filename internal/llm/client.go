package llm

import (
	"context"
	"fmt"
)

// Client is the external text-completion capability. Implementations send a
// single system+user exchange and return the raw text of the reply.
type Client interface {
	// Complete returns the generated text, ErrEmptyResponse when the service
	// replied without text, or the transport error exactly as the SDK raised it.
	Complete(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model used when a Request does not name one.
	ModelID() string
}

// Request describes one completion call.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int

	// JSON asks the service for a JSON object reply where the provider
	// supports it.
	JSON bool
}

// Response holds the text returned by the service.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// NewClient builds the Client selected by cfg. The credential check happens
// here, before any network access.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderMock:
		return NewDevClient(), nil
	default:
		return nil, &ConfigError{Provider: cfg.Provider, Msg: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}

func modelFor(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	return fallback
}
