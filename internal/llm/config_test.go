package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai with key", Config{Provider: ProviderOpenAI, APIKey: "k"}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"unknown provider", Config{Provider: "bard", APIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.Error(t, err)
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestNewClient_MissingCredentialFailsBeforeNetwork(t *testing.T) {
	c, err := NewClient(context.Background(), Config{Provider: ProviderOpenAI})
	assert.Nil(t, c)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ProviderOpenAI, cfgErr.Provider)
	assert.False(t, IsRetryable(err))
}

func TestNewClient_DefaultModels(t *testing.T) {
	c, err := NewClient(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.ModelID())

	c, err = NewClient(context.Background(), Config{Provider: ProviderAnthropic, APIKey: "k", Model: "claude-sonnet-4-5"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", c.ModelID())

	c, err = NewClient(context.Background(), Config{Provider: ProviderMock})
	require.NoError(t, err)
	assert.Equal(t, "mock", c.ModelID())
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	require.NotNil(t, c)
	assert.InDelta(t, 0.75, c.Cost(1_000_000, 1_000_000), 1e-9)
	assert.Nil(t, LookupCost("unknown-model"))
}
