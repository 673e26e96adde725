package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Davincible/llm-relay/internal/config"
)

func TestEndpoint_Standard(t *testing.T) {
	provider := config.Provider{BaseURL: "https://api.openai.com/v1"}

	assert.Equal(t,
		"https://api.openai.com/v1/chat/completions",
		Endpoint(provider, "gpt-4o", APIChatCompletions),
	)
	assert.Equal(t,
		"https://api.openai.com/v1/responses",
		Endpoint(provider, "gpt-5", APIResponses),
	)
}

func TestEndpoint_TrailingSlashTrimmed(t *testing.T) {
	provider := config.Provider{BaseURL: "https://api.openai.com/v1/"}

	assert.Equal(t,
		"https://api.openai.com/v1/chat/completions",
		Endpoint(provider, "gpt-4o", APIChatCompletions),
	)
}

func TestEndpoint_Azure(t *testing.T) {
	provider := config.Provider{
		BaseURL:    "https://example.openai.azure.com",
		APIVersion: "2024-02-01",
	}

	assert.Equal(t,
		"https://example.openai.azure.com/openai/deployments/gpt-4o-mini/chat/completions?api-version=2024-02-01",
		Endpoint(provider, "gpt-4o-mini", APIChatCompletions),
	)
}

func TestEndpoint_AzureEscaping(t *testing.T) {
	provider := config.Provider{
		BaseURL:    "https://example.openai.azure.com",
		APIVersion: "2024 02 01",
	}

	assert.Equal(t,
		"https://example.openai.azure.com/openai/deployments/hf:org%2Fname/chat/completions?api-version=2024+02+01",
		Endpoint(provider, "hf:org/name", APIChatCompletions),
	)
}

func TestAuthHeader(t *testing.T) {
	name, value := AuthHeader(config.Provider{APIKey: "sk-1"})
	assert.Equal(t, "Authorization", name)
	assert.Equal(t, "Bearer sk-1", value)

	name, value = AuthHeader(config.Provider{APIKey: "az-1", APIVersion: "2024-02-01"})
	assert.Equal(t, "api-key", name)
	assert.Equal(t, "az-1", value)
}

func TestAPIFor(t *testing.T) {
	assert.Equal(t, APIResponses, APIFor("gpt-5-mini"))
	assert.Equal(t, APIChatCompletions, APIFor("gpt-4o"))
}
