// Package upstream issues requests to provider backends: endpoint and
// header construction, buffered completions, and SSE streaming with
// timeout and cancellation plumbing.
package upstream

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Davincible/llm-relay/internal/config"
	"github.com/Davincible/llm-relay/internal/translate"
)

// APIType selects the upstream wire API.
type APIType string

const (
	APIChatCompletions APIType = "chat.completions"
	APIResponses       APIType = "responses"
)

func (t APIType) path() string {
	if t == APIResponses {
		return "responses"
	}

	return "chat/completions"
}

// APIFor returns the wire API serving a model id.
func APIFor(modelID string) APIType {
	if translate.IsResponsesModel(modelID) {
		return APIResponses
	}

	return APIChatCompletions
}

// Endpoint builds the provider URL for a model and API type. Providers
// carrying an api_version use the Azure deployment layout; everything
// else appends the API path to base_url.
func Endpoint(provider config.Provider, modelID string, api APIType) string {
	base := strings.TrimRight(provider.BaseURL, "/")

	if provider.APIVersion == "" {
		return fmt.Sprintf("%s/%s", base, api.path())
	}

	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		base,
		url.PathEscape(modelID),
		api.path(),
		url.QueryEscape(provider.APIVersion),
	)
}

// AuthHeader returns the header name and value carrying the provider
// credential: Azure-style providers use api-key, everyone else a
// bearer token.
func AuthHeader(provider config.Provider) (string, string) {
	if provider.APIVersion != "" {
		return "api-key", provider.APIKey
	}

	return "Authorization", "Bearer " + provider.APIKey
}
