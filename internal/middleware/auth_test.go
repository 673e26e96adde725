package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/llm-relay/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func managerWith(t *testing.T, content string) *config.Manager {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mgr := config.NewManager(path)
	_, err := mgr.Load()
	require.NoError(t, err)

	return mgr
}

const authedConfig = `
[tokens]
alice = "sk-alice"
bob = "sk-bob"

[provider.p]
api_key = "k"
base_url = "https://example.com"

[[backend]]
model = "p:m"
`

const openConfig = `
[provider.p]
api_key = "k"
base_url = "https://example.com"

[[backend]]
model = "p:m"
`

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		path     string
		headers  map[string]string
		expected int
	}{
		{
			name:     "bearer token accepted",
			config:   authedConfig,
			path:     "/v1/chat/completions",
			headers:  map[string]string{"Authorization": "Bearer sk-bob"},
			expected: http.StatusOK,
		},
		{
			name:     "x-api-key accepted",
			config:   authedConfig,
			path:     "/v1/messages",
			headers:  map[string]string{"X-Api-Key": "sk-alice"},
			expected: http.StatusOK,
		},
		{
			name:     "unknown token rejected",
			config:   authedConfig,
			path:     "/v1/messages",
			headers:  map[string]string{"Authorization": "Bearer sk-mallory"},
			expected: http.StatusUnauthorized,
		},
		{
			name:     "missing token rejected",
			config:   authedConfig,
			path:     "/v1/messages",
			expected: http.StatusUnauthorized,
		},
		{
			name:     "empty token table disables auth",
			config:   openConfig,
			path:     "/v1/messages",
			expected: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(managerWith(t, tt.config), testLogger())(okHandler())

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			for name, value := range tt.headers {
				req.Header.Set(name, value)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestAuthMiddleware_DialectErrorBodies(t *testing.T) {
	handler := NewAuthMiddleware(managerWith(t, authedConfig), testLogger())(okHandler())

	// Anthropic dialect carries the top-level type field.
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `"type":"error"`)

	// OpenAI dialect nests everything under error.
	req = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotContains(t, rec.Body.String(), `"type":"error"`)
	assert.Contains(t, rec.Body.String(), `"authentication_error"`)
}

func TestCORSMiddleware(t *testing.T) {
	handler := NewCORSMiddleware()(okHandler())

	// Preflight is answered directly with 204.
	req := httptest.NewRequest(http.MethodOptions, "/v1/messages", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// Regular requests pass through with headers stamped.
	req = httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
