package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
host = "0.0.0.0"
port = 9100
log_level = "debug"
request_timeout = 120
max_tokens_limit = 8192
min_tokens_limit = "ignore"

[tokens]
alice = "sk-alice-token"

[provider.openai]
api_key = "sk-test"
base_url = "https://api.openai.com/v1"

[provider.azure]
api_key = "az-test"
base_url = "https://example.openai.azure.com"
api_version = "2024-02-01"

[provider.synthetic]
api_key = "syn-test"
base_url = "https://api.synthetic.example/v1"

[[backend]]
model = "openai:gpt-4o"
context = 128000
vision = true

[[backend]]
model = "azure:gpt-4o-mini"
context = 131000
key_delete = ["max_tokens"]
key_add = { stream = false }
key_rename = { stop_sequences = "stop" }

[[backend]]
model = "synthetic:hf:zai-org/GLM-4.6"
context = 198000
max_per_day = 100
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 120, cfg.RequestTimeout)
	assert.Equal(t, int64(8192), cfg.MaxTokensLimit)
	assert.Equal(t, "ignore", cfg.MinTokensLimit)

	require.Len(t, cfg.Backends, 3)
	assert.Equal(t, "openai:gpt-4o", cfg.Primary().Model)
	assert.Len(t, cfg.FailoverList(), 2)

	second := cfg.Backends[1]
	assert.Equal(t, []string{"max_tokens"}, second.KeyDelete)
	assert.Equal(t, map[string]any{"stream": false}, second.KeyAdd)
	assert.Equal(t, map[string]string{"stop_sequences": "stop"}, second.KeyRename)

	azure := cfg.Providers["azure"]
	assert.Equal(t, "2024-02-01", azure.APIVersion)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[provider.p]
api_key = "k"
base_url = "https://example.com/v1"

[[backend]]
model = "p:m"
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultContextTokens, cfg.Backends[0].ContextLimit())
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("RELAY_TEST_KEY", "sk-from-env")

	cfg, err := Parse([]byte(`
[provider.p]
api_key = "${RELAY_TEST_KEY}"
base_url = "https://example.com/v1"

[[backend]]
model = "p:m"
`))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Providers["p"].APIKey)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "no backends",
			config:  "[provider.p]\napi_key = \"k\"\nbase_url = \"https://x\"\n",
			wantErr: "at least one",
		},
		{
			name:    "model without colon",
			config:  "[provider.p]\napi_key = \"k\"\nbase_url = \"https://x\"\n[[backend]]\nmodel = \"plainmodel\"\n",
			wantErr: "provider:model-id",
		},
		{
			name:    "unknown provider",
			config:  "[provider.p]\napi_key = \"k\"\nbase_url = \"https://x\"\n[[backend]]\nmodel = \"other:m\"\n",
			wantErr: "unknown provider",
		},
		{
			name:    "provider without base_url",
			config:  "[provider.p]\napi_key = \"k\"\n[[backend]]\nmodel = \"p:m\"\n",
			wantErr: "no base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBackend_ProviderModelSplit(t *testing.T) {
	tests := []struct {
		model    string
		provider string
		modelID  string
	}{
		{"openai:gpt-4o", "openai", "gpt-4o"},
		{"synthetic:hf:zai-org/GLM-4.6", "synthetic", "hf:zai-org/GLM-4.6"},
		{"a:b:c:d", "a", "b:c:d"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			b := Backend{Model: tt.model}
			assert.Equal(t, tt.provider, b.Provider())
			assert.Equal(t, tt.modelID, b.ModelID())
		})
	}
}

func TestManager_LoadAndGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	mgr := NewManager(path)
	assert.True(t, mgr.Exists())

	cfg, err := mgr.Load()
	require.NoError(t, err)
	assert.Same(t, cfg, mgr.Get())

	// A reload swaps the snapshot; the old pointer is unchanged.
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig+"\n[[backend]]\nmodel = \"openai:gpt-4o-mini\"\n"), 0o644))

	reloaded, err := mgr.Load()
	require.NoError(t, err)
	assert.Len(t, reloaded.Backends, 4)
	assert.Len(t, cfg.Backends, 3)
}
