package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsResponsesModel(t *testing.T) {
	assert.True(t, IsResponsesModel("gpt-5"))
	assert.True(t, IsResponsesModel("gpt-5-mini"))
	assert.False(t, IsResponsesModel("gpt-4o"))
	assert.False(t, IsResponsesModel("o3-mini"))
}

func TestToResponsesRequest_FlattensMessages(t *testing.T) {
	req := map[string]any{
		"model": "gpt-5",
		"messages": []any{
			map[string]any{"role": "system", "content": "be brief"},
			map[string]any{"role": "user", "content": "hello"},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": "look at this"},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": "data:x"}},
				},
			},
		},
		"temperature": 0.5,
		"top_p":       0.9,
		"max_tokens":  512,
		"stream":      true,
	}

	out := ToResponsesRequest(req)

	assert.Equal(t, "system: be brief\n\nuser: hello\n\nuser: look at this", out["input"])
	assert.NotContains(t, out, "messages")
	assert.NotContains(t, out, "temperature")
	assert.NotContains(t, out, "top_p")
	assert.NotContains(t, out, "max_tokens")
	assert.Equal(t, true, out["stream"])
	assert.Equal(t, "gpt-5", out["model"])

	// Input map untouched.
	assert.Contains(t, req, "temperature")
	assert.Contains(t, req, "messages")
}

func TestToResponsesRequest_FlattensTools(t *testing.T) {
	req := map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "hi"}},
		"tools": []any{
			map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        "get_weather",
					"description": "Get weather",
					"parameters":  map[string]any{"type": "object"},
				},
			},
		},
		"tool_choice": map[string]any{
			"type":     "function",
			"function": map[string]any{"name": "get_weather"},
		},
	}

	out := ToResponsesRequest(req)

	tools := out["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, map[string]any{
		"type":        "function",
		"name":        "get_weather",
		"description": "Get weather",
		"parameters":  map[string]any{"type": "object"},
	}, tools[0])

	assert.Equal(t, map[string]any{"type": "function", "name": "get_weather"}, out["tool_choice"])
}

func TestToResponsesRequest_StripsUnsupportedFields(t *testing.T) {
	req := map[string]any{
		"messages":          []any{map[string]any{"role": "user", "content": "hi"}},
		"n":                 2,
		"presence_penalty":  0.5,
		"frequency_penalty": 0.5,
		"logit_bias":        map[string]any{"50256": -100},
		"user":              "u-1",
		"response_format":   map[string]any{"type": "json_object"},
	}

	out := ToResponsesRequest(req)

	for _, field := range []string{"n", "presence_penalty", "frequency_penalty", "logit_bias", "user", "response_format"} {
		assert.NotContains(t, out, field)
	}
}
