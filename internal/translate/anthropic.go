// Package translate converts request and response bodies between the
// Anthropic messages dialect, the internal OpenAI chat-completions
// shape, and the Responses API encoding used by gpt-5 family models.
package translate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnthropicToOpenAI rewrites an Anthropic messages request into the
// internal chat-completions shape. The input map is not mutated.
func AnthropicToOpenAI(body map[string]any) map[string]any {
	out := map[string]any{}

	if model, ok := body["model"].(string); ok {
		out["model"] = model
	}

	messages := convertMessages(body)
	out["messages"] = messages

	if temperature, ok := body["temperature"]; ok {
		out["temperature"] = temperature
	} else {
		out["temperature"] = 1.0
	}

	if topP, ok := body["top_p"]; ok {
		out["top_p"] = topP
	}

	if stop, ok := body["stop_sequences"]; ok {
		out["stop"] = stop
	}

	if stream, ok := body["stream"]; ok {
		out["stream"] = stream
	}

	if maxTokens, ok := body["max_tokens"]; ok {
		out["max_tokens"] = maxTokens
	}

	if tools, ok := body["tools"].([]any); ok {
		if converted := convertTools(tools); len(converted) > 0 {
			out["tools"] = converted
		}
	}

	if toolChoice, ok := body["tool_choice"]; ok {
		out["tool_choice"] = convertToolChoice(toolChoice)
	}

	return out
}

// convertMessages builds the OpenAI message sequence: system prompt
// first, then the conversation with assistant tool calls followed by
// their tool-result messages.
func convertMessages(body map[string]any) []any {
	var out []any

	if system := joinSystem(body["system"]); system != "" {
		out = append(out, map[string]any{"role": "system", "content": system})
	}

	messages, _ := body["messages"].([]any)

	for i := 0; i < len(messages); i++ {
		msg, ok := messages[i].(map[string]any)
		if !ok {
			continue
		}

		switch msg["role"] {
		case "user":
			out = append(out, map[string]any{
				"role":    "user",
				"content": convertUserContent(msg["content"]),
			})
		case "assistant":
			out = append(out, convertAssistantMessage(msg))

			// A user message holding tool results belongs to the
			// assistant turn that issued the calls; consume it here.
			if i+1 < len(messages) {
				if next, ok := messages[i+1].(map[string]any); ok && next["role"] == "user" {
					if toolMsgs := convertToolResults(next["content"]); len(toolMsgs) > 0 {
						out = append(out, toolMsgs...)
						i++
					}
				}
			}
		}
	}

	return out
}

// joinSystem flattens the top-level system field, which is either a
// string or an array of text blocks joined by blank lines.
func joinSystem(system any) string {
	switch v := system.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		var parts []string

		for _, block := range v {
			blockMap, ok := block.(map[string]any)
			if !ok || blockMap["type"] != "text" {
				continue
			}

			if text, ok := blockMap["text"].(string); ok && text != "" {
				parts = append(parts, text)
			}
		}

		return strings.TrimSpace(strings.Join(parts, "\n\n"))
	default:
		return ""
	}
}

// convertUserContent maps a user message body: strings pass through,
// block arrays become OpenAI content blocks, and an array that reduces
// to a single text block is flattened back to a string.
func convertUserContent(content any) any {
	blocks, ok := content.([]any)
	if !ok {
		return content
	}

	var converted []any

	for _, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		switch block["type"] {
		case "text":
			converted = append(converted, map[string]any{
				"type": "text",
				"text": block["text"],
			})
		case "image":
			source, ok := block["source"].(map[string]any)
			if !ok || source["type"] != "base64" {
				continue
			}

			mediaType, _ := source["media_type"].(string)
			data, _ := source["data"].(string)

			converted = append(converted, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": fmt.Sprintf("data:%s;base64,%s", mediaType, data),
				},
			})
		}
	}

	if len(converted) == 1 {
		if only, ok := converted[0].(map[string]any); ok && only["type"] == "text" {
			return only["text"]
		}
	}

	if converted == nil {
		return ""
	}

	return converted
}

// convertAssistantMessage joins text blocks into content and turns
// tool_use blocks into OpenAI tool_calls. Content is null when the
// assistant produced only tool calls.
func convertAssistantMessage(msg map[string]any) map[string]any {
	out := map[string]any{"role": "assistant"}

	blocks, ok := msg["content"].([]any)
	if !ok {
		out["content"] = msg["content"]
		return out
	}

	var (
		text      strings.Builder
		hasText   bool
		toolCalls []any
	)

	for _, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		switch block["type"] {
		case "text":
			if t, ok := block["text"].(string); ok {
				text.WriteString(t)
				hasText = true
			}
		case "tool_use":
			arguments := "{}"
			if input := block["input"]; input != nil {
				if encoded, err := json.Marshal(input); err == nil {
					arguments = string(encoded)
				}
			}

			toolCalls = append(toolCalls, map[string]any{
				"id":   block["id"],
				"type": "function",
				"function": map[string]any{
					"name":      block["name"],
					"arguments": arguments,
				},
			})
		}
	}

	if hasText {
		out["content"] = text.String()
	} else {
		out["content"] = nil
	}

	if len(toolCalls) > 0 {
		out["tool_calls"] = toolCalls
	}

	return out
}

// convertToolResults extracts tool_result blocks from a user message
// body and emits one tool-role message per block. Returns nil when the
// message holds no tool results.
func convertToolResults(content any) []any {
	blocks, ok := content.([]any)
	if !ok {
		return nil
	}

	var out []any

	for _, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok || block["type"] != "tool_result" {
			continue
		}

		out = append(out, map[string]any{
			"role":         "tool",
			"tool_call_id": block["tool_use_id"],
			"content":      stringifyToolResult(block["content"]),
		})
	}

	return out
}

// stringifyToolResult renders a tool result body as plain text: strings
// pass through, block arrays join their text fields, a single text
// block yields its text, and anything else is JSON-encoded.
func stringifyToolResult(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string

		for _, raw := range v {
			if block, ok := raw.(map[string]any); ok {
				if text, ok := block["text"].(string); ok {
					parts = append(parts, text)
				}
			}
		}

		return strings.TrimSpace(strings.Join(parts, "\n"))
	case map[string]any:
		if v["type"] == "text" {
			if text, ok := v["text"].(string); ok {
				return text
			}
		}

		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	}
}

// convertTools maps Anthropic tool declarations to OpenAI function
// tools, skipping entries without a name.
func convertTools(tools []any) []any {
	var out []any

	for _, raw := range tools {
		tool, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		name, _ := tool["name"].(string)
		if name == "" {
			continue
		}

		function := map[string]any{"name": name}

		if description, ok := tool["description"].(string); ok && description != "" {
			function["description"] = description
		}

		if schema, ok := tool["input_schema"]; ok {
			function["parameters"] = schema
		}

		out = append(out, map[string]any{
			"type":     "function",
			"function": function,
		})
	}

	return out
}

// convertToolChoice maps the Anthropic tool_choice shapes onto the
// chat-completions forms; unknown shapes degrade to "auto".
func convertToolChoice(choice any) any {
	choiceMap, ok := choice.(map[string]any)
	if !ok {
		return "auto"
	}

	switch choiceMap["type"] {
	case "auto", "any":
		return "auto"
	case "tool":
		name, _ := choiceMap["name"].(string)
		if name == "" {
			return "auto"
		}

		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": name},
		}
	default:
		return "auto"
	}
}
