package translate

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// AnthropicResponse is the messages-dialect response body.
type AnthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Model      string             `json:"model,omitempty"`
	Content    []AnthropicContent `json:"content"`
	StopReason string             `json:"stop_reason,omitempty"`
	Usage      *AnthropicUsage    `json:"usage,omitempty"`
}

type AnthropicContent struct {
	Type  string  `json:"type"`
	Text  *string `json:"text,omitempty"`
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name,omitempty"`
	Input any     `json:"input,omitempty"`
}

type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ToAnthropicResponse translates an upstream response body into the
// messages dialect. Chat-completions and Responses shapes are both
// accepted; requestTools carries the original request's tool names for
// validating Responses tool calls.
func ToAnthropicResponse(body []byte, requestTools []string, logger *slog.Logger) (*AnthropicResponse, error) {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal upstream response: %w", err)
	}

	if parsed["object"] == "response" {
		return responsesToAnthropic(parsed, requestTools, logger), nil
	}

	return chatToAnthropic(parsed)
}

// chatToAnthropic converts the first chat-completions choice.
func chatToAnthropic(parsed map[string]any) (*AnthropicResponse, error) {
	choices, _ := parsed["choices"].([]any)
	if len(choices) == 0 {
		return nil, fmt.Errorf("upstream response has no choices")
	}

	choice, ok := choices[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("upstream response choice is malformed")
	}

	message, _ := choice["message"].(map[string]any)

	out := &AnthropicResponse{
		ID:   responseID(parsed),
		Type: "message",
		Role: "assistant",
	}

	if model, ok := parsed["model"].(string); ok {
		out.Model = model
	}

	if text, ok := message["content"].(string); ok && text != "" {
		out.Content = append(out.Content, AnthropicContent{Type: "text", Text: &text})
	}

	if toolCalls, ok := message["tool_calls"].([]any); ok {
		for _, raw := range toolCalls {
			call, ok := raw.(map[string]any)
			if !ok {
				continue
			}

			function, _ := call["function"].(map[string]any)
			id, _ := call["id"].(string)
			name, _ := function["name"].(string)
			arguments, _ := function["arguments"].(string)

			out.Content = append(out.Content, AnthropicContent{
				Type:  "tool_use",
				ID:    id,
				Name:  name,
				Input: parseToolArguments(arguments),
			})
		}
	}

	if len(out.Content) == 0 {
		empty := ""
		out.Content = append(out.Content, AnthropicContent{Type: "text", Text: &empty})
	}

	finishReason, _ := choice["finish_reason"].(string)
	out.StopReason = mapStopReason(finishReason)

	out.Usage = mapUsage(parsed["usage"])

	return out, nil
}

// responsesToAnthropic converts a Responses API body. Tool calls naming
// tools absent from the original request are dropped with a warning.
func responsesToAnthropic(parsed map[string]any, requestTools []string, logger *slog.Logger) *AnthropicResponse {
	out := &AnthropicResponse{
		ID:   responseID(parsed),
		Type: "message",
		Role: "assistant",
	}

	if model, ok := parsed["model"].(string); ok {
		out.Model = model
	}

	output, _ := parsed["output"].([]any)
	for _, rawItem := range output {
		item, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}

		content, _ := item["content"].([]any)
		for _, rawBlock := range content {
			block, ok := rawBlock.(map[string]any)
			if !ok {
				continue
			}

			switch block["type"] {
			case "output_text":
				if text, ok := block["text"].(string); ok {
					out.Content = append(out.Content, AnthropicContent{Type: "text", Text: &text})
				}
			case "tool_call":
				name, _ := block["name"].(string)
				if !containsString(requestTools, name) {
					logger.Warn("Dropping tool call for tool absent from request", "tool", name)
					continue
				}

				id, _ := block["id"].(string)
				if id == "" {
					id = "toolu_" + uuid.NewString()
				}

				arguments, _ := block["arguments"].(string)

				out.Content = append(out.Content, AnthropicContent{
					Type:  "tool_use",
					ID:    id,
					Name:  name,
					Input: parseToolArguments(arguments),
				})
			}
		}
	}

	if len(out.Content) == 0 {
		empty := ""
		out.Content = append(out.Content, AnthropicContent{Type: "text", Text: &empty})
	}

	out.StopReason = "end_turn"

	for _, block := range out.Content {
		if block.Type == "tool_use" {
			out.StopReason = "tool_use"
			break
		}
	}

	out.Usage = mapUsage(parsed["usage"])

	return out
}

// parseToolArguments decodes a JSON arguments string, preserving the
// raw text under raw_arguments when it does not parse.
func parseToolArguments(arguments string) any {
	if arguments == "" {
		return map[string]any{}
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return map[string]any{"raw_arguments": arguments}
	}

	return input
}

func mapStopReason(finishReason string) string {
	switch finishReason {
	case "length":
		return "max_tokens"
	case "tool_calls", "function_call":
		return "tool_use"
	default:
		return "end_turn"
	}
}

// mapUsage accepts both usage vocabularies: chat completions uses
// prompt/completion tokens, Responses already reports input/output.
func mapUsage(usage any) *AnthropicUsage {
	usageMap, ok := usage.(map[string]any)
	if !ok {
		return nil
	}

	out := &AnthropicUsage{}

	if n, ok := intValue(usageMap["prompt_tokens"]); ok {
		out.InputTokens = n
	} else if n, ok := intValue(usageMap["input_tokens"]); ok {
		out.InputTokens = n
	}

	if n, ok := intValue(usageMap["completion_tokens"]); ok {
		out.OutputTokens = n
	} else if n, ok := intValue(usageMap["output_tokens"]); ok {
		out.OutputTokens = n
	}

	return out
}

func responseID(parsed map[string]any) string {
	if id, ok := parsed["id"].(string); ok && id != "" {
		return id
	}

	return "msg_" + uuid.NewString()
}

// ToolNames extracts the declared tool names from a chat-completions
// request for validating Responses tool calls.
func ToolNames(req map[string]any) []string {
	tools, _ := req["tools"].([]any)

	var names []string

	for _, raw := range tools {
		tool, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		if function, ok := tool["function"].(map[string]any); ok {
			if name, ok := function["name"].(string); ok && name != "" {
				names = append(names, name)
			}

			continue
		}

		if name, ok := tool["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}

	return names
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}
