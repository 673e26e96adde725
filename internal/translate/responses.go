package translate

import (
	"fmt"
	"strings"
)

// responsesUnsupported are sampling fields the Responses API rejects.
var responsesUnsupported = []string{
	"temperature",
	"top_p",
	"n",
	"presence_penalty",
	"frequency_penalty",
	"logit_bias",
	"user",
	"response_format",
	"max_tokens",
}

// IsResponsesModel reports whether a model id is served through the
// Responses API instead of chat completions.
func IsResponsesModel(modelID string) bool {
	return strings.HasPrefix(modelID, "gpt-5")
}

// ToResponsesRequest re-encodes a chat-completions request for the
// Responses API: messages collapse to a single input transcript, tools
// and tool_choice flatten, and unsupported sampling fields are dropped.
// The input map is not mutated.
func ToResponsesRequest(req map[string]any) map[string]any {
	out := map[string]any{}

	for key, value := range req {
		if key == "messages" || isUnsupportedForResponses(key) {
			continue
		}

		out[key] = value
	}

	out["input"] = flattenMessages(req["messages"])

	if tools, ok := req["tools"].([]any); ok {
		out["tools"] = flattenTools(tools)
	}

	if choice, ok := req["tool_choice"]; ok {
		out["tool_choice"] = flattenToolChoice(choice)
	}

	return out
}

func isUnsupportedForResponses(key string) bool {
	for _, name := range responsesUnsupported {
		if key == name {
			return true
		}
	}

	return false
}

// flattenMessages renders the conversation as "<role>: <text>" turns
// separated by blank lines. Image blocks carry no text in this
// encoding and are dropped.
func flattenMessages(messages any) string {
	msgs, _ := messages.([]any)

	var sb strings.Builder

	for _, raw := range msgs {
		msg, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		role, _ := msg["role"].(string)
		text := messageText(msg["content"])

		sb.WriteString(fmt.Sprintf("%s: %s\n\n", role, text))
	}

	return strings.TrimRight(sb.String(), " \n")
}

func messageText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var sb strings.Builder

		for _, raw := range v {
			block, ok := raw.(map[string]any)
			if !ok || block["type"] != "text" {
				continue
			}

			if text, ok := block["text"].(string); ok {
				sb.WriteString(text)
			}
		}

		return sb.String()
	default:
		return ""
	}
}

// flattenTools converts nested function tools into the flat Responses
// declaration: {type, name, description, parameters}.
func flattenTools(tools []any) []any {
	out := make([]any, 0, len(tools))

	for _, raw := range tools {
		tool, ok := raw.(map[string]any)
		if !ok {
			out = append(out, raw)
			continue
		}

		function, ok := tool["function"].(map[string]any)
		if !ok {
			out = append(out, raw)
			continue
		}

		flat := map[string]any{
			"type": "function",
			"name": function["name"],
		}

		if description, ok := function["description"]; ok {
			flat["description"] = description
		}

		if parameters, ok := function["parameters"]; ok {
			flat["parameters"] = parameters
		}

		out = append(out, flat)
	}

	return out
}

func flattenToolChoice(choice any) any {
	choiceMap, ok := choice.(map[string]any)
	if !ok {
		return choice
	}

	function, ok := choiceMap["function"].(map[string]any)
	if !ok {
		return choice
	}

	return map[string]any{
		"type": "function",
		"name": function["name"],
	}
}
