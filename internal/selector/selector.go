// Package selector picks the first backend from the ordered catalog
// that can serve a request's capabilities and token budget. Selection
// is pure: it reads the catalog and never mutates shared state.
package selector

import (
	"regexp"
	"strings"

	"github.com/Davincible/llm-relay/internal/config"
)

// NeedsVision reports whether any user message carries an image block.
func NeedsVision(body map[string]any) bool {
	messages, _ := body["messages"].([]any)
	for _, raw := range messages {
		msg, ok := raw.(map[string]any)
		if !ok || msg["role"] != "user" {
			continue
		}

		content, ok := msg["content"].([]any)
		if !ok {
			continue
		}

		for _, block := range content {
			blockMap, ok := block.(map[string]any)
			if !ok {
				continue
			}

			if blockMap["type"] == "image" || blockMap["type"] == "image_url" {
				return true
			}
		}
	}

	return false
}

// NeedsThinking reports whether the request asks for a reasoning-capable
// backend: an enabled thinking block, a reasoning-family model id, or an
// explicit reasoning_mode flag.
func NeedsThinking(body map[string]any) bool {
	if thinking, ok := body["thinking"].(map[string]any); ok {
		if thinking["type"] == "enabled" {
			return true
		}
	}

	if model, ok := body["model"].(string); ok {
		if strings.Contains(model, "o1") || strings.Contains(model, "o3") {
			return true
		}
	}

	if reasoning, ok := body["reasoning_mode"].(bool); ok && reasoning {
		return true
	}

	return false
}

// Select scans the catalog in order and returns the first backend that
// is not excluded, fits the token estimate, satisfies the request's
// capability needs, and matches the request model against model_match.
// Returns nil when no backend qualifies.
func Select(catalog []config.Backend, body map[string]any, estimatedTokens int, excluded []string) *config.Backend {
	needsVision := NeedsVision(body)
	needsThinking := NeedsThinking(body)
	requestModel, _ := body["model"].(string)

	for i := range catalog {
		backend := catalog[i]

		if isExcluded(excluded, backend.Model) {
			continue
		}

		if estimatedTokens > backend.ContextLimit() {
			continue
		}

		if needsVision && !backend.Vision {
			continue
		}

		if needsThinking && !backend.Thinking {
			continue
		}

		if !matchesModel(backend.ModelMatch, requestModel) {
			continue
		}

		selected := backend

		return &selected
	}

	return nil
}

func isExcluded(excluded []string, model string) bool {
	for _, name := range excluded {
		if name == model {
			return true
		}
	}

	return false
}

// matchesModel checks the request model against the backend's glob
// patterns. An empty pattern list matches every model.
func matchesModel(patterns []string, model string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, pattern := range patterns {
		re, err := compileGlob(pattern)
		if err != nil {
			continue
		}

		if re.MatchString(strings.ToLower(model)) {
			return true
		}
	}

	return false
}

// compileGlob turns a glob pattern into an anchored, case-insensitive
// regular expression: * matches any run, ? matches one character.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder

	sb.WriteString("^")

	for _, r := range strings.ToLower(pattern) {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	sb.WriteString("$")

	return regexp.Compile(sb.String())
}
