package upstream

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "http error uses status",
			err:      &HTTPError{Status: 429, Body: "slow down"},
			expected: "429",
		},
		{
			name:     "wrapped http error",
			err:      fmt.Errorf("attempt failed: %w", &HTTPError{Status: 503, Body: "x"}),
			expected: "503",
		},
		{
			name:     "leading digits in message",
			err:      errors.New("502 bad gateway from pool"),
			expected: "502",
		},
		{
			name:     "timeout",
			err:      &TimeoutError{Timeout: 90 * time.Second},
			expected: "timeout",
		},
		{
			name:     "plain error falls back to kind",
			err:      errors.New("connection refused"),
			expected: "*errors.errorString",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorCode(tt.err))
		})
	}
}

func TestClassifyCause(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{"Country, region, or territory not supported", "unsupported region"},
		{"Incorrect API key provided: sk-...", "invalid API key"},
		{"Rate limit reached for requests", "rate limit"},
		{"The model `gpt-9` does not exist", "model not found"},
		{"You exceeded your current quota, please check billing", "billing issue"},
		{"something else entirely", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyCause(tt.message))
		})
	}
}
