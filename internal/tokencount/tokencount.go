// Package tokencount estimates the input-token footprint of a request
// body so the selector can gate candidates against each backend's
// context window. Counting uses the cl100k_base BPE encoding when
// available and degrades to a character heuristic otherwise.
package tokencount

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// Fixed token cost charged per image content block.
	imageTokens = 85
	// Per-message overhead for role and framing tokens.
	messageOverhead = 4
	// Characters per token in the fallback heuristic.
	fallbackCharsPerToken = 4
)

// Encoder counts BPE tokens in a string.
type Encoder interface {
	Count(text string) int
}

type tiktokenEncoder struct {
	enc *tiktoken.Tiktoken
}

func (e *tiktokenEncoder) Count(text string) int {
	return len(e.enc.Encode(text, nil, nil))
}

// Estimator computes token estimates for request bodies.
type Estimator struct {
	logger *slog.Logger

	once    sync.Once
	encoder Encoder
}

func NewEstimator(logger *slog.Logger) *Estimator {
	return &Estimator{logger: logger}
}

// NewEstimatorWithEncoder injects a fixed encoder; nil forces the
// character heuristic.
func NewEstimatorWithEncoder(logger *slog.Logger, encoder Encoder) *Estimator {
	e := &Estimator{logger: logger, encoder: encoder}
	e.once.Do(func() {})

	return e
}

func (e *Estimator) getEncoder() Encoder {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			e.logger.Warn("Tokenizer unavailable, falling back to character heuristic", "error", err)
			return
		}

		e.encoder = &tiktokenEncoder{enc: enc}
	})

	return e.encoder
}

// Estimate returns a non-negative token estimate for a parsed request
// body: BPE tokens (or chars/4) over every text source, 85 tokens per
// image block, plus 4 tokens of framing per message.
func (e *Estimator) Estimate(body map[string]any) int {
	texts, images, messages := collectSources(body)

	total := images*imageTokens + messages*messageOverhead

	if encoder := e.getEncoder(); encoder != nil {
		for _, text := range texts {
			total += encoder.Count(text)
		}

		return total
	}

	chars := 0
	for _, text := range texts {
		chars += len(text)
	}

	heuristic := chars / fallbackCharsPerToken
	if heuristic < 1 {
		heuristic = 1
	}

	return total + heuristic
}

// collectSources walks the top-level system field and every message,
// gathering text sources and counting image blocks. Both dialects are
// accepted: content may be a plain string or a block array.
func collectSources(body map[string]any) (texts []string, images, messages int) {
	switch system := body["system"].(type) {
	case string:
		if system != "" {
			texts = append(texts, system)
		}
	case []any:
		for _, block := range system {
			if text := blockText(block); text != "" {
				texts = append(texts, text)
			}
		}
	}

	msgs, _ := body["messages"].([]any)
	for _, raw := range msgs {
		msg, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		messages++

		switch content := msg["content"].(type) {
		case string:
			if content != "" {
				texts = append(texts, content)
			}
		case []any:
			for _, block := range content {
				blockMap, ok := block.(map[string]any)
				if !ok {
					continue
				}

				switch blockMap["type"] {
				case "image", "image_url":
					images++
				default:
					if text := blockText(block); text != "" {
						texts = append(texts, text)
					}
				}
			}
		}
	}

	return texts, images, messages
}

func blockText(block any) string {
	blockMap, ok := block.(map[string]any)
	if !ok {
		return ""
	}

	text, _ := blockMap["text"].(string)

	return text
}
