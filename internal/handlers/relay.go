// Package handlers implements the HTTP surface: the two inference
// dialects, token counting, and the operational endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Davincible/llm-relay/internal/config"
	"github.com/Davincible/llm-relay/internal/failover"
	"github.com/Davincible/llm-relay/internal/selector"
	"github.com/Davincible/llm-relay/internal/tokencount"
	"github.com/Davincible/llm-relay/internal/upstream"
)

// StatusClientClosedRequest is the nginx-convention status for a caller
// that went away mid-request.
const StatusClientClosedRequest = 499

type dialect int

const (
	dialectAnthropic dialect = iota
	dialectOpenAI
)

// Relay carries the shared plumbing both dialect handlers glue
// together: selection, shaping, dispatch, and accounting.
type Relay struct {
	config       *config.Manager
	estimator    *tokencount.Estimator
	orchestrator *failover.Orchestrator
	logger       *slog.Logger
}

func NewRelay(cfg *config.Manager, estimator *tokencount.Estimator, orchestrator *failover.Orchestrator, logger *slog.Logger) *Relay {
	return &Relay{
		config:       cfg,
		estimator:    estimator,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// parseBody reads and decodes a JSON request body.
func (rl *Relay) parseBody(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}

	return body, nil
}

// preparePlan selects the backend for this request and derives the
// effective attempt list, passed by value into the orchestrator. The
// shared catalog is read, never written: two concurrent requests
// selecting different backends each carry their own plan.
func (rl *Relay) preparePlan(cfg *config.Config, body map[string]any, tokens int) (*config.Backend, failover.Plan, string) {
	selected := selector.Select(cfg.Backends, body, tokens, nil)
	if selected == nil {
		return nil, failover.Plan{}, noBackendMessage(body)
	}

	// The configured failover chain backs up whichever backend was
	// selected as this request's primary; drop the selected entry so
	// it is never attempted twice in one cycle.
	var failoverList []config.Backend

	for _, backend := range cfg.FailoverList() {
		if backend.Model == selected.Model {
			continue
		}

		failoverList = append(failoverList, backend)
	}

	plan := failover.Plan{
		Primary:   *selected,
		Failover:  failoverList,
		Providers: cfg.Providers,
	}

	return selected, plan, ""
}

// noBackendMessage names the unmet capability for the 400 body.
func noBackendMessage(body map[string]any) string {
	if selector.NeedsVision(body) {
		return "no model supports vision"
	}

	if selector.NeedsThinking(body) {
		return "no model supports thinking"
	}

	return "no suitable backend available"
}

// dispatchStatus maps a dispatch failure onto an HTTP status.
func dispatchStatus(err error) int {
	switch {
	case errors.Is(err, failover.ErrAllBackendsFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	}

	var httpErr *upstream.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}

	var timeoutErr *upstream.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError answers in the dialect the caller speaks.
func writeError(w http.ResponseWriter, d dialect, status int, errType, message string) {
	inner := map[string]any{
		"type":    errType,
		"message": message,
	}

	var body any
	if d == dialectAnthropic {
		body = map[string]any{"type": "error", "error": inner}
	} else {
		body = map[string]any{"error": inner}
	}

	writeJSON(w, status, body)
}

func errTypeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusServiceUnavailable:
		return "overloaded_error"
	case StatusClientClosedRequest:
		return "request_cancelled"
	default:
		return "api_error"
	}
}

// streamSSE forwards stream frames to the caller verbatim, flushing
// per frame, and hands every frame to observe when set. Frames are
// forwarded in upstream order; a mid-stream failure terminates the
// response without a trailer.
func (rl *Relay) streamSSE(w http.ResponseWriter, r *http.Request, stream *upstream.Stream, observe func(frame []byte)) {
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, err := stream.Next()
		if err == io.EOF {
			return
		}

		if err != nil {
			rl.logger.Error("Stream terminated mid-flight", "error", err)
			return
		}

		if observe != nil {
			observe(frame)
		}

		if _, err := w.Write(frame); err != nil {
			return
		}

		if flusher != nil {
			flusher.Flush()
		}
	}
}

// framePayload extracts the JSON payload of a forwarded data: frame.
// The [DONE] sentinel and non-JSON payloads report false.
func framePayload(frame []byte) ([]byte, bool) {
	text := strings.TrimSpace(string(frame))
	if !strings.HasPrefix(text, "data:") {
		return nil, false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(text, "data:"))
	if payload == "" || payload == "[DONE]" || payload[0] != '{' {
		return nil, false
	}

	return []byte(payload), true
}

func wantsStream(body map[string]any) bool {
	stream, _ := body["stream"].(bool)
	return stream
}

func requestModel(body map[string]any) string {
	model, _ := body["model"].(string)
	return model
}
