package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Davincible/llm-relay/internal/failover"
	"github.com/Davincible/llm-relay/internal/metrics"
	"github.com/Davincible/llm-relay/internal/shaper"
	"github.com/Davincible/llm-relay/internal/translate"
)

// MessagesHandler serves the Anthropic messages dialect.
type MessagesHandler struct {
	*Relay
}

func NewMessagesHandler(relay *Relay) *MessagesHandler {
	return &MessagesHandler{Relay: relay}
}

func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cfg := h.config.Get()

	body, err := h.parseBody(r)
	if err != nil {
		writeError(w, dialectAnthropic, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	requestID := uuid.NewString()
	tokens := h.estimator.Estimate(body)

	selected, plan, reason := h.preparePlan(cfg, body, tokens)
	if selected == nil {
		writeError(w, dialectAnthropic, http.StatusBadRequest, "invalid_request_error", reason)
		return
	}

	shaped, _ := shaper.Apply(body, selected.KeyDelete, selected.KeyAdd, selected.KeyRename).(map[string]any)

	payload := translate.AnthropicToOpenAI(shaped)
	translate.ApplyMaxTokensPolicy(payload, cfg.MaxTokensLimit, cfg.MinTokensLimit)

	h.logger.Info("Handling messages request",
		"request_id", requestID,
		"model", requestModel(body),
		"backend", selected.Model,
		"input_tokens", tokens,
		"stream", wantsStream(body),
	)

	if wantsStream(payload) {
		h.serveStream(w, r, requestID, plan, payload, tokens)
		return
	}

	respBody, used, err := h.orchestrator.Complete(r.Context(), requestID, plan, payload, tokens)
	if err != nil {
		status := dispatchStatus(err)
		writeError(w, dialectAnthropic, status, errTypeForStatus(status), err.Error())

		return
	}

	resp, err := translate.ToAnthropicResponse(respBody, translate.ToolNames(payload), h.logger)
	if err != nil {
		writeError(w, dialectAnthropic, http.StatusInternalServerError, "api_error", err.Error())
		return
	}

	metrics.ObserveUpstream(used.Model, time.Since(start))

	if resp.Usage != nil {
		metrics.ObserveTokens(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}

	h.logger.Info("Completed messages request",
		"request_id", requestID,
		"backend", used.Model,
		"duration", time.Since(start),
		"stop_reason", resp.StopReason,
	)

	writeJSON(w, http.StatusOK, resp)
}

// serveStream forwards the upstream SSE body verbatim. The events on
// this path keep their chat-completions shape; callers wanting
// Anthropic-framed streaming events must consume the non-stream path.
func (h *MessagesHandler) serveStream(w http.ResponseWriter, r *http.Request, requestID string, plan failover.Plan, payload map[string]any, tokens int) {
	start := time.Now()

	stream, used, err := h.orchestrator.Stream(r.Context(), requestID, plan, payload, tokens)
	if err != nil {
		status := dispatchStatus(err)
		writeError(w, dialectAnthropic, status, errTypeForStatus(status), err.Error())

		return
	}

	h.streamSSE(w, r, stream, nil)

	metrics.ObserveUpstream(used.Model, time.Since(start))

	h.logger.Info("Completed messages stream",
		"request_id", requestID,
		"backend", used.Model,
		"duration", time.Since(start),
	)
}
