package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/Davincible/llm-relay/internal/failover"
	"github.com/Davincible/llm-relay/internal/metrics"
	"github.com/Davincible/llm-relay/internal/shaper"
)

// ChatHandler serves the OpenAI chat-completions dialect. The incoming
// body is already in the internal shape, so dispatch is shape + model
// override + passthrough.
type ChatHandler struct {
	*Relay
}

func NewChatHandler(relay *Relay) *ChatHandler {
	return &ChatHandler{Relay: relay}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cfg := h.config.Get()

	body, err := h.parseBody(r)
	if err != nil {
		writeError(w, dialectOpenAI, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	requestID := uuid.NewString()
	tokens := h.estimator.Estimate(body)

	selected, plan, reason := h.preparePlan(cfg, body, tokens)
	if selected == nil {
		writeError(w, dialectOpenAI, http.StatusBadRequest, "invalid_request_error", reason)
		return
	}

	payload, _ := shaper.Apply(body, selected.KeyDelete, selected.KeyAdd, selected.KeyRename).(map[string]any)

	h.logger.Info("Handling chat completions request",
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
		writeError(w, dialectOpenAI, status, errTypeForStatus(status), err.Error())

		return
	}

	metrics.ObserveUpstream(used.Model, time.Since(start))

	usage := gjson.GetBytes(respBody, "usage")
	metrics.ObserveTokens(
		int(usage.Get("prompt_tokens").Int()),
		int(usage.Get("completion_tokens").Int()),
	)

	h.logger.Info("Completed chat completions request",
		"request_id", requestID,
		"backend", used.Model,
		"duration", time.Since(start),
		"prompt_tokens", usage.Get("prompt_tokens").Int(),
		"completion_tokens", usage.Get("completion_tokens").Int(),
	)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(respBody)
}

// serveStream splices a usage observer over the SSE relay: frames pass
// through unchanged while any usage object in a data payload is
// captured for post-stream accounting.
func (h *ChatHandler) serveStream(w http.ResponseWriter, r *http.Request, requestID string, plan failover.Plan, payload map[string]any, tokens int) {
	start := time.Now()

	stream, used, err := h.orchestrator.Stream(r.Context(), requestID, plan, payload, tokens)
	if err != nil {
		status := dispatchStatus(err)
		writeError(w, dialectOpenAI, status, errTypeForStatus(status), err.Error())

		return
	}

	var promptTokens, completionTokens int64

	h.streamSSE(w, r, stream, func(frame []byte) {
		data, ok := framePayload(frame)
		if !ok {
			return
		}

		usage := gjson.GetBytes(data, "usage")
		if !usage.Exists() {
			return
		}

		promptTokens = usage.Get("prompt_tokens").Int()
		completionTokens = usage.Get("completion_tokens").Int()
	})

	metrics.ObserveUpstream(used.Model, time.Since(start))
	metrics.ObserveTokens(int(promptTokens), int(completionTokens))

	h.logger.Info("Completed chat completions stream",
		"request_id", requestID,
		"backend", used.Model,
		"duration", time.Since(start),
		"prompt_tokens", promptTokens,
		"completion_tokens", completionTokens,
	)
}
