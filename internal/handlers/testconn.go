package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// TestConnectionHandler round-trips a one-word completion through the
// full selection and failover path so operators can verify upstream
// credentials end to end.
type TestConnectionHandler struct {
	*Relay
}

func NewTestConnectionHandler(relay *Relay) *TestConnectionHandler {
	return &TestConnectionHandler{Relay: relay}
}

func (h *TestConnectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cfg := h.config.Get()

	probe := map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": "Reply with the single word: ok"},
		},
		"max_tokens": 16,
	}

	selected, plan, reason := h.preparePlan(cfg, probe, h.estimator.Estimate(probe))
	if selected == nil {
		writeError(w, dialectOpenAI, http.StatusBadRequest, "invalid_request_error", reason)
		return
	}

	_, used, err := h.orchestrator.Complete(r.Context(), uuid.NewString(), plan, probe, 0)
	if err != nil {
		status := dispatchStatus(err)
		writeError(w, dialectOpenAI, status, errTypeForStatus(status), err.Error())

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"backend":    used.Model,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}
