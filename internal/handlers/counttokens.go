package handlers

import "net/http"

// CountTokensHandler answers POST /v1/messages/count_tokens with the
// estimator's count over the body's system prompt and messages.
type CountTokensHandler struct {
	*Relay
}

func NewCountTokensHandler(relay *Relay) *CountTokensHandler {
	return &CountTokensHandler{Relay: relay}
}

func (h *CountTokensHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := h.parseBody(r)
	if err != nil {
		writeError(w, dialectAnthropic, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"input_tokens": h.estimator.Estimate(body),
	})
}
