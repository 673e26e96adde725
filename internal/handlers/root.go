package handlers

import (
	"net/http"
	"sort"

	"github.com/Davincible/llm-relay/internal/config"
)

// RootHandler answers GET / with the service identity and a digest of
// the loaded configuration. Every other path landing here is a 404.
type RootHandler struct {
	*Relay
	name    string
	version string
}

func NewRootHandler(relay *Relay, name, version string) *RootHandler {
	return &RootHandler{Relay: relay, name: name, version: version}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found"})
		return
	}

	cfg := h.config.Get()

	writeJSON(w, http.StatusOK, map[string]any{
		"name":    h.name,
		"version": h.version,
		"config":  configDigest(cfg),
	})
}

// configDigest summarizes the catalog without leaking credentials.
func configDigest(cfg *config.Config) map[string]any {
	providers := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	backends := make([]map[string]any, 0, len(cfg.Backends))

	for _, backend := range cfg.Backends {
		entry := map[string]any{
			"model":    backend.Model,
			"context":  backend.ContextLimit(),
			"vision":   backend.Vision,
			"thinking": backend.Thinking,
		}

		if backend.MaxPerDay > 0 {
			entry["max_per_day"] = backend.MaxPerDay
		}

		if backend.MaxPerHour > 0 {
			entry["max_per_hour"] = backend.MaxPerHour
		}

		if backend.MaxPer5h > 0 {
			entry["max_per_5h"] = backend.MaxPer5h
		}

		backends = append(backends, entry)
	}

	return map[string]any{
		"providers": providers,
		"backends":  backends,
		"auth":      len(cfg.Tokens) > 0,
	}
}
