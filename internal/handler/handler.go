package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/circuit-breaker/internal/circuitbreaker"
)

// BreakerHandler serves the operational status of registered circuit
// breakers. All endpoints are pure reads except Reset; none of them
// ever invokes a protected operation.
type BreakerHandler struct {
	logger   *slog.Logger
	registry *circuitbreaker.Registry
}

func NewBreakerHandler(logger *slog.Logger, registry *circuitbreaker.Registry) *BreakerHandler {
	return &BreakerHandler{
		logger:   logger,
		registry: registry,
	}
}

// Snapshot returns the status of every registered breaker as JSON.
func (h *BreakerHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.registry.Snapshot())
}

// Status returns the status of a single breaker, 404 when unknown.
func (h *BreakerHandler) Status(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	cb, exists := h.registry.Lookup(name)
	if !exists {
		http.Error(w, "unknown circuit breaker", http.StatusNotFound)
		return
	}

	writeJSON(w, cb.Status())
}

// Reset resets the breaker named by the "name" query parameter, or
// every breaker when the parameter is absent.
func (h *BreakerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	if name == "" {
		h.registry.ResetAll()
		h.logger.Info("All circuit breakers reset",
			slog.String("from", r.RemoteAddr))
		writeJSON(w, map[string]string{"status": "reset"})
		return
	}

	if !h.registry.Reset(name) {
		http.Error(w, "unknown circuit breaker", http.StatusNotFound)
		return
	}

	h.logger.Info("Circuit breaker reset via API",
		slog.String("breaker", name),
		slog.String("from", r.RemoteAddr))
	writeJSON(w, map[string]string{"status": "reset", "breaker": name})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
