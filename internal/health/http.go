package health

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Handler exposes the probe endpoints.
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes mounts /health, /health/live and /health/ready.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/health/live", h.handleLive)
	mux.HandleFunc("/health/ready", h.handleReady)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	rep := h.manager.Report(r.Context())
	code := http.StatusOK
	if rep.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, rep)
}

// Liveness only means the process is serving; dependency state is a
// readiness concern.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.manager.Ready(r.Context()) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode health response", zap.Error(err))
	}
}
