package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"segmap/internal/hub"
)

// ReadinessChecker reports whether a dependency finished starting up.
type ReadinessChecker interface {
	Installed() bool
}

type HealthHandler struct {
	assets ReadinessChecker
	hub    *hub.Hub
}

func NewHealthHandler(assets ReadinessChecker, h *hub.Hub) *HealthHandler {
	return &HealthHandler{
		assets: assets,
		hub:    h,
	}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready      bool      `json:"ready"`
	Sessions   int       `json:"sessions"`
	ServerTime time.Time `json:"serverTime"`
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ready := h.assets.Installed()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ReadyResponse{
		Ready:      ready,
		Sessions:   h.hub.Count(),
		ServerTime: time.Now(),
	})
}
