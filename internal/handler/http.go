package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"segmap/internal/hub"
	"segmap/internal/mapview"
	"segmap/internal/orchestrator"
)

type SessionHandler struct {
	hub *hub.Hub
}

func NewSessionHandler(h *hub.Hub) *SessionHandler {
	return &SessionHandler{hub: h}
}

type SessionResponse struct {
	ID        string                `json:"id"`
	StartedAt time.Time             `json:"startedAt"`
	Pipeline  orchestrator.Snapshot `json:"pipeline"`
	Panels    map[string][]string   `json:"panels"`
	Layers    map[string]int        `json:"layers"`
}

var (
	snapshotPanels = []mapview.PanelID{
		mapview.PanelSWCoords,
		mapview.PanelNECoords,
		mapview.PanelSegmentList,
		mapview.PanelPathDetails,
		mapview.PanelLegend,
	}
	snapshotLayers = []mapview.LayerID{
		mapview.LayerRectangle,
		mapview.LayerSegments,
		mapview.LayerPath,
	}
)

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing session id")
		return
	}

	session, ok := h.hub.Lookup(id)
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	resp := SessionResponse{
		ID:        session.ID,
		StartedAt: session.StartedAt,
		Pipeline:  session.Pipeline.Snapshot(),
		Panels:    make(map[string][]string, len(snapshotPanels)),
		Layers:    make(map[string]int, len(snapshotLayers)),
	}
	for _, p := range snapshotPanels {
		resp.Panels[string(p)] = session.View.PanelText(p)
	}
	for _, l := range snapshotLayers {
		resp.Layers[string(l)] = len(session.View.Layer(l))
	}

	respondJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
