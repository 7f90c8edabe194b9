package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"segmap/internal/mapview"
	"segmap/internal/metrics"
	"segmap/internal/orchestrator"
)

// Session is one connected map client and the pipeline driving it.
type Session struct {
	ID        string
	Client    *Client
	Pipeline  *orchestrator.Orchestrator
	View      *mapview.Recorder
	StartedAt time.Time
}

type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	register   chan *Session
	unregister chan *Session

	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHub(m *metrics.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]*Session),
		register:   make(chan *Session, 16),
		unregister: make(chan *Session, 16),
		metrics:    m,
		logger:     logger.With("component", "hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s.ID] = s
			total := len(h.sessions)
			h.mu.Unlock()
			h.metrics.SetActiveSessions(total)
			h.logger.Debug("session registered", "session_id", s.ID, "total", total)

		case s := <-h.unregister:
			h.remove(s)
		}
	}
}

func (h *Hub) Register(s *Session) {
	h.register <- s
}

func (h *Hub) Unregister(s *Session) {
	h.unregister <- s
}

// Lookup returns a live session by ID.
func (h *Hub) Lookup(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.ID)
	total := len(h.sessions)
	h.mu.Unlock()

	s.Client.Close()
	h.metrics.SetActiveSessions(total)
	h.logger.Debug("session unregistered", "session_id", s.ID, "total", total)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sessions {
		s.Client.Close()
	}
	h.sessions = make(map[string]*Session)
	h.metrics.SetActiveSessions(0)
}
