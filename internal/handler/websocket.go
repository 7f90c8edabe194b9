package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"segmap/internal/domain"
	"segmap/internal/hub"
	"segmap/internal/mapview"
	"segmap/internal/orchestrator"
	"segmap/internal/selector"
)

type WSHandler struct {
	hub        *hub.Hub
	fetcher    orchestrator.Fetcher
	opts       orchestrator.Options
	sendBuffer int
	logger     *slog.Logger
}

func NewWSHandler(h *hub.Hub, fetcher orchestrator.Fetcher, opts orchestrator.Options, sendBuffer int, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:        h,
		fetcher:    fetcher,
		opts:       opts,
		sendBuffer: sendBuffer,
		logger:     logger,
	}
}

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RectanglePayload carries the corners of a drawn or edited rectangle.
type RectanglePayload struct {
	Southwest domain.LatLng `json:"southwest"`
	Northeast domain.LatLng `json:"northeast"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	sessionID := uuid.New().String()
	logger := h.logger.With("session_id", sessionID)

	client := hub.NewClient(sessionID, h.sendBuffer, logger)
	view := mapview.NewRecorder()
	surface := mapview.Tee{view, client}

	opts := h.opts
	opts.Logger = logger
	pipeline := orchestrator.New(h.fetcher, surface, view, opts)
	sel := selector.New(surface, pipeline.RectangleChanged)

	session := &hub.Session{
		ID:        sessionID,
		Client:    client,
		Pipeline:  pipeline,
		View:      view,
		StartedAt: time.Now(),
	}
	h.hub.Register(session)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go pipeline.Run(ctx)
	go h.writeLoop(ctx, conn, client)

	client.Enqueue(hub.Message{Type: "session", Payload: hub.SessionPayload{ID: sessionID}})
	logger.Info("session started", "remote_addr", r.RemoteAddr)

	h.readLoop(ctx, conn, session, sel)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *hub.Session, sel *selector.Selector) {
	logger := h.logger.With("session_id", session.ID)
	defer func() {
		h.hub.Unregister(session)
		conn.Close(websocket.StatusNormalClosure, "")
		logger.Info("session ended", "duration_ms", time.Since(session.StartedAt).Milliseconds())
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				logger.Debug("websocket read error", "error", err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("invalid message format", "error", err)
			continue
		}

		switch msg.Type {
		case "draw:created", "draw:edited":
			var payload RectanglePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				logger.Debug("invalid rectangle payload", "type", msg.Type, "error", err)
				continue
			}
			if msg.Type == "draw:created" {
				sel.Commit(payload.Southwest, payload.Northeast)
			} else {
				sel.Edit(payload.Southwest, payload.Northeast)
			}

		case "path:refresh":
			session.Pipeline.RequeryPath()

		case "ping":
			session.Client.Enqueue(hub.Message{Type: "pong"})
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-client.Send:
			if !ok {
				if client.Overflowed() {
					conn.Close(websocket.StatusPolicyViolation, "send buffer overflow")
				}
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
