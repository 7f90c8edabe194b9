package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"segmap/internal/mapview"
)

// Client is the outbound side of one websocket connection. It implements
// mapview.Surface by queueing draw commands for the browser.
type Client struct {
	ID   string
	Send chan []byte

	mu         sync.Mutex
	closed     bool
	overflowed bool
	logger     *slog.Logger
}

func NewClient(id string, bufferSize int, logger *slog.Logger) *Client {
	return &Client{
		ID:     id,
		Send:   make(chan []byte, bufferSize),
		logger: logger,
	}
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type LayerPayload struct {
	Layer    mapview.LayerID `json:"layer"`
	Features interface{}     `json:"features"`
}

type PanelPayload struct {
	Panel mapview.PanelID `json:"panel"`
	Items []mapview.Item  `json:"items"`
}

type SessionPayload struct {
	ID string `json:"id"`
}

func (c *Client) ReplaceLayer(id mapview.LayerID, shapes []mapview.Shape) {
	c.Enqueue(Message{
		Type: "layer",
		Payload: LayerPayload{
			Layer:    id,
			Features: mapview.FeatureCollection(shapes),
		},
	})
}

func (c *Client) SetPanel(id mapview.PanelID, items []mapview.Item) {
	if items == nil {
		items = []mapview.Item{}
	}
	c.Enqueue(Message{
		Type:    "panel",
		Payload: PanelPayload{Panel: id, Items: items},
	})
}

// Enqueue encodes msg and queues it without blocking. A full buffer closes
// the client: layer and panel commands are never dropped while it stays open.
// It reports false when the client is closed or was closed by this call.
func (c *Client) Enqueue(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("encoding message failed", "client_id", c.ID, "type", msg.Type, "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		c.logger.Warn("client send buffer full, closing client", "client_id", c.ID, "type", msg.Type)
		c.closed = true
		c.overflowed = true
		close(c.Send)
		return false
	}
}

// Overflowed reports whether the client was closed because its buffer filled.
func (c *Client) Overflowed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overflowed
}

// Close stops the outbound queue. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
