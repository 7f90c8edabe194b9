package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"segmap/internal/mapview"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_ReplaceLayer_encodes_geojson(t *testing.T) {
	c := NewClient("s1", 4, discardLogger())
	c.ReplaceLayer(mapview.LayerSegments, []mapview.Shape{{
		Geometry: orb.LineString{{-74.0, 40.71}, {-73.99, 40.72}},
		Color:    "#e6194b",
		Weight:   3,
		Popup:    "Broadway: 1200 meters",
	}})

	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			Layer    string `json:"layer"`
			Features struct {
				Type     string `json:"type"`
				Features []struct {
					Geometry struct {
						Type        string      `json:"type"`
						Coordinates [][]float64 `json:"coordinates"`
					} `json:"geometry"`
					Properties map[string]interface{} `json:"properties"`
				} `json:"features"`
			} `json:"features"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(<-c.Send, &msg); err != nil {
		t.Fatalf("decoding message: %v", err)
	}

	if msg.Type != "layer" || msg.Payload.Layer != "segments" {
		t.Errorf("message = %s/%s", msg.Type, msg.Payload.Layer)
	}
	fc := msg.Payload.Features
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("collection = %+v", fc)
	}
	f := fc.Features[0]
	if f.Geometry.Type != "LineString" || len(f.Geometry.Coordinates) != 2 || f.Geometry.Coordinates[0][1] != 40.71 {
		t.Errorf("geometry = %+v", f.Geometry)
	}
	if f.Properties["popup"] != "Broadway: 1200 meters" || f.Properties["color"] != "#e6194b" {
		t.Errorf("properties = %v", f.Properties)
	}
}

func TestClient_SetPanel_nil_items(t *testing.T) {
	c := NewClient("s1", 1, discardLogger())
	c.SetPanel(mapview.PanelLegend, nil)

	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			Panel string          `json:"panel"`
			Items json.RawMessage `json:"items"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(<-c.Send, &msg); err != nil {
		t.Fatalf("decoding message: %v", err)
	}
	if msg.Type != "panel" || msg.Payload.Panel != "legend" || string(msg.Payload.Items) != "[]" {
		t.Errorf("message = %+v items=%s", msg, msg.Payload.Items)
	}
}

func TestClient_Enqueue_overflow_closes_client(t *testing.T) {
	c := NewClient("s1", 1, discardLogger())
	if !c.Enqueue(Message{Type: "pong"}) {
		t.Fatal("first enqueue failed")
	}
	if c.Enqueue(Message{Type: "pong"}) {
		t.Error("enqueue into full buffer succeeded")
	}
	if !c.Overflowed() {
		t.Error("client not marked as overflowed")
	}

	// The queued message is still delivered, then the queue ends.
	if _, ok := <-c.Send; !ok {
		t.Fatal("queued message lost")
	}
	if _, ok := <-c.Send; ok {
		t.Error("send queue still open after overflow")
	}
	if c.Enqueue(Message{Type: "pong"}) {
		t.Error("enqueue after overflow succeeded")
	}
	c.Close()
}

func TestClient_Close(t *testing.T) {
	c := NewClient("s1", 1, discardLogger())
	c.Close()
	c.Close()
	if c.Enqueue(Message{Type: "pong"}) {
		t.Error("enqueue after close succeeded")
	}
	if c.Overflowed() {
		t.Error("normal close reported as overflow")
	}
}

func TestHub_register_lookup_unregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(nil, discardLogger())
	go h.Run(ctx)

	s := &Session{ID: "s1", Client: NewClient("s1", 1, discardLogger()), StartedAt: time.Now()}
	h.Register(s)
	waitFor(t, func() bool { return h.Count() == 1 })

	if got, ok := h.Lookup("s1"); !ok || got != s {
		t.Fatal("session not found after register")
	}

	h.Unregister(s)
	waitFor(t, func() bool { return h.Count() == 0 })

	if _, ok := h.Lookup("s1"); ok {
		t.Error("session still present after unregister")
	}
	if s.Client.Enqueue(Message{Type: "pong"}) {
		t.Error("client left open after unregister")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
