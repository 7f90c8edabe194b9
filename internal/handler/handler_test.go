package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"segmap/internal/domain"
	"segmap/internal/hub"
	"segmap/internal/orchestrator"
)

type stubFetcher struct{}

func (stubFetcher) FetchSegments(ctx context.Context, box domain.BoundingBox) (domain.SegmentSet, error) {
	return domain.SegmentSet{{
		Name:     "Broadway",
		Distance: 1200,
		Points:   []domain.LatLng{{Lat: 40.71, Lng: -74.0}, {Lat: 40.72, Lng: -73.99}},
	}}, nil
}

func (stubFetcher) FetchBestPath(ctx context.Context, box domain.BoundingBox, segments domain.SegmentSet) (*domain.PathResult, error) {
	return &domain.PathResult{
		Path:            []domain.LatLng{{Lat: 40.71, Lng: -74.0}, {Lat: 40.72, Lng: -73.99}},
		Segments:        []domain.PathSpan{{StartIdx: 0, EndIdx: 1, Color: "#ff0000", Order: 1, Name: "Broadway"}},
		TotalDistance:   1200,
		SegmentsCovered: 1,
	}, nil
}

type fixedReadiness bool

func (f fixedReadiness) Installed() bool { return bool(f) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(nil, discardLogger())
	go h.Run(ctx)

	ws := NewWSHandler(h, stubFetcher{}, orchestrator.Options{}, 64, discardLogger())
	sessions := NewSessionHandler(h)

	r := chi.NewRouter()
	r.Get("/v1/ws", ws.ServeWS)
	r.Get("/v1/sessions/{id}", sessions.GetSession)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, h
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(inbound) bool) inbound {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding %s: %v", data, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebsocket_draw_runs_pipeline(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := readUntil(t, ctx, conn, func(m inbound) bool { return m.Type == "session" })
	var session hub.SessionPayload
	if err := json.Unmarshal(first.Payload, &session); err != nil || session.ID == "" {
		t.Fatalf("session payload %s: %v", first.Payload, err)
	}

	draw := `{"type":"draw:created","payload":{"southwest":{"lat":40.70,"lng":-74.02},"northeast":{"lat":40.78,"lng":-73.95}}}`
	if err := conn.Write(ctx, websocket.MessageText, []byte(draw)); err != nil {
		t.Fatalf("write: %v", err)
	}

	readUntil(t, ctx, conn, func(m inbound) bool {
		if m.Type != "panel" {
			return false
		}
		var p hub.PanelPayload
		json.Unmarshal(m.Payload, &p)
		return p.Panel == "path-details" && len(p.Items) == 2
	})

	// The snapshot is published right after the last redraw, so poll briefly.
	var body SessionResponse
	for body.Pipeline.State != "path_ready" {
		body = getSession(t, ctx, srv.URL+"/v1/sessions/"+session.ID)
		if body.Pipeline.State != "path_ready" {
			time.Sleep(5 * time.Millisecond)
		}
	}
	if body.Pipeline.Segments != 1 {
		t.Errorf("pipeline = %+v", body.Pipeline)
	}
	if body.Layers["segments"] != 1 || body.Layers["path"] != 1 || body.Layers["rectangle"] != 1 {
		t.Errorf("layers = %v", body.Layers)
	}
	if got := body.Panels["sw-coords"]; len(got) != 1 || got[0] != "40.7000, -74.0200" {
		t.Errorf("sw-coords = %v", got)
	}
}

func getSession(t *testing.T, ctx context.Context, url string) SessionResponse {
	t.Helper()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	return body
}

func TestWebsocket_ping(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, ctx, conn, func(m inbound) bool { return m.Type == "pong" })
}

func TestGetSession_not_found(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/sessions/unknown")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestReadyz(t *testing.T) {
	h := hub.NewHub(nil, discardLogger())

	rec := httptest.NewRecorder()
	NewHealthHandler(fixedReadiness(false), h).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not installed: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(fixedReadiness(true), h).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("installed: status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["ready"] != true {
		t.Errorf("body = %+v, %v", body, err)
	}
	if _, ok := body["assetsCached"]; ok {
		t.Error("readiness body repeats the ready flag")
	}
}

func TestCORSMiddleware_preflight(t *testing.T) {
	called := false
	h := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/sessions/x", nil))
	if called || rec.Code != http.StatusOK {
		t.Errorf("preflight reached handler=%v status=%d", called, rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
