// Package segmentapi talks to the segment lookup and best-path backends.
package segmentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"segmap/internal/domain"
)

const (
	segmentsPath = "/update-segments"
	bestPathPath = "/best-path"
)

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a client for the backend at baseURL. A zero timeout lets a
// request wait for as long as the caller's context allows.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With("component", "segment_api"),
	}
}

type pathRequest struct {
	Southwest domain.LatLng     `json:"southwest"`
	Northeast domain.LatLng     `json:"northeast"`
	Segments  domain.SegmentSet `json:"segments"`
}

// FetchSegments asks the backend for the segments inside box.
func (c *Client) FetchSegments(ctx context.Context, box domain.BoundingBox) (domain.SegmentSet, error) {
	body, err := c.post(ctx, segmentsPath, box)
	if err != nil {
		return nil, err
	}

	payload, err := ParseSegments(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("segments decoded",
		"variant", payload.Variant.String(),
		"count", len(payload.Segments),
	)
	return payload.Segments, nil
}

// FetchBestPath asks the backend to order segments inside box. A nil
// segment set is rejected before any request is made.
func (c *Client) FetchBestPath(ctx context.Context, box domain.BoundingBox, segments domain.SegmentSet) (*domain.PathResult, error) {
	if segments == nil {
		return nil, ErrPreconditionMissing
	}

	body, err := c.post(ctx, bestPathPath, pathRequest{
		Southwest: box.Southwest,
		Northeast: box.Northeast,
		Segments:  segments,
	})
	if err != nil {
		return nil, err
	}
	return ParsePath(body)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("backend response",
		"path", path,
		"status_code", resp.StatusCode,
		"size_bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return body, nil
}
