// Package orchestrator runs the per-session pipeline: rectangle → segments →
// best path. All state changes happen on the goroutine running Run.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"segmap/internal/display"
	"segmap/internal/domain"
	"segmap/internal/mapview"
	"segmap/internal/metrics"
	"segmap/internal/render"
	"segmap/internal/selector"
	"segmap/pkg/segmentapi"
)

// ErrStaleResult marks a fetch result that arrived after a newer rectangle.
// It is never shown to the user.
var ErrStaleResult = errors.New("stale result")

// Fetcher is the backend capability used by the pipeline.
type Fetcher interface {
	FetchSegments(ctx context.Context, box domain.BoundingBox) (domain.SegmentSet, error)
	FetchBestPath(ctx context.Context, box domain.BoundingBox, segments domain.SegmentSet) (*domain.PathResult, error)
}

type Options struct {
	// QueryEmptySegments still requests a best path when the lookup
	// returned no segments. By default an empty set ends the cycle.
	QueryEmptySegments bool
	Metrics            *metrics.Metrics
	Logger             *slog.Logger
}

type Orchestrator struct {
	fetcher    Fetcher
	surface    mapview.Surface
	reader     display.PanelReader
	segments   *render.SegmentRenderer
	path       *render.PathRenderer
	queryEmpty bool
	metrics    *metrics.Metrics
	logger     *slog.Logger

	events chan event
	done   chan struct{}

	// owned by the loop goroutine
	state      State
	generation uint64
	box        *domain.BoundingBox

	// box the rendered segments were fetched for
	segmentsBox *domain.BoundingBox

	snapMu   sync.RWMutex
	snapshot Snapshot
}

// New wires an orchestrator drawing into surface. reader must reflect what
// surface currently displays; it backs the coordinate-text fallback.
func New(fetcher Fetcher, surface mapview.Surface, reader display.PanelReader, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "orchestrator")

	return &Orchestrator{
		fetcher:    fetcher,
		surface:    surface,
		reader:     reader,
		segments:   render.NewSegmentRenderer(surface),
		path:       render.NewPathRenderer(surface, logger),
		queryEmpty: opts.QueryEmptySegments,
		metrics:    opts.Metrics,
		logger:     logger,
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		snapshot:   Snapshot{State: Idle.String()},
	}
}

// Run processes events until ctx is cancelled. It must be called once.
func (o *Orchestrator) Run(ctx context.Context) {
	defer close(o.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.events:
			o.handle(ctx, ev)
		}
	}
}

// RectangleChanged feeds a selector event into the pipeline. It is a
// selector.Listener and may be called from any goroutine.
func (o *Orchestrator) RectangleChanged(ev selector.Event) {
	o.post(rectangleEvent{kind: ev.Kind, box: ev.Box})
}

// RequeryPath re-runs the best-path stage for the segments on screen.
func (o *Orchestrator) RequeryPath() {
	o.post(requeryEvent{})
}

// Snapshot returns the latest pipeline state. Safe for concurrent use.
func (o *Orchestrator) Snapshot() Snapshot {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.snapshot
}

func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case rectangleEvent:
		o.onRectangle(ctx, e)
	case segmentsDone:
		o.onSegments(ctx, e)
	case pathDone:
		o.onPath(e)
	case requeryEvent:
		o.onRequery(ctx)
	}
	o.publish()
}

func (o *Orchestrator) onRectangle(ctx context.Context, e rectangleEvent) {
	o.generation++
	gen := o.generation

	display.Show(o.surface, e.box)

	if err := e.box.Validate(); err != nil {
		o.logger.Warn("rejecting rectangle", "kind", e.kind, "generation", gen, "error", err)
		o.box = nil
		o.segments.ShowError(err)
		o.setState(Idle)
		return
	}

	box := e.box.Normalize()
	o.box = &box
	o.setState(AwaitingSegments)

	o.logger.Debug("rectangle changed",
		"kind", e.kind,
		"generation", gen,
		"southwest", display.FormatCorner(box.Southwest),
		"northeast", display.FormatCorner(box.Northeast),
	)

	go func() {
		start := time.Now()
		set, err := o.fetcher.FetchSegments(ctx, box)
		o.metrics.ObserveFetch(metrics.StageSegments, time.Since(start).Seconds(), err)
		o.post(segmentsDone{gen: gen, box: box, set: set, err: err})
	}()
}

func (o *Orchestrator) onSegments(ctx context.Context, e segmentsDone) {
	if e.gen != o.generation {
		o.discard(metrics.StageSegments, e.gen)
		return
	}

	if e.err != nil {
		o.logger.Error("segment fetch failed", "generation", e.gen, "error", e.err)
		o.segments.ShowError(e.err)
		o.setState(Idle)
		return
	}

	o.segments.Render(e.set)
	box := e.box
	o.segmentsBox = &box
	o.setState(SegmentsReady)
	o.logger.Info("segments rendered",
		"generation", e.gen,
		"count", len(e.set),
		"drawn", e.set.Drawable(),
	)

	o.startPath(ctx, e.gen, e.box)
}

func (o *Orchestrator) startPath(ctx context.Context, gen uint64, box domain.BoundingBox) {
	set := o.segments.Current()
	if set == nil {
		o.logger.Warn("best path not requested", "generation", gen, "error", segmentapi.ErrPreconditionMissing)
		return
	}
	if len(set) == 0 && !o.queryEmpty {
		o.logger.Debug("no segments, skipping best path", "generation", gen)
		o.path.Clear()
		return
	}

	o.setState(AwaitingPath)

	go func() {
		start := time.Now()
		result, err := o.fetcher.FetchBestPath(ctx, box, set)
		o.metrics.ObserveFetch(metrics.StagePath, time.Since(start).Seconds(), err)
		o.post(pathDone{gen: gen, result: result, err: err})
	}()
}

func (o *Orchestrator) onPath(e pathDone) {
	if e.gen != o.generation {
		o.discard(metrics.StagePath, e.gen)
		return
	}

	if e.err != nil {
		o.logger.Error("best path fetch failed", "generation", e.gen, "error", e.err)
		o.path.ShowError(e.err)
		o.setState(SegmentsReady)
		return
	}

	o.path.Render(e.result)
	o.setState(PathReady)
	if e.result != nil {
		o.logger.Info("best path rendered",
			"generation", e.gen,
			"points", len(e.result.Path),
			"spans", len(e.result.Segments),
		)
	}
}

func (o *Orchestrator) onRequery(ctx context.Context) {
	if o.state == AwaitingSegments {
		o.logger.Debug("path refresh ignored while segments are loading")
		return
	}

	// A newer rectangle whose lookup failed or was rejected must not be
	// paired with segments fetched for an older one.
	var box domain.BoundingBox
	if o.segmentsBox != nil {
		box = *o.segmentsBox
	} else {
		// Recover from the displayed text; failures abort quietly.
		recovered, err := display.ReadBounds(o.reader)
		if err == nil {
			err = recovered.Validate()
		}
		if err != nil {
			o.logger.Debug("path refresh aborted", "error", err)
			return
		}
		box = recovered.Normalize()
	}

	if o.segments.Current() == nil {
		o.logger.Warn("path refresh without segments", "error", segmentapi.ErrPreconditionMissing)
		return
	}

	o.generation++
	o.startPath(ctx, o.generation, box)
}

func (o *Orchestrator) discard(stage string, gen uint64) {
	o.metrics.IncStale(stage)
	o.logger.Debug("discarding result",
		"stage", stage,
		"generation", gen,
		"current", o.generation,
		"reason", ErrStaleResult,
	)
}

func (o *Orchestrator) setState(s State) {
	o.state = s
}

func (o *Orchestrator) publish() {
	snap := Snapshot{
		State:      o.state.String(),
		Generation: o.generation,
		Segments:   len(o.segments.Current()),
	}
	if o.box != nil {
		b := *o.box
		snap.Box = &b
	}

	o.snapMu.Lock()
	o.snapshot = snap
	o.snapMu.Unlock()
}
