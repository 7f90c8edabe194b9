package orchestrator

import (
	"segmap/internal/domain"
	"segmap/internal/selector"
)

// State is the pipeline position of a session.
type State int

const (
	Idle State = iota
	AwaitingSegments
	SegmentsReady
	AwaitingPath
	PathReady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSegments:
		return "awaiting_segments"
	case SegmentsReady:
		return "segments_ready"
	case AwaitingPath:
		return "awaiting_path"
	case PathReady:
		return "path_ready"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of a session's pipeline.
type Snapshot struct {
	State      string              `json:"state"`
	Generation uint64              `json:"generation"`
	Box        *domain.BoundingBox `json:"box,omitempty"`
	Segments   int                 `json:"segments"`
}

type event interface{ isEvent() }

type rectangleEvent struct {
	kind selector.Kind
	box  domain.BoundingBox
}

type segmentsDone struct {
	gen uint64
	box domain.BoundingBox
	set domain.SegmentSet
	err error
}

type pathDone struct {
	gen    uint64
	result *domain.PathResult
	err    error
}

type requeryEvent struct{}

func (rectangleEvent) isEvent() {}
func (segmentsDone) isEvent()   {}
func (pathDone) isEvent()       {}
func (requeryEvent) isEvent()   {}
