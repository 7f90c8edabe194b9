// Package selector wraps the rectangle drawing capability. At most one
// rectangle is active at a time.
package selector

import (
	"sync"

	"segmap/internal/domain"
	"segmap/internal/mapview"
)

const (
	rectangleColor  = "#ff7800"
	rectangleWeight = 2
)

type Kind string

const (
	Committed Kind = "committed"
	Edited    Kind = "edited"
)

// Event is emitted once per completed rectangle change.
type Event struct {
	Kind Kind
	Box  domain.BoundingBox
}

// Listener receives every committed or edited rectangle.
type Listener func(ev Event)

type Selector struct {
	surface  mapview.Surface
	listener Listener

	mu     sync.Mutex
	active *domain.BoundingBox
}

func New(surface mapview.Surface, listener Listener) *Selector {
	return &Selector{surface: surface, listener: listener}
}

// Commit replaces any previous rectangle with a newly drawn one.
func (s *Selector) Commit(sw, ne domain.LatLng) {
	s.set(Committed, domain.BoundingBox{Southwest: sw, Northeast: ne})
}

// Edit moves or resizes the active rectangle. Without an active rectangle it
// behaves like Commit.
func (s *Selector) Edit(sw, ne domain.LatLng) {
	kind := Edited
	if _, ok := s.Active(); !ok {
		kind = Committed
	}
	s.set(kind, domain.BoundingBox{Southwest: sw, Northeast: ne})
}

// Active returns the current rectangle, if any.
func (s *Selector) Active() (domain.BoundingBox, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.BoundingBox{}, false
	}
	return *s.active, true
}

// Clear removes the active rectangle without notifying the listener.
func (s *Selector) Clear() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
	s.surface.ReplaceLayer(mapview.LayerRectangle, nil)
}

func (s *Selector) set(kind Kind, box domain.BoundingBox) {
	s.mu.Lock()
	s.active = &box
	s.mu.Unlock()

	s.surface.ReplaceLayer(mapview.LayerRectangle, []mapview.Shape{{
		Geometry: box.Bound(),
		Color:    rectangleColor,
		Weight:   rectangleWeight,
	}})

	if s.listener != nil {
		s.listener(Event{Kind: kind, Box: box})
	}
}
