// Package render draws segment sets and best paths onto a mapview.Surface.
package render

import (
	"fmt"
	"strconv"

	"segmap/internal/domain"
	"segmap/internal/mapview"
)

const (
	SegmentWeight = 3
	PathWeight    = 6

	NoSegmentsText = "No segments found."
)

// Palette is the fixed color cycle for raw segments.
var Palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
	"#bcf60c", "#fabebe", "#008080", "#9a6324",
}

// SegmentColor returns the display color for the segment at index i.
func SegmentColor(i int) string {
	return Palette[i%len(Palette)]
}

// SegmentLabel is the popup and list text for a segment.
func SegmentLabel(s domain.Segment) string {
	return fmt.Sprintf("%s: %s meters", s.Name, formatNumber(s.Distance))
}

// SegmentRenderer owns the segment layer and list panel. It is the point of
// record for the segments currently on screen.
type SegmentRenderer struct {
	surface mapview.Surface
	current domain.SegmentSet
}

func NewSegmentRenderer(surface mapview.Surface) *SegmentRenderer {
	return &SegmentRenderer{surface: surface}
}

// Render replaces the segment layer and list with set.
func (r *SegmentRenderer) Render(set domain.SegmentSet) {
	shapes := make([]mapview.Shape, 0, len(set))
	items := make([]mapview.Item, 0, len(set))

	for i, seg := range set {
		color := SegmentColor(i)
		label := SegmentLabel(seg)
		items = append(items, mapview.Item{Text: label, Color: color})

		if len(seg.Points) == 0 {
			continue
		}
		shapes = append(shapes, mapview.Shape{
			Geometry: seg.LineString(),
			Color:    color,
			Weight:   SegmentWeight,
			Popup:    label,
		})
	}

	if len(set) == 0 {
		items = mapview.Text(NoSegmentsText)
	}

	r.surface.ReplaceLayer(mapview.LayerSegments, shapes)
	r.surface.SetPanel(mapview.PanelSegmentList, items)

	r.current = set
	if r.current == nil {
		r.current = domain.SegmentSet{}
	}
}

// ShowError puts an inline error in the list panel. The layer is left as is.
func (r *SegmentRenderer) ShowError(err error) {
	r.surface.SetPanel(mapview.PanelSegmentList, mapview.Text("Could not load segments: "+err.Error()))
}

// Current returns the last rendered set, or nil if nothing was rendered yet.
func (r *SegmentRenderer) Current() domain.SegmentSet {
	return r.current
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
