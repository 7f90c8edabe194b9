// Package mapview models the drawing surface the pipeline renders into:
// three overlay layers on the map and a handful of text panels.
package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type LayerID string

const (
	LayerRectangle LayerID = "rectangle"
	LayerSegments  LayerID = "segments"
	LayerPath      LayerID = "path"
)

type PanelID string

const (
	PanelSWCoords    PanelID = "sw-coords"
	PanelNECoords    PanelID = "ne-coords"
	PanelSegmentList PanelID = "segment-list"
	PanelPathDetails PanelID = "path-details"
	PanelLegend      PanelID = "legend"
)

// Shape is one drawable on a layer. Geometry is an orb.Bound for rectangles
// and an orb.LineString for polylines.
type Shape struct {
	Geometry orb.Geometry
	Color    string
	Weight   int
	Popup    string
}

// Feature encodes the shape as a GeoJSON feature carrying its style.
func (s Shape) Feature() *geojson.Feature {
	geom := s.Geometry
	if b, ok := geom.(orb.Bound); ok {
		geom = b.ToPolygon()
	}
	f := geojson.NewFeature(geom)
	if s.Color != "" {
		f.Properties["color"] = s.Color
	}
	if s.Weight > 0 {
		f.Properties["weight"] = s.Weight
	}
	if s.Popup != "" {
		f.Properties["popup"] = s.Popup
	}
	return f
}

// FeatureCollection encodes a layer's shapes.
func FeatureCollection(shapes []Shape) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range shapes {
		fc.Append(s.Feature())
	}
	return fc
}

// Item is one line of panel content. Color is set for legend entries.
type Item struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// Text builds single-line panel content.
func Text(s string) []Item {
	return []Item{{Text: s}}
}

// Surface is the drawing capability. Each call replaces the whole content of
// one layer or panel, so a redraw is never observable half done.
type Surface interface {
	ReplaceLayer(id LayerID, shapes []Shape)
	SetPanel(id PanelID, items []Item)
}

// Tee fans every call out to all surfaces in order.
type Tee []Surface

func (t Tee) ReplaceLayer(id LayerID, shapes []Shape) {
	for _, s := range t {
		s.ReplaceLayer(id, shapes)
	}
}

func (t Tee) SetPanel(id PanelID, items []Item) {
	for _, s := range t {
		s.SetPanel(id, items)
	}
}
