package domain

import "github.com/paulmach/orb"

// Segment is a named line feature returned by the segment lookup backend
type Segment struct {
	Name     string   `json:"name"`
	Distance float64  `json:"distance"`
	Points   []LatLng `json:"points"`
}

// LineString returns the segment geometry.
func (s Segment) LineString() orb.LineString {
	return LineString(s.Points)
}

// SegmentSet is the ordered result of one segment lookup. Index positions are
// stable for the whole query cycle. A nil set means no lookup has succeeded.
type SegmentSet []Segment

// Drawable returns the number of segments with at least one point.
func (s SegmentSet) Drawable() int {
	n := 0
	for _, seg := range s {
		if len(seg.Points) > 0 {
			n++
		}
	}
	return n
}

// PathSpan is one colored stretch of the best path. StartIdx and EndIdx are
// inclusive indices into PathResult.Path.
type PathSpan struct {
	StartIdx int    `json:"start_idx"`
	EndIdx   int    `json:"end_idx"`
	Color    string `json:"color"`
	Order    int    `json:"order"`
	Name     string `json:"name"`
}

// Valid reports whether the span indexes a path of length n.
func (s PathSpan) Valid(n int) bool {
	return s.StartIdx >= 0 && s.StartIdx <= s.EndIdx && s.EndIdx < n
}

// PathResult is the best-path backend answer. Any field may be missing.
type PathResult struct {
	Path            []LatLng   `json:"path"`
	Segments        []PathSpan `json:"segments"`
	TotalDistance   float64    `json:"total_distance"`
	SegmentsCovered float64    `json:"segments_covered"`
}

// Slice returns the inclusive path slice covered by span, or nil when the
// span does not fit the path.
func (r *PathResult) Slice(span PathSpan) []LatLng {
	if r == nil || !span.Valid(len(r.Path)) {
		return nil
	}
	return r.Path[span.StartIdx : span.EndIdx+1]
}

// LineString converts points to an orb.LineString.
func LineString(points []LatLng) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, p.Point())
	}
	return ls
}
