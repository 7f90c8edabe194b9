package render

import (
	"fmt"
	"log/slog"
	"math"

	"segmap/internal/domain"
	"segmap/internal/mapview"
)

// PathRenderer owns the path layer, the details panel and the legend.
type PathRenderer struct {
	surface mapview.Surface
	logger  *slog.Logger
}

func NewPathRenderer(surface mapview.Surface, logger *slog.Logger) *PathRenderer {
	return &PathRenderer{surface: surface, logger: logger}
}

// Render replaces the path layer, legend and details with result.
func (r *PathRenderer) Render(result *domain.PathResult) {
	if result == nil {
		result = &domain.PathResult{}
	}

	var shapes []mapview.Shape
	legend := make([]mapview.Item, 0, len(result.Segments))

	for _, span := range result.Segments {
		legend = append(legend, mapview.Item{
			Text:  fmt.Sprintf("%d. %s", span.Order, span.Name),
			Color: span.Color,
		})

		if !span.Valid(len(result.Path)) {
			r.logger.Warn("skipping path span out of range",
				"name", span.Name,
				"start_idx", span.StartIdx,
				"end_idx", span.EndIdx,
				"path_len", len(result.Path),
			)
			continue
		}
		pts := result.Slice(span)
		if len(pts) < 2 {
			continue
		}
		shapes = append(shapes, mapview.Shape{
			Geometry: domain.LineString(pts),
			Color:    span.Color,
			Weight:   PathWeight,
			Popup:    span.Name,
		})
	}

	r.surface.ReplaceLayer(mapview.LayerPath, shapes)
	r.surface.SetPanel(mapview.PanelLegend, legend)
	r.surface.SetPanel(mapview.PanelPathDetails, details(result))
}

// Clear empties the path layer, legend and details.
func (r *PathRenderer) Clear() {
	r.surface.ReplaceLayer(mapview.LayerPath, nil)
	r.surface.SetPanel(mapview.PanelLegend, nil)
	r.surface.SetPanel(mapview.PanelPathDetails, nil)
}

// ShowError writes an inline error into the details panel. The path layer and
// legend keep whatever the last successful render drew.
func (r *PathRenderer) ShowError(err error) {
	r.surface.SetPanel(mapview.PanelPathDetails, mapview.Text("Best path unavailable: "+err.Error()))
}

func details(result *domain.PathResult) []mapview.Item {
	return []mapview.Item{
		{Text: fmt.Sprintf("Total distance: %s meters", formatNumber(math.Round(result.TotalDistance)))},
		{Text: fmt.Sprintf("Segments covered: %s", formatNumber(result.SegmentsCovered))},
	}
}
