// Package display formats rectangle corners for the coordinate fields.
package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"segmap/internal/domain"
	"segmap/internal/mapview"
)

var ErrUnreadable = errors.New("coordinate text unreadable")

// FormatCorner renders a corner as "lat, lng" with 4 decimal digits.
func FormatCorner(c domain.LatLng) string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

// Show writes both corners of box into the coordinate fields.
func Show(s mapview.Surface, box domain.BoundingBox) {
	s.SetPanel(mapview.PanelSWCoords, mapview.Text(FormatCorner(box.Southwest)))
	s.SetPanel(mapview.PanelNECoords, mapview.Text(FormatCorner(box.Northeast)))
}

// ParseCorner reads back text produced by FormatCorner.
func ParseCorner(text string) (domain.LatLng, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return domain.LatLng{}, fmt.Errorf("%w: %q", ErrUnreadable, text)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("%w: latitude %q", ErrUnreadable, parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("%w: longitude %q", ErrUnreadable, parts[1])
	}
	return domain.LatLng{Lat: lat, Lng: lng}, nil
}

// PanelReader exposes the current text of display panels.
type PanelReader interface {
	PanelText(id mapview.PanelID) []string
}

// ReadBounds recovers a box from the coordinate fields. The result carries
// only the displayed precision.
func ReadBounds(r PanelReader) (domain.BoundingBox, error) {
	sw, err := readField(r, mapview.PanelSWCoords)
	if err != nil {
		return domain.BoundingBox{}, err
	}
	ne, err := readField(r, mapview.PanelNECoords)
	if err != nil {
		return domain.BoundingBox{}, err
	}
	return domain.BoundingBox{Southwest: sw, Northeast: ne}, nil
}

func readField(r PanelReader, id mapview.PanelID) (domain.LatLng, error) {
	lines := r.PanelText(id)
	if len(lines) == 0 {
		return domain.LatLng{}, fmt.Errorf("%w: %s is empty", ErrUnreadable, id)
	}
	return ParseCorner(lines[0])
}
