package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidBoundingBox is returned when a box has non-finite or out of range corners.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// LatLng is a WGS84 coordinate
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UnmarshalJSON accepts both {"lat":..,"lng":..} and [lat, lng].
func (p *LatLng) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("coordinate pair must have 2 elements, got %d", len(pair))
		}
		p.Lat, p.Lng = pair[0], pair[1]
		return nil
	}

	type plain LatLng
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*p = LatLng(obj)
	return nil
}

// Point returns the coordinate in orb's lon/lat order.
func (p LatLng) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func (p LatLng) valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// BoundingBox is the rectangle drawn by the user
type BoundingBox struct {
	Southwest LatLng `json:"southwest"`
	Northeast LatLng `json:"northeast"`
}

// Validate checks that both corners are finite, in-range coordinates.
// Corner order is not checked here, see Normalize.
func (b BoundingBox) Validate() error {
	if !b.Southwest.valid() {
		return fmt.Errorf("%w: southwest %v", ErrInvalidBoundingBox, b.Southwest)
	}
	if !b.Northeast.valid() {
		return fmt.Errorf("%w: northeast %v", ErrInvalidBoundingBox, b.Northeast)
	}
	return nil
}

// Normalize returns the same region with corners ordered so that
// southwest is below and left of northeast.
func (b BoundingBox) Normalize() BoundingBox {
	return BoundingBox{
		Southwest: LatLng{
			Lat: math.Min(b.Southwest.Lat, b.Northeast.Lat),
			Lng: math.Min(b.Southwest.Lng, b.Northeast.Lng),
		},
		Northeast: LatLng{
			Lat: math.Max(b.Southwest.Lat, b.Northeast.Lat),
			Lng: math.Max(b.Southwest.Lng, b.Northeast.Lng),
		},
	}
}

// Ordered reports whether the southwest corner is below and left of northeast.
func (b BoundingBox) Ordered() bool {
	return b.Southwest.Lat <= b.Northeast.Lat && b.Southwest.Lng <= b.Northeast.Lng
}

// Bound converts the box to an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	n := b.Normalize()
	return orb.Bound{Min: n.Southwest.Point(), Max: n.Northeast.Point()}
}

// Contains checks if a point is within the bounding box
func (b BoundingBox) Contains(p LatLng) bool {
	return b.Bound().Contains(p.Point())
}
