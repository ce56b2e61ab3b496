package geo

import (
	"fmt"
	"math"
)

// GeoPoint is a coordinate stored as integer microdegrees.
type GeoPoint struct {
	LatE6 int `json:"latE6"`
	LngE6 int `json:"lngE6"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{
		LatE6: int(math.Round(lat * 1e6)),
		LngE6: int(math.Round(lng * 1e6)),
	}
}

func (p GeoPoint) Lat() float64 { return float64(p.LatE6) / 1e6 }
func (p GeoPoint) Lng() float64 { return float64(p.LngE6) / 1e6 }

func (p GeoPoint) String() string {
	return fmt.Sprintf("GeoPoint[%f, %f]", p.Lat(), p.Lng())
}

// Pixel is a position in screen space, origin at the top-left corner of the viewport.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pixel) Offset(dx, dy int) Pixel {
	return Pixel{X: p.X + dx, Y: p.Y + dy}
}

// Projection converts between geographic and screen coordinates for the
// current viewport. Implementations are only valid until the viewport moves.
type Projection interface {
	ToPixels(p GeoPoint) Pixel
	FromPixels(px Pixel) GeoPoint
}

// Region describes the visible area of a viewport: its center and its
// latitude/longitude spans. Two regions are equal when all four fields are.
type Region struct {
	LatE6     int `json:"latE6"`
	LngE6     int `json:"lngE6"`
	LatSpanE6 int `json:"latSpanE6"`
	LngSpanE6 int `json:"lngSpanE6"`
}

func (r Region) Center() GeoPoint {
	return GeoPoint{LatE6: r.LatE6, LngE6: r.LngE6}
}

func (r Region) IsEmpty() bool {
	return r.LatSpanE6 <= 0 || r.LngSpanE6 <= 0
}

// Contains reports whether p lies inside the region. Longitude wrapping is
// not taken into account.
func (r Region) Contains(p GeoPoint) bool {
	halfLat := r.LatSpanE6 / 2
	halfLng := r.LngSpanE6 / 2
	return p.LatE6 >= r.LatE6-halfLat && p.LatE6 <= r.LatE6+halfLat &&
		p.LngE6 >= r.LngE6-halfLng && p.LngE6 <= r.LngE6+halfLng
}

func (r Region) String() string {
	return fmt.Sprintf("Region[%d, %d, %d, %d]", r.LatE6, r.LngE6, r.LatSpanE6, r.LngSpanE6)
}
