package overlay

import (
	"math"

	"web/polaris/geo"
)

const (
	DefaultLocationHitRadius = 24
	metersPerDegree          = 111320.0
)

// LocationLayer draws the user's position and its accuracy circle.
type LocationLayer struct {
	BaseLayer

	HitRadius int
	OnTap     func(p geo.GeoPoint)

	enabled  bool
	located  bool
	location geo.GeoPoint
	accuracy float64
}

func NewLocationLayer() *LocationLayer {
	return &LocationLayer{HitRadius: DefaultLocationHitRadius}
}

func (l *LocationLayer) Enable()       { l.enabled = true }
func (l *LocationLayer) Disable()      { l.enabled = false }
func (l *LocationLayer) Enabled() bool { return l.enabled }

// SetLocation records a fix with its accuracy radius in meters.
func (l *LocationLayer) SetLocation(p geo.GeoPoint, accuracy float64) {
	l.location = p
	l.accuracy = accuracy
	l.located = true
}

func (l *LocationLayer) Location() (geo.GeoPoint, bool) {
	return l.location, l.located
}

func (l *LocationLayer) Accuracy() float64 {
	return l.accuracy
}

func (l *LocationLayer) visible() bool {
	return l.enabled && l.located
}

func (l *LocationLayer) accuracyPx(proj geo.Projection) int {
	if l.accuracy <= 0 {
		return 0
	}
	edge := geo.NewGeoPoint(l.location.Lat()+l.accuracy/metersPerDegree, l.location.Lng())
	center := proj.ToPixels(l.location)
	return int(math.Abs(float64(center.Y - proj.ToPixels(edge).Y)))
}

func (l *LocationLayer) Draw(c Canvas, proj geo.Projection) {
	if !l.visible() {
		return
	}
	c.DrawLocation(proj.ToPixels(l.location), l.accuracyPx(proj))
}

func (l *LocationLayer) HandleTap(px geo.Pixel, proj geo.Projection) bool {
	if !l.visible() {
		return false
	}
	center := proj.ToPixels(l.location)
	dx := float64(px.X - center.X)
	dy := float64(px.Y - center.Y)
	if math.Hypot(dx, dy) > float64(l.HitRadius) {
		return false
	}
	if l.OnTap != nil {
		l.OnTap(l.location)
	}
	return true
}
