package geo

import (
	"math"
)

const (
	TileSize = 256
	MinZoom  = 1
	MaxZoom  = 21

	// MaxLatitude is the latitude at which the Web Mercator square ends.
	MaxLatitude = 85.05112878
)

// Viewport is a Web Mercator camera over the map: a center, an integer zoom
// level and a pixel size. It implements Projection for the current camera.
type Viewport struct {
	Center GeoPoint `json:"center"`
	Zoom   int      `json:"zoom"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

func NewViewport(center GeoPoint, zoom, width, height int) *Viewport {
	v := &Viewport{Center: center, Zoom: zoom, Width: width, Height: height}
	v.Zoom = clampZoom(v.Zoom)
	return v
}

func clampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

func (v *Viewport) scale() float64 {
	return math.Pow(2, float64(v.Zoom)) * TileSize
}

// projectFast converts a coordinate to world pixel coordinates at the
// viewport's zoom level.
func (v *Viewport) projectFast(p GeoPoint) (float64, float64) {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, p.Lat()))
	sin := math.Sin(lat * math.Pi / 180)
	x := (p.Lng() + 180) / 360
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi

	scale := v.scale()
	return x * scale, y * scale
}

// unprojectFast converts world pixel coordinates back to a coordinate.
func (v *Viewport) unprojectFast(x, y float64) GeoPoint {
	scale := v.scale()

	x = x / scale
	y = y / scale

	lng := x*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi

	return NewGeoPoint(lat, lng)
}

func (v *Viewport) ToPixels(p GeoPoint) Pixel {
	cx, cy := v.projectFast(v.Center)
	x, y := v.projectFast(p)
	return Pixel{
		X: int(math.Round(x - cx + float64(v.Width)/2)),
		Y: int(math.Round(y - cy + float64(v.Height)/2)),
	}
}

func (v *Viewport) FromPixels(px Pixel) GeoPoint {
	cx, cy := v.projectFast(v.Center)
	return v.unprojectFast(
		cx+float64(px.X)-float64(v.Width)/2,
		cy+float64(px.Y)-float64(v.Height)/2,
	)
}

// Region returns the descriptor of the area currently shown.
func (v *Viewport) Region() Region {
	topLeft := v.FromPixels(Pixel{X: 0, Y: 0})
	bottomRight := v.FromPixels(Pixel{X: v.Width, Y: v.Height})
	return Region{
		LatE6:     v.Center.LatE6,
		LngE6:     v.Center.LngE6,
		LatSpanE6: topLeft.LatE6 - bottomRight.LatE6,
		LngSpanE6: int(math.Round(float64(v.Width) / v.scale() * 360 * 1e6)),
	}
}

func (v *Viewport) SetCenter(p GeoPoint) {
	v.Center = p
}

func (v *Viewport) SetSize(width, height int) {
	v.Width = width
	v.Height = height
}

// ScrollBy pans the camera by the given number of pixels.
func (v *Viewport) ScrollBy(dx, dy int) {
	v.Center = v.FromPixels(Pixel{X: v.Width/2 + dx, Y: v.Height/2 + dy})
}

func (v *Viewport) ZoomIn() bool {
	return v.SetZoom(v.Zoom + 1)
}

func (v *Viewport) ZoomOut() bool {
	return v.SetZoom(v.Zoom - 1)
}

// SetZoom changes the zoom level and reports whether it actually changed.
func (v *Viewport) SetZoom(zoom int) bool {
	zoom = clampZoom(zoom)
	if zoom == v.Zoom {
		return false
	}
	v.Zoom = zoom
	return true
}

// ZoomInFixing zooms in one level while keeping the coordinate under px at
// the same screen position.
func (v *Viewport) ZoomInFixing(px Pixel) bool {
	anchor := v.FromPixels(px)
	if !v.ZoomIn() {
		return false
	}
	moved := v.ToPixels(anchor)
	v.ScrollBy(moved.X-px.X, moved.Y-px.Y)
	return true
}

// ZoomToSpan picks the highest zoom level at which the viewport still shows
// at least the given spans around the current center.
func (v *Viewport) ZoomToSpan(latSpanE6, lngSpanE6 int) {
	for zoom := MaxZoom; zoom >= MinZoom; zoom-- {
		v.Zoom = zoom
		r := v.Region()
		if r.LatSpanE6 >= latSpanE6 && r.LngSpanE6 >= lngSpanE6 {
			return
		}
	}
}
