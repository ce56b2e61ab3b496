package overlay

import (
	"web/polaris/annotation"
	"web/polaris/geo"
)

// Canvas receives draw calls. Rendering itself happens elsewhere.
type Canvas interface {
	DrawMarker(item *annotation.Annotation, marker annotation.Marker, bounds annotation.Bounds, at geo.Pixel, selected bool)
	DrawLocation(at geo.Pixel, accuracyPx int)
}

type TouchAction int

const (
	TouchDown TouchAction = iota
	TouchMove
	TouchUp
	TouchCancel
)

func (a TouchAction) String() string {
	switch a {
	case TouchDown:
		return "down"
	case TouchMove:
		return "move"
	case TouchUp:
		return "up"
	default:
		return "cancel"
	}
}

type TouchEvent struct {
	Action TouchAction `json:"action"`
	Pixel  geo.Pixel   `json:"pixel"`
}

// Layer is one drawable, interactive level of the map. The gesture handlers
// return true when they consumed the gesture.
type Layer interface {
	Draw(c Canvas, proj geo.Projection)
	HandleTap(px geo.Pixel, proj geo.Projection) bool
	HandleDoubleTap(px geo.Pixel, proj geo.Projection) bool
	HandleLongPress(px geo.Pixel, proj geo.Projection) bool
	HandleTouch(ev TouchEvent, proj geo.Projection) bool
}

// BaseLayer implements Layer without drawing or consuming anything. Embed it
// to implement only the handlers a layer cares about.
type BaseLayer struct{}

func (BaseLayer) Draw(Canvas, geo.Projection) {}
func (BaseLayer) HandleTap(geo.Pixel, geo.Projection) bool { return false }
func (BaseLayer) HandleDoubleTap(geo.Pixel, geo.Projection) bool { return false }
func (BaseLayer) HandleLongPress(geo.Pixel, geo.Projection) bool { return false }
func (BaseLayer) HandleTouch(TouchEvent, geo.Projection) bool { return false }
