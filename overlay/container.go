package overlay

import (
	"errors"
	"fmt"

	"web/polaris/geo"
)

var (
	ErrNilCallback     = errors.New("callback must not be nil")
	ErrIndexOutOfRange = errors.New("layer index out of range")
)

// GestureCallback receives the gestures no layer consumed.
type GestureCallback interface {
	OnBackgroundTap(px geo.Pixel, p geo.GeoPoint)
	OnBackgroundDoubleTap(px geo.Pixel, p geo.GeoPoint)
	OnBackgroundLongPress(px geo.Pixel, p geo.GeoPoint)
}

// Container is the ordered stack of map layers. It exposes a single sequence
// made of the location layer (when set), then the annotations layer (when
// set), then the caller's layers. Drawing goes bottom-up; taps go top-down
// and stop at the first layer that consumes them.
type Container struct {
	callback    GestureCallback
	location    Layer
	annotations *AnnotationsOverlay
	layers      []Layer
}

func NewContainer(callback GestureCallback) (*Container, error) {
	if callback == nil {
		return nil, fmt.Errorf("overlay container: %w", ErrNilCallback)
	}
	return &Container{callback: callback}, nil
}

func (c *Container) SetLocationLayer(l Layer) {
	c.location = l
}

func (c *Container) LocationLayer() Layer {
	return c.location
}

// SetAnnotations replaces the annotations layer; nil removes it.
func (c *Container) SetAnnotations(o *AnnotationsOverlay) {
	c.annotations = o
}

func (c *Container) Annotations() *AnnotationsOverlay {
	return c.annotations
}

func (c *Container) fixed() int {
	n := 0
	if c.location != nil {
		n++
	}
	if c.annotations != nil {
		n++
	}
	return n
}

// Len is the length of the whole sequence, fixed slots included.
func (c *Container) Len() int {
	return c.fixed() + len(c.layers)
}

// At returns the i-th layer of the whole sequence, or nil.
func (c *Container) At(i int) Layer {
	if i < 0 {
		return nil
	}
	if c.location != nil {
		if i == 0 {
			return c.location
		}
		i--
	}
	if c.annotations != nil {
		if i == 0 {
			return c.annotations
		}
		i--
	}
	if i >= len(c.layers) {
		return nil
	}
	return c.layers[i]
}

// Layers returns a copy of the caller-managed layers.
func (c *Container) Layers() []Layer {
	return append([]Layer(nil), c.layers...)
}

func (c *Container) AddLayer(l Layer) {
	c.layers = append(c.layers, l)
}

// InsertLayer inserts l at index i of the caller-managed layers.
func (c *Container) InsertLayer(i int, l Layer) error {
	if i < 0 || i > len(c.layers) {
		return fmt.Errorf("insert at %d of %d: %w", i, len(c.layers), ErrIndexOutOfRange)
	}
	c.layers = append(c.layers, nil)
	copy(c.layers[i+1:], c.layers[i:])
	c.layers[i] = l
	return nil
}

func (c *Container) RemoveLayer(l Layer) bool {
	i := c.IndexOf(l)
	if i < 0 {
		return false
	}
	c.layers = append(c.layers[:i], c.layers[i+1:]...)
	return true
}

func (c *Container) RemoveLayerAt(i int) (Layer, error) {
	if i < 0 || i >= len(c.layers) {
		return nil, fmt.Errorf("remove at %d of %d: %w", i, len(c.layers), ErrIndexOutOfRange)
	}
	l := c.layers[i]
	c.layers = append(c.layers[:i], c.layers[i+1:]...)
	return l, nil
}

func (c *Container) RemoveAllLayers() {
	c.layers = nil
}

// IndexOf returns the index of l among the caller-managed layers, or -1.
func (c *Container) IndexOf(l Layer) int {
	for i, layer := range c.layers {
		if layer == l {
			return i
		}
	}
	return -1
}

func (c *Container) Draw(canvas Canvas, proj geo.Projection) {
	for i := 0; i < c.Len(); i++ {
		if l := c.At(i); l != nil {
			l.Draw(canvas, proj)
		}
	}
}

func (c *Container) dispatch(handle func(Layer) bool) bool {
	// A handler may remove layers, so At can run past the end.
	for i := c.Len() - 1; i >= 0; i-- {
		if l := c.At(i); l != nil && handle(l) {
			return true
		}
	}
	return false
}

func (c *Container) Tap(px geo.Pixel, proj geo.Projection) bool {
	if c.dispatch(func(l Layer) bool { return l.HandleTap(px, proj) }) {
		return true
	}
	c.callback.OnBackgroundTap(px, proj.FromPixels(px))
	return false
}

func (c *Container) DoubleTap(px geo.Pixel, proj geo.Projection) bool {
	if c.dispatch(func(l Layer) bool { return l.HandleDoubleTap(px, proj) }) {
		return true
	}
	c.callback.OnBackgroundDoubleTap(px, proj.FromPixels(px))
	return false
}

func (c *Container) LongPress(px geo.Pixel, proj geo.Projection) bool {
	if c.dispatch(func(l Layer) bool { return l.HandleLongPress(px, proj) }) {
		return true
	}
	c.callback.OnBackgroundLongPress(px, proj.FromPixels(px))
	return false
}

// Touch delivers a raw touch event to every layer, top-down, and reports
// whether any of them consumed it.
func (c *Container) Touch(ev TouchEvent, proj geo.Projection) bool {
	consumed := false
	for i := c.Len() - 1; i >= 0; i-- {
		if l := c.At(i); l != nil && l.HandleTouch(ev, proj) {
			consumed = true
		}
	}
	return consumed
}
