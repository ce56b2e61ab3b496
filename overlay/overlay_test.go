package overlay

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"web/polaris/annotation"
	"web/polaris/geo"
)

type pixelProjection struct{}

func (pixelProjection) ToPixels(p geo.GeoPoint) geo.Pixel {
	return geo.Pixel{X: p.LngE6, Y: p.LatE6}
}

func (pixelProjection) FromPixels(px geo.Pixel) geo.GeoPoint {
	return geo.GeoPoint{LatE6: px.Y, LngE6: px.X}
}

type recordingLayer struct {
	BaseLayer
	name    string
	log     *[]string
	consume bool
}

func (l *recordingLayer) Draw(Canvas, geo.Projection) {
	*l.log = append(*l.log, "draw "+l.name)
}

func (l *recordingLayer) HandleTap(geo.Pixel, geo.Projection) bool {
	*l.log = append(*l.log, "tap "+l.name)
	return l.consume
}

func (l *recordingLayer) HandleDoubleTap(geo.Pixel, geo.Projection) bool {
	*l.log = append(*l.log, "double "+l.name)
	return l.consume
}

func (l *recordingLayer) HandleLongPress(geo.Pixel, geo.Projection) bool {
	*l.log = append(*l.log, "long "+l.name)
	return l.consume
}

func (l *recordingLayer) HandleTouch(TouchEvent, geo.Projection) bool {
	*l.log = append(*l.log, "touch "+l.name)
	return l.consume
}

type recordingCallback struct {
	log *[]string
}

func (c recordingCallback) OnBackgroundTap(px geo.Pixel, _ geo.GeoPoint) {
	*c.log = append(*c.log, fmt.Sprintf("background tap %d,%d", px.X, px.Y))
}

func (c recordingCallback) OnBackgroundDoubleTap(px geo.Pixel, _ geo.GeoPoint) {
	*c.log = append(*c.log, fmt.Sprintf("background double %d,%d", px.X, px.Y))
}

func (c recordingCallback) OnBackgroundLongPress(_ geo.Pixel, p geo.GeoPoint) {
	*c.log = append(*c.log, fmt.Sprintf("background long %d,%d", p.LngE6, p.LatE6))
}

type recordingSelection struct {
	events []string
}

func (s *recordingSelection) ShowCallout(index int) {
	s.events = append(s.events, fmt.Sprintf("show %d", index))
}

func (s *recordingSelection) DismissCallout(index int) {
	s.events = append(s.events, fmt.Sprintf("dismiss %d", index))
}

type nopCanvas struct{}

func (nopCanvas) DrawMarker(*annotation.Annotation, annotation.Marker, annotation.Bounds, geo.Pixel, bool) {
}
func (nopCanvas) DrawLocation(geo.Pixel, int) {}

func newContainer(t *testing.T, log *[]string) *Container {
	t.Helper()
	c, err := NewContainer(recordingCallback{log: log})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return c
}

func TestNewContainerRequiresCallback(t *testing.T) {
	if _, err := NewContainer(nil); !errors.Is(err, ErrNilCallback) {
		t.Errorf("Expected ErrNilCallback, got %v", err)
	}
}

func TestContainerSequence(t *testing.T) {
	var log []string
	c := newContainer(t, &log)
	tail := &recordingLayer{name: "tail", log: &log}
	c.AddLayer(tail)

	if c.Len() != 1 || c.At(0) != tail {
		t.Fatalf("Expected only the tail layer")
	}

	annotations, err := NewAnnotationsOverlay(&recordingSelection{}, nil, annotation.DefaultPin)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	location := NewLocationLayer()
	c.SetAnnotations(annotations)
	c.SetLocationLayer(location)

	if c.Len() != 3 {
		t.Fatalf("Expected 3 layers, got %d", c.Len())
	}
	if c.At(0) != location || c.At(1) != annotations || c.At(2) != tail {
		t.Errorf("Expected location, annotations, tail order")
	}
	if c.At(3) != nil || c.At(-1) != nil {
		t.Errorf("Expected nil outside the sequence")
	}

	c.SetLocationLayer(nil)
	if c.At(0) != annotations {
		t.Errorf("Expected annotations first without a location layer")
	}
}

func TestDrawAscendingTapDescending(t *testing.T) {
	var log []string
	c := newContainer(t, &log)
	for _, name := range []string{"a", "b", "c"} {
		c.AddLayer(&recordingLayer{name: name, log: &log})
	}

	c.Draw(nopCanvas{}, pixelProjection{})
	want := []string{"draw a", "draw b", "draw c"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("Expected %v, got %v", want, log)
	}

	log = nil
	if c.Tap(geo.Pixel{X: 1, Y: 2}, pixelProjection{}) {
		t.Errorf("Expected tap not to be consumed")
	}
	want = []string{"tap c", "tap b", "tap a", "background tap 1,2"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("Expected %v, got %v", want, log)
	}
}

func TestTopmostConsumerWins(t *testing.T) {
	var log []string
	c := newContainer(t, &log)
	c.AddLayer(&recordingLayer{name: "bottom", log: &log, consume: true})
	c.AddLayer(&recordingLayer{name: "top", log: &log, consume: true})

	if !c.Tap(geo.Pixel{}, pixelProjection{}) {
		t.Errorf("Expected tap to be consumed")
	}
	if !c.DoubleTap(geo.Pixel{}, pixelProjection{}) {
		t.Errorf("Expected double tap to be consumed")
	}
	if !c.LongPress(geo.Pixel{}, pixelProjection{}) {
		t.Errorf("Expected long press to be consumed")
	}

	want := []string{"tap top", "double top", "long top"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("Expected %v, got %v", want, log)
	}
}

func TestUnconsumedGesturesReachBackground(t *testing.T) {
	var log []string
	c := newContainer(t, &log)

	c.DoubleTap(geo.Pixel{X: 3, Y: 4}, pixelProjection{})
	c.LongPress(geo.Pixel{X: 5, Y: 6}, pixelProjection{})

	want := []string{"background double 3,4", "background long 5,6"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("Expected %v, got %v", want, log)
	}
}

func TestTouchReachesEveryLayer(t *testing.T) {
	var log []string
	c := newContainer(t, &log)
	c.AddLayer(&recordingLayer{name: "a", log: &log})
	c.AddLayer(&recordingLayer{name: "b", log: &log, consume: true})
	c.AddLayer(&recordingLayer{name: "c", log: &log})

	if !c.Touch(TouchEvent{Action: TouchDown}, pixelProjection{}) {
		t.Errorf("Expected touch to be reported as consumed")
	}
	want := []string{"touch c", "touch b", "touch a"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("Expected %v, got %v", want, log)
	}
}

func TestTailManagement(t *testing.T) {
	var log []string
	c := newContainer(t, &log)
	a := &recordingLayer{name: "a", log: &log}
	b := &recordingLayer{name: "b", log: &log}
	d := &recordingLayer{name: "d", log: &log}

	c.AddLayer(a)
	c.AddLayer(d)
	if err := c.InsertLayer(1, b); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.IndexOf(b) != 1 || c.IndexOf(d) != 2 {
		t.Errorf("Expected b at 1 and d at 2, got %d and %d", c.IndexOf(b), c.IndexOf(d))
	}
	if err := c.InsertLayer(5, b); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}

	if !c.RemoveLayer(b) || c.RemoveLayer(b) {
		t.Errorf("Expected b to be removed exactly once")
	}
	removed, err := c.RemoveLayerAt(0)
	if err != nil || removed != a {
		t.Errorf("Expected to remove a, got %v (%v)", removed, err)
	}
	if _, err := c.RemoveLayerAt(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}

	c.RemoveAllLayers()
	if c.Len() != 0 || c.IndexOf(d) != -1 {
		t.Errorf("Expected no layers left")
	}
}

func newAnnotations(t *testing.T, sel SelectionCallback, n int) *AnnotationsOverlay {
	t.Helper()
	items := make([]*annotation.Annotation, n)
	for i := range items {
		items[i] = annotation.New(geo.GeoPoint{LatE6: 100, LngE6: 100 * (i + 1)}, fmt.Sprintf("item %d", i), "")
	}
	o, err := NewAnnotationsOverlay(sel, items, annotation.Glyph{Width: 20, Height: 30})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return o
}

func TestAnnotationsOverlayStartsDeselected(t *testing.T) {
	o := newAnnotations(t, &recordingSelection{}, 3)
	if o.SelectedIndex() != InvalidPosition || o.Selected() != nil {
		t.Errorf("Expected no selection, got %d", o.SelectedIndex())
	}
	if o.ItemAt(3) != nil || o.ItemAt(-1) != nil {
		t.Errorf("Expected nil outside the list")
	}
	if o.ItemAt(2) == nil {
		t.Errorf("Expected an item at index 2")
	}
}

func TestSelectionSingleFlight(t *testing.T) {
	sel := &recordingSelection{}
	o := newAnnotations(t, sel, 3)

	o.SetSelectedIndex(0)
	o.SetSelectedIndex(2)
	o.SetSelectedIndex(InvalidPosition)

	want := []string{"show 0", "dismiss 0", "show 2", "dismiss 2"}
	if !reflect.DeepEqual(sel.events, want) {
		t.Errorf("Expected %v, got %v", want, sel.events)
	}
}

func TestReselectionIsNoop(t *testing.T) {
	sel := &recordingSelection{}
	o := newAnnotations(t, sel, 3)

	o.SetSelectedIndex(1)
	o.SetSelectedIndex(1)
	if !o.HandleItemTap(1) {
		t.Errorf("Expected tap on the selected item to be consumed")
	}

	if !reflect.DeepEqual(sel.events, []string{"show 1"}) {
		t.Errorf("Expected a single show, got %v", sel.events)
	}

	o.SetSelectedIndex(InvalidPosition)
	o.SetSelectedIndex(InvalidPosition)
	if !reflect.DeepEqual(sel.events, []string{"show 1", "dismiss 1"}) {
		t.Errorf("Expected a single dismiss, got %v", sel.events)
	}
}

func TestOutOfRangeSelectionDeselects(t *testing.T) {
	sel := &recordingSelection{}
	o := newAnnotations(t, sel, 2)

	o.SetSelectedIndex(1)
	o.SetSelectedIndex(7)
	if o.SelectedIndex() != InvalidPosition {
		t.Errorf("Expected out of range index to deselect, got %d", o.SelectedIndex())
	}
	if o.HandleItemTap(7) || o.HandleItemTap(-1) {
		t.Errorf("Expected out of range taps not to be consumed")
	}
	if !reflect.DeepEqual(sel.events, []string{"show 1", "dismiss 1"}) {
		t.Errorf("Unexpected events %v", sel.events)
	}
}

func TestAnnotationsHitTest(t *testing.T) {
	sel := &recordingSelection{}
	o := newAnnotations(t, sel, 3)
	proj := pixelProjection{}

	// Markers are 20x30 and anchored at their bottom center.
	if got := o.HitTest(geo.Pixel{X: 200, Y: 90}, proj); got != 1 {
		t.Errorf("Expected to hit item 1, got %d", got)
	}
	if got := o.HitTest(geo.Pixel{X: 200, Y: 110}, proj); got != InvalidPosition {
		t.Errorf("Expected a miss below the anchor, got %d", got)
	}

	var log []string
	c := newContainer(t, &log)
	c.SetAnnotations(o)
	if !c.Tap(geo.Pixel{X: 300, Y: 95}, proj) {
		t.Errorf("Expected tap on a marker to be consumed")
	}
	if o.SelectedIndex() != 2 {
		t.Errorf("Expected item 2 to be selected, got %d", o.SelectedIndex())
	}
	if c.Tap(geo.Pixel{X: 5000, Y: 5000}, proj) {
		t.Errorf("Expected tap on empty map not to be consumed")
	}
	if len(log) != 1 || log[0] != "background tap 5000,5000" {
		t.Errorf("Expected a background tap, got %v", log)
	}
	if o.MarkerHeight(0) != 30 {
		t.Errorf("Expected marker height 30, got %d", o.MarkerHeight(0))
	}
}

func TestAnnotationsOverlayValidation(t *testing.T) {
	items := []*annotation.Annotation{annotation.New(geo.GeoPoint{}, "a", "")}

	if _, err := NewAnnotationsOverlay(nil, items, annotation.DefaultPin); !errors.Is(err, ErrNilCallback) {
		t.Errorf("Expected ErrNilCallback, got %v", err)
	}
	if _, err := NewAnnotationsOverlay(&recordingSelection{}, items, annotation.Glyph{}); !errors.Is(err, annotation.ErrDegenerateMarker) {
		t.Errorf("Expected ErrDegenerateMarker for the default marker, got %v", err)
	}
	items[0].Marker = annotation.Glyph{Width: 4, Height: 0}
	if _, err := NewAnnotationsOverlay(&recordingSelection{}, items, annotation.DefaultPin); !errors.Is(err, annotation.ErrDegenerateMarker) {
		t.Errorf("Expected ErrDegenerateMarker for an item marker, got %v", err)
	}
}

type recordingCanvas struct {
	markers   []string
	locations []geo.Pixel
	radii     []int
}

func (c *recordingCanvas) DrawMarker(item *annotation.Annotation, _ annotation.Marker, _ annotation.Bounds, _ geo.Pixel, selected bool) {
	c.markers = append(c.markers, fmt.Sprintf("%s %v", item.Title, selected))
}

func (c *recordingCanvas) DrawLocation(at geo.Pixel, accuracyPx int) {
	c.locations = append(c.locations, at)
	c.radii = append(c.radii, accuracyPx)
}

func TestAnnotationsDraw(t *testing.T) {
	o := newAnnotations(t, &recordingSelection{}, 2)
	o.SetSelectedIndex(1)

	canvas := &recordingCanvas{}
	o.Draw(canvas, pixelProjection{})
	want := []string{"item 0 false", "item 1 true"}
	if !reflect.DeepEqual(canvas.markers, want) {
		t.Errorf("Expected %v, got %v", want, canvas.markers)
	}
}

func TestLocationLayer(t *testing.T) {
	l := NewLocationLayer()
	canvas := &recordingCanvas{}
	proj := geo.NewViewport(geo.NewGeoPoint(48.85, 2.35), 15, 400, 400)

	l.Draw(canvas, proj)
	if len(canvas.locations) != 0 {
		t.Errorf("Expected nothing drawn while disabled")
	}

	l.Enable()
	l.SetLocation(geo.NewGeoPoint(48.85, 2.35), 100)
	l.Draw(canvas, proj)
	if len(canvas.locations) != 1 || canvas.locations[0] != (geo.Pixel{X: 200, Y: 200}) {
		t.Fatalf("Expected location drawn at the center, got %v", canvas.locations)
	}
	if canvas.radii[0] <= 0 {
		t.Errorf("Expected a positive accuracy radius, got %d", canvas.radii[0])
	}

	var tapped bool
	l.OnTap = func(geo.GeoPoint) { tapped = true }
	if !l.HandleTap(geo.Pixel{X: 205, Y: 195}, proj) || !tapped {
		t.Errorf("Expected tap near the location to be consumed")
	}
	if l.HandleTap(geo.Pixel{X: 300, Y: 300}, proj) {
		t.Errorf("Expected tap far from the location to be ignored")
	}
}
