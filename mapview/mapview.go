package mapview

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"web/polaris/annotation"
	"web/polaris/geo"
	"web/polaris/overlay"
	"web/polaris/region"
)

var ErrLocationUnavailable = errors.New("user location unavailable")

// blankMarker marks the current-location annotation, which the location
// layer already draws.
var blankMarker = annotation.Glyph{Name: "blank", Width: 1, Height: 1}

type Options struct {
	ConfirmDelay  time.Duration
	DefaultMarker annotation.Marker
	Logger        *slog.Logger
}

// MapView puts annotations on a viewport: it owns the layer stack, the
// selection callouts and the region-change detector. It is not safe for
// concurrent use; every call, like every scheduled task, must happen on the
// scheduler's event thread.
type MapView struct {
	viewport  *geo.Viewport
	container *overlay.Container
	detector  *region.Detector
	presenter CalloutPresenter
	logger    *slog.Logger

	defaultMarker annotation.Marker

	callouts     [2]*Callout
	calloutIndex int

	regionListener RegionListener
	selection      SelectionListener
	gestures       GestureListener

	location        *overlay.LocationLayer
	locationTitle   string
	locationSnippet string
	locationItem    *annotation.Annotation
}

func New(viewport *geo.Viewport, sched region.Scheduler, presenter CalloutPresenter, opts Options) (*MapView, error) {
	if viewport == nil {
		return nil, errors.New("viewport must not be nil")
	}
	if sched == nil {
		return nil, errors.New("scheduler must not be nil")
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	if opts.DefaultMarker == nil {
		opts.DefaultMarker = annotation.DefaultPin
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if _, err := annotation.MarkerBounds(opts.DefaultMarker, annotation.CenterBottom); err != nil {
		return nil, fmt.Errorf("default marker: %w", err)
	}

	m := &MapView{
		viewport:      viewport,
		presenter:     presenter,
		logger:        opts.Logger,
		defaultMarker: opts.DefaultMarker,
	}
	for i := range m.callouts {
		m.callouts[i] = &Callout{Slot: i, Index: overlay.InvalidPosition}
	}

	container, err := overlay.NewContainer(gestureRelay{m})
	if err != nil {
		return nil, err
	}
	m.container = container
	m.detector = region.NewDetector(viewport.Region, sched, opts.ConfirmDelay, regionRelay{m})

	return m, nil
}

func (m *MapView) Viewport() *geo.Viewport {
	return m.viewport
}

func (m *MapView) Projection() geo.Projection {
	return m.viewport
}

func (m *MapView) Region() geo.Region {
	return m.viewport.Region()
}

func (m *MapView) Container() *overlay.Container {
	return m.container
}

func (m *MapView) SetRegionListener(l RegionListener)       { m.regionListener = l }
func (m *MapView) SetSelectionListener(l SelectionListener) { m.selection = l }
func (m *MapView) SetGestureListener(l GestureListener)     { m.gestures = l }

// Layout is called after every change of the viewport.
func (m *MapView) Layout() {
	m.detector.Check()
}

// ScrollBy pans the map by a pixel offset, as a drag would.
func (m *MapView) ScrollBy(dx, dy int) {
	m.viewport.ScrollBy(dx, dy)
	m.Layout()
}

// SetCamera moves the viewport and lays the map out again.
func (m *MapView) SetCamera(center geo.GeoPoint, zoom int) {
	m.viewport.SetCenter(center)
	m.viewport.SetZoom(zoom)
	m.Layout()
}

func (m *MapView) SetSize(width, height int) {
	m.viewport.SetSize(width, height)
	m.Layout()
}

// Touch handles a raw touch event. A touch down holds region confirmation
// until the matching up or cancel.
func (m *MapView) Touch(ev overlay.TouchEvent) bool {
	switch ev.Action {
	case overlay.TouchDown:
		m.detector.GestureStarted()
	case overlay.TouchUp, overlay.TouchCancel:
		m.detector.GestureEnded()
	}
	return m.container.Touch(ev, m.viewport)
}

func (m *MapView) Tap(px geo.Pixel) bool {
	return m.container.Tap(px, m.viewport)
}

func (m *MapView) DoubleTap(px geo.Pixel) bool {
	return m.container.DoubleTap(px, m.viewport)
}

func (m *MapView) LongPress(px geo.Pixel) bool {
	return m.container.LongPress(px, m.viewport)
}

func (m *MapView) Draw(c overlay.Canvas) {
	m.container.Draw(c, m.viewport)
}

// SetAnnotations replaces the annotations shown. A nil list removes the
// annotations layer; a nil marker selects the default marker. The new list
// starts with nothing selected, so a visible callout is dismissed.
func (m *MapView) SetAnnotations(items []*annotation.Annotation, marker annotation.Marker) error {
	var o *overlay.AnnotationsOverlay
	if items != nil || m.locationItem != nil {
		if marker == nil {
			marker = m.defaultMarker
		}

		all := make([]*annotation.Annotation, 0, len(items)+1)
		for _, item := range items {
			if item != m.locationItem {
				all = append(all, item)
			}
		}
		if m.locationItem != nil {
			all = append(all, m.locationItem)
		}

		var err error
		if o, err = overlay.NewAnnotationsOverlay(selectionRelay{m}, all, marker); err != nil {
			return err
		}
	}

	m.dismissCurrent()
	m.container.SetAnnotations(o)
	return nil
}

// Annotations returns the annotations currently shown.
func (m *MapView) Annotations() []*annotation.Annotation {
	if o := m.container.Annotations(); o != nil {
		return o.Items()
	}
	return nil
}

func (m *MapView) SelectedIndex() int {
	if o := m.container.Annotations(); o != nil {
		return o.SelectedIndex()
	}
	return overlay.InvalidPosition
}

func (m *MapView) SelectedAnnotation() *annotation.Annotation {
	if o := m.container.Annotations(); o != nil {
		return o.Selected()
	}
	return nil
}

func (m *MapView) SetSelectedIndex(index int) {
	if o := m.container.Annotations(); o != nil {
		o.SetSelectedIndex(index)
	}
}

func (m *MapView) AddLayer(l overlay.Layer) {
	m.container.AddLayer(l)
}

func (m *MapView) InsertLayer(i int, l overlay.Layer) error {
	return m.container.InsertLayer(i, l)
}

func (m *MapView) RemoveLayer(l overlay.Layer) bool {
	return m.container.RemoveLayer(l)
}

func (m *MapView) RemoveLayerAt(i int) error {
	_, err := m.container.RemoveLayerAt(i)
	return err
}

func (m *MapView) RemoveAllLayers() {
	m.container.RemoveAllLayers()
}

func (m *MapView) IndexOfLayer(l overlay.Layer) int {
	return m.container.IndexOf(l)
}

// SetUserTrackingEnabled shows or hides the user location layer.
func (m *MapView) SetUserTrackingEnabled(enabled bool) {
	if enabled == m.UserTrackingEnabled() {
		return
	}
	if enabled {
		m.location = overlay.NewLocationLayer()
		m.location.Enable()
		m.container.SetLocationLayer(m.location)
		return
	}
	m.location.Disable()
	m.container.SetLocationLayer(nil)
	m.location = nil
}

func (m *MapView) UserTrackingEnabled() bool {
	return m.location != nil
}

// SetCurrentLocationMarker sets the callout texts of the annotation placed
// at the user location.
func (m *MapView) SetCurrentLocationMarker(title, snippet string) {
	m.locationTitle = title
	m.locationSnippet = snippet
}

// UpdateUserLocation records a new location fix and moves the current
// location annotation. It does nothing while tracking is disabled.
func (m *MapView) UpdateUserLocation(p geo.GeoPoint, accuracy float64) error {
	if m.location == nil {
		return nil
	}
	m.location.SetLocation(p, accuracy)

	var items []*annotation.Annotation
	if o := m.container.Annotations(); o != nil {
		items = o.Items()
	}
	old := m.locationItem
	m.locationItem = &annotation.Annotation{
		ID:      "current-location",
		Point:   p,
		Title:   m.locationTitle,
		Snippet: m.locationSnippet,
		Marker:  blankMarker,
	}

	kept := items[:0:0]
	for _, item := range items {
		if item != old {
			kept = append(kept, item)
		}
	}
	return m.SetAnnotations(kept, m.currentMarker())
}

func (m *MapView) currentMarker() annotation.Marker {
	if o := m.container.Annotations(); o != nil {
		return o.DefaultMarker()
	}
	return m.defaultMarker
}

func (m *MapView) UserLocation() (geo.GeoPoint, bool) {
	if m.location == nil {
		return geo.GeoPoint{}, false
	}
	return m.location.Location()
}

// CenterOnUserLocation moves the map to the last known user location.
func (m *MapView) CenterOnUserLocation() error {
	p, ok := m.UserLocation()
	if !ok {
		return ErrLocationUnavailable
	}
	m.viewport.SetCenter(p)
	m.Layout()
	return nil
}

// Close stops region detection. No listener fires afterwards.
func (m *MapView) Close() {
	m.detector.Close()
}

type regionRelay struct {
	mv *MapView
}

func (r regionRelay) OnRegionChanged(geo.Region) {
	if r.mv.regionListener != nil {
		r.mv.regionListener.OnRegionChanged(r.mv)
	}
}

func (r regionRelay) OnRegionChangeConfirmed(geo.Region) {
	if r.mv.regionListener != nil {
		r.mv.regionListener.OnRegionChangeConfirmed(r.mv)
	}
}

type gestureRelay struct {
	mv *MapView
}

func (g gestureRelay) OnBackgroundTap(_ geo.Pixel, p geo.GeoPoint) {
	g.mv.SetSelectedIndex(overlay.InvalidPosition)
	if g.mv.gestures != nil {
		g.mv.gestures.OnBackgroundTap(g.mv, p)
	}
}

func (g gestureRelay) OnBackgroundDoubleTap(px geo.Pixel, p geo.GeoPoint) {
	if g.mv.viewport.ZoomInFixing(px) {
		g.mv.Layout()
	}
	if g.mv.gestures != nil {
		g.mv.gestures.OnBackgroundDoubleTap(g.mv, p)
	}
}

func (g gestureRelay) OnBackgroundLongPress(_ geo.Pixel, p geo.GeoPoint) {
	if g.mv.gestures != nil {
		g.mv.gestures.OnBackgroundLongPress(g.mv, p)
	}
}
