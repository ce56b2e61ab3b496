package overlay

import (
	"fmt"

	"web/polaris/annotation"
	"web/polaris/geo"
)

// InvalidPosition is the selected index when nothing is selected.
const InvalidPosition = -1

// SelectionCallback is told which callout to show or dismiss. On a change of
// selection the dismissal of the old index always comes first.
type SelectionCallback interface {
	ShowCallout(index int)
	DismissCallout(index int)
}

// AnnotationsOverlay is the layer that draws a fixed list of annotations and
// keeps at most one of them selected. Replacing the annotations means
// building a new overlay, which starts with nothing selected.
type AnnotationsOverlay struct {
	BaseLayer

	callback      SelectionCallback
	items         []*annotation.Annotation
	defaultMarker annotation.Marker
	defaultBounds annotation.Bounds
	bounds        []annotation.Bounds
	selected      int
}

func NewAnnotationsOverlay(callback SelectionCallback, items []*annotation.Annotation, defaultMarker annotation.Marker) (*AnnotationsOverlay, error) {
	if callback == nil {
		return nil, fmt.Errorf("annotations overlay: %w", ErrNilCallback)
	}

	defaultBounds, err := annotation.MarkerBounds(defaultMarker, annotation.CenterBottom)
	if err != nil {
		return nil, fmt.Errorf("default marker: %w", err)
	}

	o := &AnnotationsOverlay{
		callback:      callback,
		items:         make([]*annotation.Annotation, 0, len(items)),
		defaultMarker: defaultMarker,
		defaultBounds: defaultBounds,
		bounds:        make([]annotation.Bounds, 0, len(items)),
		selected:      InvalidPosition,
	}

	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("annotation %d is nil", i)
		}
		b := defaultBounds
		if item.Marker != nil {
			if b, err = annotation.MarkerBounds(item.Marker, annotation.CenterBottom); err != nil {
				return nil, fmt.Errorf("marker of annotation %d: %w", i, err)
			}
		}
		o.items = append(o.items, item)
		o.bounds = append(o.bounds, b)
	}

	return o, nil
}

func (o *AnnotationsOverlay) Len() int {
	return len(o.items)
}

// ItemAt returns the annotation at index, or nil when index is out of range.
func (o *AnnotationsOverlay) ItemAt(index int) *annotation.Annotation {
	if index < 0 || index >= len(o.items) {
		return nil
	}
	return o.items[index]
}

func (o *AnnotationsOverlay) Items() []*annotation.Annotation {
	return append([]*annotation.Annotation(nil), o.items...)
}

func (o *AnnotationsOverlay) DefaultMarker() annotation.Marker {
	return o.defaultMarker
}

// Marker returns the marker drawn for index.
func (o *AnnotationsOverlay) Marker(index int) annotation.Marker {
	item := o.ItemAt(index)
	if item == nil || item.Marker == nil {
		return o.defaultMarker
	}
	return item.Marker
}

// MarkerHeight is the pixel height of the marker drawn for index, used to
// place the callout above it.
func (o *AnnotationsOverlay) MarkerHeight(index int) int {
	if index < 0 || index >= len(o.bounds) {
		return o.defaultBounds.Height()
	}
	return o.bounds[index].Height()
}

func (o *AnnotationsOverlay) SelectedIndex() int {
	return o.selected
}

func (o *AnnotationsOverlay) Selected() *annotation.Annotation {
	return o.ItemAt(o.selected)
}

// SetSelectedIndex selects index, or deselects when index is out of range.
func (o *AnnotationsOverlay) SetSelectedIndex(index int) {
	if index < 0 || index >= len(o.items) {
		index = InvalidPosition
	}
	if index == o.selected {
		return
	}

	if o.selected != InvalidPosition {
		o.callback.DismissCallout(o.selected)
	}
	o.selected = index
	if index != InvalidPosition {
		o.callback.ShowCallout(index)
	}
}

// HandleItemTap selects the tapped annotation. Taps outside the list are
// not consumed.
func (o *AnnotationsOverlay) HandleItemTap(index int) bool {
	if index < 0 || index >= len(o.items) {
		return false
	}
	o.SetSelectedIndex(index)
	return true
}

// HitTest returns the index of the topmost marker under px, or
// InvalidPosition.
func (o *AnnotationsOverlay) HitTest(px geo.Pixel, proj geo.Projection) int {
	for i := len(o.items) - 1; i >= 0; i-- {
		anchor := proj.ToPixels(o.items[i].Point)
		if o.bounds[i].Contains(px.X-anchor.X, px.Y-anchor.Y) {
			return i
		}
	}
	return InvalidPosition
}

func (o *AnnotationsOverlay) Draw(c Canvas, proj geo.Projection) {
	for i, item := range o.items {
		c.DrawMarker(item, o.Marker(i), o.bounds[i], proj.ToPixels(item.Point), i == o.selected)
	}
}

func (o *AnnotationsOverlay) HandleTap(px geo.Pixel, proj geo.Projection) bool {
	return o.HandleItemTap(o.HitTest(px, proj))
}
