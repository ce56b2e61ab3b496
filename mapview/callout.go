package mapview

import (
	"web/polaris/annotation"
	"web/polaris/geo"
)

// Callout is the bubble shown above a selected annotation. The map view
// alternates between two callouts so one can animate out while the other
// animates in.
type Callout struct {
	Slot         int                    `json:"slot"`
	Index        int                    `json:"index"`
	Annotation   *annotation.Annotation `json:"annotation"`
	Anchor       geo.GeoPoint           `json:"anchor"`
	MarkerHeight int                    `json:"markerHeight"`
	Visible      bool                   `json:"visible"`
}

func (c *Callout) Title() string {
	if c.Annotation == nil {
		return ""
	}
	return c.Annotation.Title
}

func (c *Callout) Subtitle() string {
	if c.Annotation == nil {
		return ""
	}
	return c.Annotation.Snippet
}

func (c *Callout) HasDisplayableContent() bool {
	return c.Title() != "" || c.Subtitle() != ""
}

// CalloutPresenter renders callouts.
type CalloutPresenter interface {
	ShowCallout(c *Callout)
	DismissCallout(c *Callout)
}

type nopPresenter struct{}

func (nopPresenter) ShowCallout(*Callout)    {}
func (nopPresenter) DismissCallout(*Callout) {}

// selectionRelay turns selection commands of the annotations overlay into
// callout commands and listener events.
type selectionRelay struct {
	mv *MapView
}

func (r selectionRelay) ShowCallout(index int) {
	m := r.mv
	o := m.container.Annotations()
	if o == nil {
		return
	}
	a := o.ItemAt(index)
	if a == nil {
		return
	}

	// A callout may still be up from a previous set of annotations.
	m.dismissCurrent()

	c := m.nextCallout()
	c.Index = index
	c.Annotation = a
	c.Anchor = a.Point
	c.MarkerHeight = o.MarkerHeight(index)
	c.Visible = false

	m.logger.Debug("annotation selected", "index", index, "id", a.ID)
	if m.selection != nil {
		m.selection.OnAnnotationSelected(m, c, index, a)
	}

	if c.HasDisplayableContent() {
		c.Visible = true
		m.presenter.ShowCallout(c)
	}
}

func (r selectionRelay) DismissCallout(index int) {
	m := r.mv
	o := m.container.Annotations()
	if o == nil || o.ItemAt(index) == nil {
		return
	}
	m.dismissCurrent()
}

func (m *MapView) currentCallout() *Callout {
	return m.callouts[m.calloutIndex]
}

func (m *MapView) nextCallout() *Callout {
	m.calloutIndex = 1 - m.calloutIndex
	return m.callouts[m.calloutIndex]
}

func (m *MapView) dismissCurrent() {
	c := m.currentCallout()
	if !c.Visible {
		return
	}
	c.Visible = false
	m.presenter.DismissCallout(c)

	m.logger.Debug("annotation deselected", "index", c.Index)
	if m.selection != nil {
		m.selection.OnAnnotationDeselected(m, c, c.Index, c.Annotation)
	}
}

// Callouts returns both callout slots.
func (m *MapView) Callouts() [2]*Callout {
	return m.callouts
}

// VisibleCallout returns the callout on screen, or nil.
func (m *MapView) VisibleCallout() *Callout {
	if c := m.currentCallout(); c.Visible {
		return c
	}
	return nil
}

// ClickCallout reports a click on the callout of the selected annotation.
func (m *MapView) ClickCallout() bool {
	index := m.SelectedIndex()
	a := m.SelectedAnnotation()
	if a == nil || index < 0 {
		return false
	}
	if m.selection != nil {
		m.selection.OnAnnotationClicked(m, m.currentCallout(), index, a)
	}
	return true
}

// DoubleTapCallout zooms all the way in on the selected annotation.
func (m *MapView) DoubleTapCallout() bool {
	a := m.SelectedAnnotation()
	if a == nil {
		return false
	}
	m.viewport.ZoomToSpan(1, 1)
	m.viewport.SetCenter(a.Point)
	m.Layout()
	return true
}
