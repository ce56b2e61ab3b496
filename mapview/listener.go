package mapview

import (
	"web/polaris/annotation"
	"web/polaris/geo"
)

type RegionListener interface {
	OnRegionChanged(mv *MapView)
	OnRegionChangeConfirmed(mv *MapView)
}

type SelectionListener interface {
	OnAnnotationSelected(mv *MapView, c *Callout, index int, a *annotation.Annotation)
	OnAnnotationDeselected(mv *MapView, c *Callout, index int, a *annotation.Annotation)
	OnAnnotationClicked(mv *MapView, c *Callout, index int, a *annotation.Annotation)
}

// GestureListener is told about gestures that hit no annotation or layer.
type GestureListener interface {
	OnBackgroundTap(mv *MapView, p geo.GeoPoint)
	OnBackgroundDoubleTap(mv *MapView, p geo.GeoPoint)
	OnBackgroundLongPress(mv *MapView, p geo.GeoPoint)
}

// Adapters with empty methods, to embed when only some events matter.
type (
	RegionListenerAdapter    struct{}
	SelectionListenerAdapter struct{}
	GestureListenerAdapter   struct{}
)

func (RegionListenerAdapter) OnRegionChanged(*MapView)         {}
func (RegionListenerAdapter) OnRegionChangeConfirmed(*MapView) {}

func (SelectionListenerAdapter) OnAnnotationSelected(*MapView, *Callout, int, *annotation.Annotation) {
}
func (SelectionListenerAdapter) OnAnnotationDeselected(*MapView, *Callout, int, *annotation.Annotation) {
}
func (SelectionListenerAdapter) OnAnnotationClicked(*MapView, *Callout, int, *annotation.Annotation) {
}

func (GestureListenerAdapter) OnBackgroundTap(*MapView, geo.GeoPoint)       {}
func (GestureListenerAdapter) OnBackgroundDoubleTap(*MapView, geo.GeoPoint) {}
func (GestureListenerAdapter) OnBackgroundLongPress(*MapView, geo.GeoPoint) {}
