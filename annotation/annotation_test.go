package annotation

import (
	"errors"
	"testing"

	"web/polaris/geo"
)

func TestMarkerBoundsCenterBottom(t *testing.T) {
	b, err := MarkerBounds(Glyph{Width: 20, Height: 30}, CenterBottom)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if b != (Bounds{Left: -10, Top: -30, Right: 10, Bottom: 0}) {
		t.Errorf("Unexpected bounds %+v", b)
	}
	if b.Height() != 30 || b.Width() != 20 {
		t.Errorf("Expected 20x30, got %dx%d", b.Width(), b.Height())
	}
	if !b.Contains(0, -1) {
		t.Errorf("Expected point just above the anchor to be inside")
	}
	if b.Contains(0, 1) {
		t.Errorf("Expected point below the anchor to be outside")
	}
}

func TestMarkerBoundsCenter(t *testing.T) {
	b, err := MarkerBounds(Glyph{Width: 21, Height: 21}, Center)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if b.Width() != 21 || b.Height() != 21 {
		t.Errorf("Expected 21x21, got %dx%d", b.Width(), b.Height())
	}
	if !b.Contains(0, 0) {
		t.Errorf("Expected anchor to be inside a centered marker")
	}
}

func TestMarkerBoundsDegenerate(t *testing.T) {
	for _, m := range []Marker{Glyph{Width: 0, Height: 10}, Glyph{Width: 10, Height: -1}, nil} {
		if _, err := MarkerBounds(m, CenterBottom); !errors.Is(err, ErrDegenerateMarker) {
			t.Errorf("Expected ErrDegenerateMarker for %v, got %v", m, err)
		}
	}
}

func TestAnnotationCount(t *testing.T) {
	a := New(geo.NewGeoPoint(1, 2), "title", "")
	if a.ID == "" {
		t.Errorf("Expected generated ID")
	}
	if a.Count() != 1 || a.IsCluster() {
		t.Errorf("Expected plain annotation to count as one")
	}
	if !a.HasDisplayableContent() {
		t.Errorf("Expected title to be displayable")
	}

	c := &Annotation{Members: []*Annotation{a, New(geo.GeoPoint{}, "", "")}}
	if c.Count() != 2 || !c.IsCluster() {
		t.Errorf("Expected cluster of two, got %d", c.Count())
	}
	if c.HasDisplayableContent() {
		t.Errorf("Expected empty annotation to have nothing to show")
	}
}
