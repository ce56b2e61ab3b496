package geo

import (
	"testing"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestViewportCenterProjectsToMiddle(t *testing.T) {
	paris := NewGeoPoint(48.856578, 2.351828)
	v := NewViewport(paris, 12, 480, 800)

	px := v.ToPixels(paris)
	if px.X != 240 || px.Y != 400 {
		t.Errorf("Expected center at (240, 400), got (%d, %d)", px.X, px.Y)
	}
}

func TestViewportRoundTrip(t *testing.T) {
	v := NewViewport(NewGeoPoint(43.604363, 1.442951), 12, 480, 800)

	for _, px := range []Pixel{{0, 0}, {100, 250}, {479, 799}, {-50, 900}} {
		back := v.ToPixels(v.FromPixels(px))
		if abs(back.X-px.X) > 1 || abs(back.Y-px.Y) > 1 {
			t.Errorf("Expected %v to survive a round trip, got %v", px, back)
		}
	}
}

func TestViewportRegion(t *testing.T) {
	center := NewGeoPoint(45.759723, 4.842223)
	v := NewViewport(center, 10, 512, 512)

	r := v.Region()
	if r.Center() != center {
		t.Errorf("Expected region center %v, got %v", center, r.Center())
	}
	if r.IsEmpty() {
		t.Errorf("Expected non-empty region, got %v", r)
	}
	// 512px at zoom 10 is 512/(256*1024) of the world.
	if r.LngSpanE6 != 703125 {
		t.Errorf("Expected longitude span 703125, got %d", r.LngSpanE6)
	}
	if !r.Contains(center) {
		t.Errorf("Expected region to contain its center")
	}

	v.ScrollBy(10, 0)
	if v.Region() == r {
		t.Errorf("Expected region to change after scrolling")
	}
}

func TestRegionEquality(t *testing.T) {
	a := Region{LatE6: 1, LngE6: 2, LatSpanE6: 3, LngSpanE6: 4}
	b := Region{LatE6: 1, LngE6: 2, LatSpanE6: 3, LngSpanE6: 4}
	if a != b {
		t.Errorf("Expected structurally equal regions to compare equal")
	}
	b.LngSpanE6 = 5
	if a == b {
		t.Errorf("Expected regions with different spans to differ")
	}
	if !(Region{LatSpanE6: 0, LngSpanE6: 10}).IsEmpty() {
		t.Errorf("Expected zero latitude span to be empty")
	}
	if a.String() != "Region[1, 2, 3, 4]" {
		t.Errorf("Unexpected region string %q", a.String())
	}
}

func TestZoomInFixing(t *testing.T) {
	v := NewViewport(NewGeoPoint(48.856578, 2.351828), 10, 480, 800)
	px := Pixel{X: 100, Y: 200}
	anchor := v.FromPixels(px)

	if !v.ZoomInFixing(px) {
		t.Fatalf("Expected zoom to change")
	}
	if v.Zoom != 11 {
		t.Errorf("Expected zoom 11, got %d", v.Zoom)
	}
	moved := v.ToPixels(anchor)
	if abs(moved.X-px.X) > 1 || abs(moved.Y-px.Y) > 1 {
		t.Errorf("Expected anchor to stay near %v, got %v", px, moved)
	}

	v.Zoom = MaxZoom
	if v.ZoomInFixing(px) {
		t.Errorf("Expected zoom to be capped at %d", MaxZoom)
	}
}

func TestZoomToSpan(t *testing.T) {
	v := NewViewport(NewGeoPoint(0, 0), 3, 256, 256)

	v.ZoomToSpan(1, 1)
	if v.Zoom != MaxZoom {
		t.Errorf("Expected tiny span to zoom to %d, got %d", MaxZoom, v.Zoom)
	}

	v.ZoomToSpan(90_000_000, 180_000_000)
	r := v.Region()
	if r.LatSpanE6 < 90_000_000 || r.LngSpanE6 < 180_000_000 {
		t.Errorf("Expected region to cover the requested span, got %v", r)
	}
}
