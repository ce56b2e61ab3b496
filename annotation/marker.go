package annotation

import (
	"errors"
	"fmt"
)

var ErrDegenerateMarker = errors.New("marker has a non-positive intrinsic size")

// Marker is an opaque glyph reference. The engine only needs its pixel size.
type Marker interface {
	IntrinsicSize() (width, height int)
}

// Glyph is a named marker image of a known size.
type Glyph struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (g Glyph) IntrinsicSize() (int, int) {
	return g.Width, g.Height
}

// DefaultPin is used for annotations that do not carry their own marker.
var DefaultPin = Glyph{Name: "pin", Width: 32, Height: 39}

type Gravity int

const (
	CenterBottom Gravity = iota
	Center
	CenterTop
)

// Bounds is a rectangle relative to the anchor point of a marker.
type Bounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (b Bounds) Width() int  { return b.Right - b.Left }
func (b Bounds) Height() int { return b.Bottom - b.Top }

// Contains reports whether the offset (dx, dy) from the anchor falls inside.
func (b Bounds) Contains(dx, dy int) bool {
	return dx >= b.Left && dx < b.Right && dy >= b.Top && dy < b.Bottom
}

// MarkerBounds positions the marker around its anchor according to gravity.
func MarkerBounds(m Marker, gravity Gravity) (Bounds, error) {
	if m == nil {
		return Bounds{}, fmt.Errorf("nil marker: %w", ErrDegenerateMarker)
	}
	w, h := m.IntrinsicSize()
	if w <= 0 || h <= 0 {
		return Bounds{}, fmt.Errorf("%dx%d: %w", w, h, ErrDegenerateMarker)
	}

	left := -w / 2
	b := Bounds{Left: left, Right: left + w}
	switch gravity {
	case Center:
		b.Top = -h / 2
		b.Bottom = b.Top + h
	case CenterTop:
		b.Top = 0
		b.Bottom = h
	default:
		b.Top = -h
		b.Bottom = 0
	}
	return b, nil
}
