package cluster

import (
	"strconv"

	"web/polaris/annotation"
)

// GlyphRenderer produces the marker of a cluster annotation. It must be a
// pure function of its arguments.
type GlyphRenderer interface {
	RenderClusterGlyph(tier Tier, count int, spot Spot) annotation.Marker
}

// SpotGlyph is the marker produced by SpotRenderer: a tier-styled spot with
// the member count (or the spot title) drawn on top.
type SpotGlyph struct {
	Tier      Tier   `json:"tier"`
	Count     int    `json:"count"`
	Text      string `json:"text"`
	TextSize  int    `json:"textSize"`
	TextColor string `json:"textColor"`
	Drawable  string `json:"drawable"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

func (g SpotGlyph) IntrinsicSize() (int, int) {
	return g.Width, g.Height
}

type SpotRenderer struct {
	Density float32
}

func (r SpotRenderer) RenderClusterGlyph(tier Tier, count int, spot Spot) annotation.Marker {
	density := r.Density
	if density <= 0 {
		density = 1
	}

	if spot.Width <= 0 {
		spot.Width = defaultSpot(tier).Width
	}
	if spot.Height <= 0 {
		spot.Height = defaultSpot(tier).Height
	}

	text := spot.Title
	if text == "" {
		text = strconv.Itoa(count)
	}

	return SpotGlyph{
		Tier:      tier,
		Count:     count,
		Text:      text,
		TextSize:  dipToPx(spot.TextSize, density),
		TextColor: spot.TextColor,
		Drawable:  spot.Drawable,
		Width:     dipToPx(spot.Width, density),
		Height:    dipToPx(spot.Height, density),
	}
}

func dipToPx(dip int, density float32) int {
	return int(float32(dip)*density + 0.5)
}
