package cluster

import (
	"errors"
	"fmt"
)

const (
	DefaultLowThreshold    = 10
	DefaultMediumThreshold = 20
)

var ErrInvalidThresholds = errors.New("medium threshold must be greater than low threshold")

type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	default:
		return "high"
	}
}

// Spot describes how a cluster glyph of a given tier looks. Width and Height
// are in density-independent pixels; zero means the tier's default size.
type Spot struct {
	Title     string `json:"title,omitempty" mapstructure:"title"`
	TextSize  int    `json:"textSize" mapstructure:"text_size"`
	TextColor string `json:"textColor" mapstructure:"text_color"`
	Drawable  string `json:"drawable" mapstructure:"drawable"`
	Width     int    `json:"width,omitempty" mapstructure:"width"`
	Height    int    `json:"height,omitempty" mapstructure:"height"`
}

var (
	DefaultLowSpot    = Spot{TextSize: 12, TextColor: "#ffffff", Drawable: "cluster_low", Width: 30, Height: 30}
	DefaultMediumSpot = Spot{TextSize: 14, TextColor: "#ffffff", Drawable: "cluster_medium", Width: 38, Height: 38}
	DefaultHighSpot   = Spot{TextSize: 16, TextColor: "#ffffff", Drawable: "cluster_high", Width: 46, Height: 46}
)

// Config maps cluster sizes to tiers: up to Low members is a low cluster, up
// to Medium a medium one, anything bigger is high.
type Config struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`

	LowSpot    Spot `json:"lowSpot"`
	MediumSpot Spot `json:"mediumSpot"`
	HighSpot   Spot `json:"highSpot"`
}

type ConfigOption func(*Config)

func WithLowSpot(s Spot) ConfigOption    { return func(c *Config) { c.LowSpot = s } }
func WithMediumSpot(s Spot) ConfigOption { return func(c *Config) { c.MediumSpot = s } }
func WithHighSpot(s Spot) ConfigOption   { return func(c *Config) { c.HighSpot = s } }

func NewConfig(low, medium int, opts ...ConfigOption) (*Config, error) {
	c := &Config{
		Low:        low,
		Medium:     medium,
		LowSpot:    DefaultLowSpot,
		MediumSpot: DefaultMediumSpot,
		HighSpot:   DefaultHighSpot,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func DefaultConfig() *Config {
	return &Config{
		Low:        DefaultLowThreshold,
		Medium:     DefaultMediumThreshold,
		LowSpot:    DefaultLowSpot,
		MediumSpot: DefaultMediumSpot,
		HighSpot:   DefaultHighSpot,
	}
}

func (c *Config) Validate() error {
	if c.Medium <= c.Low {
		return fmt.Errorf("low=%d medium=%d: %w", c.Low, c.Medium, ErrInvalidThresholds)
	}
	return nil
}

func (c *Config) TierFor(count int) Tier {
	switch {
	case count <= c.Low:
		return TierLow
	case count <= c.Medium:
		return TierMedium
	default:
		return TierHigh
	}
}

func defaultSpot(t Tier) Spot {
	switch t {
	case TierLow:
		return DefaultLowSpot
	case TierMedium:
		return DefaultMediumSpot
	default:
		return DefaultHighSpot
	}
}

func (c *Config) Spot(t Tier) Spot {
	switch t {
	case TierLow:
		return c.LowSpot
	case TierMedium:
		return c.MediumSpot
	default:
		return c.HighSpot
	}
}
