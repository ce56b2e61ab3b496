package cluster

import (
	"fmt"
	"log/slog"
	"time"

	"web/polaris/annotation"
	"web/polaris/geo"
)

const (
	DefaultGridSize = 20 // dips
	DefaultTitle    = "Cluster"
)

type Options struct {
	GridSize int     // half-width of the clustering box, in dips
	Density  float32 // screen density, pixels per dip
	Title    string
	Snippet  func(count int) string
	Renderer GlyphRenderer
	Logger   *slog.Logger
}

// Clusterer groups annotations whose screen positions fall within a grid
// box around the first annotation of an existing group. It keeps a cache of
// annotations so hosts can re-run clustering whenever the viewport settles.
type Clusterer struct {
	Options Options
	Config  *Config

	annotations []*annotation.Annotation
}

// Cluster is the working state of one group during a pass. Its center is
// the screen position of the first member and never moves.
type Cluster struct {
	Center  geo.Pixel
	Members []*annotation.Annotation
}

func (c *Cluster) contains(px geo.Pixel, gridPx int) bool {
	return px.X >= c.Center.X-gridPx && px.X <= c.Center.X+gridPx &&
		px.Y >= c.Center.Y-gridPx && px.Y <= c.Center.Y+gridPx
}

// NewClusterer creates a clusterer. A nil config selects DefaultConfig and
// zero options take their default values.
func NewClusterer(config *Config, options Options) *Clusterer {
	if config == nil {
		config = DefaultConfig()
	}
	if options.GridSize <= 0 {
		options.GridSize = DefaultGridSize
	}
	if options.Density <= 0 {
		options.Density = 1
	}
	if options.Title == "" {
		options.Title = DefaultTitle
	}
	if options.Snippet == nil {
		options.Snippet = DefaultSnippet
	}
	if options.Renderer == nil {
		options.Renderer = SpotRenderer{Density: options.Density}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Clusterer{
		Options: options,
		Config:  config,
	}
}

func DefaultSnippet(count int) string {
	if count == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", count)
}

// GridSizePx is the grid half-width in pixels for the configured density.
func (c *Clusterer) GridSizePx() int {
	return int(float32(c.Options.GridSize)*c.Options.Density + 0.5)
}

// SetAnnotations replaces the cached annotations.
func (c *Clusterer) SetAnnotations(items []*annotation.Annotation) {
	c.annotations = append([]*annotation.Annotation(nil), items...)
}

func (c *Clusterer) Add(items ...*annotation.Annotation) {
	c.annotations = append(c.annotations, items...)
}

func (c *Clusterer) Clear() {
	c.annotations = nil
}

func (c *Clusterer) Annotations() []*annotation.Annotation {
	return c.annotations
}

// Clusters clusters the cached annotations with the given projection.
func (c *Clusterer) Clusters(proj geo.Projection) []*annotation.Annotation {
	return c.Cluster(proj, c.annotations)
}

// Cluster runs a single clustering pass. Each annotation joins the most
// recently created cluster whose center is within the grid box, or starts a
// new one. The result holds one annotation per cluster in creation order.
func (c *Clusterer) Cluster(proj geo.Projection, items []*annotation.Annotation) []*annotation.Annotation {
	if len(items) == 0 {
		return []*annotation.Annotation{}
	}

	start := time.Now()
	gridPx := c.GridSizePx()
	clusters := c.clusterPoints(proj, items, gridPx)

	result := make([]*annotation.Annotation, 0, len(clusters))
	for _, cl := range clusters {
		result = append(result, c.createCluster(cl))
	}

	c.Options.Logger.Debug("clustered annotations",
		"points", len(items),
		"clusters", len(result),
		"gridPx", gridPx,
		"duration", time.Since(start))

	return result
}

func (c *Clusterer) clusterPoints(proj geo.Projection, items []*annotation.Annotation, gridPx int) []*Cluster {
	var clusters []*Cluster

	for _, item := range items {
		if item == nil {
			continue
		}
		pos := proj.ToPixels(item.Point)

		var found *Cluster
		for i := len(clusters) - 1; i >= 0; i-- {
			if clusters[i].contains(pos, gridPx) {
				found = clusters[i]
				break
			}
		}

		if found != nil {
			found.Members = append(found.Members, item)
		} else {
			clusters = append(clusters, &Cluster{
				Center:  pos,
				Members: []*annotation.Annotation{item},
			})
		}
	}

	return clusters
}

func (c *Clusterer) createCluster(cl *Cluster) *annotation.Annotation {
	if len(cl.Members) == 1 {
		item := *cl.Members[0]
		item.Members = []*annotation.Annotation{cl.Members[0]}
		return &item
	}

	count := len(cl.Members)
	tier := c.Config.TierFor(count)

	return &annotation.Annotation{
		ID:      fmt.Sprintf("cluster-%s-%d", cl.Members[0].ID, count),
		Point:   cl.Members[0].Point,
		Title:   c.Options.Title,
		Snippet: c.Options.Snippet(count),
		Marker:  c.Options.Renderer.RenderClusterGlyph(tier, count, c.Config.Spot(tier)),
		Members: cl.Members,
	}
}
