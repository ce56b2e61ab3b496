package annotation

import (
	"web/polaris/geo"

	"github.com/google/uuid"
)

// Annotation is a geo-located item shown on the map. Annotations produced by
// clustering carry their source annotations in Members: a single-element list
// for a passthrough annotation, two or more for a cluster.
type Annotation struct {
	ID      string       `json:"id"`
	Point   geo.GeoPoint `json:"point"`
	Title   string       `json:"title,omitempty"`
	Snippet string       `json:"snippet,omitempty"`
	Marker  Marker       `json:"-"`
	Extra   any          `json:"extra,omitempty"`

	Members []*Annotation `json:"-"`
}

func New(point geo.GeoPoint, title, snippet string) *Annotation {
	return &Annotation{
		ID:      uuid.New().String(),
		Point:   point,
		Title:   title,
		Snippet: snippet,
	}
}

// IsCluster reports whether the annotation stands for several annotations.
func (a *Annotation) IsCluster() bool {
	return len(a.Members) > 1
}

// Count is the number of source annotations represented.
func (a *Annotation) Count() int {
	if len(a.Members) == 0 {
		return 1
	}
	return len(a.Members)
}

// HasDisplayableContent reports whether a callout would have anything to show.
func (a *Annotation) HasDisplayableContent() bool {
	return a.Title != "" || a.Snippet != ""
}
