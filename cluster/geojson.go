package cluster

import (
	"web/polaris/annotation"
	"web/polaris/geo"
)

// GeoJSON types
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// ToGeoJSON converts clustering output to GeoJSON. When proj is not nil the
// screen position of every annotation is added to its properties.
func ToGeoJSON(items []*annotation.Annotation, proj geo.Projection) *FeatureCollection {
	features := make([]Feature, len(items))
	for i, item := range items {
		features[i] = ToFeature(item, proj)
		features[i].Properties["index"] = i
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

func ToFeature(item *annotation.Annotation, proj geo.Projection) Feature {
	properties := make(map[string]interface{})

	// Add extra first so the fields below win on key collisions
	if extra, ok := item.Extra.(map[string]interface{}); ok {
		for k, v := range extra {
			properties[k] = v
		}
	}

	properties["id"] = item.ID
	properties["cluster"] = item.IsCluster()
	properties["point_count"] = item.Count()
	if item.Title != "" {
		properties["title"] = item.Title
	}
	if item.Snippet != "" {
		properties["snippet"] = item.Snippet
	}
	if glyph, ok := item.Marker.(SpotGlyph); ok {
		properties["tier"] = glyph.Tier.String()
		properties["glyph"] = glyph
	}
	if proj != nil {
		px := proj.ToPixels(item.Point)
		properties["x"] = px.X
		properties["y"] = px.Y
	}

	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: []float64{item.Point.Lng(), item.Point.Lat()},
		},
		Properties: properties,
	}
}
