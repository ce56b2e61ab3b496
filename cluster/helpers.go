package cluster

import (
	"fmt"
	"math/rand"
	"time"

	"web/polaris/annotation"
	"web/polaris/geo"
)

type Summary struct {
	TotalPoints     int                    `json:"totalPoints"`
	NumClusters     int                    `json:"numClusters"`
	NumSinglePoints int                    `json:"numSinglePoints"`
	Tiers           map[string]int         `json:"tiers"`
	MetadataSummary map[string]interface{} `json:"metadataSummary"`
}

// Summarize describes a clustering output. Tiers is only filled for clusters
// whose marker came from SpotRenderer. Metadata is read from map-shaped Extra
// payloads of the source annotations.
func Summarize(items []*annotation.Annotation) Summary {
	summary := Summary{
		Tiers:           make(map[string]int),
		MetadataSummary: make(map[string]interface{}),
	}

	if len(items) == 0 {
		return summary
	}

	timeRange := struct {
		min   time.Time
		max   time.Time
		count int
	}{}
	metadataFreq := make(map[string]map[string]int)

	for _, item := range items {
		if item.IsCluster() {
			summary.NumClusters++
			if glyph, ok := item.Marker.(SpotGlyph); ok {
				summary.Tiers[glyph.Tier.String()]++
			}
		} else {
			summary.NumSinglePoints++
		}
		summary.TotalPoints += item.Count()

		members := item.Members
		if len(members) == 0 {
			members = []*annotation.Annotation{item}
		}
		for _, m := range members {
			extra, ok := m.Extra.(map[string]interface{})
			if !ok {
				continue
			}
			for key, value := range extra {
				switch key {
				case "timestamp":
					ts, ok := parseTimestamp(value)
					if !ok {
						continue
					}
					if timeRange.count == 0 || ts.Before(timeRange.min) {
						timeRange.min = ts
					}
					if ts.After(timeRange.max) {
						timeRange.max = ts
					}
					timeRange.count++
				default:
					if _, exists := metadataFreq[key]; !exists {
						metadataFreq[key] = make(map[string]int)
					}
					metadataFreq[key][fmt.Sprint(value)]++
				}
			}
		}
	}

	if timeRange.count > 0 {
		summary.MetadataSummary["timeRange"] = map[string]string{
			"start": timeRange.min.Format(time.RFC3339),
			"end":   timeRange.max.Format(time.RFC3339),
		}
	}

	for key, freqMap := range metadataFreq {
		if key == "category" {
			distribution := make(map[string]float64)
			total := 0
			for _, count := range freqMap {
				total += count
			}
			for value, count := range freqMap {
				distribution[value] = float64(count) / float64(total) * 100
			}
			summary.MetadataSummary[key] = distribution
			continue
		}

		var mostCommon string
		var maxCount int
		for value, count := range freqMap {
			if count > maxCount || (count == maxCount && value < mostCommon) {
				maxCount = count
				mostCommon = value
			}
		}
		summary.MetadataSummary[key] = mostCommon
	}

	return summary
}

func parseTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		ts, err := time.Parse(time.RFC3339, t)
		return ts, err == nil
	}
	return time.Time{}, false
}

// Bounds is a latitude/longitude box in degrees.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

var WorldBounds = Bounds{MinLat: -85, MinLng: -180, MaxLat: 85, MaxLng: 180}

// GenerateTestAnnotations creates n random annotations inside bounds. The
// same seed always yields the same coordinates.
func GenerateTestAnnotations(n int, bounds Bounds, seed int64) []*annotation.Annotation {
	r := rand.New(rand.NewSource(seed))
	now := time.Now()
	items := make([]*annotation.Annotation, n)

	for i := 0; i < n; i++ {
		lat := bounds.MinLat + r.Float64()*(bounds.MaxLat-bounds.MinLat)
		lng := bounds.MinLng + r.Float64()*(bounds.MaxLng-bounds.MinLng)

		item := annotation.New(geo.NewGeoPoint(lat, lng), fmt.Sprintf("Point %d", i+1), "")
		item.Extra = map[string]interface{}{
			"timestamp": now.Add(-time.Duration(r.Intn(7*24)) * time.Hour).Format(time.RFC3339),
			"category":  []string{"A", "B", "C"}[r.Intn(3)],
		}
		items[i] = item
	}

	return items
}
