package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"web/polaris/annotation"
)

var ErrNotFound = errors.New("dataset not found")

// DatasetInfo describes a saved set of annotations.
type DatasetInfo struct {
	ID        string    `json:"id"`
	NumPoints int       `json:"numPoints"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"fileSize"`
}

// Store keeps annotation datasets as compressed snapshots.
type Store interface {
	Save(ctx context.Context, items []*annotation.Annotation) (DatasetInfo, error)
	Load(ctx context.Context, id string) ([]*annotation.Annotation, error)
	Info(ctx context.Context, id string) (DatasetInfo, error)
	// List returns every dataset, newest first.
	List(ctx context.Context) ([]DatasetInfo, error)
}

func sortNewestFirst(infos []DatasetInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Timestamp.Equal(infos[j].Timestamp) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
}
