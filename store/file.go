package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"web/polaris/annotation"
	"web/polaris/cluster"
)

const timestampLayout = "20060102-150405"

// FileStore keeps each dataset in its own zstd snapshot file under Dir.
// Format: dataset-{numPoints}p-{timestamp}-{id}.zst
type FileStore struct {
	Dir     string
	UseMMap bool
	Logger  *slog.Logger
}

func NewFileStore(dir string, useMMap bool) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	return &FileStore{Dir: dir, UseMMap: useMMap, Logger: slog.Default()}, nil
}

func (s *FileStore) filename(numPoints int, ts time.Time, id string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("dataset-%dp-%s-%s.zst", numPoints, ts.Format(timestampLayout), id))
}

// parseFilename reverses filename. It reports false for foreign files.
func parseFilename(name string) (DatasetInfo, bool) {
	if !strings.HasPrefix(name, "dataset-") || filepath.Ext(name) != ".zst" {
		return DatasetInfo{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, ".zst"), "-")
	if len(parts) != 5 {
		return DatasetInfo{}, false
	}

	numPoints, err := strconv.Atoi(strings.TrimSuffix(parts[1], "p"))
	if err != nil {
		return DatasetInfo{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, parts[2]+"-"+parts[3], time.Local)
	if err != nil {
		return DatasetInfo{}, false
	}
	return DatasetInfo{ID: parts[4], NumPoints: numPoints, Timestamp: ts}, true
}

func (s *FileStore) Save(_ context.Context, items []*annotation.Annotation) (DatasetInfo, error) {
	ts := time.Now().Truncate(time.Second)
	id := uuid.New().String()[:8]
	path := s.filename(len(items), ts, id)

	if err := cluster.SaveCompressed(path, items); err != nil {
		return DatasetInfo{}, fmt.Errorf("failed to save dataset: %w", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("failed to get file info: %w", err)
	}

	s.logger().Info("dataset saved", "id", id, "points", len(items), "path", path, "size", fi.Size())
	return DatasetInfo{ID: id, NumPoints: len(items), Timestamp: ts, Size: fi.Size()}, nil
}

func (s *FileStore) find(id string) (string, DatasetInfo, error) {
	files, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", DatasetInfo{}, fmt.Errorf("failed to read dataset directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, ok := parseFilename(file.Name())
		if !ok || info.ID != id {
			continue
		}
		fi, err := file.Info()
		if err != nil {
			return "", DatasetInfo{}, err
		}
		info.Size = fi.Size()
		return filepath.Join(s.Dir, file.Name()), info, nil
	}
	return "", DatasetInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *FileStore) Load(_ context.Context, id string) ([]*annotation.Annotation, error) {
	path, _, err := s.find(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var items []*annotation.Annotation
	if s.UseMMap {
		items, err = cluster.LoadCompressedMMap(path)
	} else {
		items, err = cluster.LoadCompressed(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", id, err)
	}

	s.logger().Debug("dataset loaded", "id", id, "points", len(items), "mmap", s.UseMMap, "took", time.Since(start))
	return items, nil
}

func (s *FileStore) Info(_ context.Context, id string) (DatasetInfo, error) {
	_, info, err := s.find(id)
	return info, err
}

func (s *FileStore) List(_ context.Context) ([]DatasetInfo, error) {
	files, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	infos := make([]DatasetInfo, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, ok := parseFilename(file.Name())
		if !ok {
			continue
		}
		if fi, err := file.Info(); err == nil {
			info.Size = fi.Size()
		}
		infos = append(infos, info)
	}

	sortNewestFirst(infos)
	return infos, nil
}

func (s *FileStore) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
