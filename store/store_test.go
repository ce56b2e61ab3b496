package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"web/polaris/cluster"
	"web/polaris/config"
)

func TestParseFilename(t *testing.T) {
	info, ok := parseFilename("dataset-1000p-20240102-030405-abcd1234.zst")
	if !ok {
		t.Fatal("Expected filename to parse")
	}
	if info.ID != "abcd1234" || info.NumPoints != 1000 {
		t.Errorf("Unexpected info %+v", info)
	}
	if info.Timestamp.Year() != 2024 || info.Timestamp.Second() != 5 {
		t.Errorf("Unexpected timestamp %v", info.Timestamp)
	}

	for _, name := range []string{"cluster-10p-20240102-030405-abcd.zst", "dataset-xp-20240102-030405-abcd.zst", "dataset-10p-abcd.zst", "dataset-10p-20240102-030405-abcd.json"} {
		if _, ok := parseFilename(name); ok {
			t.Errorf("Expected %s to be rejected", name)
		}
	}
}

func testFileStore(t *testing.T, useMMap bool) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "datasets"), useMMap)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	items := cluster.GenerateTestAnnotations(250, cluster.WorldBounds, 42)
	info, err := s.Save(ctx, items)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(info.ID) != 8 || info.NumPoints != 250 || info.Size <= 0 {
		t.Errorf("Unexpected info %+v", info)
	}

	loaded, err := s.Load(ctx, info.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(loaded) != len(items) {
		t.Fatalf("Expected %d annotations, got %d", len(items), len(loaded))
	}
	for i := range items {
		if loaded[i].ID != items[i].ID || loaded[i].Point != items[i].Point {
			t.Fatalf("Annotation %d differs: %+v vs %+v", i, loaded[i], items[i])
		}
	}

	got, err := s.Info(ctx, info.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Size != info.Size || !got.Timestamp.Equal(info.Timestamp) {
		t.Errorf("Expected %+v, got %+v", info, got)
	}
}

func TestFileStoreStream(t *testing.T) { testFileStore(t, false) }
func TestFileStoreMMap(t *testing.T)   { testFileStore(t, true) }

func TestFileStoreNotFound(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := s.Load(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.Info(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	items := cluster.GenerateTestAnnotations(3, cluster.WorldBounds, 1)
	older := s.filename(3, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), "older000")
	newer := s.filename(3, time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local), "newer000")
	for _, path := range []string{older, newer} {
		if err := cluster.SaveCompressed(path, items); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	infos, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 datasets, got %d", len(infos))
	}
	if infos[0].ID != "newer000" || infos[1].ID != "older000" {
		t.Errorf("Expected newest first, got %s, %s", infos[0].ID, infos[1].ID)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("POLARIS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("POLARIS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := OpenRedis(addr, "", 0)
	defer client.Close()

	prefix := "polaris-test-" + time.Now().Format("150405.000")
	s := NewRedisStore(client, prefix, time.Minute)
	defer client.Del(ctx, s.indexKey())

	items := cluster.GenerateTestAnnotations(50, cluster.WorldBounds, 7)
	info, err := s.Save(ctx, items)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer client.Del(ctx, s.dataKey(info.ID))

	loaded, err := s.Load(ctx, info.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(loaded) != 50 || loaded[0].ID != items[0].ID {
		t.Errorf("Unexpected snapshot contents")
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != info.ID {
		t.Errorf("Expected the saved dataset to be listed, got %v", infos)
	}

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestOpenRedisWithoutAddress(t *testing.T) {
	if OpenRedis("", "", 0) != nil {
		t.Errorf("Expected nil client without an address")
	}
}

func TestOpenFileBackend(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: "file", Dir: filepath.Join(t.TempDir(), "d"), UseMMap: true}}
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fs, ok := s.(*FileStore)
	if !ok || !fs.UseMMap {
		t.Errorf("Expected an mmap file store, got %T", s)
	}

	cfg.Store.Backend = "s3"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Errorf("Expected error for an unknown backend")
	}
}
