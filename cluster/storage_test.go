package cluster

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"web/polaris/annotation"
	"web/polaris/geo"
)

func sampleAnnotations() []*annotation.Annotation {
	items := GenerateTestAnnotations(100, WorldBounds, 42)
	items[0].Marker = annotation.Glyph{Name: "flag", Width: 12, Height: 20}
	items[1].Extra = nil
	items[2].Point = geo.NewGeoPoint(-33.868820, -151.209296)
	return items
}

func checkSameAnnotations(t *testing.T, want, got []*annotation.Annotation) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d annotations, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if w.ID != g.ID || w.Point != g.Point || w.Title != g.Title || w.Snippet != g.Snippet {
			t.Errorf("Annotation %d: expected %+v, got %+v", i, w, g)
		}
		if w.Marker != g.Marker {
			t.Errorf("Annotation %d: expected marker %v, got %v", i, w.Marker, g.Marker)
		}
		if (w.Extra == nil) != (g.Extra == nil) {
			t.Errorf("Annotation %d: expected extra %v, got %v", i, w.Extra, g.Extra)
		}
	}
}

func TestSaveLoadCompressed(t *testing.T) {
	items := sampleAnnotations()
	filename := filepath.Join(t.TempDir(), "dataset.zst")

	if err := SaveCompressed(filename, items); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := LoadCompressed(filename)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	checkSameAnnotations(t, items, loaded)

	extra := loaded[0].Extra.(map[string]interface{})
	if extra["category"] != items[0].Extra.(map[string]interface{})["category"] {
		t.Errorf("Expected category to survive, got %v", extra["category"])
	}

	mapped, err := LoadCompressedMMap(filename)
	if err != nil {
		t.Fatalf("Failed to load through mmap: %v", err)
	}
	checkSameAnnotations(t, items, mapped)

	if _, err := os.Stat(filename + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temporary file to be removed")
	}
}

func TestSaveMMapMatchesStream(t *testing.T) {
	items := sampleAnnotations()
	filename := filepath.Join(t.TempDir(), "dataset.bin")

	if err := SaveMMap(filename, items); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, items); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}
	onDisk, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if !bytes.Equal(onDisk, buf.Bytes()) {
		t.Errorf("Expected mmap layout to match the stream layout (%d vs %d bytes)", len(onDisk), buf.Len())
	}

	loaded, err := LoadMMap(filename)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	checkSameAnnotations(t, items, loaded)
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	if _, err := ReadSnapshot(bytes.NewReader([]byte("NOPE0000"))); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Expected ErrCorruptSnapshot, got %v", err)
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, sampleAnnotations()); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}
	if _, err := ReadSnapshot(bytes.NewReader(buf.Bytes()[:buf.Len()/2])); err == nil {
		t.Errorf("Expected truncated snapshot to fail")
	}
}

func TestClustererSnapshot(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "clusterer.zst")
	c := NewClusterer(nil, Options{})
	c.SetAnnotations(sampleAnnotations())

	if err := c.SaveCompressed(filename); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	loaded, err := LoadCompressedClusterer(filename, nil, Options{GridSize: 30})
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.Options.GridSize != 30 {
		t.Errorf("Expected options to be applied, got grid %d", loaded.Options.GridSize)
	}
	checkSameAnnotations(t, c.Annotations(), loaded.Annotations())
}
