package cluster

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"web/polaris/annotation"
	"web/polaris/geo"

	"github.com/klauspost/compress/zstd"
)

// Snapshot layout, little endian:
//
//	magic "PLRS" | version u32 | count u32
//	per annotation: id | lat i32 | lng i32 | title | snippet | marker kind u8
//	                [glyph name | width u32 | height u32] | extra (JSON)
//
// Strings and byte blobs are prefixed by their u32 length.
const (
	snapshotMagic   = "PLRS"
	snapshotVersion = 1

	markerNone  = 0
	markerGlyph = 1

	maxBlobSize = 64 << 20
)

var ErrCorruptSnapshot = errors.New("corrupt snapshot")

type snapshotWriter struct {
	w   io.Writer
	buf [4]byte
	err error
}

func (s *snapshotWriter) uint8(v uint8) {
	if s.err != nil {
		return
	}
	s.buf[0] = v
	_, s.err = s.w.Write(s.buf[:1])
}

func (s *snapshotWriter) uint32(v uint32) {
	if s.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(s.buf[:], v)
	_, s.err = s.w.Write(s.buf[:])
}

func (s *snapshotWriter) bytes(b []byte) {
	s.uint32(uint32(len(b)))
	if s.err != nil || len(b) == 0 {
		return
	}
	_, s.err = s.w.Write(b)
}

func (s *snapshotWriter) string(v string) {
	s.bytes([]byte(v))
}

type snapshotReader struct {
	r   io.Reader
	buf [4]byte
	err error
}

func (s *snapshotReader) uint8() uint8 {
	if s.err != nil {
		return 0
	}
	_, s.err = io.ReadFull(s.r, s.buf[:1])
	return s.buf[0]
}

func (s *snapshotReader) uint32() uint32 {
	if s.err != nil {
		return 0
	}
	_, s.err = io.ReadFull(s.r, s.buf[:])
	return binary.LittleEndian.Uint32(s.buf[:])
}

func (s *snapshotReader) bytes() []byte {
	n := s.uint32()
	if s.err != nil || n == 0 {
		return nil
	}
	if n > maxBlobSize {
		s.err = fmt.Errorf("blob of %d bytes: %w", n, ErrCorruptSnapshot)
		return nil
	}
	b := make([]byte, n)
	_, s.err = io.ReadFull(s.r, b)
	return b
}

func (s *snapshotReader) string() string {
	return string(s.bytes())
}

func encodeExtras(items []*annotation.Annotation) ([][]byte, error) {
	extras := make([][]byte, len(items))
	for i, item := range items {
		if item.Extra == nil {
			continue
		}
		b, err := json.Marshal(item.Extra)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extra of %s: %v", item.ID, err)
		}
		extras[i] = b
	}
	return extras, nil
}

func decodeExtra(b []byte) (interface{}, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extra: %v", err)
	}
	return v, nil
}

// WriteSnapshot writes the uncompressed snapshot of items to w. Only Glyph
// markers are persisted; other markers are dropped.
func WriteSnapshot(w io.Writer, items []*annotation.Annotation) error {
	extras, err := encodeExtras(items)
	if err != nil {
		return err
	}

	sw := &snapshotWriter{w: w}
	if _, err := io.WriteString(w, snapshotMagic); err != nil {
		return fmt.Errorf("failed to write header: %v", err)
	}
	sw.uint32(snapshotVersion)
	sw.uint32(uint32(len(items)))

	for i, item := range items {
		sw.string(item.ID)
		sw.uint32(uint32(int32(item.Point.LatE6)))
		sw.uint32(uint32(int32(item.Point.LngE6)))
		sw.string(item.Title)
		sw.string(item.Snippet)
		if glyph, ok := item.Marker.(annotation.Glyph); ok {
			sw.uint8(markerGlyph)
			sw.string(glyph.Name)
			sw.uint32(uint32(glyph.Width))
			sw.uint32(uint32(glyph.Height))
		} else {
			sw.uint8(markerNone)
		}
		sw.bytes(extras[i])
	}

	if sw.err != nil {
		return fmt.Errorf("failed to write snapshot: %v", sw.err)
	}
	return nil
}

func ReadSnapshot(r io.Reader) ([]*annotation.Annotation, error) {
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read header: %v", err)
	}
	if string(magic) != snapshotMagic {
		return nil, fmt.Errorf("bad magic %q: %w", magic, ErrCorruptSnapshot)
	}

	sr := &snapshotReader{r: r}
	if version := sr.uint32(); sr.err == nil && version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}
	count := sr.uint32()
	if sr.err != nil {
		return nil, fmt.Errorf("failed to read header: %v", sr.err)
	}

	items := make([]*annotation.Annotation, 0, min(int(count), 1<<20))
	for i := uint32(0); i < count; i++ {
		item := &annotation.Annotation{ID: sr.string()}
		item.Point = geo.GeoPoint{
			LatE6: int(int32(sr.uint32())),
			LngE6: int(int32(sr.uint32())),
		}
		item.Title = sr.string()
		item.Snippet = sr.string()

		switch kind := sr.uint8(); kind {
		case markerNone:
		case markerGlyph:
			item.Marker = annotation.Glyph{
				Name:   sr.string(),
				Width:  int(sr.uint32()),
				Height: int(sr.uint32()),
			}
		default:
			if sr.err == nil {
				return nil, fmt.Errorf("marker kind %d: %w", kind, ErrCorruptSnapshot)
			}
		}

		extra := sr.bytes()
		if sr.err != nil {
			return nil, fmt.Errorf("failed to read annotation %d: %v", i, sr.err)
		}
		v, err := decodeExtra(extra)
		if err != nil {
			return nil, err
		}
		item.Extra = v
		items = append(items, item)
	}

	return items, nil
}

// WriteCompressed writes a zstd-compressed snapshot.
func WriteCompressed(w io.Writer, items []*annotation.Annotation) error {
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %v", err)
	}
	if err := WriteSnapshot(enc, items); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush zstd writer: %v", err)
	}
	return nil
}

func ReadCompressed(r io.Reader) ([]*annotation.Annotation, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	return ReadSnapshot(bufio.NewReaderSize(dec, 1024*1024))
}

func SaveCompressed(filename string, items []*annotation.Annotation) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	if err := WriteCompressed(bufWriter, items); err != nil {
		return err
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush file: %v", err)
	}
	return file.Sync()
}

func LoadCompressed(filename string) ([]*annotation.Annotation, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	return ReadCompressed(bufio.NewReaderSize(file, 1024*1024))
}

// SaveCompressed saves the cached annotations of the clusterer.
func (c *Clusterer) SaveCompressed(filename string) error {
	return SaveCompressed(filename, c.annotations)
}

// LoadCompressedClusterer creates a clusterer whose cache holds the
// annotations of a compressed snapshot.
func LoadCompressedClusterer(filename string, config *Config, options Options) (*Clusterer, error) {
	items, err := LoadCompressed(filename)
	if err != nil {
		return nil, err
	}
	c := NewClusterer(config, options)
	c.SetAnnotations(items)
	return c, nil
}
