package cluster

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"web/polaris/annotation"
	"web/polaris/geo"

	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zstd"
)

// MMapWriter writes snapshot fields into a memory-mapped file.
type MMapWriter struct {
	data   mmap.MMap
	offset int
}

func NewMMapWriter(data mmap.MMap) *MMapWriter {
	return &MMapWriter{
		data:   data,
		offset: 0,
	}
}

func (w *MMapWriter) WriteUint8(v uint8) {
	w.data[w.offset] = v
	w.offset++
}

func (w *MMapWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.data[w.offset:], v)
	w.offset += 4
}

func (w *MMapWriter) WriteBytes(b []byte) {
	copy(w.data[w.offset:], b)
	w.offset += len(b)
}

func (w *MMapWriter) WriteBlob(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.WriteBytes(b)
}

// MMapReader reads snapshot fields from a memory-mapped file. Reads past the
// end set Err instead of panicking.
type MMapReader struct {
	data   mmap.MMap
	offset int
	Err    error
}

func NewMMapReader(data mmap.MMap) *MMapReader {
	return &MMapReader{
		data:   data,
		offset: 0,
	}
}

func (r *MMapReader) need(n int) bool {
	if r.Err != nil {
		return false
	}
	if n < 0 || r.offset+n > len(r.data) {
		r.Err = fmt.Errorf("read of %d bytes at offset %d: %w", n, r.offset, ErrCorruptSnapshot)
		return false
	}
	return true
}

func (r *MMapReader) ReadUint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.offset]
	r.offset++
	return v
}

func (r *MMapReader) ReadUint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v
}

// ReadBytes copies the next n bytes out of the mapping.
func (r *MMapReader) ReadBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.offset:r.offset+n])
	r.offset += n
	return b
}

func (r *MMapReader) ReadBlob() []byte {
	n := r.ReadUint32()
	if n == 0 {
		return nil
	}
	return r.ReadBytes(int(n))
}

// calculateSize returns the byte size of the snapshot of items.
func calculateSize(items []*annotation.Annotation, extras [][]byte) int64 {
	size := int64(len(snapshotMagic) + 8)

	for i, item := range items {
		size += 4 + int64(len(item.ID))
		size += 8
		size += 4 + int64(len(item.Title))
		size += 4 + int64(len(item.Snippet))
		size += 1
		if glyph, ok := item.Marker.(annotation.Glyph); ok {
			size += 4 + int64(len(glyph.Name)) + 8
		}
		size += 4 + int64(len(extras[i]))
	}

	return size
}

// SaveMMap writes an uncompressed snapshot through a memory mapping. The
// file layout is the one produced by WriteSnapshot.
func SaveMMap(filename string, items []*annotation.Annotation) error {
	extras, err := encodeExtras(items)
	if err != nil {
		return err
	}
	size := calculateSize(items, extras)

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate file: %v", err)
	}

	mmapData, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mmapData.Unmap()

	writer := NewMMapWriter(mmapData)
	writer.WriteBytes([]byte(snapshotMagic))
	writer.WriteUint32(snapshotVersion)
	writer.WriteUint32(uint32(len(items)))

	for i, item := range items {
		writer.WriteBlob([]byte(item.ID))
		writer.WriteUint32(uint32(int32(item.Point.LatE6)))
		writer.WriteUint32(uint32(int32(item.Point.LngE6)))
		writer.WriteBlob([]byte(item.Title))
		writer.WriteBlob([]byte(item.Snippet))
		if glyph, ok := item.Marker.(annotation.Glyph); ok {
			writer.WriteUint8(markerGlyph)
			writer.WriteBlob([]byte(glyph.Name))
			writer.WriteUint32(uint32(glyph.Width))
			writer.WriteUint32(uint32(glyph.Height))
		} else {
			writer.WriteUint8(markerNone)
		}
		writer.WriteBlob(extras[i])
	}

	return mmapData.Flush()
}

func LoadMMap(filename string) ([]*annotation.Annotation, error) {
	file, err := os.OpenFile(filename, os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	mmapData, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %v", err)
	}
	defer mmapData.Unmap()

	reader := NewMMapReader(mmapData)

	if string(reader.ReadBytes(len(snapshotMagic))) != snapshotMagic {
		return nil, fmt.Errorf("bad magic: %w", ErrCorruptSnapshot)
	}
	if version := reader.ReadUint32(); version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}
	count := reader.ReadUint32()
	if reader.Err != nil {
		return nil, reader.Err
	}

	items := make([]*annotation.Annotation, 0, min(int(count), 1<<20))
	for i := uint32(0); i < count; i++ {
		item := &annotation.Annotation{ID: string(reader.ReadBlob())}
		item.Point = geo.GeoPoint{
			LatE6: int(int32(reader.ReadUint32())),
			LngE6: int(int32(reader.ReadUint32())),
		}
		item.Title = string(reader.ReadBlob())
		item.Snippet = string(reader.ReadBlob())

		if reader.ReadUint8() == markerGlyph {
			item.Marker = annotation.Glyph{
				Name:   string(reader.ReadBlob()),
				Width:  int(reader.ReadUint32()),
				Height: int(reader.ReadUint32()),
			}
		}

		extra := reader.ReadBlob()
		if reader.Err != nil {
			return nil, fmt.Errorf("failed to read annotation %d: %w", i, reader.Err)
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

// LoadCompressedMMap decompresses a snapshot written by SaveCompressed into
// a temporary file and reads it back through a memory mapping.
func LoadCompressedMMap(filename string) ([]*annotation.Annotation, error) {
	tempFile := filename + ".tmp"
	dst, err := os.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tempFile)
	defer dst.Close()

	src, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed file: %v", err)
	}
	defer src.Close()

	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	if _, err := io.Copy(dst, dec); err != nil {
		return nil, fmt.Errorf("failed to decompress data: %v", err)
	}

	if err := dst.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync temp file: %v", err)
	}

	return LoadMMap(tempFile)
}
