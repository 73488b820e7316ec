package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/avmkit/blob"
)

// Binary layout, integers little-endian:
//
//	[0:4]    magic "AVKS"
//	[4:6]    format version
//	[6:7]    compression id
//	[7:8]    reserved
//	[8:12]   page size
//	[12:16]  max keys
//	[16:20]  owner length
//	[20:24]  bitmap length
//	[24:28]  payload length
//	[28:32]  page count
//	then:    owner bytes, key space (max keys bytes),
//	         roaring bitmap of captured page indexes,
//	         compressed page payload in ascending page order,
//	         CRC32 (IEEE) of everything above.
const (
	// Magic identifies encoded archives (ASCII "AVKS").
	Magic = 0x41564B53
	// FormatVersion is the current archive format version.
	FormatVersion = 1
)

const (
	headerSize  = 32
	maxOwnerLen = 4096
	maxBitmap   = 1 << 20
	maxPayload  = 1 << 30
)

var (
	// ErrBadArchive is returned when encoded data is not a well-formed
	// archive: wrong magic, unsupported version, truncated sections, or
	// sections that contradict the header.
	ErrBadArchive = errors.New("archive: bad format")
)

// ChecksumMismatchError is returned when the CRC32 trailer does not match
// the decoded bytes, indicating corruption in transit or at rest.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("archive: checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

type writeOptions struct {
	compression Compression
}

// WriteOption configures how a snapshot is encoded.
type WriteOption func(*writeOptions)

// WithCompression selects the payload compression. Defaults to
// CompressionZstd.
func WithCompression(c Compression) WriteOption {
	return func(o *writeOptions) {
		o.compression = c
	}
}

// Encode serializes the snapshot into a byte slice.
func Encode(snap *Snapshot, optFns ...WriteOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, snap, optFns...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes the snapshot to w.
func Write(w io.Writer, snap *Snapshot, optFns ...WriteOption) error {
	o := writeOptions{compression: CompressionZstd}
	for _, fn := range optFns {
		fn(&o)
	}

	if !o.compression.valid() {
		return fmt.Errorf("%w: unknown compression %d", ErrBadArchive, uint8(o.compression))
	}
	if err := snap.validate(); err != nil {
		return err
	}
	if len(snap.Owner) > maxOwnerLen {
		return fmt.Errorf("%w: owner exceeds %d bytes", ErrBadArchive, maxOwnerLen)
	}

	indexes := snap.pageIndexes()
	bitmap := roaring.New()
	plain := make([]byte, 0, len(indexes)*int(snap.PageSize))
	for _, k := range indexes {
		bitmap.Add(k)
		plain = append(plain, snap.Pages[k]...)
	}
	if len(plain) > maxPayload {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrBadArchive, maxPayload)
	}

	var bitmapBuf bytes.Buffer
	if _, err := bitmap.WriteTo(&bitmapBuf); err != nil {
		return fmt.Errorf("serialize page bitmap: %w", err)
	}

	payload, err := compressPayload(plain, o.compression)
	if err != nil {
		return err
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], Magic)
	binary.LittleEndian.PutUint16(header[4:6], FormatVersion)
	header[6] = uint8(o.compression)
	binary.LittleEndian.PutUint32(header[8:12], snap.PageSize)
	binary.LittleEndian.PutUint32(header[12:16], snap.MaxKeys())
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(snap.Owner)))
	binary.LittleEndian.PutUint32(header[20:24], uint32(bitmapBuf.Len()))
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[28:32], uint32(len(indexes)))

	cw := newChecksumWriter(w)
	for _, section := range [][]byte{header, []byte(snap.Owner), snap.Keys, bitmapBuf.Bytes(), payload} {
		if _, err := cw.Write(section); err != nil {
			return err
		}
	}

	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], cw.Sum())
	if _, err := w.Write(trailer[:]); err != nil {
		return err
	}
	return nil
}

// Decode deserializes a snapshot from data.
func Decode(data []byte) (*Snapshot, error) {
	return Read(bytes.NewReader(data))
}

// Read deserializes a snapshot from r, verifying the checksum trailer.
func Read(r io.Reader) (*Snapshot, error) {
	cr := newChecksumReader(r)

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(cr, header); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrBadArchive, err)
	}

	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != Magic {
		return nil, fmt.Errorf("%w: magic 0x%08x", ErrBadArchive, magic)
	}
	if version := binary.LittleEndian.Uint16(header[4:6]); version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadArchive, version)
	}
	compression := Compression(header[6])
	if !compression.valid() {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrBadArchive, header[6])
	}

	pageSize := binary.LittleEndian.Uint32(header[8:12])
	maxKeys := binary.LittleEndian.Uint32(header[12:16])
	ownerLen := binary.LittleEndian.Uint32(header[16:20])
	bitmapLen := binary.LittleEndian.Uint32(header[20:24])
	payloadLen := binary.LittleEndian.Uint32(header[24:28])
	pageCount := binary.LittleEndian.Uint32(header[28:32])

	switch {
	case pageSize == 0:
		return nil, fmt.Errorf("%w: zero page size", ErrBadArchive)
	case maxKeys == 0 || maxKeys > blob.MaxKeySpace:
		return nil, fmt.Errorf("%w: max keys %d", ErrBadArchive, maxKeys)
	case pageCount > maxKeys:
		return nil, fmt.Errorf("%w: %d pages in a key space of %d", ErrBadArchive, pageCount, maxKeys)
	case ownerLen > maxOwnerLen:
		return nil, fmt.Errorf("%w: owner length %d", ErrBadArchive, ownerLen)
	case bitmapLen > maxBitmap:
		return nil, fmt.Errorf("%w: bitmap length %d", ErrBadArchive, bitmapLen)
	case payloadLen > maxPayload:
		return nil, fmt.Errorf("%w: payload length %d", ErrBadArchive, payloadLen)
	}

	want := uint64(pageCount) * uint64(pageSize)
	if want > maxPayload {
		return nil, fmt.Errorf("%w: %d pages of %d bytes exceed payload limit", ErrBadArchive, pageCount, pageSize)
	}

	owner := make([]byte, ownerLen)
	if _, err := io.ReadFull(cr, owner); err != nil {
		return nil, fmt.Errorf("%w: short owner: %v", ErrBadArchive, err)
	}
	keys := make([]byte, maxKeys)
	if _, err := io.ReadFull(cr, keys); err != nil {
		return nil, fmt.Errorf("%w: short key space: %v", ErrBadArchive, err)
	}
	bitmapBytes := make([]byte, bitmapLen)
	if _, err := io.ReadFull(cr, bitmapBytes); err != nil {
		return nil, fmt.Errorf("%w: short bitmap: %v", ErrBadArchive, err)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(cr, payload); err != nil {
		return nil, fmt.Errorf("%w: short payload: %v", ErrBadArchive, err)
	}

	sum := cr.Sum()
	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, fmt.Errorf("%w: short checksum trailer: %v", ErrBadArchive, err)
	}
	if expected := binary.LittleEndian.Uint32(trailer[:]); expected != sum {
		return nil, &ChecksumMismatchError{Expected: expected, Actual: sum}
	}

	bitmap := roaring.New()
	if _, err := bitmap.ReadFrom(bytes.NewReader(bitmapBytes)); err != nil {
		return nil, fmt.Errorf("%w: page bitmap: %v", ErrBadArchive, err)
	}
	if bitmap.GetCardinality() != uint64(pageCount) {
		return nil, fmt.Errorf("%w: bitmap holds %d pages, header says %d", ErrBadArchive, bitmap.GetCardinality(), pageCount)
	}
	if !bitmap.IsEmpty() && bitmap.Maximum() >= maxKeys {
		return nil, fmt.Errorf("%w: page index %d outside key space of %d", ErrBadArchive, bitmap.Maximum(), maxKeys)
	}

	plain, err := decompressPayload(payload, compression, int(want))
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Owner:    string(owner),
		PageSize: pageSize,
		Keys:     keys,
		Pages:    make(map[uint32][]byte, pageCount),
	}

	off := 0
	it := bitmap.Iterator()
	for it.HasNext() {
		k := it.Next()
		snap.Pages[k] = append([]byte(nil), plain[off:off+int(pageSize)]...)
		off += int(pageSize)
	}

	return snap, nil
}

// checksumWriter wraps an io.Writer and keeps a running CRC32 (IEEE) of
// everything written through it.
type checksumWriter struct {
	w    io.Writer
	hash hash.Hash32
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{w: w, hash: crc32.NewIEEE()}
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	cw.hash.Write(p) // never fails
	return cw.w.Write(p)
}

func (cw *checksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}

// checksumReader is the reading counterpart of checksumWriter.
type checksumReader struct {
	r    io.Reader
	hash hash.Hash32
}

func newChecksumReader(r io.Reader) *checksumReader {
	return &checksumReader{r: r, hash: crc32.NewIEEE()}
}

func (cr *checksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}

func (cr *checksumReader) Sum() uint32 {
	return cr.hash.Sum32()
}
