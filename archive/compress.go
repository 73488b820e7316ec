package archive

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the algorithm applied to the page payload.
type Compression uint8

const (
	// CompressionNone stores the payload raw.
	CompressionNone Compression = 0
	// CompressionLZ4 applies LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZstd applies zstd block compression (better ratio).
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c == CompressionNone || c == CompressionLZ4 || c == CompressionZstd
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Payload block framing: [UncompressedSize uint32][CompressedSize uint32][Data].
// CompressedSize == 0 marks a raw block, used when compression does not help.
const blockHeaderSize = 8

// payloadBlockSize bounds the uncompressed bytes per block. Page payloads
// are small (a full 256-page blob at the default page size is under 32 KiB)
// so most archives hold a single block.
const payloadBlockSize = 256 * 1024

// compressPayload frames data into compressed blocks.
func compressPayload(data []byte, c Compression) ([]byte, error) {
	out := make([]byte, 0, blockHeaderSize+len(data)/2)
	for off := 0; off < len(data); off += payloadBlockSize {
		end := off + payloadBlockSize
		if end > len(data) {
			end = len(data)
		}
		block, err := compressBlock(data[off:end], c)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

// compressBlock compresses one block and prepends the block header. Blocks
// that do not shrink below 90% of their raw size are stored raw.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	var compressed []byte

	switch c {
	case CompressionNone:
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		buf := make([]byte, bound)
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		compressed = buf[:n] // n == 0 means incompressible
	case CompressionZstd:
		enc := getZstdEncoder()
		defer putZstdEncoder(enc)
		compressed = enc.EncodeAll(data, nil)
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrBadArchive, uint8(c))
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

// decompressPayload walks the framed blocks and returns the concatenated
// payload, verifying it adds up to want bytes.
func decompressPayload(data []byte, c Compression, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	off := 0

	for off < len(data) {
		if off+blockHeaderSize > len(data) {
			return nil, fmt.Errorf("%w: truncated block header", ErrBadArchive)
		}
		uncompressedSize := binary.LittleEndian.Uint32(data[off:])
		compressedSize := binary.LittleEndian.Uint32(data[off+4:])
		off += blockHeaderSize

		if compressedSize == 0 {
			if off+int(uncompressedSize) > len(data) {
				return nil, fmt.Errorf("%w: raw block extends past payload", ErrBadArchive)
			}
			out = append(out, data[off:off+int(uncompressedSize)]...)
			off += int(uncompressedSize)
			continue
		}

		if off+int(compressedSize) > len(data) {
			return nil, fmt.Errorf("%w: compressed block extends past payload", ErrBadArchive)
		}
		block := data[off : off+int(compressedSize)]
		off += int(compressedSize)

		switch c {
		case CompressionLZ4:
			buf := make([]byte, uncompressedSize)
			n, err := lz4.UncompressBlock(block, buf)
			if err != nil {
				return nil, fmt.Errorf("lz4 decompress: %w", err)
			}
			if uint32(n) != uncompressedSize {
				return nil, fmt.Errorf("%w: block decompressed to %d bytes, header says %d", ErrBadArchive, n, uncompressedSize)
			}
			out = append(out, buf...)
		case CompressionZstd:
			dec := getZstdDecoder()
			decoded, err := dec.DecodeAll(block, nil)
			putZstdDecoder(dec)
			if err != nil {
				return nil, fmt.Errorf("zstd decompress: %w", err)
			}
			if uint32(len(decoded)) != uncompressedSize {
				return nil, fmt.Errorf("%w: block decompressed to %d bytes, header says %d", ErrBadArchive, len(decoded), uncompressedSize)
			}
			out = append(out, decoded...)
		default:
			return nil, fmt.Errorf("%w: compressed block under compression %q", ErrBadArchive, c)
		}
	}

	if len(out) != want {
		return nil, fmt.Errorf("%w: payload decompressed to %d bytes, want %d", ErrBadArchive, len(out), want)
	}
	return out, nil
}
