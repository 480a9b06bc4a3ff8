package segment

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how block frames are stored inside a segment.
type Compression uint8

const (
	None Compression = iota
	ZSTD
	LZ4
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case ZSTD:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func (c Compression) valid() bool { return c <= LZ4 }

// ParseCompression maps a name as printed by String back to its value.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return None, nil
	case "zstd":
		return ZSTD, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

const (
	maxZstdPrealloc  = 1 << 20
	zstdMaxExpansion = 1 << 15
	lz4MaxExpansion  = 255
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// compress returns the stored form of raw, or nil when compression does
// not make it smaller.
func compress(c Compression, raw []byte) ([]byte, error) {
	var out []byte
	switch c {
	case None:
		return nil, nil
	case ZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		out = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		out = dst[:n]
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
	if len(out) >= len(raw) {
		return nil, nil
	}
	return out, nil
}

func decompress(c Compression, stored []byte, rawLen int) ([]byte, error) {
	switch c {
	case ZSTD:
		// An RLE block spends 4 bytes on at most 128KiB of output.
		if uint64(rawLen) > zstdMaxExpansion*uint64(len(stored)) {
			return nil, fmt.Errorf("%w: zstd frame of %d bytes cannot decode to %d", ErrCorrupt, len(stored), rawLen)
		}
		var h zstd.Header
		if err := h.Decode(stored); err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if h.HasFCS && h.FrameContentSize != uint64(rawLen) {
			return nil, fmt.Errorf("%w: zstd frame declares %d bytes, want %d", ErrCorrupt, h.FrameContentSize, rawLen)
		}
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		// The frame header is not trusted to size the whole buffer up front.
		out, err := dec.DecodeAll(stored, make([]byte, 0, min(rawLen, maxZstdPrealloc)))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("%w: zstd frame decoded to %d bytes, want %d", ErrCorrupt, len(out), rawLen)
		}
		return out, nil
	case LZ4:
		// Each input byte of an lz4 block expands to at most 255 output bytes.
		if uint64(rawLen) > lz4MaxExpansion*uint64(len(stored)) {
			return nil, fmt.Errorf("%w: lz4 frame of %d bytes cannot decode to %d", ErrCorrupt, len(stored), rawLen)
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: lz4 frame decoded to %d bytes, want %d", ErrCorrupt, n, rawLen)
		}
		return out, nil
	case None:
		return nil, fmt.Errorf("%w: compressed frame in uncompressed segment", ErrCorrupt)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
}
