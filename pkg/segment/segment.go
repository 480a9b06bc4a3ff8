// Package segment stores many encoded term blocks in one container.
//
// Layout:
//
//	Header (8B): magic uint32 | version uint8 | compression uint8 | reserved uint16
//	Frames:      varint rawLen | varint storedLen | stored bytes
//	Footer (12B): block count uint32 | xxhash64 of header, frames and count
//
// storedLen == 0 means the frame holds the block uncompressed (rawLen
// bytes). Block bytes inside a frame are the unchanged termblock layout, so
// uncompressed segments hand out sub-slices of the segment buffer.
package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"

	tb "github.com/rawbytedev/termblock"
	"github.com/rawbytedev/termblock/internal/common"
)

const (
	Magic      = 0x47534254 // "TBSG"
	Version    = 1
	HeaderSize = 8
	FooterSize = 12

	// minFrameSize is two one-byte varints plus the smallest legal block.
	minFrameSize = 2 + tb.HeaderSize
	maxBlockLen  = tb.HeaderSize + tb.TermSize*math.MaxUint32
)

var (
	ErrBadMagic           = errors.New("not a term block segment")
	ErrUnsupportedVersion = errors.New("unsupported segment version")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrChecksum           = errors.New("segment checksum mismatch")
	ErrCorrupt            = errors.New("corrupt segment")
	ErrClosed             = errors.New("segment writer closed")
)

type options struct {
	compression Compression
	logger      *slog.Logger
}

// Option configures a Writer or reader.
type Option func(*options)

// WithCompression sets the frame compression. Readers ignore it; the
// segment header records what was used.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithLogger sets the logger. nil keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{compression: None, logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	o.logger = o.logger.With("component", "segment")
	return o
}

// Writer streams encoded blocks into a segment. It does not close the
// underlying writer.
type Writer struct {
	w      io.Writer
	digest *xxhash.Digest
	opts   options
	count  uint32
	size   int64
	frame  []byte
	closed bool
	err    error
}

// NewWriter writes the segment header to w.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	o := buildOptions(opts)
	if !o.compression.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(o.compression))
	}
	sw := &Writer{w: w, digest: xxhash.New(), opts: o}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], Magic)
	hdr[4] = Version
	hdr[5] = byte(o.compression)
	if err := sw.write(hdr[:]); err != nil {
		return nil, err
	}
	return sw, nil
}

func (w *Writer) write(p []byte) error {
	if _, err := w.w.Write(p); err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}
	_, _ = w.digest.Write(p)
	w.size += int64(len(p))
	return nil
}

// Append adds one encoded block. The block is validated first.
func (w *Writer) Append(block []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}
	if err := tb.Validate(block); err != nil {
		return fmt.Errorf("block %d: %w", w.count, err)
	}
	stored, err := compress(w.opts.compression, block)
	if err != nil {
		return fmt.Errorf("block %d: compressing: %w", w.count, err)
	}
	w.frame = common.WriteVarUintTo(w.frame[:0], uint64(len(block)))
	w.frame = common.WriteVarUintTo(w.frame, uint64(len(stored)))
	if stored == nil {
		stored = block
	}
	// A failed write leaves a partial frame behind; the writer is unusable
	// from then on.
	if err := w.write(w.frame); err != nil {
		w.err = err
		return err
	}
	if err := w.write(stored); err != nil {
		w.err = err
		return err
	}
	w.count++
	return nil
}

// Count returns the number of blocks appended so far.
func (w *Writer) Count() int { return int(w.count) }

// Close writes the footer. Further appends fail with ErrClosed. If an
// earlier write failed, Close writes nothing and returns that error.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return nil
	}
	w.closed = true
	var ftr [FooterSize]byte
	binary.LittleEndian.PutUint32(ftr[0:], w.count)
	_, _ = w.digest.Write(ftr[0:4])
	binary.LittleEndian.PutUint64(ftr[4:], w.digest.Sum64())
	if _, err := w.w.Write(ftr[:]); err != nil {
		w.err = fmt.Errorf("writing segment footer: %w", err)
		return w.err
	}
	w.size += FooterSize
	w.opts.logger.Debug("segment written",
		"blocks", w.count,
		"bytes", w.size,
		"compression", w.opts.compression.String(),
	)
	return nil
}

// Segment is a decoded, checksum-verified container of block buffers.
type Segment struct {
	compression Compression
	blocks      [][]byte
}

// Open verifies data and splits it into block buffers. Uncompressed blocks
// alias data; data must not be modified while the segment is in use.
func Open(data []byte, opts ...Option) (*Segment, error) {
	o := buildOptions(opts)
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	if binary.LittleEndian.Uint32(data[0:]) != Magic {
		return nil, ErrBadMagic
	}
	if data[4] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}
	comp := Compression(data[5])
	if !comp.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, data[5])
	}

	body := data[:len(data)-FooterSize]
	ftr := data[len(data)-FooterSize:]
	count := binary.LittleEndian.Uint32(ftr[0:])
	want := binary.LittleEndian.Uint64(ftr[4:])
	d := xxhash.New()
	_, _ = d.Write(body)
	_, _ = d.Write(ftr[0:4])
	if got := d.Sum64(); got != want {
		return nil, fmt.Errorf("%w: expected %#x, got %#x", ErrChecksum, want, got)
	}

	rest := body[HeaderSize:]
	if uint64(count) > uint64(len(rest)/minFrameSize) {
		return nil, fmt.Errorf("%w: %d blocks cannot fit in %d bytes", ErrCorrupt, count, len(rest))
	}
	s := &Segment{compression: comp, blocks: make([][]byte, 0, count)}
	for i := uint32(0); i < count; i++ {
		block, n, err := readFrame(comp, rest)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		if err := tb.Validate(block); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		s.blocks = append(s.blocks, block)
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(rest))
	}
	o.logger.Debug("segment opened", "blocks", count, "bytes", len(data), "compression", comp.String())
	return s, nil
}

func readFrame(comp Compression, b []byte) ([]byte, int, error) {
	rawLen, n1 := common.ReadVarUint(b)
	if n1 == 0 {
		return nil, 0, fmt.Errorf("%w: bad frame length", ErrCorrupt)
	}
	storedLen, n2 := common.ReadVarUint(b[n1:])
	if n2 == 0 {
		return nil, 0, fmt.Errorf("%w: bad frame length", ErrCorrupt)
	}
	if !legalBlockLen(rawLen) {
		return nil, 0, fmt.Errorf("%w: frame length %d is not a block length", ErrCorrupt, rawLen)
	}
	if storedLen != 0 && comp == None {
		return nil, 0, fmt.Errorf("%w: compressed frame in uncompressed segment", ErrCorrupt)
	}
	pos := n1 + n2
	payload := rawLen
	if storedLen != 0 {
		payload = storedLen
	}
	if payload > uint64(len(b)-pos) {
		return nil, 0, fmt.Errorf("%w: frame overruns segment", ErrCorrupt)
	}
	stored := b[pos : pos+int(payload)]
	end := pos + int(payload)
	if storedLen == 0 {
		return stored, end, nil
	}
	raw, err := decompress(comp, stored, int(rawLen))
	if err != nil {
		return nil, 0, err
	}
	return raw, end, nil
}

func legalBlockLen(n uint64) bool {
	return n >= tb.HeaderSize &&
		n <= maxBlockLen &&
		n <= math.MaxInt &&
		(n-tb.HeaderSize)%tb.TermSize == 0
}

func (s *Segment) Len() int { return len(s.blocks) }

func (s *Segment) Compression() Compression { return s.compression }

// Block returns the encoded buffer of block i.
func (s *Segment) Block(i int) []byte {
	tb.CheckIndex(i, len(s.blocks))
	return s.blocks[i]
}

// Blocks returns every encoded block buffer in order.
func (s *Segment) Blocks() [][]byte { return s.blocks }

// WriteFile writes blocks as a single segment file at path.
func WriteFile(path string, blocks [][]byte, opts ...Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating segment: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing segment: %w", cerr)
		}
	}()
	w, err := NewWriter(f, opts...)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if err := w.Append(b); err != nil {
			return err
		}
	}
	return w.Close()
}

// ReadFile loads and opens the segment at path.
func ReadFile(path string, opts ...Option) (*Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading segment: %w", err)
	}
	return Open(data, opts...)
}
