package termblock

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder keeps its output buffer between calls so repeated encodes of
// similarly sized blocks do not allocate.
type Encoder struct {
	out []byte
}

// Encode serializes terms into the encoder's buffer. The returned slice is
// only valid until the next call to Encode.
func (e *Encoder) Encode(terms []Term) []byte {
	size := EncodedLen(len(terms))
	if cap(e.out) < size {
		e.out = make([]byte, size)
	} else {
		e.out = e.out[:size]
	}
	EncodeInto(e.out, terms)
	return e.out
}

// Encode serializes terms into a freshly allocated buffer of exactly
// EncodedLen(len(terms)) bytes.
func Encode(terms []Term) []byte {
	buf := make([]byte, EncodedLen(len(terms)))
	EncodeInto(buf, terms)
	return buf
}

// EncodeBlock is shorthand for Encode(b.Terms).
func EncodeBlock(b Block) []byte { return Encode(b.Terms) }

// EncodeInto writes terms into dst and returns the number of bytes written.
// dst must hold at least EncodedLen(len(terms)) bytes; a shorter dst is a
// caller bug and panics.
func EncodeInto(dst []byte, terms []Term) int {
	if uint64(len(terms)) > math.MaxUint32 {
		panic(fmt.Errorf("%w: %d", ErrTooManyTerms, len(terms)))
	}
	size := EncodedLen(len(terms))
	if len(dst) < size {
		panic(fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, size, len(dst)))
	}
	binary.LittleEndian.PutUint32(dst[0:HeaderSize], uint32(len(terms)))
	off := HeaderSize
	for i := range terms {
		t := &terms[i]
		rec := dst[off : off+TermSize]
		binary.LittleEndian.PutUint64(rec[DocIDOffset:], t.DocID)
		StoreMask(rec[FieldMaskOffset:], t.FieldMask)
		binary.LittleEndian.PutUint64(rec[FrequencyOffset:], t.Frequency)
		off += TermSize
	}
	return size
}
