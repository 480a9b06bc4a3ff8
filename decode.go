package termblock

import (
	"encoding/binary"
	"fmt"
)

// Accessor reads individual fields of term i without touching the rest of
// the record. Both layout codecs implement it; callers that only need a
// single field per record (filters, aggregations) should depend on this
// rather than on a concrete codec.
type Accessor interface {
	Len() int
	DocID(i int) uint64
	FieldMask(i int) Mask
	Frequency(i int) uint64
}

// ParseCount reads the header of an encoded block and checks that buf is
// exactly as long as the header says. This is the single validation point
// for every decode entry; field accessors trust its result.
func ParseCount(buf []byte) (int, error) {
	if len(buf) < HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes, header needs %d", ErrShortBuffer, len(buf), HeaderSize)
	}
	n := binary.LittleEndian.Uint32(buf[0:HeaderSize])
	want := uint64(HeaderSize) + uint64(n)*TermSize
	have := uint64(len(buf))
	switch {
	case have < want:
		return 0, fmt.Errorf("%w: %d terms need %d bytes, have %d", ErrShortBuffer, n, want, have)
	case have > want:
		return 0, fmt.Errorf("%w: %d terms need %d bytes, have %d", ErrLengthMismatch, n, want, have)
	}
	return int(n), nil
}

// Validate reports whether buf is a well-formed encoded block.
func Validate(buf []byte) error {
	_, err := ParseCount(buf)
	return err
}

// Decode fully materializes an encoded block by walking it front to back.
func Decode(buf []byte) (Block, error) {
	n, err := ParseCount(buf)
	if err != nil {
		return Block{}, err
	}
	terms := make([]Term, n)
	rest := buf[HeaderSize:]
	for i := range terms {
		rec := rest[:TermSize]
		terms[i] = Term{
			DocID:     binary.LittleEndian.Uint64(rec[DocIDOffset:]),
			FieldMask: LoadMask(rec[FieldMaskOffset:]),
			Frequency: binary.LittleEndian.Uint64(rec[FrequencyOffset:]),
		}
		rest = rest[TermSize:]
	}
	return Block{Terms: terms}, nil
}

// Collect materializes every term visible through a.
func Collect(a Accessor) []Term {
	terms := make([]Term, a.Len())
	for i := range terms {
		terms[i] = Term{
			DocID:     a.DocID(i),
			FieldMask: a.FieldMask(i),
			Frequency: a.Frequency(i),
		}
	}
	return terms
}
