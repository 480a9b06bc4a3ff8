// Package offset reads encoded term blocks by computing the absolute byte
// offset of each field from the term index.
package offset

import (
	"encoding/binary"

	tb "github.com/rawbytedev/termblock"
)

// Count returns the header count of buf without validating its length.
func Count(buf []byte) int {
	return int(binary.LittleEndian.Uint32(buf[0:tb.HeaderSize]))
}

// ReadDocID reads doc_id of term i straight from buf.
// Panics with *termblock.IndexError if i is not below the header count.
func ReadDocID(buf []byte, i int) uint64 {
	tb.CheckIndex(i, Count(buf))
	return binary.LittleEndian.Uint64(buf[tb.TermOffset(i)+tb.DocIDOffset:])
}

// ReadFieldMask reads field_mask of term i straight from buf.
func ReadFieldMask(buf []byte, i int) tb.Mask {
	tb.CheckIndex(i, Count(buf))
	return tb.LoadMask(buf[tb.TermOffset(i)+tb.FieldMaskOffset:])
}

// ReadFrequency reads frequency of term i straight from buf.
func ReadFrequency(buf []byte, i int) uint64 {
	tb.CheckIndex(i, Count(buf))
	return binary.LittleEndian.Uint64(buf[tb.TermOffset(i)+tb.FrequencyOffset:])
}

// Reader is a validated handle over an encoded block. The header is checked
// once in NewReader; after that each accessor is a bounds check plus one
// fixed-width load. Reader borrows buf and must not outlive or observe
// writes to it.
type Reader struct {
	buf []byte
	n   int
}

var _ tb.Accessor = (*Reader)(nil)

func NewReader(buf []byte) (*Reader, error) {
	n, err := tb.ParseCount(buf)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: buf, n: n}, nil
}

func (r *Reader) Len() int { return r.n }

func (r *Reader) DocID(i int) uint64 {
	tb.CheckIndex(i, r.n)
	return binary.LittleEndian.Uint64(r.buf[tb.TermOffset(i)+tb.DocIDOffset:])
}

func (r *Reader) FieldMask(i int) tb.Mask {
	tb.CheckIndex(i, r.n)
	return tb.LoadMask(r.buf[tb.TermOffset(i)+tb.FieldMaskOffset:])
}

func (r *Reader) Frequency(i int) uint64 {
	tb.CheckIndex(i, r.n)
	return binary.LittleEndian.Uint64(r.buf[tb.TermOffset(i)+tb.FrequencyOffset:])
}

// Term materializes term i.
func (r *Reader) Term(i int) tb.Term {
	return tb.Term{DocID: r.DocID(i), FieldMask: r.FieldMask(i), Frequency: r.Frequency(i)}
}

// Decode fully materializes buf using offset reads.
func Decode(buf []byte) (tb.Block, error) {
	r, err := NewReader(buf)
	if err != nil {
		return tb.Block{}, err
	}
	return tb.Block{Terms: tb.Collect(r)}, nil
}
