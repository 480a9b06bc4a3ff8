// Package view reads encoded term blocks through a typed overlay: each
// 32-byte term slot is reinterpreted in place as a struct of byte arrays, so
// fields are reached by name instead of offset arithmetic. The bytes and
// their interpretation are identical to package offset.
package view

import (
	"encoding/binary"
	"iter"
	"unsafe"

	tb "github.com/rawbytedev/termblock"
)

// slot mirrors the on-disk term layout. Byte arrays keep its alignment at 1
// so it can sit at any offset inside a []byte.
type slot struct {
	docID     [tb.DocIDSize]byte
	fieldMask [tb.FieldMaskSize]byte
	frequency [tb.FrequencySize]byte
}

// The overlay is only sound while slot matches the wire layout exactly.
var (
	_ [unsafe.Sizeof(slot{}) - tb.TermSize]struct{}
	_ [tb.TermSize - unsafe.Sizeof(slot{})]struct{}
	_ [unsafe.Offsetof(slot{}.fieldMask) - tb.FieldMaskOffset]struct{}
	_ [tb.FieldMaskOffset - unsafe.Offsetof(slot{}.fieldMask)]struct{}
	_ [unsafe.Offsetof(slot{}.frequency) - tb.FrequencyOffset]struct{}
	_ [tb.FrequencyOffset - unsafe.Offsetof(slot{}.frequency)]struct{}
)

// Term is a read-only view of one encoded term. It points into the block
// buffer, which stays reachable for as long as the view does; the buffer
// must not be written while views into it are in use.
type Term struct {
	s *slot
}

func (t Term) DocID() uint64 { return binary.LittleEndian.Uint64(t.s.docID[:]) }

func (t Term) FieldMask() tb.Mask { return tb.LoadMask(t.s.fieldMask[:]) }

func (t Term) Frequency() uint64 { return binary.LittleEndian.Uint64(t.s.frequency[:]) }

// Materialize copies the viewed term into an owned value.
func (t Term) Materialize() tb.Term {
	return tb.Term{DocID: t.DocID(), FieldMask: t.FieldMask(), Frequency: t.Frequency()}
}

// Block overlays a validated encoded block as a slice of term slots.
type Block struct {
	slots []slot
}

var _ tb.Accessor = (*Block)(nil)

// New validates buf once and returns a view over its terms without copying.
func New(buf []byte) (*Block, error) {
	n, err := tb.ParseCount(buf)
	if err != nil {
		return nil, err
	}
	b := &Block{}
	if n > 0 {
		b.slots = unsafe.Slice((*slot)(unsafe.Pointer(&buf[tb.HeaderSize])), n)
	}
	return b, nil
}

// At returns the view of term i. Out of range indexes panic with
// *termblock.IndexError.
func (b *Block) At(i int) Term {
	tb.CheckIndex(i, len(b.slots))
	return Term{s: &b.slots[i]}
}

func (b *Block) Len() int { return len(b.slots) }

func (b *Block) DocID(i int) uint64 { return b.At(i).DocID() }

func (b *Block) FieldMask(i int) tb.Mask { return b.At(i).FieldMask() }

func (b *Block) Frequency(i int) uint64 { return b.At(i).Frequency() }

// All yields every term view in order.
func (b *Block) All() iter.Seq2[int, Term] {
	return func(yield func(int, Term) bool) {
		for i := range b.slots {
			if !yield(i, Term{s: &b.slots[i]}) {
				return
			}
		}
	}
}

// Decode fully materializes buf through term views.
func Decode(buf []byte) (tb.Block, error) {
	b, err := New(buf)
	if err != nil {
		return tb.Block{}, err
	}
	terms := make([]tb.Term, 0, b.Len())
	for _, t := range b.All() {
		terms = append(terms, t.Materialize())
	}
	return tb.Block{Terms: terms}, nil
}
