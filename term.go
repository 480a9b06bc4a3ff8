// Package termblock encodes fixed-shape term records into flat blocks that can
// be read field by field straight out of the encoded buffer.
//
// Block layout (little-endian throughout):
//
//	Header: count uint32 (4B)
//	Terms:  count * 32B
//
//	Term:  doc_id uint64        @0
//	       field_mask low  64b  @8
//	       field_mask high 64b  @16
//	       frequency uint64     @24
package termblock

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	HeaderSize = 4
	TermSize   = 32

	DocIDOffset     = 0
	FieldMaskOffset = 8
	FrequencyOffset = 24

	DocIDSize     = 8
	FieldMaskSize = 16
	FrequencySize = 8

	// DefaultBlockLen is the conventional number of terms per block.
	DefaultBlockLen = 100
)

// Mask is an unsigned 128-bit field mask split into two 64-bit halves.
type Mask struct {
	Lo uint64
	Hi uint64
}

// AllBits has every bit of the mask set.
var AllBits = Mask{Lo: ^uint64(0), Hi: ^uint64(0)}

// LowBits returns a mask with the n least significant bits set.
func LowBits(n uint) Mask {
	switch {
	case n == 0:
		return Mask{}
	case n < 64:
		return Mask{Lo: 1<<n - 1}
	case n < 128:
		return Mask{Lo: ^uint64(0), Hi: 1<<(n-64) - 1}
	default:
		return AllBits
	}
}

func (m Mask) And(o Mask) Mask { return Mask{Lo: m.Lo & o.Lo, Hi: m.Hi & o.Hi} }

func (m Mask) Or(o Mask) Mask { return Mask{Lo: m.Lo | o.Lo, Hi: m.Hi | o.Hi} }

func (m Mask) IsZero() bool { return m.Lo|m.Hi == 0 }

// Intersects reports whether m and o share at least one set bit.
func (m Mask) Intersects(o Mask) bool { return m.Lo&o.Lo != 0 || m.Hi&o.Hi != 0 }

func (m Mask) OnesCount() int { return bits.OnesCount64(m.Lo) + bits.OnesCount64(m.Hi) }

func (m Mask) String() string { return fmt.Sprintf("%#016x%016x", m.Hi, m.Lo) }

// LoadMask reads a mask from the first 16 bytes of b, low half first.
func LoadMask(b []byte) Mask {
	_ = b[FieldMaskSize-1]
	return Mask{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// StoreMask writes m into the first 16 bytes of b, low half first.
func StoreMask(b []byte, m Mask) {
	_ = b[FieldMaskSize-1]
	binary.LittleEndian.PutUint64(b[0:8], m.Lo)
	binary.LittleEndian.PutUint64(b[8:16], m.Hi)
}

// Term is a single posting: a document, the fields the term occurs in and
// how often it occurs.
type Term struct {
	DocID     uint64
	FieldMask Mask
	Frequency uint64
}

// Block is an ordered run of terms encoded together.
type Block struct {
	Terms []Term
}

func (b Block) Len() int { return len(b.Terms) }

// EncodedLen returns the exact byte length of a block holding n terms.
func EncodedLen(n int) int { return HeaderSize + n*TermSize }

// TermOffset returns the absolute offset of term i inside an encoded block.
func TermOffset(i int) int { return HeaderSize + i*TermSize }
