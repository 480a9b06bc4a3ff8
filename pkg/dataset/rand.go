package dataset

import tb "github.com/rawbytedev/termblock"

// Xorshift64 is a small deterministic PRNG. Same seed, same sequence, on
// every platform.
type Xorshift64 struct {
	state uint64
}

// NewXorshift64 seeds the generator. A zero seed is replaced by 1 since the
// all-zero state never advances.
func NewXorshift64(seed uint64) *Xorshift64 {
	if seed == 0 {
		seed = 1
	}
	return &Xorshift64{state: seed}
}

func (x *Xorshift64) Next() uint64 {
	s := x.state
	s ^= s << 13
	s ^= s >> 7
	s ^= s << 17
	x.state = s
	return s
}

// NextMask draws the high half first, then the low half.
func (x *Xorshift64) NextMask() tb.Mask {
	hi := x.Next()
	lo := x.Next()
	return tb.Mask{Lo: lo, Hi: hi}
}
