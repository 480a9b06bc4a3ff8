// Package common holds the varint helpers shared by the framing code.
package common

import "errors"

// MaxVarintLen is the longest encoding of a uint64.
const MaxVarintLen = 10

var ErrBadVarint = errors.New("truncated or overlong varint")

// WriteVarUintTo appends varint-encoded x to dst using a small stack scratch.
func WriteVarUintTo(dst []byte, x uint64) []byte {
	var scratch [MaxVarintLen]byte
	i := 0
	for x >= 0x80 {
		scratch[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	scratch[i] = byte(x)
	i++
	return append(dst, scratch[:i]...)
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
// n == 0 means b was truncated, ran past MaxVarintLen bytes or overflows
// a uint64.
func ReadVarUint(b []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == MaxVarintLen {
			return 0, 0
		}
		// The tenth byte only has room for the top bit of a uint64.
		if i == MaxVarintLen-1 && c > 1 {
			return 0, 0
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1
		}
		s += 7
	}
	return 0, 0
}

// VarUintLen returns the encoded size of x.
func VarUintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
