package view

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"

	tb "github.com/rawbytedev/termblock"
	"github.com/rawbytedev/termblock/pkg/offset"
)

func testTerms() []tb.Term {
	return []tb.Term{
		{DocID: 1, FieldMask: tb.Mask{Lo: 0b001}, Frequency: 5},
		{DocID: 2, FieldMask: tb.Mask{Lo: 0b010, Hi: 1 << 63}, Frequency: 7},
		{DocID: math.MaxUint64, FieldMask: tb.AllBits, Frequency: math.MaxUint64},
	}
}

func TestViewFields(t *testing.T) {
	terms := testTerms()
	b, err := New(tb.Encode(terms))
	require.NoError(t, err)
	require.Equal(t, len(terms), b.Len())
	for i, want := range terms {
		v := b.At(i)
		require.Equal(t, want.DocID, v.DocID())
		require.Equal(t, want.FieldMask, v.FieldMask())
		require.Equal(t, want.Frequency, v.Frequency())
		require.Equal(t, want, v.Materialize())
	}
}

func TestViewMatchesOffsetReads(t *testing.T) {
	condition := func(terms []tb.Term) bool {
		buf := tb.Encode(terms)
		b, err := New(buf)
		require.NoError(t, err)
		r, err := offset.NewReader(buf)
		require.NoError(t, err)
		require.Equal(t, r.Len(), b.Len())
		for i := 0; i < b.Len(); i++ {
			if b.DocID(i) != r.DocID(i) || b.FieldMask(i) != r.FieldMask(i) || b.Frequency(i) != r.Frequency(i) {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestViewBorrowsBuffer(t *testing.T) {
	buf := tb.Encode(testTerms())
	b, err := New(buf)
	require.NoError(t, err)
	v := b.At(1)

	binary.LittleEndian.PutUint64(buf[tb.TermOffset(1)+tb.FrequencyOffset:], 99)
	require.Equal(t, uint64(99), v.Frequency())
	require.Equal(t, uint64(2), v.DocID())
}

func TestDecodeMatchesSequentialDecode(t *testing.T) {
	buf := tb.Encode(testTerms())
	got, err := Decode(buf)
	require.NoError(t, err)
	want, err := tb.Decode(buf)
	require.NoError(t, err)
	require.Equal(t, want, got)

	empty, err := New(tb.Encode(nil))
	require.NoError(t, err)
	require.Zero(t, empty.Len())
	for range empty.All() {
		t.Fatal("empty block yielded a term")
	}
}

func TestAllStopsEarly(t *testing.T) {
	b, err := New(tb.Encode(testTerms()))
	require.NoError(t, err)
	var seen []uint64
	for i, v := range b.All() {
		seen = append(seen, v.DocID())
		if i == 1 {
			break
		}
	}
	require.Equal(t, []uint64{1, 2}, seen)
}

func TestOutOfRange(t *testing.T) {
	b, err := New(tb.Encode(testTerms()))
	require.NoError(t, err)
	defer func() {
		err, ok := recover().(error)
		require.True(t, ok)
		require.True(t, errors.Is(err, tb.ErrIndexOutOfRange))
	}()
	b.At(3)
}

func TestNewRejectsMalformed(t *testing.T) {
	buf := tb.Encode(testTerms())
	_, err := New(buf[:tb.HeaderSize])
	require.ErrorIs(t, err, tb.ErrShortBuffer)
	_, err = New(append(buf, 0, 0))
	require.ErrorIs(t, err, tb.ErrLengthMismatch)
}
