// Package filter selects terms from an encoded block by field mask. Each
// term's field_mask is read first; terms that fail the match are skipped
// without loading doc_id or frequency.
package filter

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	tb "github.com/rawbytedev/termblock"
)

var ErrUnknownMatch = errors.New("filter: unknown match")

// Match decides how a term's field mask is compared with the query mask.
type Match uint8

const (
	// Intersects matches when term.FieldMask & query != 0.
	Intersects Match = iota
	// Equals matches when term.FieldMask == query.
	Equals
)

func (m Match) String() string {
	switch m {
	case Intersects:
		return "intersects"
	case Equals:
		return "equals"
	default:
		return fmt.Sprintf("match(%d)", uint8(m))
	}
}

// Fields selects which fields of a matching term are loaded.
type Fields uint8

const (
	DocID Fields = 1 << iota
	FieldMask
	Frequency

	AllFields = DocID | FieldMask | Frequency
)

func (f Fields) Has(o Fields) bool { return f&o == o }

// Query is a filter over field masks plus the projection applied to hits.
type Query struct {
	Mask   tb.Mask
	Match  Match
	Fields Fields
}

// NewQuery returns an intersecting query that loads every field.
func NewQuery(mask tb.Mask) Query {
	return Query{Mask: mask, Match: Intersects, Fields: AllFields}
}

// Matches applies the query predicate to a single field mask. It panics if
// q.Match is not a known mode; Validate reports that as an error instead.
func (q Query) Matches(m tb.Mask) bool {
	switch q.Match {
	case Intersects:
		return m.Intersects(q.Mask)
	case Equals:
		return m == q.Mask
	default:
		panic(fmt.Sprintf("filter: unknown match %d", uint8(q.Match)))
	}
}

// Validate reports whether q uses a known match mode.
func (q Query) Validate() error {
	switch q.Match {
	case Intersects, Equals:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMatch, uint8(q.Match))
	}
}

// Result is a matching term restricted to the requested fields. Fields not
// selected by the query are left zero.
type Result struct {
	Index     int
	Fields    Fields
	DocID     uint64
	FieldMask tb.Mask
	Frequency uint64
}

// Term converts r into a term. Unselected fields stay zero.
func (r Result) Term() tb.Term {
	return tb.Term{DocID: r.DocID, FieldMask: r.FieldMask, Frequency: r.Frequency}
}

// Read returns the matching terms of a in block order.
func Read(a tb.Accessor, q Query) []Result {
	return ReadInto(nil, a, q)
}

// ReadInto appends the matching terms of a to dst in block order.
func ReadInto(dst []Result, a tb.Accessor, q Query) []Result {
	n := a.Len()
	for i := 0; i < n; i++ {
		m := a.FieldMask(i)
		if !q.Matches(m) {
			continue
		}
		r := Result{Index: i, Fields: q.Fields}
		if q.Fields.Has(DocID) {
			r.DocID = a.DocID(i)
		}
		if q.Fields.Has(FieldMask) {
			r.FieldMask = m
		}
		if q.Fields.Has(Frequency) {
			r.Frequency = a.Frequency(i)
		}
		dst = append(dst, r)
	}
	return dst
}

// Indices returns the positions of matching terms. Only field masks are read.
func Indices(a tb.Accessor, q Query) *roaring.Bitmap {
	bm := roaring.New()
	n := a.Len()
	for i := 0; i < n; i++ {
		if q.Matches(a.FieldMask(i)) {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// Stats summarizes a filtered pass over one or more blocks.
type Stats struct {
	Scanned      int
	Matched      int
	FrequencySum uint64
}

func (s Stats) Skipped() int { return s.Scanned - s.Matched }

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Scanned += o.Scanned
	s.Matched += o.Matched
	s.FrequencySum += o.FrequencySum
}

// Aggregate counts matching terms and sums their frequencies without
// collecting them. doc_id is never read.
func Aggregate(a tb.Accessor, q Query) Stats {
	n := a.Len()
	st := Stats{Scanned: n}
	for i := 0; i < n; i++ {
		if !q.Matches(a.FieldMask(i)) {
			continue
		}
		st.Matched++
		st.FrequencySum += a.Frequency(i)
	}
	return st
}
