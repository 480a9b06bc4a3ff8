package filter

import (
	"fmt"
	"testing"

	tb "github.com/rawbytedev/termblock"
	"github.com/rawbytedev/termblock/pkg/dataset"
	"github.com/rawbytedev/termblock/pkg/offset"
	"github.com/rawbytedev/termblock/pkg/view"
)

func benchBlocks(b *testing.B) [][]byte {
	b.Helper()
	cfg := dataset.DefaultConfig()
	cfg.TotalEntries = 100_000
	blocks, err := dataset.Generate(cfg)
	if err != nil {
		b.Fatal(err)
	}
	return dataset.EncodeAll(blocks)
}

func benchOpen(name string) func([]byte) (tb.Accessor, error) {
	if name == "offset" {
		return func(buf []byte) (tb.Accessor, error) { return offset.NewReader(buf) }
	}
	return func(buf []byte) (tb.Accessor, error) { return view.New(buf) }
}

func BenchmarkFullRead(b *testing.B) {
	bufs := benchBlocks(b)
	for _, name := range []string{"offset", "view"} {
		open := benchOpen(name)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			var sum uint64
			for b.Loop() {
				for _, buf := range bufs {
					a, err := open(buf)
					if err != nil {
						b.Fatal(err)
					}
					for i := 0; i < a.Len(); i++ {
						_ = a.DocID(i)
						_ = a.FieldMask(i)
						sum += a.Frequency(i)
					}
				}
			}
			_ = sum
		})
	}
}

func BenchmarkFilteredRead(b *testing.B) {
	bufs := benchBlocks(b)
	for _, rate := range []float64{0.1, 0.5, 0.9} {
		mask, err := dataset.QueryMask(rate)
		if err != nil {
			b.Fatal(err)
		}
		q := NewQuery(mask)
		for _, name := range []string{"offset", "view"} {
			open := benchOpen(name)
			b.Run(fmt.Sprintf("%s/%d%%", name, int(rate*100)), func(b *testing.B) {
				b.ReportAllocs()
				var st Stats
				for b.Loop() {
					for _, buf := range bufs {
						a, err := open(buf)
						if err != nil {
							b.Fatal(err)
						}
						st.Add(Aggregate(a, q))
					}
				}
				_ = st
			})
		}
	}
}
