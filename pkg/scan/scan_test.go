package scan

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	tb "github.com/rawbytedev/termblock"
	"github.com/rawbytedev/termblock/pkg/dataset"
	"github.com/rawbytedev/termblock/pkg/filter"
	"github.com/rawbytedev/termblock/pkg/metrics"
)

func testCorpus(t *testing.T) ([]tb.Block, [][]byte) {
	t.Helper()
	cfg := dataset.DefaultConfig()
	cfg.TotalEntries = 5000
	blocks, err := dataset.Generate(cfg)
	require.NoError(t, err)
	return blocks, dataset.EncodeAll(blocks)
}

func expected(blocks []tb.Block, mask tb.Mask) (filter.Stats, []Hit) {
	var st filter.Stats
	var hits []Hit
	for b, blk := range blocks {
		for i, term := range blk.Terms {
			st.Scanned++
			if !term.FieldMask.Intersects(mask) {
				continue
			}
			st.Matched++
			st.FrequencySum += term.Frequency
			hits = append(hits, Hit{Block: b, Result: filter.Result{
				Index:     i,
				Fields:    filter.AllFields,
				DocID:     term.DocID,
				FieldMask: term.FieldMask,
				Frequency: term.Frequency,
			}})
		}
	}
	return st, hits
}

func TestCodecsAndWorkersAgree(t *testing.T) {
	blocks, bufs := testCorpus(t)
	mask, err := dataset.QueryMask(0.01)
	require.NoError(t, err)
	q := filter.NewQuery(mask)
	wantStats, wantHits := expected(blocks, mask)

	for _, codec := range []Codec{Offset, View} {
		for _, workers := range []int{1, 3, 8, 64, 0} {
			s := New(WithCodec(codec), WithWorkers(workers))
			st, err := s.Aggregate(context.Background(), bufs, q)
			require.NoError(t, err)
			require.Equal(t, wantStats, st, "%s/%d", codec, workers)

			hits, err := s.Read(context.Background(), bufs, q)
			require.NoError(t, err)
			require.Equal(t, wantHits, hits, "%s/%d", codec, workers)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	s := New(WithWorkers(4))
	st, err := s.Aggregate(context.Background(), nil, filter.NewQuery(tb.AllBits))
	require.NoError(t, err)
	require.Zero(t, st)

	hits, err := s.Read(context.Background(), [][]byte{tb.Encode(nil)}, filter.NewQuery(tb.AllBits))
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestInvalidBlock(t *testing.T) {
	_, bufs := testCorpus(t)
	bufs[7] = bufs[7][:len(bufs[7])-1]
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := New(WithCodec(Offset), WithWorkers(2), WithMetrics(m))

	_, err := s.Aggregate(context.Background(), bufs, filter.NewQuery(tb.AllBits))
	require.ErrorIs(t, err, tb.ErrShortBuffer)
	require.ErrorContains(t, err, "block 7")
	require.Equal(t, 1.0, testutil.ToFloat64(m.InvalidBlocks.WithLabelValues("offset")))
}

func TestUnknownMatchRejected(t *testing.T) {
	_, bufs := testCorpus(t)
	q := filter.Query{Mask: tb.AllBits, Match: filter.Match(9), Fields: filter.AllFields}
	s := New(WithWorkers(2))
	_, err := s.Aggregate(context.Background(), bufs, q)
	require.ErrorIs(t, err, filter.ErrUnknownMatch)
	_, err = s.Read(context.Background(), bufs, q)
	require.ErrorIs(t, err, filter.ErrUnknownMatch)
}

func TestCancelled(t *testing.T) {
	_, bufs := testCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Read(ctx, bufs, filter.NewQuery(tb.AllBits))
	require.ErrorIs(t, err, context.Canceled)
}

func TestMetrics(t *testing.T) {
	blocks, bufs := testCorpus(t)
	m := metrics.New(prometheus.NewRegistry())
	mask := tb.Mask{Lo: 1}
	want, _ := expected(blocks, mask)

	s := New(WithCodec(View), WithWorkers(3), WithMetrics(m))
	_, err := s.Aggregate(context.Background(), bufs, filter.NewQuery(mask))
	require.NoError(t, err)

	require.Equal(t, float64(len(bufs)), testutil.ToFloat64(m.BlocksScanned.WithLabelValues("view")))
	require.Equal(t, float64(want.Scanned), testutil.ToFloat64(m.TermsScanned.WithLabelValues("view")))
	require.Equal(t, float64(want.Matched), testutil.ToFloat64(m.TermsMatched.WithLabelValues("view")))
	require.Equal(t, float64(want.Skipped()), testutil.ToFloat64(m.TermsSkipped.WithLabelValues("view")))
}

func TestCodecOpen(t *testing.T) {
	buf := tb.Encode([]tb.Term{{DocID: 9, Frequency: 2}})
	for _, c := range []Codec{Offset, View} {
		a, err := c.Open(buf)
		require.NoError(t, err)
		require.Equal(t, uint64(9), a.DocID(0))
	}
	_, err := Codec(7).Open(buf)
	require.Error(t, err)
	require.Equal(t, "codec(7)", Codec(7).String())
}
