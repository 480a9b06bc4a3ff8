// Package scan runs filtered reads over many encoded blocks in parallel.
// Block buffers are only read, so any number of workers may share them.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	tb "github.com/rawbytedev/termblock"
	"github.com/rawbytedev/termblock/pkg/filter"
	"github.com/rawbytedev/termblock/pkg/metrics"
	"github.com/rawbytedev/termblock/pkg/offset"
	"github.com/rawbytedev/termblock/pkg/view"
)

// Codec picks the access strategy used to read each block.
type Codec uint8

const (
	Offset Codec = iota
	View
)

func (c Codec) String() string {
	switch c {
	case Offset:
		return "offset"
	case View:
		return "view"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Open validates buf and returns an accessor for it.
func (c Codec) Open(buf []byte) (tb.Accessor, error) {
	switch c {
	case Offset:
		r, err := offset.NewReader(buf)
		if err != nil {
			return nil, err
		}
		return r, nil
	case View:
		b, err := view.New(buf)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown codec %d", uint8(c))
	}
}

type options struct {
	codec   Codec
	workers int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*options)

func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithWorkers bounds the number of goroutines. Values below 1 mean
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Scanner applies a filter.Query to a set of encoded blocks.
type Scanner struct {
	opts options
}

func New(opts ...Option) *Scanner {
	o := options{codec: View, logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	o.logger = o.logger.With("component", "scan", "codec", o.codec.String())
	return &Scanner{opts: o}
}

// Hit is a filter result tagged with the block it came from.
type Hit struct {
	Block int
	filter.Result
}

// Aggregate counts matches and sums their frequencies across blocks.
func (s *Scanner) Aggregate(ctx context.Context, blocks [][]byte, q filter.Query) (filter.Stats, error) {
	parts := make([]filter.Stats, s.partitions(len(blocks)))
	err := s.run(ctx, blocks, q, func(p, b int, a tb.Accessor) filter.Stats {
		st := filter.Aggregate(a, q)
		parts[p].Add(st)
		return st
	})
	if err != nil {
		return filter.Stats{}, err
	}
	var total filter.Stats
	for _, st := range parts {
		total.Add(st)
	}
	return total, nil
}

// Read returns every matching term ordered by block, then by position.
func (s *Scanner) Read(ctx context.Context, blocks [][]byte, q filter.Query) ([]Hit, error) {
	parts := make([][]Hit, s.partitions(len(blocks)))
	scratch := make([][]filter.Result, len(parts))
	err := s.run(ctx, blocks, q, func(p, b int, a tb.Accessor) filter.Stats {
		scratch[p] = filter.ReadInto(scratch[p][:0], a, q)
		for _, r := range scratch[p] {
			parts[p] = append(parts[p], Hit{Block: b, Result: r})
		}
		return filter.Stats{Scanned: a.Len(), Matched: len(scratch[p])}
	})
	if err != nil {
		return nil, err
	}
	n := 0
	for _, hs := range parts {
		n += len(hs)
	}
	hits := make([]Hit, 0, n)
	for _, hs := range parts {
		hits = append(hits, hs...)
	}
	return hits, nil
}

func (s *Scanner) partitions(n int) int {
	return max(1, min(s.opts.workers, n))
}

// run splits blocks into contiguous partitions, one goroutine each, so the
// per-partition outputs concatenate back into block order.
func (s *Scanner) run(ctx context.Context, blocks [][]byte, q filter.Query, visit func(part, block int, a tb.Accessor) filter.Stats) error {
	if err := q.Validate(); err != nil {
		return err
	}
	start := time.Now()
	codec := s.opts.codec.String()
	parts := s.partitions(len(blocks))
	chunk := (len(blocks) + parts - 1) / parts

	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < parts; p++ {
		lo := min(p*chunk, len(blocks))
		hi := min(lo+chunk, len(blocks))
		g.Go(func() error {
			var st filter.Stats
			for b := lo; b < hi; b++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				a, err := s.opts.codec.Open(blocks[b])
				if err != nil {
					if s.opts.metrics != nil {
						s.opts.metrics.InvalidBlocks.WithLabelValues(codec).Inc()
					}
					return fmt.Errorf("block %d: %w", b, err)
				}
				st.Add(visit(p, b, a))
			}
			s.record(codec, hi-lo, st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.opts.logger.Warn("scan failed", "blocks", len(blocks), "error", err)
		return err
	}
	elapsed := time.Since(start)
	if s.opts.metrics != nil {
		s.opts.metrics.ScanDuration.WithLabelValues(codec).Observe(elapsed.Seconds())
	}
	s.opts.logger.Debug("scan completed", "blocks", len(blocks), "workers", parts, "elapsed", elapsed)
	return nil
}

func (s *Scanner) record(codec string, blocks int, st filter.Stats) {
	m := s.opts.metrics
	if m == nil {
		return
	}
	m.BlocksScanned.WithLabelValues(codec).Add(float64(blocks))
	m.TermsScanned.WithLabelValues(codec).Add(float64(st.Scanned))
	m.TermsMatched.WithLabelValues(codec).Add(float64(st.Matched))
	m.TermsSkipped.WithLabelValues(codec).Add(float64(st.Skipped()))
}
