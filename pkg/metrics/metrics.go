// Package metrics defines the Prometheus collectors for filtered scans.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "termblock"

// Metrics holds the scan collectors. All counters are labelled by codec.
type Metrics struct {
	BlocksScanned *prometheus.CounterVec
	TermsScanned  *prometheus.CounterVec
	TermsMatched  *prometheus.CounterVec
	TermsSkipped  *prometheus.CounterVec
	InvalidBlocks *prometheus.CounterVec
	ScanDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlocksScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blocks_scanned_total",
				Help:      "Encoded blocks passed through a filtered scan.",
			},
			[]string{"codec"},
		),
		TermsScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "terms_scanned_total",
				Help:      "Terms whose field mask was tested.",
			},
			[]string{"codec"},
		),
		TermsMatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "terms_matched_total",
				Help:      "Terms that passed the filter.",
			},
			[]string{"codec"},
		),
		TermsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "terms_skipped_total",
				Help:      "Terms rejected after reading only the field mask.",
			},
			[]string{"codec"},
		),
		InvalidBlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalid_blocks_total",
				Help:      "Blocks rejected by header validation.",
			},
			[]string{"codec"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Wall time of a full filtered scan.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"codec"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.BlocksScanned,
			m.TermsScanned,
			m.TermsMatched,
			m.TermsSkipped,
			m.InvalidBlocks,
			m.ScanDuration,
		)
	}
	return m
}
