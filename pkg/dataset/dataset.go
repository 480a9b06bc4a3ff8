// Package dataset builds deterministic term blocks and query masks used to
// exercise the codecs at a chosen hit rate.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	tb "github.com/rawbytedev/termblock"
)

var (
	ErrInvalidHitRate = errors.New("hit rate must be within [0,1]")
	ErrInvalidConfig  = errors.New("invalid dataset config")
)

// Config describes a generated corpus.
type Config struct {
	TotalEntries    int       `yaml:"totalEntries"`
	EntriesPerBlock int       `yaml:"entriesPerBlock"`
	Seed            uint64    `yaml:"seed"`
	MaxFrequency    uint64    `yaml:"maxFrequency"`
	HitRates        []float64 `yaml:"hitRates"`
}

func DefaultConfig() Config {
	return Config{
		TotalEntries:    1_000_000,
		EntriesPerBlock: tb.DefaultBlockLen,
		Seed:            42,
		MaxFrequency:    1000,
		HitRates:        []float64{0.1, 0.5, 0.9},
	}
}

// Blocks is the number of full blocks the config produces. A trailing
// partial block is dropped.
func (c Config) Blocks() int {
	if c.EntriesPerBlock <= 0 {
		return 0
	}
	return c.TotalEntries / c.EntriesPerBlock
}

func (c Config) Validate() error {
	if c.TotalEntries < 0 {
		return fmt.Errorf("%w: totalEntries %d", ErrInvalidConfig, c.TotalEntries)
	}
	if c.EntriesPerBlock <= 0 || uint64(c.EntriesPerBlock) > math.MaxUint32 {
		return fmt.Errorf("%w: entriesPerBlock %d", ErrInvalidConfig, c.EntriesPerBlock)
	}
	if c.MaxFrequency == 0 {
		return fmt.Errorf("%w: maxFrequency must be positive", ErrInvalidConfig)
	}
	for _, r := range c.HitRates {
		if !validRate(r) {
			return fmt.Errorf("%w: %v", ErrInvalidHitRate, r)
		}
	}
	return nil
}

// ParseConfig decodes YAML on top of DefaultConfig, so omitted keys keep
// their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing dataset config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading dataset config: %w", err)
	}
	return ParseConfig(data)
}

// Generate builds cfg.Blocks() blocks. doc_ids increase monotonically, mostly
// by one with an occasional gap of 1 to 5; field masks are uniformly random;
// frequencies fall in [1, MaxFrequency].
func Generate(cfg Config) ([]tb.Block, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := NewXorshift64(cfg.Seed)
	blocks := make([]tb.Block, cfg.Blocks())
	var docID uint64
	for b := range blocks {
		terms := make([]tb.Term, cfg.EntriesPerBlock)
		for i := range terms {
			if rng.Next()%10 == 0 {
				docID += rng.Next()%5 + 1
			} else {
				docID++
			}
			terms[i] = tb.Term{
				DocID:     docID,
				FieldMask: rng.NextMask(),
				Frequency: rng.Next()%cfg.MaxFrequency + 1,
			}
		}
		blocks[b] = tb.Block{Terms: terms}
	}
	return blocks, nil
}

// EncodeAll encodes every block into its own buffer.
func EncodeAll(blocks []tb.Block) [][]byte {
	out := make([][]byte, len(blocks))
	for i, b := range blocks {
		out[i] = tb.EncodeBlock(b)
	}
	return out
}

// QueryMask returns a mask whose low round(128*rate) bits are set. Against
// uniformly random field masks, more bits means a higher intersect rate. A
// rate that rounds to zero still sets bit 0.
func QueryMask(rate float64) (tb.Mask, error) {
	if !validRate(rate) {
		return tb.Mask{}, fmt.Errorf("%w: %v", ErrInvalidHitRate, rate)
	}
	n := uint(math.Round(128 * rate))
	if n == 0 {
		return tb.LowBits(1), nil
	}
	return tb.LowBits(n), nil
}

func validRate(r float64) bool { return r >= 0 && r <= 1 }
