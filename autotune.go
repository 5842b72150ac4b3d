// Autotuning: timed selection over a fixed configuration table, cached
// by problem key.
package tilegrid

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// TuneConfig is one tiling configuration for the blocked matrix
// multiply: C-tile shape, K step, and grouped tile ordering.
type TuneConfig struct {
	BlockM int `yaml:"block_m"`
	BlockN int `yaml:"block_n"`
	BlockK int `yaml:"block_k"`
	GroupM int `yaml:"group_m"`
}

func (c TuneConfig) String() string {
	return fmt.Sprintf("BM%d/BN%d/BK%d/GM%d", c.BlockM, c.BlockN, c.BlockK, c.GroupM)
}

func (c TuneConfig) valid() bool {
	dims := []int{c.BlockM, c.BlockN, c.BlockK}
	for _, d := range dims {
		if d < MinTileDim || d > MaxTileDim {
			return false
		}
	}
	return c.GroupM >= 1
}

// Problem identifies one autotuning key: the operand shape and element
// type. Tile choice depends on nothing else.
type Problem struct {
	M, N, K int
	DType   string
}

// Key hashes the problem fields with xxh3.
func (p Problem) Key() uint64 {
	buf := make([]byte, 0, 24+len(p.DType))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.M))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.N))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.K))
	buf = append(buf, p.DType...)
	return xxh3.Hash(buf)
}

func (p Problem) String() string {
	return fmt.Sprintf("%dx%dx%d/%s", p.M, p.N, p.K, p.DType)
}

type tuneRecord struct {
	problem Problem
	config  TuneConfig
}

// Autotuner picks tile configurations by timing candidates on the real
// operands. The first call for a problem shape pays the search cost;
// later calls hit the cache.
type Autotuner struct {
	mu         sync.Mutex
	cache      map[uint64]tuneRecord
	candidates []TuneConfig
}

// DefaultConfigs returns the fixed candidate table. Tile shapes are
// sized for CPU cache levels; the widest tiles are only worth trying
// when AVX-512 lanes are available to chew through them.
func DefaultConfigs() []TuneConfig {
	configs := []TuneConfig{
		{BlockM: 32, BlockN: 32, BlockK: 32, GroupM: 4},
		{BlockM: 64, BlockN: 64, BlockK: 32, GroupM: 4},
		{BlockM: 64, BlockN: 64, BlockK: 64, GroupM: 4},
		{BlockM: 128, BlockN: 64, BlockK: 32, GroupM: 4},
		{BlockM: 64, BlockN: 128, BlockK: 32, GroupM: 4},
		{BlockM: 16, BlockN: 16, BlockK: 16, GroupM: 1},
	}
	if cpuFeatures.HasAVX512F {
		configs = append(configs, TuneConfig{BlockM: 128, BlockN: 128, BlockK: 32, GroupM: 8})
	}
	return configs
}

// NewAutotuner creates a tuner over the default candidate table.
func NewAutotuner() *Autotuner {
	return &Autotuner{
		cache:      make(map[uint64]tuneRecord),
		candidates: DefaultConfigs(),
	}
}

// SetCandidates replaces the candidate table. Invalid entries are
// dropped; an empty result keeps the previous table.
func (at *Autotuner) SetCandidates(configs []TuneConfig) {
	kept := configs[:0:0]
	for _, c := range configs {
		if c.valid() {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return
	}
	at.mu.Lock()
	at.candidates = kept
	at.mu.Unlock()
}

// Tuner returns the context's autotuner.
func (ctx *Context) Tuner() *Autotuner { return ctx.tuner }

// DefaultTuner returns the default context's autotuner.
func DefaultTuner() *Autotuner { return defaultContext.tuner }

// Pick returns the cached configuration for p, or times every candidate
// with run and caches the fastest. A candidate whose tiles exceed the
// problem by more than one full block is skipped: it cannot beat a
// smaller tile and wastes masked work.
func (at *Autotuner) Pick(p Problem, run func(TuneConfig) error) TuneConfig {
	key := p.Key()

	at.mu.Lock()
	if rec, ok := at.cache[key]; ok {
		at.mu.Unlock()
		return rec.config
	}
	candidates := at.candidates
	at.mu.Unlock()

	best := candidates[0]
	bestElapsed := time.Duration(-1)
	for _, cfg := range candidates {
		if cfg.BlockM >= 2*p.M && cfg.BlockM > MinTileDim {
			continue
		}
		if cfg.BlockN >= 2*p.N && cfg.BlockN > MinTileDim {
			continue
		}
		start := time.Now()
		if err := run(cfg); err != nil {
			log().Warn("autotune candidate failed",
				zap.String("problem", p.String()),
				zap.String("config", cfg.String()),
				zap.Error(err))
			continue
		}
		elapsed := time.Since(start)
		if bestElapsed < 0 || elapsed < bestElapsed {
			best, bestElapsed = cfg, elapsed
		}
	}

	log().Info("autotune selected",
		zap.String("problem", p.String()),
		zap.String("config", best.String()),
		zap.Duration("elapsed", bestElapsed))

	at.mu.Lock()
	at.cache[key] = tuneRecord{problem: p, config: best}
	at.mu.Unlock()
	return best
}

// Lookup returns the cached configuration for p, if any.
func (at *Autotuner) Lookup(p Problem) (TuneConfig, bool) {
	at.mu.Lock()
	defer at.mu.Unlock()
	rec, ok := at.cache[p.Key()]
	return rec.config, ok
}

// Insert seeds the cache, overriding any previous entry for p.
func (at *Autotuner) Insert(p Problem, cfg TuneConfig) {
	at.mu.Lock()
	defer at.mu.Unlock()
	at.cache[p.Key()] = tuneRecord{problem: p, config: cfg}
}

// Len reports the number of cached selections.
func (at *Autotuner) Len() int {
	at.mu.Lock()
	defer at.mu.Unlock()
	return len(at.cache)
}
