package tilegrid

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemKey(t *testing.T) {
	p1 := Problem{M: 512, N: 512, K: 512, DType: "float32"}
	p2 := Problem{M: 512, N: 512, K: 512, DType: "float16"}
	p3 := Problem{M: 512, N: 512, K: 256, DType: "float32"}

	assert.Equal(t, p1.Key(), Problem{M: 512, N: 512, K: 512, DType: "float32"}.Key())
	assert.NotEqual(t, p1.Key(), p2.Key(), "dtype must be part of the key")
	assert.NotEqual(t, p1.Key(), p3.Key(), "shape must be part of the key")
}

func TestPickCachesSelection(t *testing.T) {
	tuner := NewAutotuner()
	p := Problem{M: 256, N: 256, K: 256, DType: "float32"}

	var runs atomic.Int64
	run := func(TuneConfig) error {
		runs.Add(1)
		return nil
	}

	first := tuner.Pick(p, run)
	timedRuns := runs.Load()
	require.Greater(t, timedRuns, int64(0), "first pick must time candidates")

	second := tuner.Pick(p, run)
	assert.Equal(t, first, second)
	assert.Equal(t, timedRuns, runs.Load(), "second pick must hit the cache")

	cached, ok := tuner.Lookup(p)
	require.True(t, ok)
	assert.Equal(t, first, cached)
	assert.Equal(t, 1, tuner.Len())
}

func TestPickSkipsOversizedCandidates(t *testing.T) {
	tuner := NewAutotuner()
	p := Problem{M: 40, N: 40, K: 128, DType: "float32"}

	var timed []TuneConfig
	tuner.Pick(p, func(cfg TuneConfig) error {
		timed = append(timed, cfg)
		return nil
	})

	require.NotEmpty(t, timed)
	for _, cfg := range timed {
		assert.Less(t, cfg.BlockM, 2*p.M,
			"config %s wastes more than half its rows on a 40-row problem", cfg)
		assert.Less(t, cfg.BlockN, 2*p.N,
			"config %s wastes more than half its columns on a 40-column problem", cfg)
	}
}

func TestPickSurvivesFailingCandidate(t *testing.T) {
	tuner := NewAutotuner()
	tuner.SetCandidates([]TuneConfig{
		{BlockM: 32, BlockN: 32, BlockK: 32, GroupM: 1},
		{BlockM: 64, BlockN: 64, BlockK: 32, GroupM: 4},
	})
	p := Problem{M: 128, N: 128, K: 128, DType: "float32"}

	picked := tuner.Pick(p, func(cfg TuneConfig) error {
		if cfg.BlockM == 32 {
			return NewExecutionError("test", "injected failure", nil)
		}
		return nil
	})

	assert.Equal(t, 64, picked.BlockM, "failing candidate must not be selected")
}

func TestSetCandidatesDropsInvalid(t *testing.T) {
	tuner := NewAutotuner()
	tuner.SetCandidates([]TuneConfig{
		{BlockM: 4, BlockN: 32, BlockK: 32, GroupM: 1},   // under MinTileDim
		{BlockM: 512, BlockN: 32, BlockK: 32, GroupM: 1}, // over MaxTileDim
		{BlockM: 32, BlockN: 32, BlockK: 32, GroupM: 0},  // groups must be >= 1
		{BlockM: 16, BlockN: 16, BlockK: 16, GroupM: 2},
	})

	var timed []TuneConfig
	tuner.Pick(Problem{M: 64, N: 64, K: 64, DType: "float32"}, func(cfg TuneConfig) error {
		timed = append(timed, cfg)
		return nil
	})

	require.Len(t, timed, 1)
	assert.Equal(t, TuneConfig{BlockM: 16, BlockN: 16, BlockK: 16, GroupM: 2}, timed[0])
}

func TestSetCandidatesKeepsTableWhenAllInvalid(t *testing.T) {
	tuner := NewAutotuner()
	before := len(DefaultConfigs())

	tuner.SetCandidates([]TuneConfig{{BlockM: 1, BlockN: 1, BlockK: 1, GroupM: 0}})

	var timed int
	tuner.Pick(Problem{M: 1024, N: 1024, K: 1024, DType: "float32"}, func(TuneConfig) error {
		timed++
		return nil
	})
	assert.Equal(t, before, timed, "previous table must survive an all-invalid replacement")
}

func TestInsertOverrides(t *testing.T) {
	tuner := NewAutotuner()
	p := Problem{M: 64, N: 64, K: 64, DType: "float32"}
	want := TuneConfig{BlockM: 16, BlockN: 16, BlockK: 16, GroupM: 1}

	tuner.Insert(p, want)

	picked := tuner.Pick(p, func(TuneConfig) error {
		t.Fatal("seeded entry must suppress the search")
		return nil
	})
	assert.Equal(t, want, picked)
}

func TestMatMulUsesTunerCache(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	const m, n, k = 64, 48, 32
	dA, err := ctx.Malloc(m * k * 4)
	require.NoError(t, err)
	dB, err := ctx.Malloc(k * n * 4)
	require.NoError(t, err)
	dC, err := ctx.Malloc(m * n * 4)
	require.NoError(t, err)
	defer ctx.Free(dA)
	defer ctx.Free(dB)
	defer ctx.Free(dC)

	require.NoError(t, ctx.MatMul(dC, dA, dB, m, n, k))
	_, ok := ctx.Tuner().Lookup(Problem{M: m, N: n, K: k, DType: "float32"})
	assert.True(t, ok, "MatMul must populate the tuner cache")
}
