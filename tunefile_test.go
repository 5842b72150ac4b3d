package tilegrid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTuneFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")

	src := NewAutotuner()
	p1 := Problem{M: 512, N: 512, K: 512, DType: "float32"}
	p2 := Problem{M: 1024, N: 256, K: 768, DType: "float16"}
	cfg1 := TuneConfig{BlockM: 64, BlockN: 64, BlockK: 32, GroupM: 4}
	cfg2 := TuneConfig{BlockM: 128, BlockN: 64, BlockK: 32, GroupM: 8}
	src.Insert(p1, cfg1)
	src.Insert(p2, cfg2)

	require.NoError(t, src.Save(path))

	dst := NewAutotuner()
	require.NoError(t, dst.Load(path))
	assert.Equal(t, 2, dst.Len())

	got, ok := dst.Lookup(p1)
	require.True(t, ok)
	assert.Equal(t, cfg1, got)

	got, ok = dst.Lookup(p2)
	require.True(t, ok)
	assert.Equal(t, cfg2, got)
}

func TestTuneFileMissing(t *testing.T) {
	tuner := NewAutotuner()
	require.NoError(t, tuner.Load(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Equal(t, 0, tuner.Len())
}

func TestTuneFileCorruptIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not yaml {"), 0o644))

	tuner := NewAutotuner()
	require.NoError(t, tuner.Load(path), "a corrupt table is ignored, not fatal")
	assert.Equal(t, 0, tuner.Len())
}

func TestTuneFileVersionMismatchIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.yaml")
	data := "version: 99\nentries:\n  - m: 64\n    n: 64\n    k: 64\n    dtype: float32\n    config:\n      block_m: 64\n      block_n: 64\n      block_k: 32\n      group_m: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	tuner := NewAutotuner()
	require.NoError(t, tuner.Load(path))
	assert.Equal(t, 0, tuner.Len())
}

func TestTuneFileSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.yaml")

	// A hand-edited table: one good entry, one with an out-of-range
	// tile, one with a non-positive shape.
	data := `version: 1
entries:
  - m: 64
    n: 64
    k: 64
    dtype: float32
    config: {block_m: 64, block_n: 64, block_k: 32, group_m: 4}
  - m: 32
    n: 32
    k: 32
    dtype: float32
    config: {block_m: 4096, block_n: 64, block_k: 32, group_m: 4}
  - m: 0
    n: 32
    k: 32
    dtype: float32
    config: {block_m: 64, block_n: 64, block_k: 32, group_m: 4}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	dst := NewAutotuner()
	require.NoError(t, dst.Load(path))
	assert.Equal(t, 1, dst.Len(), "the poisoned entries must be skipped")

	got, ok := dst.Lookup(Problem{M: 64, N: 64, K: 64, DType: "float32"})
	require.True(t, ok)
	assert.Equal(t, TuneConfig{BlockM: 64, BlockN: 64, BlockK: 32, GroupM: 4}, got)
}
