package tilegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// denseMatrix builds a rows×cols row-major matrix with distinct values.
func denseMatrix(rows, cols int) []float32 {
	m := make([]float32, rows*cols)
	for i := range m {
		m[i] = float32(i + 1)
	}
	return m
}

func TestMakeBlockPtrValidation(t *testing.T) {
	base := denseMatrix(8, 8)

	_, err := MakeBlockPtrSlice(base, 0, 8, 8, 1, 0, 0, 4, 4, RowMajor)
	assert.True(t, IsInvalidArgError(err), "zero rows must be rejected")

	_, err = MakeBlockPtrSlice(base, 8, 8, 8, 1, 0, 0, 0, 4, RowMajor)
	assert.True(t, IsInvalidArgError(err), "zero block dimension must be rejected")

	_, err = MakeBlockPtrSlice(base, 8, 8, 4, 1, 0, 0, 4, 4, RowMajor)
	assert.True(t, IsInvalidArgError(err), "row stride shorter than a row must be rejected")

	_, err = MakeBlockPtrSlice(base, 16, 8, 8, 1, 0, 0, 4, 4, RowMajor)
	assert.True(t, IsInvalidArgError(err), "parent larger than backing slice must be rejected")

	_, err = MakeBlockPtrSlice(base, 8, 8, 8, 1, 0, 0, 4, 4, Order(99))
	assert.True(t, IsInvalidArgError(err), "unknown order must be rejected")

	bp, err := MakeBlockPtrSlice(base, 8, 8, 8, 1, -4, 12, 4, 4, RowMajor)
	require.NoError(t, err, "out-of-range offsets are allowed, loads mask them")
	r, c := bp.Offsets()
	assert.Equal(t, -4, r)
	assert.Equal(t, 12, c)
}

func TestBlockPtrLoadInterior(t *testing.T) {
	base := denseMatrix(8, 8)
	bp, err := MakeBlockPtrSlice(base, 8, 8, 8, 1, 2, 4, 2, 3, RowMajor)
	require.NoError(t, err)

	tile := make([]float32, 2*3)
	bp.Load(tile)

	// Rows 2-3, columns 4-6 of a matrix counting from 1.
	assert.Equal(t, []float32{21, 22, 23, 29, 30, 31}, tile)
}

func TestBlockPtrLoadBoundary(t *testing.T) {
	base := denseMatrix(4, 4)
	bp, err := MakeBlockPtrSlice(base, 4, 4, 4, 1, 3, 3, 2, 2, RowMajor)
	require.NoError(t, err)

	tile := make([]float32, 4)
	bp.Load(tile)

	// Only the top-left lane is inside the matrix.
	assert.Equal(t, []float32{16, 0, 0, 0}, tile)
}

func TestBlockPtrLoadNegativeOffsets(t *testing.T) {
	base := denseMatrix(4, 4)
	bp, err := MakeBlockPtrSlice(base, 4, 4, 4, 1, -1, -1, 2, 2, RowMajor)
	require.NoError(t, err)

	tile := make([]float32, 4)
	bp.Load(tile)

	assert.Equal(t, []float32{0, 0, 0, 1}, tile)
}

func TestBlockPtrLoadFullyMasked(t *testing.T) {
	base := denseMatrix(4, 4)
	bp, err := MakeBlockPtrSlice(base, 4, 4, 4, 1, 100, 100, 2, 2, RowMajor)
	require.NoError(t, err)

	tile := []float32{9, 9, 9, 9}
	bp.Load(tile)

	assert.Equal(t, []float32{0, 0, 0, 0}, tile, "a window fully outside the parent loads zeros")
}

func TestBlockPtrStore(t *testing.T) {
	base := make([]float32, 4*4)
	bp, err := MakeBlockPtrSlice(base, 4, 4, 4, 1, 1, 1, 2, 2, RowMajor)
	require.NoError(t, err)

	bp.Store([]float32{1, 2, 3, 4})

	want := []float32{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	}
	assert.Equal(t, want, base)
}

func TestBlockPtrStoreBoundary(t *testing.T) {
	base := make([]float32, 4*4)
	bp, err := MakeBlockPtrSlice(base, 4, 4, 4, 1, 3, 3, 2, 2, RowMajor)
	require.NoError(t, err)

	bp.Store([]float32{5, 6, 7, 8})

	// Only the in-bounds lane lands; the rest are dropped.
	var want [16]float32
	want[15] = 5
	assert.Equal(t, want[:], base)
}

func TestBlockPtrAdvance(t *testing.T) {
	base := denseMatrix(8, 8)
	bp, err := MakeBlockPtrSlice(base, 8, 8, 8, 1, 0, 0, 2, 2, RowMajor)
	require.NoError(t, err)

	moved := bp.Advance(2, 4)
	r, c := moved.Offsets()
	assert.Equal(t, 2, r)
	assert.Equal(t, 4, c)

	// Advance has value semantics: the original window stays put.
	r, c = bp.Offsets()
	assert.Equal(t, 0, r)
	assert.Equal(t, 0, c)

	tile := make([]float32, 4)
	moved.Load(tile)
	assert.Equal(t, []float32{21, 22, 29, 30}, tile)
}

func TestBlockPtrSlidesLikeKLoop(t *testing.T) {
	// Walk a 2-wide window across an 4x8 matrix the way the GEMM K-loop
	// does and reassemble the matrix from the tiles.
	base := denseMatrix(4, 8)
	bp, err := MakeBlockPtrSlice(base, 4, 8, 8, 1, 0, 0, 4, 2, RowMajor)
	require.NoError(t, err)

	got := make([]float32, 0, len(base))
	tile := make([]float32, 4*2)
	for step := 0; step < 4; step++ {
		bp.Load(tile)
		got = append(got, tile...)
		bp = bp.Advance(0, 2)
	}

	// Tiles come back column-band by column-band.
	for band := 0; band < 4; band++ {
		for r := 0; r < 4; r++ {
			for c := 0; c < 2; c++ {
				want := base[r*8+band*2+c]
				assert.Equal(t, want, got[band*8+r*2+c])
			}
		}
	}
}

func TestBlockPtrColMajor(t *testing.T) {
	// A 4x4 column-major matrix: element (r,c) lives at r + c*4.
	base := make([]float32, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			base[r+c*4] = float32(r*4 + c + 1)
		}
	}

	bp, err := MakeBlockPtrSlice(base, 4, 4, 1, 4, 1, 1, 2, 2, ColMajor)
	require.NoError(t, err)

	tile := make([]float32, 4)
	bp.Load(tile)
	assert.Equal(t, []float32{6, 7, 10, 11}, tile)

	bp.Store([]float32{-1, -2, -3, -4})
	check := make([]float32, 4)
	bp.Load(check)
	assert.Equal(t, []float32{-1, -2, -3, -4}, check)
}

func TestBlockPtrFromDevicePtr(t *testing.T) {
	d := MallocOrFail(t, 16*4)
	defer Free(d)
	copy(d.Float32(), denseMatrix(4, 4))

	bp, err := MakeBlockPtr(d, 4, 4, 4, 1, 0, 0, 2, 2, RowMajor)
	require.NoError(t, err)

	tile := make([]float32, 4)
	bp.Load(tile)
	assert.Equal(t, []float32{1, 2, 5, 6}, tile)

	br, bc := bp.BlockShape()
	assert.Equal(t, 2, br)
	assert.Equal(t, 2, bc)
}
