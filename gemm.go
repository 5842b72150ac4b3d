// Tiled matrix multiply over block pointers.
package tilegrid

import (
	"fmt"

	"go.uber.org/zap"
)

// MatMul computes C = A×B for row-major float32 matrices: A is m×k,
// B is k×n, C is m×n. The tile configuration is chosen by the default
// context's autotuner and cached per problem shape.
func MatMul(dC, dA, dB DevicePtr, m, n, k int) error {
	return defaultContext.MatMul(dC, dA, dB, m, n, k)
}

// MatMulF16 computes C = A×B where A, B, and C hold Float16 values.
// Products are accumulated in float32 and cast down on store.
func MatMulF16(dC, dA, dB DevicePtr, m, n, k int) error {
	return defaultContext.MatMulF16(dC, dA, dB, m, n, k)
}

// MatMul runs the tuned tiled multiply on the context.
func (ctx *Context) MatMul(dC, dA, dB DevicePtr, m, n, k int) error {
	if err := checkMatMulArgs("MatMul", dC, dA, dB, m, n, k, 4); err != nil {
		return err
	}
	cfg := ctx.tuner.Pick(Problem{M: m, N: n, K: k, DType: "float32"}, func(c TuneConfig) error {
		return ctx.matmulF32(dC, dA, dB, m, n, k, c)
	})
	return ctx.matmulF32(dC, dA, dB, m, n, k, cfg)
}

// MatMulF16 runs the tuned mixed-precision multiply on the context.
func (ctx *Context) MatMulF16(dC, dA, dB DevicePtr, m, n, k int) error {
	if err := checkMatMulArgs("MatMulF16", dC, dA, dB, m, n, k, 2); err != nil {
		return err
	}
	cfg := ctx.tuner.Pick(Problem{M: m, N: n, K: k, DType: "float16"}, func(c TuneConfig) error {
		return ctx.matmulF16(dC, dA, dB, m, n, k, c)
	})
	return ctx.matmulF16(dC, dA, dB, m, n, k, cfg)
}

// MatMulWithConfig bypasses the autotuner and runs one configuration.
// The bench CLI and the tuner's own timing loop use it.
func (ctx *Context) MatMulWithConfig(dC, dA, dB DevicePtr, m, n, k int, cfg TuneConfig) error {
	if err := checkMatMulArgs("MatMul", dC, dA, dB, m, n, k, 4); err != nil {
		return err
	}
	if !cfg.valid() {
		return NewInvalidArgError("MatMul", fmt.Sprintf("invalid tile configuration %s", cfg))
	}
	return ctx.matmulF32(dC, dA, dB, m, n, k, cfg)
}

func checkMatMulArgs(op string, dC, dA, dB DevicePtr, m, n, k, elemSize int) error {
	if m <= 0 || n <= 0 || k <= 0 {
		return NewInvalidArgError(op, fmt.Sprintf("invalid shape m=%d n=%d k=%d", m, n, k))
	}
	if dA.Size() < m*k*elemSize || dB.Size() < k*n*elemSize || dC.Size() < m*n*elemSize {
		return ErrShapeMismatch
	}
	return nil
}

// tileCoords maps a flat tile index to (tileM, tileN) using grouped
// ordering: GroupM row-tiles are visited before moving along N, which
// keeps a band of A hot in cache across consecutive tiles.
func tileCoords(pid, numTilesM, numTilesN, groupM int) (tm, tn int) {
	if groupM <= 1 {
		return pid / numTilesN, pid % numTilesN
	}
	groupSize := groupM * numTilesN
	group := pid / groupSize
	firstM := group * groupM
	rows := numTilesM - firstM
	if rows > groupM {
		rows = groupM
	}
	local := pid % groupSize
	return firstM + local%rows, local / rows
}

// matmulF32 launches one grid unit per C tile. Each unit walks block
// pointers for A and B along K, accumulating a dense BM×BN tile and
// storing it through a boundary-checked window.
func (ctx *Context) matmulF32(dC, dA, dB DevicePtr, m, n, k int, cfg TuneConfig) error {
	a := dA.Float32()
	b := dB.Float32()
	c := dC.Float32()

	bm, bn, bk := cfg.BlockM, cfg.BlockN, cfg.BlockK
	numTilesM := (m + bm - 1) / bm
	numTilesN := (n + bn - 1) / bn
	numTiles := numTilesM * numTilesN

	log().Debug("matmul launch",
		zap.Int("m", m), zap.Int("n", n), zap.Int("k", k),
		zap.Int("tiles", numTiles), zap.String("config", cfg.String()))

	kernel := KernelFunc(func(tid ThreadID, _ ...interface{}) {
		pid := tid.Global()
		if pid >= numTiles {
			return
		}
		tm, tn := tileCoords(pid, numTilesM, numTilesN, cfg.GroupM)

		aPtr, _ := MakeBlockPtrSlice(a, m, k, k, 1, tm*bm, 0, bm, bk, RowMajor)
		bPtr, _ := MakeBlockPtrSlice(b, k, n, n, 1, 0, tn*bn, bk, bn, RowMajor)

		aTile := make([]float32, bm*bk)
		bTile := make([]float32, bk*bn)
		acc := make([]float32, bm*bn)

		for kk := 0; kk < k; kk += bk {
			aPtr.Load(aTile)
			bPtr.Load(bTile)
			microKernel(acc, aTile, bTile, bm, bn, bk)
			aPtr = aPtr.Advance(0, bk)
			bPtr = bPtr.Advance(bk, 0)
		}

		cPtr, _ := MakeBlockPtrSlice(c, m, n, n, 1, tm*bm, tn*bn, bm, bn, RowMajor)
		cPtr.Store(acc)
	})

	if err := ctx.LaunchFunc(kernel, GridFor(numTiles, 1), Dim3{X: 1, Y: 1, Z: 1}); err != nil {
		return err
	}
	ctx.defaultStream.Synchronize()
	return nil
}

// matmulF16 is the half-precision path: tiles are widened to float32 on
// load, accumulated in float32, and narrowed on the final store.
func (ctx *Context) matmulF16(dC, dA, dB DevicePtr, m, n, k int, cfg TuneConfig) error {
	a := dA.Float16()
	b := dB.Float16()
	c := dC.Float16()

	bm, bn, bk := cfg.BlockM, cfg.BlockN, cfg.BlockK
	numTilesM := (m + bm - 1) / bm
	numTilesN := (n + bn - 1) / bn
	numTiles := numTilesM * numTilesN

	log().Debug("matmul f16 launch",
		zap.Int("m", m), zap.Int("n", n), zap.Int("k", k),
		zap.Int("tiles", numTiles), zap.String("config", cfg.String()))

	kernel := KernelFunc(func(tid ThreadID, _ ...interface{}) {
		pid := tid.Global()
		if pid >= numTiles {
			return
		}
		tm, tn := tileCoords(pid, numTilesM, numTilesN, cfg.GroupM)

		aTile := make([]float32, bm*bk)
		bTile := make([]float32, bk*bn)
		acc := make([]float32, bm*bn)

		for kk := 0; kk < k; kk += bk {
			loadTileF16(aTile, a, m, k, k, tm*bm, kk, bm, bk)
			loadTileF16(bTile, b, k, n, n, kk, tn*bn, bk, bn)
			microKernel(acc, aTile, bTile, bm, bn, bk)
		}

		storeTileF16(c, acc, m, n, n, tm*bm, tn*bn, bm, bn)
	})

	if err := ctx.LaunchFunc(kernel, GridFor(numTiles, 1), Dim3{X: 1, Y: 1, Z: 1}); err != nil {
		return err
	}
	ctx.defaultStream.Synchronize()
	return nil
}

// microKernel accumulates acc += aTile×bTile over dense row-major
// tiles. The j-innermost loop form vectorizes on current compilers.
func microKernel(acc, aTile, bTile []float32, bm, bn, bk int) {
	for i := 0; i < bm; i++ {
		accRow := acc[i*bn : i*bn+bn]
		for p := 0; p < bk; p++ {
			av := aTile[i*bk+p]
			if av == 0 {
				continue
			}
			bRow := bTile[p*bn : p*bn+bn]
			for j := range accRow {
				accRow[j] += av * bRow[j]
			}
		}
	}
}

// loadTileF16 fills a dense float32 tile from a Float16 matrix with
// zero padding outside its rows×cols bounds.
func loadTileF16(dst []float32, src []Float16, rows, cols, stride, offRow, offCol, blockRows, blockCols int) {
	for r := 0; r < blockRows; r++ {
		out := dst[r*blockCols : r*blockCols+blockCols]
		row := offRow + r
		if row < 0 || row >= rows {
			clear(out)
			continue
		}
		for cIdx := 0; cIdx < blockCols; cIdx++ {
			col := offCol + cIdx
			if col < 0 || col >= cols {
				out[cIdx] = 0
				continue
			}
			out[cIdx] = src[row*stride+col].Float32()
		}
	}
}

// storeTileF16 narrows a float32 accumulator tile into a Float16
// matrix, dropping out-of-bounds lanes.
func storeTileF16(dst []Float16, src []float32, rows, cols, stride, offRow, offCol, blockRows, blockCols int) {
	for r := 0; r < blockRows; r++ {
		row := offRow + r
		if row < 0 || row >= rows {
			continue
		}
		for cIdx := 0; cIdx < blockCols; cIdx++ {
			col := offCol + cIdx
			if col < 0 || col >= cols {
				continue
			}
			dst[row*stride+col] = F16FromFloat32(src[r*blockCols+cIdx])
		}
	}
}
