package tilegrid

import (
	"runtime"
	"sync"
)

// launchInternal schedules grid×block over the worker pool. Blocks are
// dealt out in contiguous runs so a worker revisits the same cache lines
// across consecutive blocks; threads within a block run sequentially.
func (ctx *Context) launchInternal(
	kernelFunc func(ThreadID, ...interface{}),
	grid, block Dim3,
	stream *Stream,
	args ...interface{},
) error {
	gridSize := grid.Size()
	blockSize := block.Size()

	if gridSize == 0 {
		// Empty launch still occupies a slot to preserve stream order.
		stream.Submit(func() {})
		return nil
	}
	if blockSize == 0 || blockSize > MaxThreadsPerBlock {
		return NewInvalidArgError("Launch", "block size out of range")
	}

	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	stream.Submit(func() {
		var wg sync.WaitGroup
		wg.Add(numWorkers)

		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := startBlock + blocksPerWorker
			if endBlock > gridSize {
				endBlock = gridSize
			}

			go func(start, end int) {
				defer wg.Done()
				for blockID := start; blockID < end; blockID++ {
					blockIdx := linearTo3D(blockID, grid)
					for threadID := 0; threadID < blockSize; threadID++ {
						tid := ThreadID{
							BlockIdx:  blockIdx,
							ThreadIdx: linearTo3D(threadID, block),
							BlockDim:  block,
							GridDim:   grid,
						}
						kernelFunc(tid, args...)
					}
				}
			}(startBlock, endBlock)
		}

		wg.Wait()
	})

	return nil
}

// linearTo3D converts a flat index to X/Y/Z coordinates within dim.
func linearTo3D(linear int, dim Dim3) Dim3 {
	plane := dim.X * dim.Y
	return Dim3{
		X: linear % dim.X,
		Y: (linear % plane) / dim.X,
		Z: linear / plane,
	}
}
