// Package tilegrid configuration constants.
package tilegrid

// Cache sizes assumed by the tiling heuristics (in bytes).
const (
	L1CacheSize = 32 * 1024
	L2CacheSize = 256 * 1024
	L3CacheSize = 8 * 1024 * 1024
)

// SIMD lane widths in float32 elements.
const (
	AVX2VectorSize   = 8
	AVX512VectorSize = 16

	// Alignment for pooled allocations; matches a cache line so tiles
	// never straddle one.
	SIMDAlignment = 64
)

// Launch dimensions.
const (
	// DefaultBlockSize is the block size used when a caller does not
	// choose one; elementwise launches partition arrays at this width.
	DefaultBlockSize = 256

	// MaxThreadsPerBlock bounds block.Size() at launch.
	MaxThreadsPerBlock = 1024
)

// Memory pool parameters.
const (
	MemoryAlignment = 64

	// streamQueueDepth bounds pending tasks per stream.
	streamQueueDepth = 1024
)

// Tile limits accepted by MakeBlockPtr and the tuner's config table.
const (
	MinTileDim = 8
	MaxTileDim = 256
)
