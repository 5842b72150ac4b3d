// Package tilegrid is a tiled-kernel execution library for CPUs.
//
// It provides the pieces a blocked GPU-style kernel needs, implemented
// natively in Go: a grid/block launch model over a goroutine pool,
// pooled device memory with typed views, block pointers for sliding
// tiled access to matrices, a precision-selectable device math library,
// a tiled matrix multiply with cached autotuning, and tolerance-based
// verification against gonum reference routines.
//
// The execution model is data parallel: one independent unit of work per
// block, no inter-block synchronization, disjoint output writes. Threads
// within a block run sequentially on the worker that owns the block,
// which keeps per-block working sets cache resident.
package tilegrid
