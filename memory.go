package tilegrid

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind records the direction of a memory transfer. All tilegrid
// memory is host-visible, so the kind is informational; it is accepted
// for parity with device-style call sites.
type MemcpyKind int

const (
	MemcpyHostToHost MemcpyKind = iota
	MemcpyHostToDevice
	MemcpyDeviceToHost
	MemcpyDeviceToDevice
	MemcpyDefault
)

// MemoryPool hands out aligned allocations and keeps freed blocks on a
// free list for reuse. It tracks live and peak bytes.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	ptr     unsafe.Pointer
	size    int
	used    bool
	backing []byte // pins the allocation for the GC
}

// NewMemoryPool creates an empty pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
	}
}

// Malloc allocates size bytes, aligned for SIMD access.
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, NewInvalidArgError("Malloc", fmt.Sprintf("invalid size %d", size))
	}
	return ctx.memory.Allocate(size)
}

// Free returns ptr's memory to the pool. Freeing the zero DevicePtr is
// a no-op.
func (ctx *Context) Free(ptr DevicePtr) error {
	if ptr.ptr == nil {
		return nil
	}
	return ctx.memory.Free(ptr)
}

// Memcpy copies size bytes between DevicePtrs and host slices.
func (ctx *Context) Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	dstPtr, err := memArg("Memcpy dst", dst)
	if err != nil {
		return err
	}
	srcPtr, err := memArg("Memcpy src", src)
	if err != nil {
		return err
	}
	if dstPtr != nil && srcPtr != nil && size > 0 {
		copy(unsafe.Slice((*byte)(dstPtr), size), unsafe.Slice((*byte)(srcPtr), size))
	}
	return nil
}

// memArg resolves a Memcpy operand to a raw pointer.
func memArg(op string, v interface{}) (unsafe.Pointer, error) {
	switch x := v.(type) {
	case DevicePtr:
		return x.ptr, nil
	case unsafe.Pointer:
		return x, nil
	case []byte:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	case []float32:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	case []float64:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	case []int32:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	case []Float16:
		if len(x) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&x[0]), nil
	default:
		return nil, NewInvalidArgError(op, fmt.Sprintf("unsupported operand type %T", v))
	}
}

// Allocate hands out a block of at least size bytes, reusing freed
// blocks when one is large enough.
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := (size + MemoryAlignment - 1) &^ (MemoryAlignment - 1)

	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true
			mp.account(int64(alloc.size))
			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	buf := make([]byte, alignedSize+MemoryAlignment)
	ptr := unsafe.Pointer(&buf[0])
	if misalign := uintptr(ptr) & (MemoryAlignment - 1); misalign != 0 {
		ptr = unsafe.Pointer(uintptr(ptr) + MemoryAlignment - misalign)
	}

	alloc := &allocation{ptr: ptr, size: alignedSize, used: true, backing: buf}
	mp.allocated[uintptr(ptr)] = alloc
	mp.account(int64(alignedSize))

	return DevicePtr{ptr: ptr, size: size}, nil
}

// Free returns a block to the free list. Double frees are reported.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// Stats reports live and peak allocated bytes.
func (mp *MemoryPool) Stats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

func (mp *MemoryPool) account(delta int64) {
	mp.totalAlloc += delta
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// DevicePtr views.

// Float32 returns a float32 slice view of the memory.
func (d DevicePtr) Float32() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Float64 returns a float64 slice view of the memory.
func (d DevicePtr) Float64() []float64 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float64)(d.ptr), d.size/8)
}

// Float16 returns a Float16 slice view of the memory.
func (d DevicePtr) Float16() []Float16 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*Float16)(d.ptr), d.size/2)
}

// Int32 returns an int32 slice view of the memory.
func (d DevicePtr) Int32() []int32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*int32)(d.ptr), d.size/4)
}

// Byte returns the raw byte view of the memory.
func (d DevicePtr) Byte() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Offset derives a handle starting bytes into the region, sharing the
// same underlying memory.
func (d DevicePtr) Offset(bytes int) DevicePtr {
	return DevicePtr{
		ptr:    unsafe.Pointer(uintptr(d.ptr) + uintptr(bytes)),
		size:   d.size - bytes,
		offset: d.offset + bytes,
	}
}

// Size returns the region size in bytes.
func (d DevicePtr) Size() int { return d.size }

// IsNil reports whether the handle points at nothing.
func (d DevicePtr) IsNil() bool { return d.ptr == nil }

// systemMemory returns total system memory in bytes. A fixed figure is
// good enough for device reporting; allocation is bounded by Go's heap.
func systemMemory() uint64 {
	return 16 * 1024 * 1024 * 1024
}
