// Package tilegrid runtime: device, context, streams, and kernel launch.
//
// Example usage:
//
//	d_x, _ := tilegrid.Malloc(n * 4)
//	defer tilegrid.Free(d_x)
//
//	grid := tilegrid.GridFor(n, 256)
//	block := tilegrid.Dim3{X: 256}
//	tilegrid.LaunchFunc(myKernel, grid, block)
//	tilegrid.Synchronize()
package tilegrid

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device describes a compute device. On CPU there is exactly one device:
// the host itself, with its cores and memory.
type Device struct {
	ID         int
	Name       string
	TotalMem   uint64
	NumCores   int
	MaxThreads int
}

// Context owns device resources: streams and the memory pool. A default
// context is created at init; most programs use the package-level
// functions that forward to it.
type Context struct {
	device        *Device
	mu            sync.Mutex
	streams       map[int]*Stream
	streamID      int32
	memory        *MemoryPool
	defaultStream *Stream
	tuner         *Autotuner
}

// Stream is an ordered sequence of operations executing asynchronously.
// Operations within a stream run in submission order; separate streams
// may run concurrently.
type Stream struct {
	id    int
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

// Dim3 holds 3D grid or block dimensions.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements spanned by the dimensions.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// ThreadID locates one thread within the launch hierarchy.
type ThreadID struct {
	BlockIdx  Dim3
	ThreadIdx Dim3
	BlockDim  Dim3
	GridDim   Dim3
}

// Global returns the flat global index along X.
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalX returns the global X index.
func (tid ThreadID) GlobalX() int { return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X }

// GlobalY returns the global Y index.
func (tid ThreadID) GlobalY() int { return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y }

// GlobalZ returns the global Z index.
func (tid ThreadID) GlobalZ() int { return tid.BlockIdx.Z*tid.BlockDim.Z + tid.ThreadIdx.Z }

// Kernel is a unit of parallel work. Execute is called concurrently from
// multiple goroutines and must be safe for that.
type Kernel interface {
	Execute(tid ThreadID, args ...interface{})
}

// KernelFunc adapts a plain function to the Kernel interface.
type KernelFunc func(tid ThreadID, args ...interface{})

// Execute implements Kernel.
func (fn KernelFunc) Execute(tid ThreadID, args ...interface{}) {
	fn(tid, args...)
}

// DevicePtr is a handle to pooled device memory. Typed views (Float32,
// Float64, Float16) expose the underlying data; Offset derives
// sub-region handles sharing the same memory.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

var (
	defaultDevice  *Device
	defaultContext *Context
	initOnce       sync.Once
)

func init() {
	initOnce.Do(func() {
		defaultDevice = &Device{
			ID:         0,
			Name:       "CPU",
			TotalMem:   systemMemory(),
			NumCores:   runtime.NumCPU(),
			MaxThreads: runtime.NumCPU() * 2,
		}
		defaultContext = NewContext()
	})
}

// NewContext creates a fresh execution context with its own memory pool,
// default stream, and autotuner.
func NewContext() *Context {
	ctx := &Context{
		device:  defaultDevice,
		streams: make(map[int]*Stream),
		memory:  NewMemoryPool(),
	}
	ctx.defaultStream = ctx.CreateStream()
	ctx.tuner = NewAutotuner()
	return ctx
}

// GetDevice returns the CPU device description.
func GetDevice() *Device { return defaultDevice }

// GetDeviceCount reports the number of devices, which is always 1.
func GetDeviceCount() int { return 1 }

// SetDevice selects the active device. Only device 0 exists.
func SetDevice(id int) error {
	if id != 0 {
		return ErrInvalidDevice
	}
	return nil
}

// Malloc allocates size bytes of device memory from the default context.
func Malloc(size int) (DevicePtr, error) { return defaultContext.Malloc(size) }

// Free releases memory allocated by Malloc.
func Free(ptr DevicePtr) error { return defaultContext.Free(ptr) }

// Memcpy copies between host slices and device pointers on the default
// context. All memory is host-visible, so kind only records intent.
func Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	return defaultContext.Memcpy(dst, src, size, kind)
}

// Launch runs a kernel over grid×block on the default stream.
func Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return defaultContext.Launch(kernel, grid, block, args...)
}

// LaunchFunc runs a kernel function on the default stream.
func LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return defaultContext.LaunchFunc(fn, grid, block, args...)
}

// Synchronize blocks until every stream in the default context drains.
func Synchronize() error { return defaultContext.Synchronize() }

// GridFor computes the 1-D grid covering n items at the given block
// size, the ceiling-division launch every host wrapper uses.
func GridFor(n, blockSize int) Dim3 {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return Dim3{X: (n + blockSize - 1) / blockSize, Y: 1, Z: 1}
}

// Context methods.

// CreateStream creates a new execution stream with its own worker.
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := &Stream{
		id:    id,
		tasks: make(chan func(), streamQueueDepth),
		done:  make(chan struct{}),
	}
	go stream.worker()

	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// DefaultStream returns the context's default stream.
func (ctx *Context) DefaultStream() *Stream { return ctx.defaultStream }

// Launch runs a kernel on the default stream.
func (ctx *Context) Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return ctx.LaunchStream(kernel, grid, block, ctx.defaultStream, args...)
}

// LaunchFunc runs a kernel function on the default stream.
func (ctx *Context) LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return ctx.LaunchStream(fn, grid, block, ctx.defaultStream, args...)
}

// LaunchStream runs a kernel on a specific stream.
func (ctx *Context) LaunchStream(kernel Kernel, grid, block Dim3, stream *Stream, args ...interface{}) error {
	return ctx.launchInternal(kernel.Execute, grid, block, stream, args...)
}

// Synchronize waits for every stream in the context to drain.
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()

	for _, s := range streams {
		s.Synchronize()
	}
	return nil
}

// Destroy drains and shuts down every stream owned by the context.
func (ctx *Context) Destroy() {
	ctx.mu.Lock()
	streams := ctx.streams
	ctx.streams = make(map[int]*Stream)
	ctx.mu.Unlock()

	for _, s := range streams {
		s.Close()
	}
}

// Stream methods.

func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
	close(s.done)
}

// Submit enqueues a task on the stream.
func (s *Stream) Submit(task func()) {
	s.wg.Add(1)
	s.tasks <- task
}

// Synchronize waits for all submitted tasks to complete.
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

// Close drains the stream and stops its worker.
func (s *Stream) Close() {
	s.wg.Wait()
	close(s.tasks)
	<-s.done
}
