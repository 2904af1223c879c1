// Package device is the narrow compute-backend surface the engine needs: one device
// handle, host-visible buffers, a compiler from kernel source to pipelines and a
// command that binds arguments, dispatches a 1-D grid and synchronizes buffers.
package device

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/Borislavv/go-ash-rand/errs"
)

// Constant is one compile-time binding prepended to kernel source.
type Constant struct {
	Type  string
	Name  string
	Value string
}

// Library is the input of one compilation.
type Library struct {
	// Function is the kernel entry point to look up in Source.
	Function string
	Source   string
	// Constants must match, in order, the constants the kernel declares.
	Constants []Constant
}

// Device is a handle to one compute device.
type Device interface {
	Name() string
	// NewBuffer allocates a zeroed host-visible buffer of size bytes.
	NewBuffer(size int) (Buffer, error)
	// WrapBuffer exposes caller-owned memory to the device without copying.
	WrapBuffer(host []byte) (Buffer, error)
	Compile(lib Library) (Pipeline, error)
	NewCommand() (Command, error)
	Close() error
}

// Buffer is host-visible device memory.
type Buffer interface {
	Len() int
	// Bytes is the host view. Writes through it reach the device after DidModify.
	Bytes() []byte
	// DidModify marks the whole host view as changed since the last upload.
	DidModify()
}

// Pipeline is a compiled kernel.
type Pipeline interface {
	Name() string
	MaxLanesPerGroup() int
}

// Command records one unit of work. It is single-use.
type Command interface {
	SetPipeline(p Pipeline)
	SetBuffer(b Buffer, index int)
	SetScalar(v uint64, index int)
	Dispatch(groups, lanesPerGroup int)
	// Synchronize makes the device copy of b host-visible once the command completes.
	Synchronize(b Buffer)
	// Commit submits and blocks until the device is done.
	Commit() error
}

// Options tune a backend at open time. Zero values mean backend defaults.
type Options struct {
	MaxLanesPerGroup int
	Parallelism      int
}

// Factory opens a device.
type Factory func(opts Options) (Device, error)

var (
	mu       sync.RWMutex
	backends = make(map[string]Factory)
)

// Register makes a backend available under name. It panics on duplicates.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := backends[name]; ok {
		panic("device: backend already registered: " + name)
	}
	backends[name] = f
}

// Open opens the backend registered under name.
func Open(name string, opts Options) (Device, error) {
	mu.RLock()
	f, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: device backend %q (available: %v)", errs.ErrResourceNotFound, name, Backends())
	}
	d, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open backend %q: %v", errs.ErrDevice, name, err)
	}
	return d, nil
}

// Backends lists the registered backend names.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Uint64s views a buffer as 64-bit words. Trailing bytes are ignored.
func Uint64s(b Buffer) []uint64 {
	raw := b.Bytes()
	if len(raw) < 8 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(unsafe.SliceData(raw))), len(raw)/8)
}

// Float32s views a buffer as 32-bit floats. Trailing bytes are ignored.
func Float32s(b Buffer) []float32 {
	raw := b.Bytes()
	if len(raw) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(raw))), len(raw)/4)
}
