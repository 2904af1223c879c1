package cpu

import (
	"fmt"
	"sort"
	"sync"
)

// Kernel is the Go body of a device entry point. Run executes one lane of a grid of
// lanes; it must only touch data owned by that lane.
type Kernel struct {
	// Constants are the compile-time constant names the kernel declares, in order.
	Constants []string
	// Check validates constant values at compile time.
	Check func(consts map[string]uint64) error
	Run   func(lane, lanes int, a *Args)
}

var (
	kernelsMu sync.RWMutex
	kernels   = make(map[string]Kernel)
)

// RegisterKernel binds a Go implementation to an entry-point name.
func RegisterKernel(name string, k Kernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	if _, ok := kernels[name]; ok {
		panic("cpu: kernel already registered: " + name)
	}
	kernels[name] = k
}

// Kernels lists the entry points this backend can run.
func Kernels() []string {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupKernel(name string) (Kernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := kernels[name]
	return k, ok
}

// Args are the arguments bound to a dispatch. Accessors panic on a missing binding;
// Commit turns the panic into a device error.
type Args struct {
	buffers map[int]*Buffer
	scalars map[int]uint64
	consts  map[string]uint64
}

func (a *Args) Words(index int) []uint64 { return a.buffer(index).words() }

func (a *Args) Floats(index int) []float32 { return a.buffer(index).floats() }

func (a *Args) Scalar(index int) uint64 {
	v, ok := a.scalars[index]
	if !ok {
		panic(fmt.Sprintf("no scalar bound at index %d", index))
	}
	return v
}

func (a *Args) Const(name string) uint64 { return a.consts[name] }

func (a *Args) buffer(index int) *Buffer {
	b, ok := a.buffers[index]
	if !ok {
		panic(fmt.Sprintf("no buffer bound at index %d", index))
	}
	return b
}
