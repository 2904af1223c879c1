// Package cpu is a host-emulated accelerator. A dispatch runs every thread group on
// a bounded pool of goroutines and every lane of a group sequentially, with kernels
// implemented in Go and looked up by entry-point name.
package cpu

import (
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/device"
)

const (
	// BackendName is the registry key of this backend.
	BackendName = "cpu"
	// DefaultMaxLanesPerGroup mirrors a common threadgroup limit of real devices.
	DefaultMaxLanesPerGroup = 1024
)

var kernelDecl = regexp.MustCompile(`kernel\s+void\s+(\w+)\s*\(`)

func init() {
	device.Register(BackendName, func(opts device.Options) (device.Device, error) {
		return New(opts), nil
	})
}

// Device implements device.Device on the host.
type Device struct {
	maxLanes    int
	parallelism int
	closed      atomic.Bool
}

// New opens a CPU device. Zero options take the defaults.
func New(opts device.Options) *Device {
	d := &Device{maxLanes: opts.MaxLanesPerGroup, parallelism: opts.Parallelism}
	if d.maxLanes <= 0 {
		d.maxLanes = DefaultMaxLanesPerGroup
	}
	if d.parallelism <= 0 {
		d.parallelism = runtime.GOMAXPROCS(0)
	}
	return d
}

func (d *Device) Name() string { return fmt.Sprintf("cpu(x%d)", d.parallelism) }

func (d *Device) NewBuffer(size int) (device.Buffer, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative buffer size %d", errs.ErrConfiguration, size)
	}
	return &Buffer{host: alignedBytes(size), dev: alignedBytes(size)}, nil
}

func (d *Device) WrapBuffer(host []byte) (device.Buffer, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if host == nil {
		host = []byte{}
	}
	b := &Buffer{host: host, dev: alignedBytes(len(host))}
	copy(b.dev, host)
	return b, nil
}

// Compile resolves lib.Function in the source and binds its constants.
func (d *Device) Compile(lib device.Library) (device.Pipeline, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if !declares(lib.Source, lib.Function) {
		return nil, fmt.Errorf("%w: kernel %q not found in source", errs.ErrResourceNotFound, lib.Function)
	}
	k, ok := lookupKernel(lib.Function)
	if !ok {
		return nil, fmt.Errorf("%w: kernel %q has no %s implementation", errs.ErrResourceNotFound, lib.Function, BackendName)
	}

	if len(lib.Constants) != len(k.Constants) {
		return nil, fmt.Errorf("%w: kernel %q takes %d compile-time constants, got %d",
			errs.ErrConfiguration, lib.Function, len(k.Constants), len(lib.Constants))
	}
	consts := make(map[string]uint64, len(lib.Constants))
	for i, c := range lib.Constants {
		if c.Name != k.Constants[i] {
			return nil, fmt.Errorf("%w: kernel %q constant %d is %q, got %q",
				errs.ErrConfiguration, lib.Function, i, k.Constants[i], c.Name)
		}
		v, err := strconv.ParseUint(c.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: kernel %q constant %s=%q: %v", errs.ErrConfiguration, lib.Function, c.Name, c.Value, err)
		}
		consts[c.Name] = v
	}
	if k.Check != nil {
		if err := k.Check(consts); err != nil {
			return nil, fmt.Errorf("%w: kernel %q: %v", errs.ErrConfiguration, lib.Function, err)
		}
	}

	return &Pipeline{name: lib.Function, kernel: k, consts: consts, maxLanes: d.maxLanes}, nil
}

func (d *Device) NewCommand() (device.Command, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	return &Command{
		parallelism: d.parallelism,
		buffers:     make(map[int]*Buffer),
		scalars:     make(map[int]uint64),
	}, nil
}

func (d *Device) Close() error {
	d.closed.Store(true)
	return nil
}

func (d *Device) usable() error {
	if d.closed.Load() {
		return fmt.Errorf("%w: device is closed", errs.ErrDevice)
	}
	return nil
}

// Functions lists the kernel entry points declared in source.
func Functions(source string) []string {
	var names []string
	for _, m := range kernelDecl.FindAllStringSubmatch(source, -1) {
		names = append(names, m[1])
	}
	return names
}

func declares(source, function string) bool {
	for _, name := range Functions(source) {
		if name == function {
			return true
		}
	}
	return false
}

// Pipeline is a resolved kernel with its constants.
type Pipeline struct {
	name     string
	kernel   Kernel
	consts   map[string]uint64
	maxLanes int
}

func (p *Pipeline) Name() string          { return p.name }
func (p *Pipeline) MaxLanesPerGroup() int { return p.maxLanes }
