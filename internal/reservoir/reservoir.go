// Package reservoir sizes and owns the output buffer of generated samples.
//
// The size is always a multiple of lanes*chunk, so every lane writes whole aligned
// chunks and kernels need no boundary checks.
package reservoir

import (
	"fmt"
	"unsafe"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/device"
)

const bytesPerSample = int(unsafe.Sizeof(float32(0)))

// Size rounds n up to lanes*chunk*ceil(n/(lanes*chunk)). It is idempotent.
func Size(n, lanes, chunk int) int {
	if n <= 0 {
		return 0
	}
	stride := lanes * chunk
	perLane := chunk * ((n + stride - 1) / stride)
	return perLane * lanes
}

// Reservoir is a host-visible float buffer of exactly Len samples.
type Reservoir struct {
	buf      device.Buffer
	size     int
	external bool
}

// Allocate creates an engine-owned reservoir holding at least n samples.
func Allocate(dev device.Device, n, lanes, chunk int) (*Reservoir, error) {
	size := Size(n, lanes, chunk)
	buf, err := dev.NewBuffer(size * bytesPerSample)
	if err != nil {
		return nil, fmt.Errorf("%w: allocate reservoir of %d samples: %v", errs.ErrDevice, size, err)
	}
	return &Reservoir{buf: buf, size: size}, nil
}

// Load wraps caller-owned storage. ext must already hold exactly Size(n) samples;
// a mismatch is a usage error and is never silently corrected.
func Load(dev device.Device, ext []float32, n, lanes, chunk int) (*Reservoir, error) {
	size := Size(n, lanes, chunk)
	if len(ext) != size {
		return nil, fmt.Errorf("%w: external reservoir holds %d samples, ReservoirSize(%d) is %d; allocate %d floats",
			errs.ErrConfiguration, len(ext), n, size, size)
	}
	var host []byte
	if size > 0 {
		host = unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(ext))), size*bytesPerSample)
	}
	buf, err := dev.WrapBuffer(host)
	if err != nil {
		return nil, fmt.Errorf("%w: wrap external reservoir: %v", errs.ErrDevice, err)
	}
	return &Reservoir{buf: buf, size: size, external: true}, nil
}

func (r *Reservoir) Len() int { return r.size }

// Chunks is the number of chunk-sized slots the kernel fills.
func (r *Reservoir) Chunks(chunk int) int { return r.size / chunk }

func (r *Reservoir) Buffer() device.Buffer { return r.buf }

func (r *Reservoir) External() bool { return r.external }

// Samples returns the host view. For external reservoirs it aliases the caller's slice.
func (r *Reservoir) Samples() []float32 {
	return device.Float32s(r.buf)
}

// Bytes is the memory footprint of the reservoir.
func (r *Reservoir) Bytes() int { return r.size * bytesPerSample }
