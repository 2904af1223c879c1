package cpu

import (
	"unsafe"
)

// Buffer keeps a host view and a device shadow, the way managed storage does on a
// discrete accelerator. Kernels only ever touch the shadow.
type Buffer struct {
	host  []byte
	dev   []byte
	dirty bool
}

func (b *Buffer) Len() int      { return len(b.host) }
func (b *Buffer) Bytes() []byte { return b.host }
func (b *Buffer) DidModify()    { b.dirty = true }

func (b *Buffer) upload() {
	if b.dirty {
		copy(b.dev, b.host)
		b.dirty = false
	}
}

func (b *Buffer) download() { copy(b.host, b.dev) }

func (b *Buffer) words() []uint64 {
	if len(b.dev) < 8 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(unsafe.SliceData(b.dev))), len(b.dev)/8)
}

func (b *Buffer) floats() []float32 {
	if len(b.dev) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b.dev))), len(b.dev)/4)
}

// alignedBytes returns n zeroed bytes starting on an 8-byte boundary.
func alignedBytes(n int) []byte {
	if n == 0 {
		return []byte{}
	}
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), n)
}
