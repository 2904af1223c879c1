package prng

import "math/bits"

const pcg32Multiplier = 6364136223846793005

// PCG32 is the PCG-XSH-RR generator with 64-bit state and a 64-bit odd stream increment.
type PCG32 struct {
	state uint64
	inc   uint64
}

// NewPCG32 takes the raw state and stream selector; the increment is forced odd.
func NewPCG32(state, stream uint64) PCG32 {
	return PCG32{state: state, inc: stream | 1}
}

func (p *PCG32) Uint32() uint32 {
	old := p.state
	p.state = old*pcg32Multiplier + p.inc
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := int(old >> 59)
	return bits.RotateLeft32(xorshifted, -rot)
}

// Next packs two successive outputs, the first in the low half.
func (p *PCG32) Next() uint64 {
	lo := uint64(p.Uint32())
	hi := uint64(p.Uint32())
	return lo | hi<<32
}

func (p *PCG32) State() uint64 { return p.state }
