package prng

import "math/bits"

// Jump polynomials from the reference xoshiro256+ implementation.
var (
	jumpPoly = [4]uint64{
		0x180ec6d33cfd0aba, 0xd5a61266f0c9392c,
		0xa9582618e03fc9aa, 0x39abdc4529b1661c,
	}
	longJumpPoly = [4]uint64{
		0x76e15d3efefdcbbf, 0xc5004e441c522fb3,
		0x77710069854ee241, 0x39109bb02acbe635,
	}
)

// Xoshiro256Plus is a 256-bit state, 64-bit output generator with period 2^256-1.
// Streams are independent only when separated through Jump or LongJump.
type Xoshiro256Plus struct {
	s [4]uint64
}

// NewXoshiro256Plus expands seed through SplitMix64 into the four state words.
// Four consecutive SplitMix64 outputs are distinct, so the state is never all zero.
func NewXoshiro256Plus(seed uint64) Xoshiro256Plus {
	sm := NewSplitMix64(seed)
	return Xoshiro256Plus{s: [4]uint64{sm.Next(), sm.Next(), sm.Next(), sm.Next()}}
}

// FromState builds a generator from an explicit state.
func FromState(s [4]uint64) Xoshiro256Plus {
	return Xoshiro256Plus{s: s}
}

// Next returns s[0]+s[3] from the state before the update, then advances.
func (x *Xoshiro256Plus) Next() uint64 {
	result := x.s[0] + x.s[3]
	t := x.s[1] << 17

	x.s[2] ^= x.s[0]
	x.s[3] ^= x.s[1]
	x.s[1] ^= x.s[2]
	x.s[0] ^= x.s[3]

	x.s[2] ^= t

	x.s[3] = bits.RotateLeft64(x.s[3], 45)

	return result
}

// Jump is equivalent to 2^128 calls to Next. It yields 2^128 non-overlapping subsequences.
func (x *Xoshiro256Plus) Jump() { x.jump(&jumpPoly) }

// LongJump is equivalent to 2^192 calls to Next. Each LongJump start point
// hosts 2^64 Jump-separated subsequences.
func (x *Xoshiro256Plus) LongJump() { x.jump(&longJumpPoly) }

// jump multiplies the state by the jump polynomial: the accumulator collects the
// state before each step whose coefficient bit is set.
func (x *Xoshiro256Plus) jump(poly *[4]uint64) {
	var acc [4]uint64
	for _, j := range poly {
		for b := 0; b < 64; b++ {
			if j&(uint64(1)<<b) != 0 {
				acc[0] ^= x.s[0]
				acc[1] ^= x.s[1]
				acc[2] ^= x.s[2]
				acc[3] ^= x.s[3]
			}
			x.Next()
		}
	}
	x.s = acc
}

func (x *Xoshiro256Plus) State() [4]uint64 { return x.s }

// IsZero reports the degenerate all-zero state, a fixed point of Next.
func (x *Xoshiro256Plus) IsZero() bool {
	return x.s[0]|x.s[1]|x.s[2]|x.s[3] == 0
}
