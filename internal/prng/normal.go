package prng

import "math"

// Source is anything producing uniformly distributed 64-bit words.
type Source interface {
	Next() uint64
}

// normalThreshold bounds the accepted region: x^2+y^2 <= 2^46 with x, y in [-2^23, 2^23).
const normalThreshold = int64(1) << 46

// NormalPair draws two independent standard-normal floats with the Marsaglia polar
// method on fixed-point inputs. Each attempt consumes one 64-bit word.
func NormalPair(src Source) (a, b float32) {
	for {
		if a, b, ok := NormalPairFromBits(src.Next()); ok {
			return a, b
		}
	}
}

// NormalPairFromBits runs one polar-method attempt on bits. ok is false when the
// point is rejected (outside the disc or exactly at the origin).
func NormalPairFromBits(bits uint64) (a, b float32, ok bool) {
	ix := int64(int32(uint32(bits)) >> 8)
	iy := int64(int32(uint32(bits>>32)) >> 8)
	is := ix*ix + iy*iy
	if is > normalThreshold || is == 0 {
		return 0, 0, false
	}

	x := 0x1p-23 * float32(ix)
	y := 0x1p-23 * float32(iy)
	s := 0x1p-46 * float32(is)

	r := float32(math.Sqrt(float64(-2 * float32(math.Log(float64(s))) / s)))
	return r * x, r * y, true
}
