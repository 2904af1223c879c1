// Package prng implements the generator algebra used to partition one seed into
// many non-overlapping lane streams: SplitMix64 seed expansion, Xoshiro256+ with
// Jump/LongJump, PCG32, bit-to-float conversion and the polar normal-pair sampler.
//
// None of the generators are safe for concurrent use; every lane and every seeding
// worker owns its own value.
package prng

const (
	// Golden ratio increment used by SplitMix64 to traverse states uniformly.
	splitmix64Increment = 0x9e3779b97f4a7c15

	// Multipliers from SplitMix64 reference implementation.
	splitmix64Mul1 = 0xbf58476d1ce4e5b9
	splitmix64Mul2 = 0x94d049bb133111eb
)

// SplitMix64 stretches one 64-bit seed into well-distributed words.
// Period 2^64. It is used only to bootstrap Xoshiro256+ states.
type SplitMix64 struct {
	state uint64
}

func NewSplitMix64(seed uint64) *SplitMix64 {
	return &SplitMix64{state: seed}
}

// Next advances the state by the golden increment and returns the mixed value.
func (s *SplitMix64) Next() uint64 {
	s.state += splitmix64Increment
	return Mix64(s.state)
}

// Sequence returns the next n outputs.
func (s *SplitMix64) Sequence(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

func (s *SplitMix64) State() uint64 { return s.state }

// Mix64 is the SplitMix64 finalizer: two multiply/xor-shift avalanche rounds.
// It is a bijection on uint64.
func Mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * splitmix64Mul1
	z = (z ^ (z >> 27)) * splitmix64Mul2
	return z ^ (z >> 31)
}
