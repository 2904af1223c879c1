package cpu

import (
	"fmt"

	"github.com/Borislavv/go-ash-rand/internal/prng"
)

// Argument slots shared by every sampling kernel.
const (
	slotStates    = 0
	slotReservoir = 1
	slotChunks    = 2
	wordsPerLane  = 4
)

func init() {
	RegisterKernel("Xoshiro256Plus_UniformDistribution", samplingKernel(xoshiroLane(uniformChunk)))
	RegisterKernel("Xoshiro256Plus_NormalDistribution", samplingKernel(xoshiroLane(normalChunk)))
	RegisterKernel("PCG32_UniformDistribution", samplingKernel(pcgLane(uniformChunk)))
	RegisterKernel("PCG32_NormalDistribution", samplingKernel(pcgLane(normalChunk)))
}

type chunkFn func(src prng.Source, dst []float32)

func uniformChunk(src prng.Source, dst []float32) {
	for i := 0; i < len(dst); i += 2 {
		dst[i], dst[i+1] = prng.FloatPairFromBits(src.Next())
	}
}

func normalChunk(src prng.Source, dst []float32) {
	for i := 0; i < len(dst); i += 2 {
		dst[i], dst[i+1] = prng.NormalPair(src)
	}
}

// laneFn draws every chunk k = lane, lane+lanes, ... below chunks from the lane's state.
type laneFn func(state []uint64, out []float32, lane, lanes, chunks, chunk int)

func samplingKernel(body laneFn) Kernel {
	return Kernel{
		Constants: []string{"chunk_size"},
		Check: func(consts map[string]uint64) error {
			if c := consts["chunk_size"]; c == 0 || c%2 != 0 {
				return fmt.Errorf("chunk_size must be a positive even number, got %d", c)
			}
			return nil
		},
		Run: func(lane, lanes int, a *Args) {
			states := a.Words(slotStates)
			out := a.Floats(slotReservoir)
			chunks := int(a.Scalar(slotChunks))
			chunk := int(a.Const("chunk_size"))
			if chunks*chunk > len(out) {
				panic(fmt.Sprintf("%d chunks of %d overflow a reservoir of %d", chunks, chunk, len(out)))
			}
			state := states[lane*wordsPerLane : (lane+1)*wordsPerLane]
			body(state, out, lane, lanes, chunks, chunk)
		},
	}
}

// xoshiroLane reads and writes back all four words.
func xoshiroLane(draw chunkFn) laneFn {
	return func(state []uint64, out []float32, lane, lanes, chunks, chunk int) {
		x := prng.FromState([4]uint64(state))
		for k := lane; k < chunks; k += lanes {
			draw(&x, out[k*chunk:(k+1)*chunk])
		}
		s := x.State()
		copy(state, s[:])
	}
}

// pcgLane uses word 0 as the state and word 1 as the stream; it writes back word 0 only.
func pcgLane(draw chunkFn) laneFn {
	return func(state []uint64, out []float32, lane, lanes, chunks, chunk int) {
		p := prng.NewPCG32(state[0], state[1])
		for k := lane; k < chunks; k += lanes {
			draw(&p, out[k*chunk:(k+1)*chunk])
		}
		state[0] = p.State()
	}
}
