// Package seeding fills the per-lane state table from one master seed.
//
// The two-level protocol derives one LongJump sub-stream per host worker and, inside
// each worker, one Jump per lane. Lanes in the same worker are 2^128 steps apart,
// lanes in different workers at least 2^192 steps apart. Workers write disjoint
// contiguous slices of the table, so the table needs no locking.
package seeding

import (
	"fmt"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/prng"
	"golang.org/x/sync/errgroup"
)

// WordsPerLane is the number of 64-bit words one lane state occupies in the table.
const WordsPerLane = 4

// Strategy writes one state per lane into table (len(table) == WordsPerLane*lanes),
// starting from seeder. workers is the host parallelism degree.
type Strategy func(seeder prng.Xoshiro256Plus, table []uint64, workers int) error

// Seed expands master through SplitMix64 and runs strategy over table.
func Seed(strategy Strategy, master uint64, table []uint64, workers int) error {
	if len(table)%WordsPerLane != 0 {
		return fmt.Errorf("%w: state table length %d is not a multiple of %d",
			errs.ErrConfiguration, len(table), WordsPerLane)
	}
	if workers <= 0 {
		return fmt.Errorf("%w: host workers must be positive, got %d", errs.ErrConfiguration, workers)
	}
	seeder := prng.NewXoshiro256Plus(master)
	if seeder.IsZero() {
		return fmt.Errorf("%w: seeder expanded from %#x", errs.ErrDegenerateState, master)
	}
	if err := strategy(seeder, table, workers); err != nil {
		return err
	}
	return Verify(table)
}

// TwoLevel is the parallel protocol: LongJump once per worker on the seeder, then
// Jump once per lane inside each worker.
func TwoLevel(seeder prng.Xoshiro256Plus, table []uint64, workers int) error {
	lanes := len(table) / WordsPerLane

	streams := make([]prng.Xoshiro256Plus, workers)
	for i := range streams {
		seeder.LongJump()
		streams[i] = seeder
	}

	var g errgroup.Group
	for w := range streams {
		lo, hi := Partition(lanes, workers, w)
		if lo == hi {
			continue
		}
		stream := streams[w]
		g.Go(func() error {
			fill(&stream, table[lo*WordsPerLane:hi*WordsPerLane])
			return nil
		})
	}
	return g.Wait()
}

// SingleLevel derives every lane from the seeder with Jump only. It gives the same
// non-overlap guarantee without host parallelism.
func SingleLevel(seeder prng.Xoshiro256Plus, table []uint64, _ int) error {
	fill(&seeder, table)
	return nil
}

func fill(stream *prng.Xoshiro256Plus, table []uint64) {
	for i := 0; i < len(table); i += WordsPerLane {
		stream.Jump()
		s := stream.State()
		copy(table[i:i+WordsPerLane], s[:])
	}
}

// Partition returns the half-open lane range [lo, hi) owned by worker w of n workers.
// Ranges are contiguous, disjoint, cover [0, lanes) and differ in size by at most one.
func Partition(lanes, n, w int) (lo, hi int) {
	return jobPointer(lanes, n, w), jobPointer(lanes, n, w+1)
}

func jobPointer(lanes, n, w int) int {
	return int(int64(lanes) * int64(w) / int64(n))
}

// Verify rejects a table holding an all-zero lane state.
func Verify(table []uint64) error {
	for i := 0; i+WordsPerLane <= len(table); i += WordsPerLane {
		if table[i]|table[i+1]|table[i+2]|table[i+3] == 0 {
			return fmt.Errorf("%w: lane %d", errs.ErrDegenerateState, i/WordsPerLane)
		}
	}
	return nil
}
