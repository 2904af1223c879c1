// Package hostref fills float slices on the host with the same generator algebra
// the device kernels use. It is the reference path for checking device output.
package hostref

import (
	"fmt"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/algorithm"
	"github.com/Borislavv/go-ash-rand/internal/prng"
	"github.com/Borislavv/go-ash-rand/internal/seeding"
	"golang.org/x/sync/errgroup"
)

// Fill writes len(dst) samples of kind. Every worker owns one LongJump sub-stream
// and a contiguous range of sample pairs; an odd tail uses the first half of a pair.
func Fill(kind algorithm.Kind, dst []float32, master uint64, workers int) error {
	if workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", errs.ErrConfiguration, workers)
	}
	seeder := prng.NewXoshiro256Plus(master)
	if seeder.IsZero() {
		return fmt.Errorf("%w: seeder expanded from %#x", errs.ErrDegenerateState, master)
	}

	var draw func(x *prng.Xoshiro256Plus) (a, b float32)
	switch kind {
	case algorithm.Uniform:
		draw = func(x *prng.Xoshiro256Plus) (float32, float32) { return prng.FloatPairFromBits(x.Next()) }
	case algorithm.Normal:
		draw = func(x *prng.Xoshiro256Plus) (float32, float32) { return prng.NormalPair(x) }
	default:
		return fmt.Errorf("%w: unsupported distribution %s", errs.ErrConfiguration, kind)
	}

	pairs := (len(dst) + 1) / 2
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		seeder.LongJump()
		stream := seeder

		lo, hi := seeding.Partition(pairs, workers, w)
		if lo == hi {
			continue
		}
		part := dst[2*lo : min(2*hi, len(dst))]
		g.Go(func() error {
			fillPairs(part, &stream, draw)
			return nil
		})
	}
	return g.Wait()
}

func fillPairs(dst []float32, x *prng.Xoshiro256Plus, draw func(x *prng.Xoshiro256Plus) (a, b float32)) {
	i := 0
	for ; i+1 < len(dst); i += 2 {
		dst[i], dst[i+1] = draw(x)
	}
	if i < len(dst) {
		dst[i], _ = draw(x)
	}
}
