package engine

import (
	"sync/atomic"
	"time"
)

type counters struct {
	uniformFills  atomic.Int64
	normalFills   atomic.Int64
	samples       atomic.Int64
	seeds         atomic.Int64
	emptyFills    atomic.Int64
	failures      atomic.Int64
	dispatchNanos atomic.Int64
}

// Metrics is a point-in-time copy of the engine counters.
type Metrics struct {
	UniformFills   int64
	NormalFills    int64
	Samples        int64
	Seeds          int64
	EmptyFills     int64
	Failures       int64
	Compiles       int64
	DispatchTime   time.Duration
	ReservoirBytes int64
	StateBytes     int64
}

func (c *counters) snapshot() Metrics {
	return Metrics{
		UniformFills: c.uniformFills.Load(),
		NormalFills:  c.normalFills.Load(),
		Samples:      c.samples.Load(),
		Seeds:        c.seeds.Load(),
		EmptyFills:   c.emptyFills.Load(),
		Failures:     c.failures.Load(),
		DispatchTime: time.Duration(c.dispatchNanos.Load()),
	}
}
