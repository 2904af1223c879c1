package telemetry

import (
	"time"

	"github.com/Borislavv/go-ash-rand/internal/engine"
)

// Source exposes cumulative engine counters.
type Source interface {
	Metrics() engine.Metrics
}

// deltaMetrics converts cumulative snapshots to per-interval deltas. Gauges
// (memory) are taken from cur. If a counter resets, cur is treated as the delta.
func deltaMetrics(prev, cur engine.Metrics) engine.Metrics {
	return engine.Metrics{
		UniformFills:   delta(prev.UniformFills, cur.UniformFills),
		NormalFills:    delta(prev.NormalFills, cur.NormalFills),
		Samples:        delta(prev.Samples, cur.Samples),
		Seeds:          delta(prev.Seeds, cur.Seeds),
		EmptyFills:     delta(prev.EmptyFills, cur.EmptyFills),
		Failures:       delta(prev.Failures, cur.Failures),
		Compiles:       delta(prev.Compiles, cur.Compiles),
		DispatchTime:   time.Duration(delta(int64(prev.DispatchTime), int64(cur.DispatchTime))),
		ReservoirBytes: cur.ReservoirBytes,
		StateBytes:     cur.StateBytes,
	}
}

func delta(prev, cur int64) int64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
