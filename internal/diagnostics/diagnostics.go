// Package diagnostics summarizes sample buffers and checks them against the
// distribution they were drawn from.
package diagnostics

import (
	"fmt"
	"math"
	"sort"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/algorithm"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary describes one sample buffer.
type Summary struct {
	Count      int
	Mean       float64
	StdDev     float64
	Min        float64
	Max        float64
	Skew       float64
	ExKurtosis float64
	Median     float64
	P01        float64
	P99        float64
	// KS is the Kolmogorov-Smirnov distance to the expected distribution.
	KS float64
}

// Summarize computes summary statistics of samples drawn as kind.
func Summarize(kind algorithm.Kind, samples []float32) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, fmt.Errorf("%w: no samples to summarize", errs.ErrEmptyState)
	}
	data := Float64s(samples)

	s := Summary{Count: len(data)}
	s.Mean, s.StdDev = stat.MeanStdDev(data, nil)
	s.Min, s.Max = floats.Min(data), floats.Max(data)
	if len(data) > 3 {
		s.Skew = stat.Skew(data, nil)
		s.ExKurtosis = stat.ExKurtosis(data, nil)
	}

	var err error
	if s.Median, err = stats.Median(data); err != nil {
		return Summary{}, fmt.Errorf("median: %w", err)
	}
	if s.P01, err = stats.Percentile(data, 1); err != nil {
		return Summary{}, fmt.Errorf("1st percentile: %w", err)
	}
	if s.P99, err = stats.Percentile(data, 99); err != nil {
		return Summary{}, fmt.Errorf("99th percentile: %w", err)
	}

	if s.KS, err = KSDistance(kind, data); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// Correlation is the Pearson correlation of two equally long buffers.
func Correlation(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: buffers of %d and %d samples", errs.ErrConfiguration, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: no samples to correlate", errs.ErrEmptyState)
	}
	return stats.Correlation(Float64s(a), Float64s(b))
}

// KSDistance is sup|F_n(x) - F(x)| for the reference CDF of kind. data is not modified.
func KSDistance(kind algorithm.Kind, data []float64) (float64, error) {
	var cdf func(float64) float64
	switch kind {
	case algorithm.Uniform:
		cdf = distuv.Uniform{Min: 0, Max: 1}.CDF
	case algorithm.Normal:
		cdf = distuv.UnitNormal.CDF
	default:
		return 0, fmt.Errorf("%w: no reference distribution for %s", errs.ErrConfiguration, kind)
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := float64(len(sorted))
	d := 0.0
	for i, x := range sorted {
		f := cdf(x)
		d = math.Max(d, math.Max(float64(i+1)/n-f, f-float64(i)/n))
	}
	return d, nil
}

// KSCritical is the asymptotic critical distance at significance 0.001 for n samples.
func KSCritical(n int) float64 {
	return 1.949 / math.Sqrt(float64(n))
}

func Float64s(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
