package diagnostics

import (
	"testing"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/algorithm"
	"github.com/Borislavv/go-ash-rand/internal/hostref"
	"github.com/stretchr/testify/require"
)

func reference(t *testing.T, kind algorithm.Kind, n int, seed uint64) []float32 {
	t.Helper()
	out := make([]float32, n)
	require.NoError(t, hostref.Fill(kind, out, seed, 4))
	return out
}

// TestSummarize_Uniform reports moments of U[0,1).
func TestSummarize_Uniform(t *testing.T) {
	s, err := Summarize(algorithm.Uniform, reference(t, algorithm.Uniform, 1<<15, 1))
	require.NoError(t, err)
	require.Equal(t, 1<<15, s.Count)
	require.InDelta(t, 0.5, s.Mean, 0.01)
	require.InDelta(t, 0.2887, s.StdDev, 0.01)
	require.InDelta(t, 0.5, s.Median, 0.02)
	require.InDelta(t, 0.01, s.P01, 0.005)
	require.InDelta(t, 0.99, s.P99, 0.005)
	require.GreaterOrEqual(t, s.Min, 0.0)
	require.Less(t, s.Max, 1.0)
	require.InDelta(t, -1.2, s.ExKurtosis, 0.1)
	require.Less(t, s.KS, KSCritical(s.Count))
}

// TestSummarize_Normal reports moments of N(0,1).
func TestSummarize_Normal(t *testing.T) {
	s, err := Summarize(algorithm.Normal, reference(t, algorithm.Normal, 1<<15, 2))
	require.NoError(t, err)
	require.InDelta(t, 0, s.Mean, 0.03)
	require.InDelta(t, 1, s.StdDev, 0.03)
	require.InDelta(t, 0, s.Skew, 0.1)
	require.InDelta(t, 0, s.ExKurtosis, 0.2)
	require.InDelta(t, -2.326, s.P01, 0.1)
	require.InDelta(t, 2.326, s.P99, 0.1)
	require.Less(t, s.KS, KSCritical(s.Count))
}

// TestKSDistance_DetectsWrongDistribution separates uniform from normal samples.
func TestKSDistance_DetectsWrongDistribution(t *testing.T) {
	u := Float64s(reference(t, algorithm.Uniform, 4096, 3))
	d, err := KSDistance(algorithm.Normal, u)
	require.NoError(t, err)
	require.Greater(t, d, KSCritical(len(u)))

	_, err = KSDistance(algorithm.Kind(9), u)
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

// TestCorrelation of independent streams is near zero.
func TestCorrelation(t *testing.T) {
	a := reference(t, algorithm.Uniform, 8192, 4)
	b := reference(t, algorithm.Uniform, 8192, 5)
	r, err := Correlation(a, b)
	require.NoError(t, err)
	require.InDelta(t, 0, r, 0.05)

	r, err = Correlation(a, a)
	require.NoError(t, err)
	require.InDelta(t, 1, r, 1e-9)

	_, err = Correlation(a, b[:10])
	require.ErrorIs(t, err, errs.ErrConfiguration)
	_, err = Correlation(nil, nil)
	require.ErrorIs(t, err, errs.ErrEmptyState)
}

// TestSummarize_Empty is an empty-state error.
func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(algorithm.Uniform, nil)
	require.ErrorIs(t, err, errs.ErrEmptyState)
}
