package ashrand

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Borislavv/go-ash-rand/config"
	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/device"
	"github.com/Borislavv/go-ash-rand/internal/device/cpu"
	"github.com/Borislavv/go-ash-rand/internal/diagnostics"
	"github.com/Borislavv/go-ash-rand/internal/engine"
	"github.com/Borislavv/go-ash-rand/internal/entropy"
	"github.com/stretchr/testify/require"
)

var _ Randomizer = (*Randomizor)(nil)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func session(lanes, lanesPerGroup int) *config.Session {
	seed := uint64(42)
	cfg := &config.Session{LaneCount: lanes, LanesPerGroup: lanesPerGroup, HostWorkers: 4, Seed: &seed}
	cfg.AdjustConfig()
	return cfg
}

// TestNew_Defaults opens the cpu backend with the default session.
func TestNew_Defaults(t *testing.T) {
	r, err := New(context.Background(), nil, discard, WithExit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	require.Equal(t, engine.Uninitialized, r.Phase())
	require.Contains(t, r.Name(), config.DefaultAlgorithm)
	require.Equal(t, config.DefaultLaneCount*4, r.ReservoirSizeFor(1))
}

// TestNew_UnknownBackend fails before any work.
func TestNew_UnknownBackend(t *testing.T) {
	cfg := session(8, 4)
	cfg.Backend = "metal"
	_, err := New(context.Background(), cfg, discard)
	require.ErrorIs(t, err, errs.ErrResourceNotFound)
}

// TestNew_InvalidSession reports configuration errors.
func TestNew_InvalidSession(t *testing.T) {
	cfg := session(8, 4)
	cfg.LanesPerGroup = 5
	_, err := New(context.Background(), cfg, discard)
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

// TestSession_EndToEnd fills uniform and normal reservoirs through the facade.
func TestSession_EndToEnd(t *testing.T) {
	r, err := New(context.Background(), session(64, 16), discard)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	require.NoError(t, r.RequireReservoir(100_000))
	require.Equal(t, 100_096, r.ReservoirSize())

	require.NoError(t, r.FillUniform())
	u, err := diagnostics.Summarize(Uniform, r.Reservoir())
	require.NoError(t, err)
	require.Less(t, u.KS, diagnostics.KSCritical(u.Count))

	require.NoError(t, r.FillNormal())
	n, err := diagnostics.Summarize(Normal, r.Reservoir())
	require.NoError(t, err)
	require.InDelta(t, 0, n.Mean, 0.02)
	require.InDelta(t, 1, n.StdDev, 0.02)
	require.Less(t, n.KS, diagnostics.KSCritical(n.Count))

	m := r.Metrics()
	require.Equal(t, int64(1), m.UniformFills)
	require.Equal(t, int64(1), m.NormalFills)
}

// TestSession_Deterministic replays the same session from the same seed on any parallelism.
func TestSession_Deterministic(t *testing.T) {
	fill := func(parallelism int) []float32 {
		r, err := New(context.Background(), session(32, 8), discard,
			WithDevice(cpu.New(device.Options{Parallelism: parallelism})))
		require.NoError(t, err)
		defer func() { require.NoError(t, r.Close()) }()

		require.NoError(t, r.RequireReservoir(1024))
		require.NoError(t, r.FillNormal())
		return append([]float32(nil), r.Reservoir()...)
	}
	require.Equal(t, fill(1), fill(8))
}

// TestSession_Entropy draws unpinned seeds from the injected source.
func TestSession_Entropy(t *testing.T) {
	fill := func(src entropy.Source) []float32 {
		cfg := session(8, 4)
		cfg.Seed = nil
		r, err := New(context.Background(), cfg, discard, WithEntropy(src))
		require.NoError(t, err)
		defer func() { require.NoError(t, r.Close()) }()
		require.NoError(t, r.RequireReservoir(64))
		require.NoError(t, r.FillUniform())
		return append([]float32(nil), r.Reservoir()...)
	}
	require.Equal(t, fill(entropy.Fixed(42)), fill(entropy.Fixed(42)))
	require.NotEqual(t, fill(entropy.Fixed(42)), fill(entropy.Fixed(43)))
}

// TestSession_Persistence restores a saved state table across sessions.
func TestSession_Persistence(t *testing.T) {
	dir := t.TempDir()
	cfg := session(16, 8)
	cfg.Persistence = &config.PersistenceCfg{Dir: dir, Name: "lanes"}

	first, err := New(context.Background(), cfg, discard)
	require.NoError(t, err)
	require.NoError(t, first.RequireReservoir(128))
	require.NoError(t, first.FillUniform())
	require.NoError(t, first.SaveState())
	require.NoError(t, first.FillUniform())
	want := append([]float32(nil), first.Reservoir()...)
	require.NoError(t, first.Close())
	require.FileExists(t, filepath.Join(dir, "lanes.dump"))

	seed := uint64(7)
	cfg.Seed = &seed
	second, err := New(context.Background(), cfg, discard)
	require.NoError(t, err)
	defer func() { require.NoError(t, second.Close()) }()
	require.NoError(t, second.RestoreState())
	require.NoError(t, second.RequireReservoir(128))
	require.NoError(t, second.FillUniform())
	require.Equal(t, want, second.Reservoir())
}

type lockedWriter struct {
	mu sync.Mutex
	sb strings.Builder
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sb.Write(p)
}

func (w *lockedWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sb.String()
}

// TestSession_Telemetry logs counters while the session is open.
func TestSession_Telemetry(t *testing.T) {
	w := &lockedWriter{}
	cfg := session(8, 4)
	cfg.Telemetry = &config.TelemetryCfg{Interval: time.Second}

	r, err := New(context.Background(), cfg, slog.New(slog.NewJSONHandler(w, nil)))
	require.NoError(t, err)
	require.NoError(t, r.RequireReservoir(32))
	require.NoError(t, r.FillUniform())

	require.Eventually(t, func() bool {
		return strings.Contains(w.String(), `"msg":"memory"`)
	}, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, r.Close())
}
