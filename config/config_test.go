package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/stretchr/testify/require"
)

// TestAdjustConfig_Defaults fills every zero field and derives Groups.
func TestAdjustConfig_Defaults(t *testing.T) {
	cfg := &Session{}
	cfg.AdjustConfig()

	require.Equal(t, DefaultAlgorithm, cfg.Algorithm)
	require.Equal(t, DefaultBackend, cfg.Backend)
	require.Equal(t, DefaultLaneCount, cfg.LaneCount)
	require.Equal(t, DefaultLanesPerGroup, cfg.LanesPerGroup)
	require.Equal(t, DefaultLaneCount/DefaultLanesPerGroup, cfg.Groups)
	require.Equal(t, SeedingTwoLevel, cfg.Seeding)
	require.Positive(t, cfg.HostWorkers)
	require.NoError(t, cfg.Validate())
}

// TestAdjustConfig_SmallLaneCount clamps the default group width to the lane count.
func TestAdjustConfig_SmallLaneCount(t *testing.T) {
	cfg := &Session{LaneCount: 8}
	cfg.AdjustConfig()

	require.Equal(t, 8, cfg.LanesPerGroup)
	require.Equal(t, 1, cfg.Groups)
}

// TestAdjustConfig_TelemetryInterval raises sub-second intervals.
func TestAdjustConfig_TelemetryInterval(t *testing.T) {
	cfg := &Session{Telemetry: &TelemetryCfg{Interval: time.Millisecond}}
	cfg.AdjustConfig()
	require.Equal(t, time.Second, cfg.Telemetry.Interval)
}

// TestValidate_Errors reports configuration errors for broken invariants.
func TestValidate_Errors(t *testing.T) {
	cases := map[string]*Session{
		"indivisible lanes": {LaneCount: 10, LanesPerGroup: 4, HostWorkers: 1, Seeding: SeedingTwoLevel},
		"negative lanes":    {LaneCount: -1, LanesPerGroup: 4, HostWorkers: 1, Seeding: SeedingTwoLevel},
		"zero workers":      {LaneCount: 8, LanesPerGroup: 4, HostWorkers: 0, Seeding: SeedingTwoLevel},
		"unknown seeding":   {LaneCount: 8, LanesPerGroup: 4, HostWorkers: 1, Seeding: "three_level"},
		"empty dump dir":    {LaneCount: 8, LanesPerGroup: 4, HostWorkers: 1, Seeding: SeedingTwoLevel, Persistence: &PersistenceCfg{}},
	}
	for name, cfg := range cases {
		err := cfg.Validate()
		require.ErrorIs(t, err, errs.ErrConfiguration, name)
	}
}

// TestLoadConfig_ReadsYAML loads a file and applies defaults.
func TestLoadConfig_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ashrand.yaml")
	data := []byte(`
algorithm: pcg32
lane_count: 64
lanes_per_group: 16
host_workers: 3
seed: 42
telemetry:
  interval: 5s
persistence:
  dump_dir: /tmp/ashrand
  dump_name: lanes
  gzip: true
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "pcg32", cfg.Algorithm)
	require.Equal(t, 64, cfg.LaneCount)
	require.Equal(t, 16, cfg.LanesPerGroup)
	require.Equal(t, 4, cfg.Groups)
	require.Equal(t, 3, cfg.HostWorkers)
	require.NotNil(t, cfg.Seed)
	require.Equal(t, uint64(42), *cfg.Seed)
	require.True(t, cfg.FailFast, "fail_fast defaults to true when absent")
	require.Equal(t, 5*time.Second, cfg.Telemetry.Interval)
	require.Equal(t, "lanes.dump.gz", cfg.Persistence.FileName())
	require.NoError(t, cfg.Validate())
}

// TestLoadConfig_MissingFile returns a stat error.
func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestApplyEnv_Overrides reads ASHRAND_* variables and ignores garbage.
func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("ASHRAND_LANES", "128")
	t.Setenv("ASHRAND_LANES_PER_GROUP", "32")
	t.Setenv("ASHRAND_SEED", "0x2a")
	t.Setenv("ASHRAND_HOST_WORKERS", "not-a-number")
	t.Setenv("ASHRAND_FAIL_FAST", "false")

	cfg := &Session{HostWorkers: 2, FailFast: true}
	ApplyEnv(cfg)

	require.Equal(t, 128, cfg.LaneCount)
	require.Equal(t, 32, cfg.LanesPerGroup)
	require.Equal(t, 4, cfg.Groups)
	require.Equal(t, 2, cfg.HostWorkers)
	require.Equal(t, uint64(42), *cfg.Seed)
	require.False(t, cfg.FailFast)
}

// TestClone copies every pointer field.
func TestClone(t *testing.T) {
	seed := uint64(5)
	cfg := &Session{Seed: &seed, Telemetry: &TelemetryCfg{Interval: time.Second}, Persistence: &PersistenceCfg{Dir: "a"}}
	c := cfg.Clone()

	*cfg.Seed = 6
	cfg.Telemetry.Interval = time.Minute
	cfg.Persistence.Dir = "b"
	require.Equal(t, uint64(5), *c.Seed)
	require.Equal(t, time.Second, c.Telemetry.Interval)
	require.Equal(t, "a", c.Persistence.Dir)
	require.Nil(t, (&Session{}).Clone().Seed)
}
