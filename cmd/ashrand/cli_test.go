package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Borislavv/go-ash-rand/config"
	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCLI()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// TestConfig_PrintsEffectiveYAML applies flags over defaults.
func TestConfig_PrintsEffectiveYAML(t *testing.T) {
	out, err := run(t, "config", "--lanes", "64", "--seed", "9", "--algorithm", "pcg32")
	require.NoError(t, err)

	var cfg config.Session
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	require.Equal(t, 64, cfg.LaneCount)
	require.Equal(t, 64, cfg.LanesPerGroup)
	require.Equal(t, config.AlgorithmPCG, cfg.Algorithm)
	require.NotNil(t, cfg.Seed)
	require.Equal(t, uint64(9), *cfg.Seed)
}

// TestConfig_EnvFileAndFile layers dotenv variables over a YAML file.
func TestConfig_EnvFileAndFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("lane_count: 32\nlanes_per_group: 8\nhost_workers: 2\n"), 0o644))
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("ASHRAND_HOST_WORKERS=3\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("ASHRAND_HOST_WORKERS") })

	cmd := NewCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--config", cfgPath, "--env-file", envPath})
	require.NoError(t, cmd.Execute())

	var cfg config.Session
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &cfg))
	require.Equal(t, 32, cfg.LaneCount)
	require.Equal(t, 8, cfg.LanesPerGroup)
	require.Equal(t, 3, cfg.HostWorkers)
}

// TestConfig_Invalid reports a configuration error.
func TestConfig_Invalid(t *testing.T) {
	_, err := run(t, "config", "--lanes", "64", "--lanes-per-group", "48")
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

// TestFill_SummaryAndOutput prints a summary and writes raw samples.
func TestFill_SummaryAndOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.bin")
	out, err := run(t, "fill", "--lanes", "16", "--seed", "1", "-n", "1000", "-k", "normal", "-o", path)
	require.NoError(t, err)

	require.Contains(t, out, "normal")
	require.Contains(t, out, "ks distance")
	require.Contains(t, strings.ToLower(out), "xoshiro256+@cpu")
	require.Contains(t, out, "Xoshiro256Plus_NormalDistribution_4")
	require.Contains(t, out, "Xoshiro256Plus_UniformDistribution_4")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(1024*4), info.Size())
}

// TestFill_UnknownKind rejects the distribution before opening a session.
func TestFill_UnknownKind(t *testing.T) {
	_, err := run(t, "fill", "-k", "poisson")
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

// TestStream_AppendsEveryFill writes fills*reservoir samples.
func TestStream_AppendsEveryFill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")
	_, err := run(t, "stream", "--lanes", "8", "--seed", "2", "-n", "32", "--fills", "3", "--rate", "100", "-o", path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(3*32*4), info.Size())

	_, err = run(t, "stream", "--lanes", "8")
	require.Error(t, err)
}

// TestReference_Summary runs the host path.
func TestReference_Summary(t *testing.T) {
	out, err := run(t, "reference", "--seed", "3", "--workers", "2", "-n", "4096")
	require.NoError(t, err)
	require.Contains(t, out, "host/xoshiro256+ x2")
	require.Contains(t, out, "4096")
}
