package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var returns an environment variable stripped of surrounding whitespace and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// ApplyEnv overrides cfg with ASHRAND_* environment variables. Unparsable values are
// logged and ignored. AdjustConfig is re-run afterwards so derived fields stay consistent.
//
//   - ASHRAND_ALGORITHM       algorithm name
//   - ASHRAND_BACKEND         backend name
//   - ASHRAND_LANES           lane count
//   - ASHRAND_LANES_PER_GROUP thread-group width
//   - ASHRAND_HOST_WORKERS    seeding workers
//   - ASHRAND_SEED            master seed (decimal or 0x-prefixed hex)
//   - ASHRAND_FAIL_FAST       bool
func ApplyEnv(cfg *Session) {
	if s := Var("ASHRAND_ALGORITHM"); s != "" {
		cfg.Algorithm = s
	}
	if s := Var("ASHRAND_BACKEND"); s != "" {
		cfg.Backend = s
	}
	envInt("ASHRAND_LANES", &cfg.LaneCount)
	envInt("ASHRAND_LANES_PER_GROUP", &cfg.LanesPerGroup)
	envInt("ASHRAND_HOST_WORKERS", &cfg.HostWorkers)

	if s := Var("ASHRAND_SEED"); s != "" {
		if seed, err := strconv.ParseUint(s, 0, 64); err == nil {
			cfg.Seed = &seed
		} else {
			slog.Warn("invalid environment variable, ignoring", "key", "ASHRAND_SEED", "value", s)
		}
	}
	if s := Var("ASHRAND_FAIL_FAST"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			cfg.FailFast = b
		} else {
			slog.Warn("invalid environment variable, ignoring", "key", "ASHRAND_FAIL_FAST", "value", s)
		}
	}

	cfg.AdjustConfig()
}

func envInt(key string, dst *int) {
	s := Var(key)
	if s == "" {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		slog.Warn("invalid environment variable, ignoring", "key", key, "value", s)
		return
	}
	*dst = n
}
