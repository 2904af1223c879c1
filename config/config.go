package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/Borislavv/go-ash-rand/errs"
	"gopkg.in/yaml.v3"
)

// SeedingMode selects how lane states are derived from the master seed.
type SeedingMode string

const (
	// SeedingTwoLevel derives one LongJump sub-stream per host worker and one Jump per lane inside it.
	SeedingTwoLevel SeedingMode = "two_level"

	// SeedingSingleLevel derives every lane from one stream with Jump only. Correct but not parallel.
	SeedingSingleLevel SeedingMode = "single_level"
)

// Algorithm names.
const (
	AlgorithmXoshiro = "xoshiro256+"
	AlgorithmPCG     = "pcg32"
)

const (
	DefaultAlgorithm     = AlgorithmXoshiro
	DefaultBackend       = "cpu"
	DefaultLaneCount     = 8192
	DefaultLanesPerGroup = 256
)

// Session is fixed at engine construction and never mutated afterwards.
type Session struct {
	// Algorithm names the algorithm descriptor: "xoshiro256+" or "pcg32".
	Algorithm string `yaml:"algorithm"`

	// Backend names the registered compute backend. Only "cpu" ships with the module.
	Backend string `yaml:"backend"`

	// LaneCount is the number of parallel lanes, each owning one generator state.
	LaneCount int `yaml:"lane_count"`

	// LanesPerGroup is the thread-group width. LaneCount must be a multiple of it.
	LanesPerGroup int `yaml:"lanes_per_group"`

	// HostWorkers is the host-parallel seeding degree, independent of LaneCount.
	HostWorkers int `yaml:"host_workers"`

	// Seeding selects the seeding protocol, "two_level" by default.
	Seeding SeedingMode `yaml:"seeding"`

	// Seed pins the master seed. If nil, the master seed is drawn from the system entropy source.
	Seed *uint64 `yaml:"seed"`

	// FailFast terminates the process on fatal errors instead of returning them.
	FailFast bool `yaml:"fail_fast"`

	Device DeviceCfg `yaml:"device"`

	// Telemetry enables periodic counter logs. If nil, telemetry is disabled.
	Telemetry *TelemetryCfg `yaml:"telemetry"`

	// Persistence enables SaveState/RestoreState. If nil, both return a configuration error.
	Persistence *PersistenceCfg `yaml:"persistence"`

	// Groups is derived from LaneCount/LanesPerGroup. It is not read from YAML.
	Groups int `yaml:"-"` // virtual: computed during init
}

// DeviceCfg configures the compute backend.
type DeviceCfg struct {
	// MaxLanesPerGroup is the device limit of lanes per thread group. 0 means the backend default.
	MaxLanesPerGroup int `yaml:"max_lanes_per_group"`

	// Parallelism bounds how many thread groups the cpu backend runs at once. 0 means GOMAXPROCS.
	Parallelism int `yaml:"parallelism"`
}

// Default returns a session with every default applied.
func Default() *Session {
	cfg := &Session{FailFast: true}
	cfg.AdjustConfig()
	return cfg
}

func (cfg *Session) AdjustConfig() {
	if cfg.Algorithm == "" {
		cfg.Algorithm = DefaultAlgorithm
	}
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if cfg.LaneCount == 0 {
		cfg.LaneCount = DefaultLaneCount
	}
	if cfg.LanesPerGroup == 0 {
		cfg.LanesPerGroup = min(DefaultLanesPerGroup, cfg.LaneCount)
	}
	if cfg.HostWorkers <= 0 {
		cfg.HostWorkers = runtime.GOMAXPROCS(0)
	}
	if cfg.Seeding == "" {
		cfg.Seeding = SeedingTwoLevel
	}
	if cfg.LanesPerGroup > 0 {
		cfg.Groups = cfg.LaneCount / cfg.LanesPerGroup
	}
	if cfg.Telemetry.Enabled() && cfg.Telemetry.Interval < time.Second {
		cfg.Telemetry.Interval = time.Second
	}
}

// Clone returns a deep copy of cfg.
func (cfg *Session) Clone() *Session {
	c := *cfg
	if cfg.Seed != nil {
		seed := *cfg.Seed
		c.Seed = &seed
	}
	if cfg.Telemetry != nil {
		tel := *cfg.Telemetry
		c.Telemetry = &tel
	}
	if cfg.Persistence != nil {
		per := *cfg.Persistence
		c.Persistence = &per
	}
	return &c
}

// Validate reports every invariant the engine relies on as an errs.ErrConfiguration.
func (cfg *Session) Validate() error {
	switch {
	case cfg.LaneCount <= 0:
		return fmt.Errorf("%w: lane_count must be positive, got %d", errs.ErrConfiguration, cfg.LaneCount)
	case cfg.LanesPerGroup <= 0:
		return fmt.Errorf("%w: lanes_per_group must be positive, got %d", errs.ErrConfiguration, cfg.LanesPerGroup)
	case cfg.LaneCount%cfg.LanesPerGroup != 0:
		return fmt.Errorf("%w: lane_count %d is not a multiple of lanes_per_group %d",
			errs.ErrConfiguration, cfg.LaneCount, cfg.LanesPerGroup)
	case cfg.HostWorkers <= 0:
		return fmt.Errorf("%w: host_workers must be positive, got %d", errs.ErrConfiguration, cfg.HostWorkers)
	case cfg.Device.MaxLanesPerGroup < 0 || cfg.Device.Parallelism < 0:
		return fmt.Errorf("%w: negative device limits", errs.ErrConfiguration)
	}
	switch cfg.Seeding {
	case SeedingTwoLevel, SeedingSingleLevel:
	default:
		return fmt.Errorf("%w: unknown seeding mode %q", errs.ErrConfiguration, cfg.Seeding)
	}
	if cfg.Persistence.Enabled() && cfg.Persistence.Dir == "" {
		return fmt.Errorf("%w: persistence.dump_dir is empty", errs.ErrConfiguration)
	}
	return nil
}

func LoadConfig(path string) (*Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := &Session{FailFast: true}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.AdjustConfig()

	return cfg, nil
}

// Marshal renders the effective configuration as YAML.
func (cfg *Session) Marshal() ([]byte, error) {
	return yaml.Marshal(cfg)
}
