// Package ashrand generates large reservoirs of uniform and standard-normal float
// samples on a parallel compute device. Every lane of the device draws from its own
// non-overlapping Xoshiro256+ sub-stream derived from a single master seed.
package ashrand

import (
	"context"
	"io"
	"log/slog"

	"github.com/Borislavv/go-ash-rand/config"
	"github.com/Borislavv/go-ash-rand/internal/algorithm"
	"github.com/Borislavv/go-ash-rand/internal/device"
	_ "github.com/Borislavv/go-ash-rand/internal/device/cpu"
	"github.com/Borislavv/go-ash-rand/internal/engine"
	"github.com/Borislavv/go-ash-rand/internal/entropy"
	"github.com/Borislavv/go-ash-rand/internal/telemetry"
)

type (
	Kind    = algorithm.Kind
	Phase   = engine.Phase
	Metrics = engine.Metrics
)

const (
	Uniform = algorithm.Uniform
	Normal  = algorithm.Normal
)

type Randomizer interface {
	RequirePipeline() error
	RequireSeed() error
	Reseed(master uint64) error
	RequireReservoir(n int) error
	LoadReservoir(ext []float32, n int) error
	ReservoirSize() int
	ReservoirSizeFor(n int) int
	Reservoir() []float32
	Fill(kind Kind) error
	FillUniform() error
	FillNormal() error
	SaveState() error
	RestoreState() error
	Phase() Phase
	Metrics() Metrics
	Name() string
	Pipelines() []string
	io.Closer
}

type options struct {
	dev     device.Device
	entropy entropy.Source
	exit    func(code int)
}

type Option func(*options)

// WithDevice runs the session on dev instead of opening cfg.Backend. The session closes it.
func WithDevice(dev device.Device) Option {
	return func(o *options) { o.dev = dev }
}

// WithEntropy replaces the system entropy source used for unpinned master seeds.
func WithEntropy(src entropy.Source) Option {
	return func(o *options) { o.entropy = src }
}

// WithExit replaces os.Exit as the fail-fast hook.
func WithExit(exit func(code int)) Option {
	return func(o *options) { o.exit = exit }
}

type Randomizor struct {
	*engine.Engine
	telemetry telemetry.Logger
	dev       device.Device
	cls       context.CancelFunc
}

// New opens the device, validates cfg and prepares an engine. Nothing is compiled,
// seeded or allocated until requested. A nil cfg means config.Default().
func New(ctx context.Context, cfg *config.Session, logger *slog.Logger, opts ...Option) (*Randomizor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := options{entropy: entropy.System{}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dev := o.dev
	if dev == nil {
		var err error
		dev, err = device.Open(cfg.Backend, device.Options{
			MaxLanesPerGroup: cfg.Device.MaxLanesPerGroup,
			Parallelism:      cfg.Device.Parallelism,
		})
		if err != nil {
			return nil, err
		}
	}

	var engineOpts []engine.Option
	if o.exit != nil {
		engineOpts = append(engineOpts, engine.WithExit(o.exit))
	}
	eng, err := engine.New(cfg, dev, o.entropy, logger, engineOpts...)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Randomizor{Engine: eng, dev: dev, cls: cancel}
	if cfg.Telemetry.Enabled() {
		r.telemetry = telemetry.New(ctx, logger, eng, cfg.Telemetry.Interval)
	}
	return r, nil
}

// Close stops telemetry and releases the device. Reservoir views become invalid.
func (r *Randomizor) Close() error {
	r.cls()
	if r.telemetry != nil {
		_ = r.telemetry.Close()
	}
	return r.dev.Close()
}
