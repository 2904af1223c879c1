// Package engine owns the per-lane state table and the reservoir and dispatches
// fills over them.
//
// Every public operation is serialized. Prerequisites of a fill (pipelines, seed)
// are established on demand; the reservoir must be requested or loaded explicitly.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-ash-rand/config"
	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/algorithm"
	"github.com/Borislavv/go-ash-rand/internal/device"
	"github.com/Borislavv/go-ash-rand/internal/entropy"
	"github.com/Borislavv/go-ash-rand/internal/pipeline"
	"github.com/Borislavv/go-ash-rand/internal/reservoir"
	"github.com/Borislavv/go-ash-rand/internal/seeding"
	"github.com/Borislavv/go-ash-rand/internal/snapshot"
	"github.com/google/uuid"
)

const (
	slotStates    = 0
	slotReservoir = 1
	slotChunks    = 2
)

// Option customizes an Engine.
type Option func(*Engine)

// WithExit replaces os.Exit as the fail-fast hook.
func WithExit(exit func(code int)) Option {
	return func(e *Engine) { e.exit = exit }
}

type Engine struct {
	cfg       *config.Session
	algo      algorithm.Descriptor
	dev       device.Device
	pipelines *pipeline.Cache
	entropy   entropy.Source
	logger    *slog.Logger
	exit      func(code int)
	id        uuid.UUID
	counters  *counters

	mu        sync.Mutex
	ready     readiness
	states    device.Buffer
	reservoir *reservoir.Reservoir
	phase     atomic.Int32
}

// New validates cfg and binds the engine to dev. The engine keeps its own copy of cfg.
func New(cfg *config.Session, dev device.Device, src entropy.Source, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	cfg.Groups = cfg.LaneCount / cfg.LanesPerGroup
	algo, err := algorithm.Lookup(cfg.Algorithm, cfg.Seeding)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		algo:     algo,
		dev:      dev,
		entropy:  src,
		exit:     os.Exit,
		id:       uuid.New(),
		counters: &counters{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logger.With("engine", e.Name())
	e.pipelines = pipeline.New(dev, e.logger)
	return e, nil
}

// Name identifies the engine in logs and diagnostics.
func (e *Engine) Name() string {
	return fmt.Sprintf("%s@%s/%d#%s", e.algo.Name, e.dev.Name(), e.cfg.LaneCount, e.id.String()[:8])
}

func (e *Engine) ID() uuid.UUID { return e.id }

func (e *Engine) Algorithm() algorithm.Descriptor { return e.algo }

func (e *Engine) Phase() Phase { return Phase(e.phase.Load()) }

func (e *Engine) setReady(bits readiness) {
	e.ready |= bits
	e.phase.Store(int32(e.ready.phase()))
}

func (e *Engine) clearReady(bits readiness) {
	e.ready &^= bits
	e.phase.Store(int32(e.ready.phase()))
}

// RequirePipeline compiles the uniform and normal kernels unless already compiled.
func (e *Engine) RequirePipeline() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fail("require_pipeline", e.requirePipeline())
}

func (e *Engine) requirePipeline() error {
	if e.ready.has(pipelineReady) {
		return nil
	}
	for _, kind := range []algorithm.Kind{algorithm.Uniform, algorithm.Normal} {
		p, err := e.pipelines.Compile(e.algo.Kernel(kind), e.algo.Source, e.algo.Params())
		if err != nil {
			return err
		}
		if limit := p.MaxLanesPerGroup(); e.cfg.LanesPerGroup > limit {
			return fmt.Errorf("%w: %d lanes per group requested, %s allows %d",
				errs.ErrConfiguration, e.cfg.LanesPerGroup, p.Name(), limit)
		}
	}
	e.setReady(pipelineReady)
	return nil
}

// RequireSeed seeds the state table unless already seeded. The master seed is the
// configured one if set, otherwise it is drawn from the entropy source.
func (e *Engine) RequireSeed() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fail("require_seed", e.requireSeed())
}

func (e *Engine) requireSeed() error {
	if e.ready.has(seedReady) {
		return nil
	}
	if e.cfg.Seed != nil {
		return e.seed(*e.cfg.Seed)
	}
	master, err := e.entropy.Uint64()
	if err != nil {
		return fmt.Errorf("%w: draw master seed: %v", errs.ErrDevice, err)
	}
	return e.seed(master)
}

// Reseed overwrites the whole state table from master.
func (e *Engine) Reseed(master uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fail("reseed", e.seed(master))
}

func (e *Engine) seed(master uint64) error {
	if err := e.ensureStates(); err != nil {
		return err
	}
	from := time.Now()
	e.clearReady(seedReady)
	if err := seeding.Seed(e.algo.Seed, master, device.Uint64s(e.states), e.cfg.HostWorkers); err != nil {
		return err
	}
	e.states.DidModify()
	e.setReady(seedReady)
	e.counters.seeds.Add(1)
	e.logger.Info("state table seeded",
		"lanes", e.cfg.LaneCount, "workers", e.cfg.HostWorkers, "seeding", string(e.cfg.Seeding),
		"elapsed", time.Since(from).String())
	return nil
}

func (e *Engine) ensureStates() error {
	if e.states != nil {
		return nil
	}
	buf, err := e.dev.NewBuffer(e.cfg.LaneCount * seeding.WordsPerLane * 8)
	if err != nil {
		return fmt.Errorf("%w: allocate state table: %v", errs.ErrDevice, err)
	}
	e.states = buf
	return nil
}

// ReservoirSizeFor is the reservoir length a request for n samples rounds up to.
func (e *Engine) ReservoirSizeFor(n int) int {
	return reservoir.Size(n, e.cfg.LaneCount, e.algo.ChunkSize)
}

// ReservoirSize is the length of the current reservoir, 0 if there is none.
func (e *Engine) ReservoirSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reservoir == nil {
		return 0
	}
	return e.reservoir.Len()
}

// RequireReservoir makes the engine own a reservoir of ReservoirSizeFor(n) samples.
// An owned reservoir of the same size is kept as is.
func (e *Engine) RequireReservoir(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fail("require_reservoir", e.requireReservoir(n))
}

func (e *Engine) requireReservoir(n int) error {
	size := e.ReservoirSizeFor(n)
	if r := e.reservoir; r != nil && !r.External() && r.Len() == size {
		return nil
	}
	r, err := reservoir.Allocate(e.dev, n, e.cfg.LaneCount, e.algo.ChunkSize)
	if err != nil {
		return err
	}
	e.installReservoir(r)
	return nil
}

// LoadReservoir makes ext the reservoir. len(ext) must equal ReservoirSizeFor(n);
// on mismatch the current reservoir is left as it was.
func (e *Engine) LoadReservoir(ext []float32, n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := reservoir.Load(e.dev, ext, n, e.cfg.LaneCount, e.algo.ChunkSize)
	if err != nil {
		return e.fail("load_reservoir", err)
	}
	e.installReservoir(r)
	return nil
}

func (e *Engine) installReservoir(r *reservoir.Reservoir) {
	e.reservoir = r
	if r.Len() > 0 {
		e.setReady(reservoirReady)
	} else {
		e.clearReady(reservoirReady)
	}
	e.clearReady(filledOnce)
	e.logger.Info("reservoir ready", "samples", r.Len(), "external", r.External(), "bytes", r.Bytes())
}

// Reservoir is the host view of the samples. It is nil until a reservoir exists
// and is only valid between fills.
func (e *Engine) Reservoir() []float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reservoir == nil {
		return nil
	}
	return e.reservoir.Samples()
}

// States copies the host view of the state table.
func (e *Engine) States() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.states == nil {
		return nil
	}
	return append([]uint64(nil), device.Uint64s(e.states)...)
}

func (e *Engine) FillUniform() error { return e.Fill(algorithm.Uniform) }

func (e *Engine) FillNormal() error { return e.Fill(algorithm.Normal) }

// Fill repopulates the whole reservoir with samples of kind. It blocks until the
// samples are host-readable. A fill over an empty reservoir returns errs.ErrEmptyState
// and changes nothing.
func (e *Engine) Fill(kind algorithm.Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.arm(kind)
	if err != nil {
		return e.fail("fill_"+kind.String(), err)
	}
	return e.fail("fill_"+kind.String(), e.dispatch(a))
}

// armed holds everything a dispatch binds. Only arm builds it.
type armed struct {
	kind      algorithm.Kind
	pipeline  device.Pipeline
	states    device.Buffer
	reservoir *reservoir.Reservoir
}

func (e *Engine) arm(kind algorithm.Kind) (armed, error) {
	if err := e.requirePipeline(); err != nil {
		return armed{}, err
	}
	if err := e.requireSeed(); err != nil {
		return armed{}, err
	}
	if e.reservoir == nil || e.reservoir.Len() == 0 {
		e.counters.emptyFills.Add(1)
		return armed{}, fmt.Errorf("%w: create a reservoir with RequireReservoir or LoadReservoir", errs.ErrEmptyState)
	}
	p, err := e.pipelines.Get(e.algo.Kernel(kind), e.algo.ParamValues()...)
	if err != nil {
		return armed{}, err
	}
	return armed{kind: kind, pipeline: p, states: e.states, reservoir: e.reservoir}, nil
}

func (e *Engine) dispatch(a armed) error {
	from := time.Now()
	e.phase.Store(int32(Dispatching))
	defer func() { e.phase.Store(int32(e.ready.phase())) }()

	cmd, err := e.dev.NewCommand()
	if err != nil {
		return fmt.Errorf("%w: new command: %v", errs.ErrDevice, err)
	}
	chunks := a.reservoir.Chunks(e.algo.ChunkSize)
	cmd.SetPipeline(a.pipeline)
	cmd.SetBuffer(a.states, slotStates)
	cmd.SetBuffer(a.reservoir.Buffer(), slotReservoir)
	cmd.SetScalar(uint64(chunks), slotChunks)
	cmd.Dispatch(e.cfg.Groups, e.cfg.LanesPerGroup)
	cmd.Synchronize(a.states)
	cmd.Synchronize(a.reservoir.Buffer())
	if err = cmd.Commit(); err != nil {
		return fmt.Errorf("dispatch %s: %w", a.pipeline.Name(), err)
	}

	elapsed := time.Since(from)
	e.ready |= filledOnce
	switch a.kind {
	case algorithm.Normal:
		e.counters.normalFills.Add(1)
	default:
		e.counters.uniformFills.Add(1)
	}
	e.counters.samples.Add(int64(a.reservoir.Len()))
	e.counters.dispatchNanos.Add(elapsed.Nanoseconds())
	e.logger.Debug("fill dispatched", "kernel", a.pipeline.Name(), "samples", a.reservoir.Len(),
		"groups", e.cfg.Groups, "lanes_per_group", e.cfg.LanesPerGroup, "elapsed", elapsed.String())
	return nil
}

// SaveState persists the state table to the configured snapshot file.
func (e *Engine) SaveState() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fail("save_state", e.saveState())
}

func (e *Engine) saveState() error {
	path, err := e.snapshotPath()
	if err != nil {
		return err
	}
	if !e.ready.has(seedReady) {
		return fmt.Errorf("%w: state table is not seeded", errs.ErrEmptyState)
	}
	return snapshot.Save(path, snapshot.State{
		Algorithm: e.algo.Name,
		Lanes:     e.cfg.LaneCount,
		Words:     device.Uint64s(e.states),
	})
}

// RestoreState replaces the state table with the configured snapshot. The snapshot
// must come from the same algorithm and lane count.
func (e *Engine) RestoreState() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fail("restore_state", e.restoreState())
}

func (e *Engine) restoreState() error {
	path, err := e.snapshotPath()
	if err != nil {
		return err
	}
	st, err := snapshot.Load(path)
	if err != nil {
		return err
	}
	if st.Algorithm != e.algo.Name || st.Lanes != e.cfg.LaneCount || len(st.Words) != st.Lanes*seeding.WordsPerLane {
		return fmt.Errorf("%w: snapshot holds %d lanes of %s, session runs %d lanes of %s",
			errs.ErrConfiguration, st.Lanes, st.Algorithm, e.cfg.LaneCount, e.algo.Name)
	}
	if err = seeding.Verify(st.Words); err != nil {
		return err
	}
	if err = e.ensureStates(); err != nil {
		return err
	}
	copy(device.Uint64s(e.states), st.Words)
	e.states.DidModify()
	e.setReady(seedReady)
	return nil
}

func (e *Engine) snapshotPath() (string, error) {
	p := e.cfg.Persistence
	if !p.Enabled() {
		return "", fmt.Errorf("%w: persistence is not configured", errs.ErrConfiguration)
	}
	return filepath.Join(p.Dir, p.FileName()), nil
}

// Pipelines lists the full names of the compiled pipelines.
func (e *Engine) Pipelines() []string { return e.pipelines.Names() }

// Metrics snapshots the engine counters.
func (e *Engine) Metrics() Metrics {
	m := e.counters.snapshot()
	m.Compiles = e.pipelines.Compiles()

	e.mu.Lock()
	if e.reservoir != nil {
		m.ReservoirBytes = int64(e.reservoir.Bytes())
	}
	if e.states != nil {
		m.StateBytes = int64(e.states.Len())
	}
	e.mu.Unlock()
	return m
}

// fail logs err and, for fatal errors under fail-fast, terminates through the exit hook.
func (e *Engine) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrEmptyState) {
		e.logger.Warn("operation skipped", "op", op, "err", err)
		return err
	}
	e.counters.failures.Add(1)
	e.logger.Error("operation failed", "op", op, "err", err)
	if e.cfg.FailFast && errs.IsFatal(err) {
		e.exit(1)
	}
	return err
}
