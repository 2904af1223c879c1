package engine

// Phase is the externally visible state of the fill state machine.
type Phase int32

const (
	Uninitialized Phase = iota
	PipelineReady
	SeedReady
	ReservoirReady
	Dispatching
	Idle
)

var phaseNames = [...]string{
	Uninitialized:  "uninitialized",
	PipelineReady:  "pipeline_ready",
	SeedReady:      "seed_ready",
	ReservoirReady: "reservoir_ready",
	Dispatching:    "dispatching",
	Idle:           "idle",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// readiness is the set of established prerequisites.
type readiness uint8

const (
	pipelineReady readiness = 1 << iota
	seedReady
	reservoirReady
	filledOnce
)

func (r readiness) has(bits readiness) bool { return r&bits == bits }

// phase reports the furthest phase whose prerequisites all hold.
func (r readiness) phase() Phase {
	switch {
	case r.has(pipelineReady | seedReady | reservoirReady | filledOnce):
		return Idle
	case r.has(pipelineReady | seedReady | reservoirReady):
		return ReservoirReady
	case r.has(pipelineReady | seedReady):
		return SeedReady
	case r.has(pipelineReady):
		return PipelineReady
	default:
		return Uninitialized
	}
}
