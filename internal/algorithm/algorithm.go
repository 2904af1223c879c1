// Package algorithm describes the generator variants the engine can run. A
// descriptor carries everything that differs between variants: kernel names, chunk
// size, kernel source and the seeding strategy.
package algorithm

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"

	"github.com/Borislavv/go-ash-rand/config"
	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/pipeline"
	"github.com/Borislavv/go-ash-rand/internal/seeding"
)

// Kind selects the output distribution of a fill.
type Kind uint8

const (
	Uniform Kind = iota
	Normal
)

func (k Kind) String() string {
	switch k {
	case Uniform:
		return "uniform"
	case Normal:
		return "normal"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "uniform":
		return Uniform, nil
	case "normal":
		return Normal, nil
	}
	return 0, fmt.Errorf("%w: unknown distribution %q", errs.ErrConfiguration, s)
}

var (
	//go:embed kernels/xoshiro256plus.metal
	xoshiroSource string
	//go:embed kernels/pcg32.metal
	pcgSource string
)

// Layout documents which state words a variant's kernels read and write.
type Layout struct {
	// Read and Written are indexes into the four 64-bit words of a lane state.
	Read    []int
	Written []int
}

type Descriptor struct {
	Name          string
	UniformKernel string
	NormalKernel  string
	// ChunkSize is the number of consecutive samples one lane writes per chunk.
	ChunkSize int
	Source    string
	Seed      seeding.Strategy
	Layout    Layout
}

// Kernel returns the entry point for kind.
func (d Descriptor) Kernel(kind Kind) string {
	if kind == Normal {
		return d.NormalKernel
	}
	return d.UniformKernel
}

// Params are the compile-time constants every kernel of the variant declares.
func (d Descriptor) Params() []pipeline.Param {
	return []pipeline.Param{{Type: "uint", Name: "chunk_size", Value: strconv.Itoa(d.ChunkSize)}}
}

// ParamValues are the Params values, as used for pipeline lookups.
func (d Descriptor) ParamValues() []string {
	params := d.Params()
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Value
	}
	return out
}

var descriptors = map[string]Descriptor{
	config.AlgorithmXoshiro: {
		Name:          config.AlgorithmXoshiro,
		UniformKernel: "Xoshiro256Plus_UniformDistribution",
		NormalKernel:  "Xoshiro256Plus_NormalDistribution",
		ChunkSize:     4,
		Source:        xoshiroSource,
		Layout:        Layout{Read: []int{0, 1, 2, 3}, Written: []int{0, 1, 2, 3}},
	},
	config.AlgorithmPCG: {
		Name:          config.AlgorithmPCG,
		UniformKernel: "PCG32_UniformDistribution",
		NormalKernel:  "PCG32_NormalDistribution",
		ChunkSize:     4,
		Source:        pcgSource,
		Layout:        Layout{Read: []int{0, 1}, Written: []int{0}},
	},
}

// Lookup returns the descriptor for name with the strategy selected by mode.
func Lookup(name string, mode config.SeedingMode) (Descriptor, error) {
	d, ok := descriptors[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: unknown algorithm %q (available: %v)", errs.ErrConfiguration, name, Names())
	}
	switch mode {
	case config.SeedingTwoLevel, "":
		d.Seed = seeding.TwoLevel
	case config.SeedingSingleLevel:
		d.Seed = seeding.SingleLevel
	default:
		return Descriptor{}, fmt.Errorf("%w: unknown seeding mode %q", errs.ErrConfiguration, mode)
	}
	return d, nil
}

func Names() []string {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
