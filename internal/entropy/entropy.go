// Package entropy provides the master seed of a generation session.
// The source is injected into the engine instead of read from process-wide state,
// so any seeding run can be replayed from a fixed input.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Source yields one 64-bit master seed per call.
type Source interface {
	Uint64() (uint64, error)
}

// System reads the operating system CSPRNG.
type System struct{}

func (System) Uint64() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read system entropy: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Fixed returns the same seed on every call.
type Fixed uint64

func (f Fixed) Uint64() (uint64, error) { return uint64(f), nil }

// Sequence returns a fixed list of seeds in order, then fails. Reseeding twice
// from one Sequence therefore yields two distinct, reproducible sessions.
type Sequence struct {
	seeds []uint64
	next  atomic.Int64
}

func NewSequence(seeds ...uint64) *Sequence {
	return &Sequence{seeds: seeds}
}

func (s *Sequence) Uint64() (uint64, error) {
	i := s.next.Add(1) - 1
	if i >= int64(len(s.seeds)) {
		return 0, fmt.Errorf("entropy sequence exhausted after %d seeds", len(s.seeds))
	}
	return s.seeds[i], nil
}
