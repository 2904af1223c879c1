// Package pipeline compiles kernels once per (name, compile-time values) and hands
// out the compiled handles.
package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/device"
	"golang.org/x/sync/singleflight"
)

// Param is one typed compile-time constant.
type Param struct {
	Type  string
	Name  string
	Value string
}

type entry struct {
	key      Key
	fullName string
	pipeline device.Pipeline
}

// Cache is safe for concurrent use. Entries are immutable once inserted.
type Cache struct {
	dev    device.Device
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[uint64][]*entry

	gate     singleflight.Group
	compiles atomic.Int64
}

func New(dev device.Device, logger *slog.Logger) *Cache {
	return &Cache{dev: dev, logger: logger, entries: make(map[uint64][]*entry)}
}

// Preamble renders params as constant declarations to prepend to kernel source.
func Preamble(params []Param) string {
	var b strings.Builder
	for _, p := range params {
		fmt.Fprintf(&b, "constant constexpr %s %s = %s;\n", p.Type, p.Name, p.Value)
	}
	return b.String()
}

func values(params []Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Value
	}
	return out
}

// Compile builds name from source unless a pipeline with the same name and values
// already exists. Concurrent callers for one key share a single compilation.
func (c *Cache) Compile(name, source string, params []Param) (device.Pipeline, error) {
	fullName := FullName(name, values(params))
	key := NewKey(fullName)
	if p, ok := c.lookup(key, fullName); ok {
		return p, nil
	}

	v, err, _ := c.gate.Do(fullName, func() (any, error) {
		if p, ok := c.lookup(key, fullName); ok {
			return p, nil
		}

		for _, p := range params {
			if p.Type == "" || p.Name == "" || p.Value == "" {
				return nil, fmt.Errorf("%w: pipeline %s: incomplete parameter %+v", errs.ErrConfiguration, fullName, p)
			}
		}
		consts := make([]device.Constant, len(params))
		for i, p := range params {
			consts[i] = device.Constant{Type: p.Type, Name: p.Name, Value: p.Value}
		}

		from := time.Now()
		p, err := c.dev.Compile(device.Library{
			Function:  name,
			Source:    Preamble(params) + source,
			Constants: consts,
		})
		if err != nil {
			return nil, fmt.Errorf("compile pipeline %s: %w", fullName, err)
		}

		c.insert(&entry{key: key, fullName: fullName, pipeline: p})
		c.compiles.Add(1)
		c.logger.Info("pipeline compiled", "pipeline", fullName, "elapsed", time.Since(from).String())
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(device.Pipeline), nil
}

// Get is an exact-match lookup. A miss means a compile step was skipped.
func (c *Cache) Get(name string, values ...string) (device.Pipeline, error) {
	fullName := FullName(name, values)
	if p, ok := c.lookup(NewKey(fullName), fullName); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: pipeline %s is not compiled", errs.ErrResourceNotFound, fullName)
}

func (c *Cache) lookup(key Key, fullName string) (device.Pipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries[key.Value()] {
		if e.key.IsTheSame(key) && e.fullName == fullName {
			return e.pipeline, true
		}
	}
	return nil, false
}

func (c *Cache) insert(e *entry) {
	c.mu.Lock()
	c.entries[e.key.Value()] = append(c.entries[e.key.Value()], e)
	c.mu.Unlock()
}

// Len is the number of compiled pipelines.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, bucket := range c.entries {
		n += len(bucket)
	}
	return n
}

// Names lists full pipeline names, sorted.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for _, bucket := range c.entries {
		for _, e := range bucket {
			names = append(names, e.fullName)
		}
	}
	sort.Strings(names)
	return names
}

// Compiles counts device compilations performed.
func (c *Cache) Compiles() int64 { return c.compiles.Load() }
