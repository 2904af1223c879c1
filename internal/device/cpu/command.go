package cpu

import (
	"fmt"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/Borislavv/go-ash-rand/internal/device"
	"golang.org/x/sync/errgroup"
)

// Command records bindings and runs them on Commit.
type Command struct {
	parallelism   int
	pipeline      *Pipeline
	buffers       map[int]*Buffer
	scalars       map[int]uint64
	sync          []*Buffer
	groups        int
	lanesPerGroup int
	committed     bool
	bindErr       error
}

func (c *Command) SetPipeline(p device.Pipeline) {
	cp, ok := p.(*Pipeline)
	if !ok {
		c.bindErr = fmt.Errorf("%w: pipeline %T was not compiled by the %s backend", errs.ErrDevice, p, BackendName)
		return
	}
	c.pipeline = cp
}

func (c *Command) SetBuffer(b device.Buffer, index int) {
	cb, ok := b.(*Buffer)
	if !ok {
		c.bindErr = fmt.Errorf("%w: buffer %T was not allocated by the %s backend", errs.ErrDevice, b, BackendName)
		return
	}
	c.buffers[index] = cb
}

func (c *Command) SetScalar(v uint64, index int) { c.scalars[index] = v }

func (c *Command) Dispatch(groups, lanesPerGroup int) {
	c.groups, c.lanesPerGroup = groups, lanesPerGroup
}

func (c *Command) Synchronize(b device.Buffer) {
	if cb, ok := b.(*Buffer); ok {
		c.sync = append(c.sync, cb)
	}
}

// Commit runs the grid. Synchronized buffers are downloaded only when every lane
// finished, so a failed dispatch leaves host views untouched.
func (c *Command) Commit() error {
	if c.committed {
		return fmt.Errorf("%w: command already committed", errs.ErrDevice)
	}
	c.committed = true

	if c.bindErr != nil {
		return c.bindErr
	}
	if c.pipeline == nil {
		return fmt.Errorf("%w: no pipeline bound", errs.ErrDevice)
	}
	if c.groups <= 0 || c.lanesPerGroup <= 0 {
		return fmt.Errorf("%w: empty grid %dx%d", errs.ErrConfiguration, c.groups, c.lanesPerGroup)
	}
	if c.lanesPerGroup > c.pipeline.maxLanes {
		return fmt.Errorf("%w: %d lanes per group exceeds the limit of %d for %q",
			errs.ErrConfiguration, c.lanesPerGroup, c.pipeline.maxLanes, c.pipeline.name)
	}

	for _, b := range c.buffers {
		b.upload()
	}

	args := &Args{buffers: c.buffers, scalars: c.scalars, consts: c.pipeline.consts}
	lanes := c.groups * c.lanesPerGroup
	run := c.pipeline.kernel.Run

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for group := 0; group < c.groups; group++ {
		group := group
		lo := group * c.lanesPerGroup
		hi := lo + c.lanesPerGroup
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: kernel %q faulted in group %d: %v", errs.ErrDevice, c.pipeline.name, group, r)
				}
			}()
			for lane := lo; lane < hi; lane++ {
				run(lane, lanes, args)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, b := range c.sync {
		b.download()
	}
	return nil
}
