// Package rate paces repeated work with a buffered ticket channel fed by a leaky bucket.
package rate

import (
	"context"
	"errors"

	"go.uber.org/ratelimit"
)

// ErrStopped is returned by Take once the throttle context is done.
var ErrStopped = errors.New("throttle stopped")

type Throttle struct {
	ch chan struct{}
	l  ratelimit.Limiter
}

// NewThrottle issues perSecond tickets per second, buffering ~10% of them.
// perSecond <= 0 issues tickets as fast as they are taken.
func NewThrottle(ctx context.Context, perSecond int) *Throttle {
	burst := max(perSecond/10, 1)
	l := ratelimit.NewUnlimited()
	if perSecond > 0 {
		l = ratelimit.New(perSecond)
	}
	t := &Throttle{ch: make(chan struct{}, burst), l: l}
	go t.provide(ctx)
	return t
}

func (t *Throttle) provide(ctx context.Context) {
	defer close(t.ch)
	for {
		t.l.Take()
		select {
		case <-ctx.Done():
			return
		case t.ch <- struct{}{}:
		}
	}
}

// Take blocks until a ticket is available or ctx is done.
func (t *Throttle) Take(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-t.ch:
		if !ok {
			return ErrStopped
		}
		return nil
	}
}

func (t *Throttle) Chan() <-chan struct{} { return t.ch }
