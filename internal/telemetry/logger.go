// Package telemetry periodically logs per-interval engine counters.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/Borislavv/go-ash-rand/internal/engine"
	"github.com/Borislavv/go-ash-rand/internal/shared/bytes"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
	source   Source
	interval time.Duration
	done     chan struct{}
}

// New starts logging every interval until ctx is done or Close is called.
func New(ctx context.Context, logger *slog.Logger, source Source, interval time.Duration) *Logs {
	ctx, cancel := context.WithCancel(ctx)
	l := &Logs{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		source:   source,
		interval: interval,
		done:     make(chan struct{}),
	}
	go l.loop()
	return l
}

func (l *Logs) Interval() time.Duration { return l.interval }

// Close stops the loop and waits for it to exit.
func (l *Logs) Close() error {
	l.cancel()
	<-l.done
	return nil
}

func (l *Logs) loop() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	prev := l.source.Metrics()
	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			cur := l.source.Metrics()
			d := deltaMetrics(prev, cur)
			prev = cur
			l.log(d)
		}
	}
}

func (l *Logs) log(d engine.Metrics) {
	common := []any{"interval", l.interval.String()}

	var perFill time.Duration
	if fills := d.UniformFills + d.NormalFills; fills > 0 {
		perFill = d.DispatchTime / time.Duration(fills)
	}
	l.logger.Info("fills",
		append(common,
			"uniform", d.UniformFills,
			"normal", d.NormalFills,
			"samples", bytes.FmtCount(d.Samples),
			"empty", d.EmptyFills,
			"avg_dispatch", perFill.String(),
		)...,
	)

	if d.Seeds > 0 || d.Compiles > 0 || d.Failures > 0 {
		l.logger.Info("lifecycle",
			append(common,
				"seeds", d.Seeds,
				"compiles", d.Compiles,
				"failures", d.Failures,
			)...,
		)
	}

	l.logger.Info("memory",
		append(common,
			"reservoir", bytes.FmtMem(d.ReservoirBytes),
			"states", bytes.FmtMem(d.StateBytes),
		)...,
	)
}
