// Package tasks runs detached background work: outbound publishes, delayed
// events, and notification delivery that must outlive the request that
// started it.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Group tracks detached tasks. Tasks are never cancelled; they run with a
// context detached from any request. A task that fails or panics is logged
// and counted, and never affects the caller.
type Group struct {
	logger   *slog.Logger
	failures *prometheus.CounterVec
	wg       sync.WaitGroup
}

type Option func(*Group)

// WithFailures counts failed and panicked tasks by task name.
func WithFailures(c *prometheus.CounterVec) Option {
	return func(g *Group) {
		g.failures = c
	}
}

func New(logger *slog.Logger, opts ...Option) *Group {
	g := &Group{logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Go starts fn in its own goroutine and returns immediately.
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.run(name, fn); err != nil {
			g.logger.Warn("background task failed", "task", name, "error", err)
			g.fail(name)
		}
	}()
}

func (g *Group) run(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("background task panicked",
				"task", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			g.fail(name)
			err = nil
		}
	}()
	return fn(context.Background())
}

func (g *Group) fail(name string) {
	if g.failures != nil {
		g.failures.WithLabelValues(name).Inc()
	}
}

// Wait blocks until every started task has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Drain waits for running tasks until ctx is done. It reports ctx.Err() when
// tasks were still running, such as deletions waiting out their grace period.
func (g *Group) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
