package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"
)

// Policy controls restarts after a panic.
type Policy struct {
	// MaxRetries is the number of consecutive panics tolerated before the
	// group is cancelled.
	MaxRetries int

	// InitialDelay is the first backoff; it doubles up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// ResetAfter is how long a run must last before the retry count and
	// delay start over.
	ResetAfter time.Duration
}

// DefaultPolicy tolerates 10 consecutive panics, backing off from 1s to
// 10min, and forgives a worker that ran for 2 minutes.
var DefaultPolicy = Policy{
	MaxRetries:   10,
	InitialDelay: time.Second,
	MaxDelay:     10 * time.Minute,
	ResetAfter:   2 * time.Minute,
}

// Logger is the logging interface used by the group.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Group supervises a set of workers sharing one context.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger Logger
	policy Policy
	wg     sync.WaitGroup
}

// NewGroup creates a group whose context is derived from parent. logger may
// be nil; a zero policy field takes the DefaultPolicy value.
func NewGroup(parent context.Context, logger Logger, policy Policy) *Group {
	if logger == nil {
		logger = noopLogger{}
	}
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultPolicy.MaxRetries
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = DefaultPolicy.InitialDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultPolicy.MaxDelay
	}
	if policy.ResetAfter <= 0 {
		policy.ResetAfter = DefaultPolicy.ResetAfter
	}

	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel, logger: logger, policy: policy}
}

// Context is cancelled when the parent is, when Cancel is called, or when a
// worker exhausts its retries.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Cancel stops every worker.
func (g *Group) Cancel() {
	g.cancel()
}

// Wait blocks until every worker has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Go starts fn under supervision. A normal return ends the worker; a panic
// restarts it after the backoff delay.
func (g *Group) Go(name string, fn func(ctx context.Context)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.supervise(name, fn)
	}()
}

func (g *Group) supervise(name string, fn func(ctx context.Context)) {
	retries := 0
	delay := g.policy.InitialDelay

	for {
		started := time.Now()
		panicValue, stack := g.runOnce(fn)
		if panicValue == nil {
			return
		}

		if time.Since(started) >= g.policy.ResetAfter {
			retries = 0
			delay = g.policy.InitialDelay
		}
		retries++

		g.logger.Error("worker panicked",
			"worker", name,
			"attempt", retries,
			"max_retries", g.policy.MaxRetries,
			"panic", panicValue,
			"stack", string(stack))

		if retries >= g.policy.MaxRetries {
			g.logger.Error("worker failed too often, shutting down", "worker", name, "retries", retries)
			g.cancel()
			return
		}

		g.logger.Info("worker restarting", "worker", name, "delay", delay)
		select {
		case <-time.After(delay):
			delay = min(delay*2, g.policy.MaxDelay)
		case <-g.ctx.Done():
			return
		}
	}
}

func (g *Group) runOnce(fn func(ctx context.Context)) (panicValue any, stack []byte) {
	defer func() {
		if r := recover(); r != nil {
			panicValue = r
			stack = debug.Stack()
		}
	}()
	fn(g.ctx)
	return nil, nil
}
