package exporter

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Ceiling bounds. Each open surface holds a Chrome renderer, so the default
// ceiling is derived from GOMAXPROCS and clamped to this range.
const (
	MinCeiling = 5
	MaxCeiling = 10

	// DefaultQueueFactor sizes the wait queue relative to the ceiling.
	DefaultQueueFactor = 2
)

// QueuePolicy selects what happens to requests arriving at the ceiling.
type QueuePolicy string

const (
	// PolicyQueue parks over-ceiling requests in a bounded queue. The
	// request deadline keeps ticking while parked.
	PolicyQueue QueuePolicy = "queue"

	// PolicyReject fails over-ceiling requests immediately with
	// ErrBackpressure.
	PolicyReject QueuePolicy = "reject"
)

// ResolveCeiling determines the surface concurrency ceiling.
// An explicit positive value takes priority; otherwise the value is derived
// from GOMAXPROCS (adjusted by automaxprocs in containers) and clamped.
func ResolveCeiling(explicit int) int {
	if explicit > 0 {
		return explicit
	}
	n := runtime.GOMAXPROCS(0)
	if n < MinCeiling {
		return MinCeiling
	}
	if n > MaxCeiling {
		return MaxCeiling
	}
	return n
}

// SurfaceSource creates render surfaces. Implemented by SessionManager;
// tests substitute fakes.
type SurfaceSource interface {
	NewSurface(ctx context.Context) (Surface, error)
}

// GovernorConfig configures the concurrency governor.
type GovernorConfig struct {
	// Ceiling is the maximum number of simultaneously open surfaces.
	// Zero derives a default via ResolveCeiling.
	Ceiling int

	// QueueDepth bounds how many requests may wait for a surface.
	// Zero means DefaultQueueFactor × ceiling. Ignored under PolicyReject.
	QueueDepth int

	// Policy selects queueing or immediate rejection. Default PolicyQueue.
	Policy QueuePolicy
}

// GovernorStats is a point-in-time snapshot of governor counters.
type GovernorStats struct {
	Acquired int64 // surfaces handed out since start
	Released int64 // surfaces released since start
	Rejected int64 // requests refused with ErrBackpressure
	Timeouts int64 // deadline expiries while waiting for a surface
	Active   int64 // surfaces currently open
	Waiting  int64 // requests currently queued
}

// Governor mediates all access to the shared browser session. It enforces
// the surface concurrency ceiling with a weighted semaphore and a bounded
// wait queue, and it is the only component allowed to create surfaces.
//
// Every surface leaves the governor wrapped in a Lease whose Release is
// idempotent, so cleanup paths may release defensively without
// double-freeing the semaphore.
type Governor struct {
	src        SurfaceSource
	sem        *semaphore.Weighted
	ceiling    int
	queueDepth int64
	policy     QueuePolicy

	waiting  atomic.Int64
	acquired atomic.Int64
	released atomic.Int64
	rejected atomic.Int64
	timeouts atomic.Int64
	active   atomic.Int64
}

// NewGovernor creates a governor over the given surface source.
func NewGovernor(src SurfaceSource, cfg GovernorConfig) *Governor {
	ceiling := ResolveCeiling(cfg.Ceiling)
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = DefaultQueueFactor * ceiling
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyQueue
	}
	return &Governor{
		src:        src,
		sem:        semaphore.NewWeighted(int64(ceiling)),
		ceiling:    ceiling,
		queueDepth: int64(depth),
		policy:     policy,
	}
}

// Ceiling returns the configured concurrency ceiling.
func (g *Governor) Ceiling() int { return g.ceiling }

// Stats returns a snapshot of the governor counters.
func (g *Governor) Stats() GovernorStats {
	return GovernorStats{
		Acquired: g.acquired.Load(),
		Released: g.released.Load(),
		Rejected: g.rejected.Load(),
		Timeouts: g.timeouts.Load(),
		Active:   g.active.Load(),
		Waiting:  g.waiting.Load(),
	}
}

// Acquire obtains an exclusively owned surface, waiting under the configured
// policy when the ceiling is reached. The context must carry the request
// deadline: expiry while waiting yields ErrRenderTimeout, a full queue
// yields ErrBackpressure. The returned lease must be released on every
// code path.
func (g *Governor) Acquire(ctx context.Context) (*Lease, error) {
	if !g.sem.TryAcquire(1) {
		if g.policy == PolicyReject {
			g.rejected.Add(1)
			return nil, ErrBackpressure
		}
		if g.waiting.Add(1) > g.queueDepth {
			g.waiting.Add(-1)
			g.rejected.Add(1)
			return nil, ErrBackpressure
		}
		err := g.sem.Acquire(ctx, 1)
		g.waiting.Add(-1)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				g.timeouts.Add(1)
				return nil, fmt.Errorf("%w: waiting for surface", ErrRenderTimeout)
			}
			return nil, err
		}
	}

	surf, err := g.src.NewSurface(ctx)
	if err != nil {
		g.sem.Release(1)
		return nil, err
	}

	g.acquired.Add(1)
	g.active.Add(1)
	return &Lease{surface: surf, g: g}, nil
}

// Lease is the exclusive ownership of one surface between Acquire and
// Release.
type Lease struct {
	surface Surface
	g       *Governor
	once    sync.Once
}

// Surface returns the leased surface. Invalid after Release.
func (l *Lease) Surface() Surface { return l.surface }

// Release closes the surface and returns its slot to the governor.
// Idempotent: extra calls are no-ops, so deferred and explicit releases
// can coexist safely.
func (l *Lease) Release() {
	l.once.Do(func() {
		_ = l.surface.Close()
		l.g.sem.Release(1)
		l.g.released.Add(1)
		l.g.active.Add(-1)
	})
}
