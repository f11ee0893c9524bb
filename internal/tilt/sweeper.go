package tilt

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	// DefaultSessionTTL is how long a session may sit without observations
	// before eviction.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultSweepInterval is how often the sweeper scans for idle sessions.
	DefaultSweepInterval = time.Minute
)

// Sweeper evicts idle sessions on a timer. Evicted sessions are handed to
// the OnEvict hook (for folding into daily aggregates) before they are gone.
type Sweeper struct {
	engine   *Engine
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
	stop     chan struct{}

	// OnEvict, when set, receives each evicted session's final state.
	OnEvict func(ctx context.Context, s *Session)
}

// NewSweeper creates a sweeper for the engine's session store.
func NewSweeper(engine *Engine, ttl, interval time.Duration, logger *slog.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		engine:   engine,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Safe to call once; subsequent calls are
// no-ops.
func (sw *Sweeper) Start(ctx context.Context) {
	if !sw.running.CompareAndSwap(false, true) {
		return
	}
	go sw.run(ctx)
}

// Stop halts the sweep loop.
func (sw *Sweeper) Stop() {
	if sw.running.CompareAndSwap(true, false) {
		close(sw.stop)
	}
}

func (sw *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stop:
			return
		case <-ticker.C:
			if n := sw.Sweep(ctx); n > 0 {
				sw.logger.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// Sweep runs one eviction pass and returns how many sessions were evicted.
// Sessions that receive an observation while the pass is running are
// re-checked under the session lock and survive.
func (sw *Sweeper) Sweep(ctx context.Context) int {
	cutoff := sw.engine.now().Add(-sw.ttl)
	idle, err := sw.engine.store.IdleSince(ctx, cutoff)
	if err != nil {
		sw.logger.Error("sweep scan failed", "error", err)
		return 0
	}

	evicted := 0
	for _, snap := range idle {
		final, ok, err := sw.engine.evict(ctx, snap, cutoff)
		if err != nil {
			sw.logger.Error("eviction failed", "session", snap.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		evicted++
		if sw.OnEvict != nil {
			sw.OnEvict(ctx, final)
		}
	}
	return evicted
}
