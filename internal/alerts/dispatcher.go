package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultAdapterTimeout bounds a single adapter send.
const DefaultAdapterTimeout = 5 * time.Second

// Dispatcher fans an alert out to the adapters named in the alert config.
// Adapters are attempted concurrently and independently; Dispatch always
// returns a result per attempted adapter and never an error.
type Dispatcher struct {
	adapters map[string]Adapter
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given adapters.
func NewDispatcher(logger *slog.Logger, adapters ...Adapter) *Dispatcher {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Dispatcher{
		adapters: m,
		timeout:  DefaultAdapterTimeout,
		logger:   logger,
	}
}

// WithTimeout overrides the per-adapter send timeout.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.timeout = timeout
	}
	return d
}

// Dispatch sends the alert through every adapter listed in cfg.Adapters.
// Unknown adapter names produce a failed result rather than being skipped
// silently, so misconfiguration is visible in the alert record.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *Alert, cfg Config) []DispatchResult {
	results := make([]DispatchResult, len(cfg.Adapters))

	var wg sync.WaitGroup
	for i, name := range cfg.Adapters {
		adapter, ok := d.adapters[name]
		if !ok {
			results[i] = DispatchResult{Adapter: name, Success: false, Error: "adapter not configured"}
			dispatchTotal.WithLabelValues(name, "misconfigured").Inc()
			continue
		}

		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			results[i] = d.send(ctx, adapter, alert)
		}(i, adapter)
	}
	wg.Wait()

	for _, r := range results {
		if !r.Success {
			d.logger.Warn("alert adapter failed",
				"alert", alert.ID, "adapter", r.Adapter, "error", r.Error)
		}
	}

	return results
}

// send runs one adapter attempt under its own timeout. A timeout is an
// adapter failure, not a retryable condition.
func (d *Dispatcher) send(ctx context.Context, adapter Adapter, alert *Alert) DispatchResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := adapter.Send(ctx, alert)
	elapsed := time.Since(start)

	result := DispatchResult{
		Adapter:    adapter.Name(),
		Success:    err == nil,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		dispatchTotal.WithLabelValues(adapter.Name(), "failure").Inc()
	} else {
		dispatchTotal.WithLabelValues(adapter.Name(), "success").Inc()
	}
	dispatchDuration.WithLabelValues(adapter.Name()).Observe(elapsed.Seconds())

	return result
}
