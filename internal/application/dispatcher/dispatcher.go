// Package dispatcher implements the probe dispatcher application
// service: it invokes pluggable probe operations with a bounded
// worker pool, per-call deadline, and cancellation (§4.4).
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
)

// DefaultConcurrency is the default per-process probe worker pool size
// (§6 "probe concurrency cap (32)").
const DefaultConcurrency = 32

// DefaultQueueSoftLimit is the queue depth past which the scheduler is
// expected to start degrading (§5 "soft limit (default 128)").
const DefaultQueueSoftLimit = 128

// Operation runs one probe for the given kind-specific params and
// must never panic across the call boundary; implementations are
// expected to honor ctx's deadline and return promptly after
// cancellation within the grace period (§6).
type Operation func(ctx context.Context, params map[string]string) Outcome

// Outcome is a probe operation's raw result, before being shaped into
// a channel.Sample.
type Outcome struct {
	// Success indicates the probe succeeded.
	Success bool
	// LatencyMs is the observed latency; meaningful only if HasLatency.
	LatencyMs int64
	// HasLatency indicates LatencyMs was measured (absent on immediate
	// transport failure, per the Sample data model).
	HasLatency bool
	// Error is a human-readable failure description; empty on success.
	Error string
	// Details carries optional kind-specific diagnostic data.
	Details map[string]string
}

// Dispatcher runs probe Operations behind a bounded worker pool.
type Dispatcher struct {
	sem        chan struct{}
	operations map[channel.Kind]Operation
	queued     int64 // not read or updated; QueueDepth uses len(sem)
}

// New constructs a Dispatcher with the given worker pool size. A
// concurrency of 0 or less falls back to DefaultConcurrency.
//
// Params:
//   - concurrency: the maximum number of probes run in parallel.
//
// Returns:
//   - *Dispatcher: a new dispatcher with no registered operations.
func New(concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Dispatcher{
		sem:        make(chan struct{}, concurrency),
		operations: make(map[channel.Kind]Operation),
	}
}

// Register installs op as the implementation for kind. Configuration
// loading is expected to reject unknown kinds before a Channel
// referencing them reaches the dispatcher (§6).
//
// Params:
//   - kind: the probe kind this operation implements.
//   - op: the operation function.
func (d *Dispatcher) Register(kind channel.Kind, op Operation) {
	d.operations[kind] = op
}

// QueueDepth reports how many dispatches currently hold a worker slot,
// as input to the scheduler's back-pressure decision (§5). Dispatches
// still waiting for a free slot are not counted.
//
// Returns:
//   - int: the number of in-flight dispatches.
func (d *Dispatcher) QueueDepth() int {
	return len(d.sem)
}

// Dispatch runs ch's probe operation with the given deadline,
// returning a Sample. It never panics; an unknown kind, a missing
// registration, a timeout, or cancellation all yield a failed Sample
// rather than an error return, per §4.4's "always a Sample" contract.
//
// Params:
//   - ctx: parent context; dispatch exits promptly on its
//     cancellation.
//   - ch: the channel to probe.
//   - deadline: the absolute instant the probe must complete by.
//
// Returns:
//   - channel.Sample: always populated; Success=false with a
//     descriptive Error on any failure path.
func (d *Dispatcher) Dispatch(ctx context.Context, ch channel.Channel, deadline time.Time) channel.Sample {
	startedAtMs := time.Now().UnixMilli()

	op, ok := d.operations[ch.Kind]
	if !ok {
		return failedSample(ch.ID, startedAtMs, fmt.Sprintf("no probe operation registered for kind %q", ch.Kind))
	}

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return failedSample(ch.ID, startedAtMs, "cancelled before a worker slot was available")
	}
	defer func() { <-d.sem }()

	cctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	type result struct {
		outcome Outcome
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{outcome: Outcome{Success: false, Error: fmt.Sprintf("probe panicked: %v", r)}}
				return
			}
		}()
		done <- result{outcome: op(cctx, ch.Params)}
	}()

	select {
	case r := <-done:
		return toSample(ch.ID, startedAtMs, r.outcome)
	case <-cctx.Done():
		return failedSample(ch.ID, startedAtMs, "timeout")
	}
}

// toSample shapes a raw Outcome into a channel.Sample timestamped at
// the dispatch's start.
func toSample(channelID string, timestampMs int64, o Outcome) channel.Sample {
	return channel.Sample{
		ChannelID:   channelID,
		TimestampMs: timestampMs,
		Success:     o.Success,
		LatencyMs:   o.LatencyMs,
		HasLatency:  o.HasLatency,
		Error:       o.Error,
	}
}

// failedSample builds a failed Sample with the given reason.
func failedSample(channelID string, timestampMs int64, reason string) channel.Sample {
	return channel.Sample{
		ChannelID:   channelID,
		TimestampMs: timestampMs,
		Success:     false,
		Error:       reason,
	}
}
