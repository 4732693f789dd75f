// Package engine wires the scheduler, dispatcher, state machine,
// guard evaluator, watch manager, snooze registry, and coordinator
// into the single running core described by the host command surface
// (§"Commands (from host)").
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/application/coordinator"
	"github.com/GSejas/health-watch-sub002/internal/application/dispatcher"
	"github.com/GSejas/health-watch-sub002/internal/application/guard"
	"github.com/GSejas/health-watch-sub002/internal/application/scheduler"
	"github.com/GSejas/health-watch-sub002/internal/application/snooze"
	"github.com/GSejas/health-watch-sub002/internal/application/statemachine"
	"github.com/GSejas/health-watch-sub002/internal/application/watch"
	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
	domainwatch "github.com/GSejas/health-watch-sub002/internal/domain/watch"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/logging"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/ratelimit"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/registry"
	"github.com/joeycumines/logiface"
)

// MinProbeIntervalSec and MaxProbeIntervalSec bound the configured
// per-channel interval (§6 "minimum/maximum probe interval").
const (
	MinProbeIntervalSec = 10
	MaxProbeIntervalSec = 3600
)

// Engine owns every application service for one process and exposes
// the host command surface over them.
type Engine struct {
	channels   map[string]channel.Channel
	registry   *registry.Registry
	guards     *guard.Evaluator
	dispatcher *dispatcher.Dispatcher
	machine    *statemachine.Machine
	scheduler  *scheduler.Scheduler
	watches    *watch.Manager
	snoozes    *snooze.Registry
	coord      *coordinator.Coordinator
	limiter    *ratelimit.RunChannelNowLimiter
	logger     *logiface.Logger[*logging.Event]
	snapWatch  <-chan struct{}
}

// New constructs an Engine from its already-wired dependencies; see
// bootstrap for construction order.
//
// Params:
//   - channels: the configured channel set, keyed by id.
//   - reg: the indexed live-state read cache.
//   - guards: the guard evaluator, with built-in kinds already
//     registered.
//   - disp: the probe dispatcher, with built-in operations already
//     registered.
//   - machine: the channel state machine.
//   - sched: the adaptive scheduler, already seeded via UpdateChannels.
//   - watches: the watch manager.
//   - snoozes: the snooze registry.
//   - coord: the leader-election coordinator.
//   - limiter: rate limiter for the runChannelNow command.
//   - logger: the structured logger dispatch outcomes are recorded to.
//
// Returns:
//   - *Engine: ready to Run.
func New(
	channels map[string]channel.Channel,
	reg *registry.Registry,
	guards *guard.Evaluator,
	disp *dispatcher.Dispatcher,
	machine *statemachine.Machine,
	sched *scheduler.Scheduler,
	watches *watch.Manager,
	snoozes *snooze.Registry,
	coord *coordinator.Coordinator,
	limiter *ratelimit.RunChannelNowLimiter,
	logger *logiface.Logger[*logging.Event],
) *Engine {
	return &Engine{
		channels:   channels,
		registry:   reg,
		guards:     guards,
		dispatcher: disp,
		machine:    machine,
		scheduler:  sched,
		watches:    watches,
		snoozes:    snoozes,
		coord:      coord,
		limiter:    limiter,
		logger:     logger,
	}
}

// SetSnapshotWatch attaches a push-style shared-state change
// notification channel (from coordination.SnapshotStore.Watch). When
// set, Run starts an additional follower poll triggered by file
// changes rather than relying solely on the fixed poll interval.
//
// Params:
//   - ch: the notification channel; nil disables push-style polling.
func (e *Engine) SetSnapshotWatch(ch <-chan struct{}) {
	e.snapWatch = ch
}

// Run drives the scheduler and coordinator until ctx is cancelled.
// Each due Ticket is handed to its own goroutine; how many probes run
// at once is bounded by the Dispatcher's own pool (§5 "one dedicated
// scheduler worker").
//
// Params:
//   - ctx: cancelled to stop the engine.
func (e *Engine) Run(ctx context.Context) {
	go e.scheduler.Run(ctx)
	go e.coord.Run(ctx)
	if e.snapWatch != nil {
		go e.coord.WatchAndPoll(ctx, e.snapWatch)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ticket := <-e.scheduler.Tickets():
			go e.dispatchTicket(ctx, ticket)
		}
	}
}

func (e *Engine) dispatchTicket(ctx context.Context, ticket scheduler.Ticket) {
	ch := ticket.Channel

	if refs := ch.Guards; len(refs) > 0 {
		agg := e.guards.Evaluate(ctx, refs)
		if !agg.AllPassed {
			return
		}
	}

	deadline := ticket.DueAt.Add(time.Duration(ch.TimeoutMs) * time.Millisecond)
	sample := e.dispatcher.Dispatch(ctx, ch, deadline)

	logging.LogDispatch(e.logger, logging.DispatchFields{
		ChannelID: sample.ChannelID,
		Success:   sample.Success,
		LatencyMs: sample.LatencyMs,
		Err:       sample.Error,
	})

	if e.watches.IsChannelWatched(ch.ID) {
		e.watches.RecordSample(ch.ID)
	}

	if err := e.machine.Apply(sample); err != nil {
		return
	}
	if state := e.machine.State(ch.ID); state != nil {
		_ = e.registry.Upsert(ch.Priority, state)
	}
	e.scheduler.Complete(ch.ID, time.Now())
}

// StartGlobalWatch begins an intensified monitoring window over every
// enabled channel.
//
// Params:
//   - duration: window length; ignored when forever is true.
//   - forever: true for a window with no scheduled expiry.
//   - overrides: the interval/timeout overrides applied while active.
func (e *Engine) StartGlobalWatch(duration time.Duration, forever bool, overrides domainwatch.Overrides) {
	e.watches.StartGlobal(duration, forever, overrides, time.Now())
	e.refreshSchedule()
}

// StopGlobalWatch ends the active global watch session, if any.
//
// Returns:
//   - error: non-nil if no global session is active.
func (e *Engine) StopGlobalWatch() error {
	err := e.watches.Stop(string(domainwatch.GlobalScope), time.Now())
	e.refreshSchedule()
	return err
}

// StartChannelWatch begins an intensified monitoring window scoped to
// one channel.
//
// Params:
//   - channelID: the channel to watch.
//   - duration: window length; ignored when forever is true.
//   - forever: true for a window with no scheduled expiry.
//   - overrides: the interval/timeout overrides applied while active.
//
// Returns:
//   - error: non-nil if channelID is unknown.
func (e *Engine) StartChannelWatch(channelID string, duration time.Duration, forever bool, overrides domainwatch.Overrides) error {
	if _, ok := e.channels[channelID]; !ok {
		return fmt.Errorf("unknown channel: %s", channelID)
	}
	if _, err := e.watches.StartChannel(channelID, duration, forever, overrides, time.Now()); err != nil {
		return err
	}
	e.refreshSchedule()
	return nil
}

// StopChannelWatch ends the active watch session for channelID.
//
// Params:
//   - channelID: the channel whose watch to stop.
//
// Returns:
//   - error: non-nil if no session is active for channelID.
func (e *Engine) StopChannelWatch(channelID string) error {
	err := e.watches.Stop(channelID, time.Now())
	e.refreshSchedule()
	return err
}

// Snooze records a new suppression window.
//
// Params:
//   - scope: a channel id, or domainsnooze.WildcardScope.
//   - duration: how long the window lasts from now.
//   - reason: a free-text note shown to the user.
func (e *Engine) Snooze(scope string, duration time.Duration, reason string) {
	e.snoozes.Add(scope, duration, reason, time.Now())
}

// ClearSnooze removes every snooze window for scope.
//
// Params:
//   - scope: a channel id, or domainsnooze.WildcardScope.
func (e *Engine) ClearSnooze(scope string) {
	e.snoozes.Clear(scope)
}

// ChannelState returns the live state of channelID, or nil if unknown.
//
// Params:
//   - channelID: the channel to look up.
//
// Returns:
//   - *channel.ChannelState: a copy of the live state, or nil.
func (e *Engine) ChannelState(channelID string) *channel.ChannelState {
	return e.machine.State(channelID)
}

// IsSnoozed reports whether channelID is currently suppressed, either
// directly or via domainsnooze.WildcardScope.
//
// Params:
//   - channelID: the channel to check.
//
// Returns:
//   - bool: true if any active snooze covers channelID.
func (e *Engine) IsSnoozed(channelID string) bool {
	return e.snoozes.IsSnoozed(channelID, time.Now())
}

// RunChannelNow schedules an immediate out-of-band probe for
// channelID, subject to guard evaluation and a per-channel rate limit
// (SPEC_FULL.md "runChannelNow rate limiting").
//
// Params:
//   - channelID: the channel to probe immediately.
//
// Returns:
//   - error: non-nil if channelID is unknown or the rate limit denies
//     the request.
func (e *Engine) RunChannelNow(channelID string) error {
	if _, ok := e.channels[channelID]; !ok {
		return fmt.Errorf("unknown channel: %s", channelID)
	}
	if _, allowed := e.limiter.Allow(channelID); !allowed {
		return fmt.Errorf("runChannelNow rate limit exceeded for channel: %s", channelID)
	}
	e.scheduler.TriggerNow(channelID, time.Now())
	return nil
}

// ApplyConfiguration pushes a new channel set, replacing the
// previously scheduled one. Channels with an unknown guard reference
// must already have been rejected at config load; ApplyConfiguration
// does not re-validate.
//
// Params:
//   - channels: the full replacement channel set.
func (e *Engine) ApplyConfiguration(channels []channel.Channel) {
	next := make(map[string]channel.Channel, len(channels))
	for _, ch := range channels {
		next[ch.ID] = ch
	}
	e.channels = next
	e.refreshSchedule()
}

func (e *Engine) refreshSchedule() {
	enabled := make([]channel.Channel, 0, len(e.channels))
	for _, ch := range e.channels {
		if ch.Enabled {
			enabled = append(enabled, ch)
		}
	}
	e.scheduler.UpdateChannels(enabled, time.Now())
}
