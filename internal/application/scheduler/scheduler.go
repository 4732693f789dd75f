// Package scheduler implements the AdaptiveScheduler application
// service: a single owned min-heap of per-channel probe tickets,
// recomputing each channel's next interval from live state, watch
// overrides, and jitter (§4.6).
package scheduler

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
	domainguard "github.com/GSejas/health-watch-sub002/internal/domain/guard"
	"github.com/GSejas/health-watch-sub002/internal/domain/watch"
)

// StateLookup resolves a channel's live ChannelState, so the
// scheduler can pick a strategy without owning state itself.
type StateLookup interface {
	State(channelID string) *channel.ChannelState
}

// WatchLookup resolves the active watch coverage and overrides for a
// channel.
type WatchLookup interface {
	IsChannelWatched(channelID string) bool
	EffectiveOverrides(channelID string) watch.Overrides
}

// GuardChecker evaluates a channel's guard references.
type GuardChecker interface {
	Evaluate(ctx context.Context, refs []string) domainguard.Aggregate
}

// Ticket is one "probe due" notification emitted by the scheduler.
type Ticket struct {
	// Channel is the channel to probe.
	Channel channel.Channel
	// DueAt is the instant this ticket fired.
	DueAt time.Time
}

// Scheduler owns the scheduling heap and produces Tickets on a
// dedicated worker (§5: "one dedicated scheduler worker owns the heap
// and wall-clock scanning").
type Scheduler struct {
	mu       sync.Mutex
	h        ticketHeap
	items    map[string]*ticketItem
	channels map[string]channel.Channel

	states StateLookup
	watch  WatchLookup
	guards GuardChecker

	out chan Ticket

	rng      func() float64
	nowFunc  func() time.Time
	tickWait time.Duration
}

// New constructs a Scheduler with no channels. Call UpdateChannels to
// populate it before calling Run.
//
// Params:
//   - states: resolves live ChannelState per channel id.
//   - watchLookup: resolves active watch coverage/overrides.
//   - guards: evaluates guard references before a ticket is emitted.
//
// Returns:
//   - *Scheduler: a new, empty scheduler.
func New(states StateLookup, watchLookup WatchLookup, guards GuardChecker) *Scheduler {
	return &Scheduler{
		items:    make(map[string]*ticketItem),
		channels: make(map[string]channel.Channel),
		states:   states,
		watch:    watchLookup,
		guards:   guards,
		out:      make(chan Ticket, 1),
		nowFunc:  time.Now,
		tickWait: 50 * time.Millisecond,
	}
}

// Tickets returns the channel tickets are emitted on. Consumers must
// keep reading it while Run is active.
//
// Returns:
//   - <-chan Ticket: the outgoing ticket stream.
func (s *Scheduler) Tickets() <-chan Ticket {
	return s.out
}

// UpdateChannels replaces the tracked channel set, preserving the
// remaining wait time for channels that already have a scheduled
// ticket and scheduling newly added channels immediately (§4.6
// "Cancellation": "the heap is rebuilt in-place while preserving
// remaining time for unchanged channels").
//
// Params:
//   - channels: the full, current channel set (enabled or not; disabled
//     channels are tracked but never produce tickets).
//   - now: the instant this reload is applied.
func (s *Scheduler) UpdateChannels(channels []channel.Channel, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]channel.Channel, len(channels))
	for _, c := range channels {
		next[c.ID] = c
	}

	// drop channels no longer present
	for id := range s.channels {
		if _, ok := next[id]; !ok {
			s.removeLocked(id)
		}
	}

	s.channels = next

	for _, c := range channels {
		if !c.Enabled {
			s.removeLocked(c.ID)
			continue
		}
		if _, scheduled := s.items[c.ID]; !scheduled {
			item := &ticketItem{channelID: c.ID, dueAt: now}
			heap.Push(&s.h, item)
			s.items[c.ID] = item
		}
	}
}

// removeLocked drops a channel's ticket, if any. Caller holds s.mu.
func (s *Scheduler) removeLocked(id string) {
	item, ok := s.items[id]
	if !ok {
		return
	}
	heap.Remove(&s.h, item.index)
	delete(s.items, id)
}

// scheduleLocked computes id's next interval from current conditions
// and inserts (or re-inserts) its heap entry. Caller holds s.mu.
func (s *Scheduler) scheduleLocked(id string, now time.Time) {
	ch, ok := s.channels[id]
	if !ok || !ch.Enabled {
		return
	}

	interval := s.computeIntervalLocked(ch, now)
	dueAt := now.Add(time.Duration(interval * float64(time.Second)))

	if item, exists := s.items[id]; exists {
		item.dueAt = dueAt
		heap.Fix(&s.h, item.index)
		return
	}

	item := &ticketItem{channelID: id, dueAt: dueAt}
	heap.Push(&s.h, item)
	s.items[id] = item
}

// computeIntervalLocked runs the full strategy-selection + jitter
// pipeline for ch. Caller holds s.mu.
func (s *Scheduler) computeIntervalLocked(ch channel.Channel, now time.Time) float64 {
	var state *channel.ChannelState
	if s.states != nil {
		state = s.states.State(ch.ID)
	}

	var watched bool
	var overrides watch.Overrides
	if s.watch != nil {
		watched = s.watch.IsChannelWatched(ch.ID)
		overrides = s.watch.EffectiveOverrides(ch.ID)
	}

	d := computeBase(ch, state, watched, overrides)
	return applyJitter(d.intervalSec, ch.EffectiveJitterPct(), s.rng)
}

// Run drives the scheduling loop until ctx is cancelled. It pops due
// tickets, evaluates guards, and emits a Ticket for every channel
// whose guards pass; channels that fail their guards are skipped and
// immediately rescheduled at their stable-cadence interval (§4.6).
//
// Params:
//   - ctx: cancelling it stops the loop and closes the Tickets
//     channel.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.out)
	ticker := time.NewTicker(s.tickWait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick pops every currently-due ticket and either emits it or
// reschedules it past a failed guard check.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.nowFunc()

	for {
		s.mu.Lock()
		if s.h.Len() == 0 || s.h[0].dueAt.After(now) {
			s.mu.Unlock()
			return
		}
		item := heap.Pop(&s.h).(*ticketItem)
		delete(s.items, item.channelID)
		ch, ok := s.channels[item.channelID]
		s.mu.Unlock()

		if !ok || !ch.Enabled {
			continue
		}

		if s.guards != nil && len(ch.Guards) > 0 {
			agg := s.guards.Evaluate(ctx, ch.Guards)
			if !agg.AllPassed {
				s.rescheduleStable(ch.ID, now)
				continue
			}
		}

		select {
		case s.out <- Ticket{Channel: ch, DueAt: now}:
		case <-ctx.Done():
			return
		}
	}
}

// rescheduleStable reinserts a guard-failed channel using its baseline
// stable-cadence interval, per §4.6 ("skipped but reinserted with
// their stable-cadence interval").
func (s *Scheduler) rescheduleStable(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return
	}
	baseline := float64(ch.BaselineIntervalSec)
	if baseline <= 0 {
		baseline = MinIntervalSec
	}
	interval := applyJitter(baseline, ch.EffectiveJitterPct(), s.rng)
	dueAt := now.Add(time.Duration(interval * float64(time.Second)))
	if item, exists := s.items[id]; exists {
		item.dueAt = dueAt
		heap.Fix(&s.h, item.index)
		return
	}
	item := &ticketItem{channelID: id, dueAt: dueAt}
	heap.Push(&s.h, item)
	s.items[id] = item
}

// Complete is called after a ticket's sample has been applied to the
// state machine, so the scheduler can compute the channel's next
// interval from its now-updated state.
//
// Params:
//   - channelID: the channel whose ticket just completed.
//   - now: the instant the sample finished applying.
func (s *Scheduler) Complete(channelID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(channelID, now)
}

// TriggerNow schedules an immediate ticket for channelID, bypassing
// its normal interval. It is still subject to guard evaluation on the
// next tick (§6 "runChannelNow").
//
// Params:
//   - channelID: the channel to probe immediately.
//   - now: the instant the trigger was requested.
func (s *Scheduler) TriggerNow(channelID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[channelID]; ok {
		item.dueAt = now
		heap.Fix(&s.h, item.index)
		return
	}
	item := &ticketItem{channelID: channelID, dueAt: now}
	heap.Push(&s.h, item)
	s.items[channelID] = item
}

// Degrade skips up to n currently-due tickets, lowest priority first,
// when the dispatcher's queue exceeds its soft limit; no sample is
// recorded for a skipped ticket (§5 "Back-pressure"). Candidates are
// ordered by priority only: among due tickets of equal priority, which
// ones are skipped is not defined, and how recently a channel was
// probed is not considered. A skipped channel is rescheduled at its
// baseline interval with jitter (as for a guard failure), not at the
// interval it had before.
//
// Params:
//   - n: how many tickets to skip this pass.
//   - now: the current instant, from which skipped channels are
//     rescheduled.
func (s *Scheduler) Degrade(n int, now time.Time) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	type candidate struct {
		id       string
		priority channel.Priority
	}
	due := make([]candidate, 0, s.h.Len())
	for _, item := range s.h {
		if item.dueAt.After(now) {
			continue
		}
		due = append(due, candidate{id: item.channelID, priority: s.channels[item.channelID].Priority})
	}
	sort.Slice(due, func(i, j int) bool {
		return priorityRank(due[i].priority) < priorityRank(due[j].priority)
	})
	if n > len(due) {
		n = len(due)
	}
	skip := due[:n]
	s.mu.Unlock()

	for _, c := range skip {
		s.rescheduleStable(c.id, now)
	}
}

// priorityRank orders priorities from least to most aggressive, lowest
// rank dropped first under back-pressure.
func priorityRank(p channel.Priority) int {
	switch p {
	case channel.PriorityLow:
		return 0
	case channel.PriorityMedium:
		return 1
	case channel.PriorityHigh:
		return 2
	case channel.PriorityCritical:
		return 3
	default:
		return 0
	}
}
