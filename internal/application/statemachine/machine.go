package statemachine

import (
	"sync"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
	"github.com/GSejas/health-watch-sub002/internal/domain/events"
	domainstore "github.com/GSejas/health-watch-sub002/internal/domain/store"
)

// channelEntry bundles one channel's live state behind its own mutex,
// matching §5's "guarded by a single mutex per channel, contention
// expected low" model.
type channelEntry struct {
	mu    sync.Mutex
	state *channel.ChannelState
	// lastAppliedTs dedupes repeated (channel, timestamp) applies (P9).
	lastAppliedTs map[int64]struct{}
}

// Machine is the ChannelStateMachine: it applies one Sample at a time
// to the owning channel's ChannelState, updates outage lifecycle, and
// publishes the resulting events.
type Machine struct {
	mu      sync.RWMutex
	entries map[string]*channelEntry
	store   domainstore.Store
	bus     events.Publisher
	thresh  func(channelID string) int
}

// New constructs a Machine. thresholdFn resolves a channel's effective
// failure threshold (from configuration); it decouples the machine
// from the configuration package.
//
// Params:
//   - store: the AtomicStore used to persist state/outage/sample
//     updates.
//   - bus: the EventBus events are published to.
//   - thresholdFn: resolves a channel id to its effective threshold.
//
// Returns:
//   - *Machine: a new, empty state machine.
func New(store domainstore.Store, bus events.Publisher, thresholdFn func(channelID string) int) *Machine {
	return &Machine{
		entries: make(map[string]*channelEntry),
		store:   store,
		bus:     bus,
		thresh:  thresholdFn,
	}
}

// entryFor returns (creating if necessary) the channelEntry for id.
func (m *Machine) entryFor(id string) *channelEntry {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// re-check under write lock in case another goroutine created it first
	if e, ok = m.entries[id]; ok {
		return e
	}
	e = &channelEntry{
		state:         channel.NewChannelState(id),
		lastAppliedTs: make(map[int64]struct{}),
	}
	m.entries[id] = e
	return e
}

// Seed installs a previously persisted ChannelState, used when
// restoring from the AtomicStore on startup.
//
// Params:
//   - state: the persisted state to install.
func (m *Machine) Seed(state *channel.ChannelState) {
	if state == nil {
		return
	}
	e := m.entryFor(state.ChannelID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
	if state.LastSample != nil {
		e.lastAppliedTs[state.LastSample.TimestampMs] = struct{}{}
	}
}

// State returns a copy of the current ChannelState for id, or nil if
// unknown.
//
// Params:
//   - id: the channel id.
//
// Returns:
//   - *channel.ChannelState: a copy of the live state, or nil.
func (m *Machine) State(id string) *channel.ChannelState {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := *e.state
	return &cp
}

// Apply applies sample to its channel's state, performing the
// transition rules of §4.5. It is idempotent per (channel, timestamp)
// identity (P9) and self-repairs invariant violations (§7, Fatal).
//
// Params:
//   - sample: the sample to apply.
//
// Returns:
//   - error: non-nil only for unrecoverable internal errors; invariant
//     violations are self-repaired, not returned.
func (m *Machine) Apply(sample channel.Sample) error {
	e := m.entryFor(sample.ChannelID)

	e.mu.Lock()
	defer e.mu.Unlock()

	// P9: duplicate (channel, timestamp) applies are a no-op.
	if _, seen := e.lastAppliedTs[sample.TimestampMs]; seen {
		return nil
	}

	threshold := channel.DefaultThreshold
	if m.thresh != nil {
		if t := m.thresh(sample.ChannelID); t > 0 {
			threshold = t
		}
	}

	prevState := e.state.Current
	m.applyLocked(e, sample, threshold)
	e.lastAppliedTs[sample.TimestampMs] = struct{}{}

	// self-repair invariant violations rather than propagating them
	if err := e.state.CheckInvariants(threshold); err != nil {
		m.selfRepair(e, sample.TimestampMs)
	}

	m.persist(e)
	m.publish(e, sample, prevState)
	return nil
}

// applyLocked performs the §4.5 transition table against e.state,
// which the caller already holds e.mu for.
func (m *Machine) applyLocked(e *channelEntry, s channel.Sample, threshold int) {
	st := e.state
	st.LastSample = &s

	if s.Success {
		st.ConsecutiveFailures = 0
		st.ConsecutiveSuccesses++

		// close any open outage on recovery
		if st.Current != channel.StateOnline && st.Outage != nil && st.Outage.IsOpen() {
			st.Outage.Close(s.TimestampMs)
		}

		if st.Current != channel.StateOnline {
			st.Current = channel.StateOnline
			st.LastStateChangeMs = s.TimestampMs
		}
		return
	}

	// failure path
	st.ConsecutiveSuccesses = 0
	st.ConsecutiveFailures++

	if st.Outage == nil || !st.Outage.IsOpen() {
		st.Outage = &channel.Outage{
			ChannelID:          s.ChannelID,
			FirstFailureTimeMs: s.TimestampMs,
			Reason:             s.Error,
			FailureCount:       1,
		}
	} else {
		st.Outage.RecordFailure(s.Error)
	}

	if st.ConsecutiveFailures >= threshold && st.Current != channel.StateOffline {
		st.Current = channel.StateOffline
		st.LastStateChangeMs = s.TimestampMs
		st.Outage.ConfirmedAtMs = s.TimestampMs
	}
}

// selfRepair closes an orphaned outage and resets to unknown, per §7's
// "close orphan outage, reset state to unknown" fatal-repair recipe.
func (m *Machine) selfRepair(e *channelEntry, nowMs int64) {
	if e.state.Outage != nil && e.state.Outage.IsOpen() {
		e.state.Outage.Close(nowMs)
	}
	e.state.Current = channel.StateUnknown
	e.state.ConsecutiveFailures = 0
	e.state.ConsecutiveSuccesses = 0
}

// persist writes the channel's state record (which embeds its outage
// reference) and appends the last sample to the AtomicStore; no
// separate outages record is written. The completion handle is intentionally
// dropped: durability failures surface via store-health events, not
// blocking the caller (§9, "Fire-and-forget persistence").
func (m *Machine) persist(e *channelEntry) {
	if m.store == nil {
		return
	}
	stCopy := *e.state
	m.store.WriteRecord(domainstore.KindChannelState, e.state.ChannelID, &stCopy)
	if e.state.LastSample != nil {
		m.store.AppendSample(e.state.ChannelID, *e.state.LastSample)
	}
}

// publish emits sample/state-changed/outage-* events for one applied
// sample, matching §4.5's emit list.
func (m *Machine) publish(e *channelEntry, s channel.Sample, prevState channel.State) {
	if m.bus == nil {
		return
	}
	now := s.TimestampMs

	m.bus.Publish(events.Event{Kind: events.KindSample, ChannelID: s.ChannelID, TimestampMs: now, Data: s})

	if e.state.Current != prevState {
		m.bus.Publish(events.Event{Kind: events.KindStateChanged, ChannelID: s.ChannelID, TimestampMs: now, Data: e.state.Current})
	}

	if e.state.Outage != nil {
		if e.state.Outage.IsOpen() && e.state.Outage.FailureCount == 1 && e.state.Outage.FirstFailureTimeMs == now {
			m.bus.Publish(events.Event{Kind: events.KindOutageOpened, ChannelID: s.ChannelID, TimestampMs: now, Data: *e.state.Outage})
		}
		if !e.state.Outage.IsOpen() && e.state.Outage.EndTimeMs == now {
			m.bus.Publish(events.Event{Kind: events.KindOutageClosed, ChannelID: s.ChannelID, TimestampMs: now, Data: *e.state.Outage})
		}
	}
}
