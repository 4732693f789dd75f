package watch

import (
	"sync"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/domain/events"
	domainstore "github.com/GSejas/health-watch-sub002/internal/domain/store"
	"github.com/GSejas/health-watch-sub002/internal/domain/watch"
)

// Manager is the WatchManager application service (§4.7). It owns the
// live WatchSession set, keyed by scope.
type Manager struct {
	mu       sync.Mutex
	sessions map[watch.Scope]*watch.Session
	timers   map[watch.Scope]*time.Timer
	store    domainstore.Store
	bus      events.Publisher
}

// New constructs an empty Manager.
//
// Params:
//   - store: the AtomicStore used for optional session persistence.
//   - bus: the EventBus events are published to.
//
// Returns:
//   - *Manager: a new, empty manager.
func New(store domainstore.Store, bus events.Publisher) *Manager {
	return &Manager{
		sessions: make(map[watch.Scope]*watch.Session),
		timers:   make(map[watch.Scope]*time.Timer),
		store:    store,
		bus:      bus,
	}
}

// StartGlobal starts a session covering every enabled channel.
// Restarting an existing global session replaces it.
//
// Params:
//   - duration: session length; ignored when forever is true.
//   - forever: true for a session with no scheduled expiry.
//   - overrides: the interval/timeout overrides to apply.
//   - now: the start instant.
//
// Returns:
//   - *watch.Session: the started session.
func (m *Manager) StartGlobal(duration time.Duration, forever bool, overrides watch.Overrides, now time.Time) *watch.Session {
	return m.start(watch.GlobalScope, duration, forever, overrides, now)
}

// StartChannel starts a per-channel session. It refuses if an active
// per-channel session already exists for channelID.
//
// Params:
//   - channelID: the channel to scope the session to.
//   - duration: session length; ignored when forever is true.
//   - forever: true for a session with no scheduled expiry.
//   - overrides: the interval/timeout overrides to apply.
//   - now: the start instant.
//
// Returns:
//   - *watch.Session: the started session.
//   - error: ErrAlreadyActive if a per-channel session is already live.
func (m *Manager) StartChannel(channelID string, duration time.Duration, forever bool, overrides watch.Overrides, now time.Time) (*watch.Session, error) {
	scope := watch.Scope(channelID)

	m.mu.Lock()
	if existing, ok := m.sessions[scope]; ok && existing.Active {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	m.mu.Unlock()

	return m.start(scope, duration, forever, overrides, now), nil
}

// start is the shared StartGlobal/StartChannel implementation.
func (m *Manager) start(scope watch.Scope, duration time.Duration, forever bool, overrides watch.Overrides, now time.Time) *watch.Session {
	s := &watch.Session{
		Scope:     scope,
		StartedAt: now,
		Forever:   forever,
		Duration:  duration,
		Overrides: overrides,
		Active:    true,
	}

	m.mu.Lock()
	m.cancelTimerLocked(scope)
	m.sessions[scope] = s
	if !forever {
		m.timers[scope] = time.AfterFunc(duration, func() { m.Stop(string(scope), time.Now()) })
	}
	m.mu.Unlock()

	m.persist()
	if m.bus != nil {
		m.bus.Publish(events.Event{Kind: events.KindWatchStarted, ChannelID: channelIDFromScope(scope), TimestampMs: now.UnixMilli(), Data: *s})
	}
	return s
}

// Stop ends the active session for scopeKey ("global" or a channel
// id), setting its end time and emitting watch-ended. Stopping an
// already-inactive or unknown scope is a no-op error (ErrNotFound),
// matching R2's "stop then restart succeeds" expectation.
//
// Params:
//   - scopeKey: "global" or a channel id.
//   - now: the stop instant.
//
// Returns:
//   - error: ErrNotFound if no active session covers scopeKey.
func (m *Manager) Stop(scopeKey string, now time.Time) error {
	scope := watch.Scope(scopeKey)

	m.mu.Lock()
	s, ok := m.sessions[scope]
	if !ok || !s.Active {
		m.mu.Unlock()
		return ErrNotFound
	}
	s.Stop(now)
	m.cancelTimerLocked(scope)
	m.mu.Unlock()

	m.persist()
	if m.bus != nil {
		m.bus.Publish(events.Event{Kind: events.KindWatchEnded, ChannelID: channelIDFromScope(scope), TimestampMs: now.UnixMilli(), Data: *s})
	}
	return nil
}

// cancelTimerLocked stops and discards any deferred-stop timer for
// scope. Caller must hold m.mu.
func (m *Manager) cancelTimerLocked(scope watch.Scope) {
	if t, ok := m.timers[scope]; ok {
		t.Stop()
		delete(m.timers, scope)
	}
}

// IsChannelWatched reports whether a global or channel-scoped session
// currently covers channelID.
//
// Params:
//   - channelID: the channel to test.
//
// Returns:
//   - bool: true if a live session covers it.
func (m *Manager) IsChannelWatched(channelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.sessions[watch.GlobalScope]; ok && g.Covers(channelID) {
		return true
	}
	if c, ok := m.sessions[watch.Scope(channelID)]; ok && c.Covers(channelID) {
		return true
	}
	return false
}

// EffectiveOverrides returns the overrides that apply to channelID,
// with channel-scope session overrides taking precedence over global
// (§4.7, §9 Open Question resolved as channel-scope precedence).
//
// Params:
//   - channelID: the channel to resolve overrides for.
//
// Returns:
//   - watch.Overrides: the effective overrides; zero value if no
//     session covers the channel.
func (m *Manager) EffectiveOverrides(channelID string) watch.Overrides {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.sessions[watch.Scope(channelID)]; ok && c.Covers(channelID) {
		return c.Overrides
	}
	if g, ok := m.sessions[watch.GlobalScope]; ok && g.Covers(channelID) {
		return g.Overrides
	}
	return watch.Overrides{}
}

// RecordSample increments the active session's sample counter for
// channelID, if one covers it. Channel-scope sessions are counted in
// preference to global.
//
// Params:
//   - channelID: the channel a sample was just taken for.
func (m *Manager) RecordSample(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[watch.Scope(channelID)]; ok && c.Covers(channelID) {
		c.SampleCount++
		return
	}
	if g, ok := m.sessions[watch.GlobalScope]; ok && g.Covers(channelID) {
		g.SampleCount++
	}
}

// persist writes the full session set, used for the optional
// cross-restart persistence named in §4.7.
func (m *Manager) persist() {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	sessions := make([]watch.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, *s)
	}
	m.mu.Unlock()
	m.store.WriteRecord(domainstore.KindWatch, "", sessions)
}

// channelIDFromScope returns "" for the global scope, or the channel
// id otherwise, for event payload shaping.
func channelIDFromScope(scope watch.Scope) string {
	if scope == watch.GlobalScope {
		return ""
	}
	return string(scope)
}
