// Package snooze implements the SnoozeRegistry application service:
// windowed suppression of alert-side effects that never alters
// scheduling or sample collection (§4.8).
package snooze

import (
	"sync"
	"time"

	domainstore "github.com/GSejas/health-watch-sub002/internal/domain/store"
	domainsnooze "github.com/GSejas/health-watch-sub002/internal/domain/snooze"
)

// Registry holds the live Snooze set. Multiple overlapping snoozes for
// the same scope are stored independently; effective suppression is
// the union of all of them (§4.8).
type Registry struct {
	mu       sync.RWMutex
	snoozes  []domainsnooze.Snooze
	store    domainstore.Store
}

// New constructs an empty Registry.
//
// Params:
//   - store: the AtomicStore the snooze set is persisted to.
//
// Returns:
//   - *Registry: a new, empty registry.
func New(store domainstore.Store) *Registry {
	return &Registry{store: store}
}

// Add records a new snooze window for scope (a channel id or
// domainsnooze.WildcardScope).
//
// Params:
//   - scope: the channel id, or WildcardScope for every channel.
//   - duration: how long the window lasts from now.
//   - reason: a free-text note shown to the user.
//   - now: the window's opening instant.
func (r *Registry) Add(scope string, duration time.Duration, reason string, now time.Time) {
	s := domainsnooze.Snooze{
		Scope:  scope,
		Start:  now,
		End:    now.Add(duration),
		Reason: reason,
	}

	r.mu.Lock()
	r.snoozes = append(r.snoozes, s)
	r.mu.Unlock()

	r.persist()
}

// Clear removes every snooze window for scope, active or expired. It
// does not affect other scopes, including the wildcard.
//
// Params:
//   - scope: the channel id, or WildcardScope, to clear.
func (r *Registry) Clear(scope string) {
	r.mu.Lock()
	kept := r.snoozes[:0]
	for _, s := range r.snoozes {
		if s.Scope != scope {
			kept = append(kept, s)
		}
	}
	r.snoozes = kept
	r.mu.Unlock()

	r.persist()
}

// IsSnoozed reports whether channelID is covered by any active window,
// including wildcard windows, at instant now (§4.8).
//
// Params:
//   - channelID: the channel to test.
//   - now: the instant to test against.
//
// Returns:
//   - bool: true if any stored snooze currently covers channelID.
func (r *Registry) IsSnoozed(channelID string, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.snoozes {
		if s.Covers(channelID, now) {
			return true
		}
	}
	return false
}

// persist writes the full snooze set so it survives process restart.
func (r *Registry) persist() {
	if r.store == nil {
		return
	}
	r.mu.RLock()
	snapshot := make([]domainsnooze.Snooze, len(r.snoozes))
	copy(snapshot, r.snoozes)
	r.mu.RUnlock()
	r.store.WriteRecord(domainstore.KindSnooze, "", snapshot)
}
