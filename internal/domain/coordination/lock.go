// Package coordination provides domain types for multi-process leader
// election and shared-state publication.
package coordination

import "time"

// Identity uniquely names one process's bid for leadership: process id,
// acquisition wall-clock, and a random nonce (guards against pid
// reuse across restarts).
type Identity struct {
	// PID is the operating system process id.
	PID int
	// StartedAt is the wall-clock time the process believes it started.
	StartedAt time.Time
	// Nonce is a random, process-lifetime-unique token (typically a
	// UUID) disambiguating identity collisions.
	Nonce string
}

// String renders a stable, lexicographically comparable identity
// string, used for the tie-break rule in §4.2 ("identity string
// lexicographic").
//
// Returns:
//   - string: "nonce@startedAt" form.
func (id Identity) String() string {
	return id.Nonce + "@" + id.StartedAt.String()
}

// Lock is the on-disk leader-election primitive. At most one
// non-stale Lock exists per workspace (P6, modulo a bounded split-brain
// window).
type Lock struct {
	// Holder is the identity of the process claiming leadership.
	Holder Identity
	// AcquiredAt is when the holder first created or reclaimed the lock.
	AcquiredAt time.Time
	// LastHeartbeat is the timestamp of the most recent heartbeat write.
	LastHeartbeat time.Time
}

// IsStale reports whether the lock's heartbeat is older than
// staleTimeout, relative to now.
//
// Params:
//   - now: the instant to evaluate staleness against.
//   - staleTimeout: the configured stale threshold (default 10s).
//
// Returns:
//   - bool: true if the lock should be considered abandoned.
func (l Lock) IsStale(now time.Time, staleTimeout time.Duration) bool {
	return now.Sub(l.LastHeartbeat) > staleTimeout
}

// NewerThan implements the tie-break rule from §4.2: older acquisition
// timestamp wins; ties break on identity string, lexicographically
// smaller wins.
//
// Params:
//   - other: the competing lock observation.
//
// Returns:
//   - bool: true if l should yield to other (other is authoritative).
func (l Lock) NewerThan(other Lock) bool {
	if l.AcquiredAt.Equal(other.AcquiredAt) {
		return l.Holder.String() > other.Holder.String()
	}
	return l.AcquiredAt.After(other.AcquiredAt)
}
