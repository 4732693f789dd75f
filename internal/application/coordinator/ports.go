// Package coordinator implements the Coordinator application service:
// the {joining, leader, follower, resigning} leader-election and
// shared-state publication state machine (§4.2).
package coordinator

import (
	"context"

	"github.com/GSejas/health-watch-sub002/internal/domain/coordination"
)

// LockStore is the narrow port onto the on-disk leader.lock file. All
// operations must behave atomically with respect to other processes
// sharing the same workspace (§4.1, §4.2).
type LockStore interface {
	// TryCreate attempts to exclusively create the lock file with the
	// given initial content. ok=false with a nil error means the file
	// already existed; existing is then populated from its contents.
	TryCreate(ctx context.Context, lock coordination.Lock) (existing coordination.Lock, ok bool, err error)
	// Read returns the current lock file contents. found=false means the
	// file does not exist.
	Read(ctx context.Context) (lock coordination.Lock, found bool, err error)
	// Heartbeat rewrites the lock file with lock's updated heartbeat,
	// provided the file still names lock.Holder as its holder. A
	// mismatch (another process reclaimed it) returns ok=false.
	Heartbeat(ctx context.Context, lock coordination.Lock) (ok bool, err error)
	// Reclaim atomically replaces a known-stale lock with a new one,
	// provided the on-disk content still matches the stale lock observed.
	// ok=false means another process reclaimed it first.
	Reclaim(ctx context.Context, stale coordination.Lock, next coordination.Lock) (ok bool, err error)
	// Release removes the lock file, provided it still names holder.
	Release(ctx context.Context, holder coordination.Identity) error
}

// SnapshotStore is the narrow port onto the on-disk shared-state.json
// file.
type SnapshotStore interface {
	// Publish durably writes snap, replacing any prior content.
	Publish(ctx context.Context, snap coordination.Snapshot) error
	// Read returns the current snapshot. found=false means no snapshot
	// has ever been published.
	Read(ctx context.Context) (snap coordination.Snapshot, found bool, err error)
	// Watch returns a channel that receives a notification whenever the
	// snapshot file changes, for followers that want push-style
	// observation instead of polling (§9 "File-watching for state
	// sync"). May return nil if unsupported; callers fall back to
	// polling.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
