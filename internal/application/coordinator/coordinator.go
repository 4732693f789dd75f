package coordinator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/joeycumines/go-longpoll"

	"github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	"github.com/GSejas/health-watch-sub002/internal/domain/events"
)

// Role is one state of the {joining, leader, follower, resigning}
// machine (§4.2).
type Role string

const (
	RoleJoining   Role = "joining"
	RoleLeader    Role = "leader"
	RoleFollower  Role = "follower"
	RoleResigning Role = "resigning"
)

// Defaults from §6's environment/configuration knobs.
const (
	DefaultHeartbeatInterval    = 3 * time.Second
	DefaultStaleTimeout         = 10 * time.Second
	DefaultSnapshotInterval     = 1 * time.Second
	DefaultFollowerPollInterval = 1 * time.Second
	DefaultResignAfterFailures  = 3
	DefaultAcquireRetryBase     = 100 * time.Millisecond
)

// StateSource produces the condensed per-channel view a leader
// publishes in each SharedStateSnapshot.
type StateSource interface {
	Snapshot() map[string]coordination.ChannelView
}

// SnapshotSink receives snapshots accepted by a follower, so it can
// mirror them into local ChannelState and re-publish local events
// without performing probes (§4.2 "Follower observation").
type SnapshotSink interface {
	Apply(snap coordination.Snapshot)
}

// Coordinator runs the leader-election and shared-state publication
// state machine for one process.
type Coordinator struct {
	identity coordination.Identity
	locks    LockStore
	snaps    SnapshotStore
	bus      events.Publisher
	states   StateSource
	sink     SnapshotSink

	heartbeatInterval    time.Duration
	staleTimeout         time.Duration
	snapshotInterval     time.Duration
	followerPollInterval time.Duration
	resignAfterFailures  int

	mu                   sync.RWMutex
	role                 Role
	currentLock          coordination.Lock
	lastPublished        coordination.Snapshot
	lastObservedVersion  uint64
	heartbeatFailures    int
	lastSnapshotWriteMs  int64
	hasPublishedEver     bool
}

// New constructs a Coordinator in the initial "joining" role.
//
// Params:
//   - identity: this process's leadership-bid identity.
//   - locks: the on-disk leader-lock port.
//   - snaps: the on-disk shared-state port.
//   - bus: the EventBus leadership-changed/snapshot-published events
//     are published to.
//   - states: resolves the leader's current per-channel views.
//   - sink: receives snapshots this process accepts as a follower.
//
// Returns:
//   - *Coordinator: a new coordinator, not yet started.
func New(identity coordination.Identity, locks LockStore, snaps SnapshotStore, bus events.Publisher, states StateSource, sink SnapshotSink) *Coordinator {
	return &Coordinator{
		identity:             identity,
		locks:                locks,
		snaps:                snaps,
		bus:                  bus,
		states:                states,
		sink:                 sink,
		heartbeatInterval:    DefaultHeartbeatInterval,
		staleTimeout:         DefaultStaleTimeout,
		snapshotInterval:     DefaultSnapshotInterval,
		followerPollInterval: DefaultFollowerPollInterval,
		resignAfterFailures:  DefaultResignAfterFailures,
		role:                 RoleJoining,
	}
}

// Role returns the coordinator's current role.
//
// Returns:
//   - Role: the live role.
func (c *Coordinator) Role() Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// IsLeader reports whether this process currently believes it holds
// leadership.
//
// Returns:
//   - bool: true only while role == RoleLeader.
func (c *Coordinator) IsLeader() bool {
	return c.Role() == RoleLeader
}

// Run drives the coordinator until ctx is cancelled, attempting
// acquisition, heartbeating while leader, and observing the shared
// state while follower.
//
// Params:
//   - ctx: cancelling it stops the loop; the coordinator does not
//     release its lock on cancellation (a crashed/terminated process
//     leaves a lock that followers reclaim after staleTimeout, §4.2
//     "Failure semantics").
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tickInterval is the scheduling granularity for the internal state
// machine. Only snapshot publication has its own deadline
// (snapshotInterval); a leader heartbeats and a follower polls on
// every tick, and heartbeatInterval and followerPollInterval are not
// consulted.
func (c *Coordinator) tickInterval() time.Duration {
	return 200 * time.Millisecond
}

func (c *Coordinator) tick(ctx context.Context) {
	switch c.Role() {
	case RoleJoining:
		c.tryAcquire(ctx)
	case RoleLeader:
		c.leaderTick(ctx)
	case RoleFollower:
		c.followerTick(ctx)
	case RoleResigning:
		c.setRole(RoleJoining, "")
	}
}

// tryAcquire attempts exclusive lock creation; on collision it becomes
// a follower (fresh lock) or reclaims a stale one (§4.2
// "Leadership acquisition").
func (c *Coordinator) tryAcquire(ctx context.Context) {
	now := time.Now()
	lock := coordination.Lock{Holder: c.identity, AcquiredAt: now, LastHeartbeat: now}

	existing, created, err := c.locks.TryCreate(ctx, lock)
	if err != nil {
		c.jitterSleep()
		return
	}
	if created {
		c.becomeLeader(lock)
		return
	}

	if existing.IsStale(now, c.staleTimeout) {
		next := coordination.Lock{Holder: c.identity, AcquiredAt: now, LastHeartbeat: now}
		ok, err := c.locks.Reclaim(ctx, existing, next)
		if err == nil && ok {
			c.becomeLeader(next)
			return
		}
		// lost the race to reclaim; fall through to following
	}

	c.becomeFollower(existing)
}

func (c *Coordinator) jitterSleep() {
	time.Sleep(DefaultAcquireRetryBase + time.Duration(rand.Int63n(int64(DefaultAcquireRetryBase))))
}

func (c *Coordinator) becomeLeader(lock coordination.Lock) {
	c.mu.Lock()
	c.currentLock = lock
	c.heartbeatFailures = 0
	c.lastPublished = coordination.NewSnapshot(c.identity.String(), lock.AcquiredAt)
	c.hasPublishedEver = false
	c.role = RoleLeader
	c.mu.Unlock()
	c.emitLeadershipChanged(RoleLeader)
}

func (c *Coordinator) becomeFollower(lock coordination.Lock) {
	c.mu.Lock()
	changed := c.role != RoleFollower
	c.currentLock = lock
	c.role = RoleFollower
	c.mu.Unlock()
	if changed {
		c.emitLeadershipChanged(RoleFollower)
	}
}

func (c *Coordinator) setRole(r Role, _ string) {
	c.mu.Lock()
	c.role = r
	c.mu.Unlock()
}

func (c *Coordinator) emitLeadershipChanged(r Role) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.Event{Kind: events.KindLeadershipChanged, TimestampMs: time.Now().UnixMilli(), Data: r})
}

// leaderTick performs heartbeat and, if due, snapshot publication; it
// also watches for a competing lock held by another process and
// demotes when that lock wins the tie-break (older acquisition, see
// coordination.Lock.NewerThan) (§4.2 "leader -> follower").
func (c *Coordinator) leaderTick(ctx context.Context) {
	now := time.Now()

	c.mu.RLock()
	lock := c.currentLock
	c.mu.RUnlock()

	observed, found, err := c.locks.Read(ctx)
	if err == nil && found && observed.Holder.String() != c.identity.String() && lock.NewerThan(observed) {
		c.resign(ctx, RoleFollower)
		return
	}

	lock.LastHeartbeat = now
	ok, err := c.locks.Heartbeat(ctx, lock)
	if err != nil || !ok {
		c.mu.Lock()
		c.heartbeatFailures++
		failures := c.heartbeatFailures
		c.mu.Unlock()
		if failures >= c.resignAfterFailures {
			c.resign(ctx, RoleJoining)
		}
		return
	}

	c.mu.Lock()
	c.heartbeatFailures = 0
	c.currentLock = lock
	c.mu.Unlock()

	c.publishIfDue(ctx, now)
}

// publishIfDue writes a new SharedStateSnapshot if none has been
// published since this process became leader (or since Republish
// asked for one), or if snapshotInterval has elapsed since the last
// write (§4.2).
func (c *Coordinator) publishIfDue(ctx context.Context, now time.Time) {
	c.mu.Lock()
	due := !c.hasPublishedEver || now.UnixMilli()-c.lastSnapshotWriteMs >= c.snapshotInterval.Milliseconds()
	if !due {
		c.mu.Unlock()
		return
	}
	var views map[string]coordination.ChannelView
	if c.states != nil {
		views = c.states.Snapshot()
	}
	next := c.lastPublished.Next(now)
	next.Channels = views
	c.mu.Unlock()

	if err := c.snaps.Publish(ctx, next); err != nil {
		return
	}

	c.mu.Lock()
	c.lastPublished = next
	c.lastSnapshotWriteMs = now.UnixMilli()
	c.hasPublishedEver = true
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(events.Event{Kind: events.KindSnapshotPublished, TimestampMs: now.UnixMilli(), Data: next})
	}
}

// Republish forces an immediate snapshot write, used after a channel
// state change rather than waiting for the interval-based tick (§4.2
// "after every channel state change").
//
// Params:
//   - ctx: bounds the publish call.
func (c *Coordinator) Republish(ctx context.Context) {
	if !c.IsLeader() {
		return
	}
	c.mu.Lock()
	c.hasPublishedEver = false
	c.mu.Unlock()
	c.publishIfDue(ctx, time.Now())
}

// resign demotes from leader, emitting leadership-changed (§4.2
// "leader -> follower", "leader -> resigning"). It changes only the
// role: the lock file and the last published snapshot are left on
// disk as they are.
func (c *Coordinator) resign(ctx context.Context, next Role) {
	c.mu.Lock()
	c.role = RoleResigning
	c.heartbeatFailures = 0
	c.mu.Unlock()
	c.emitLeadershipChanged(RoleResigning)

	c.mu.Lock()
	c.role = next
	c.mu.Unlock()
	if next != RoleResigning {
		c.emitLeadershipChanged(next)
	}
}

// followerTick polls the shared-state file (or consumes a
// filesystem-notify signal, handled by the infrastructure layer
// driving Poll directly) and watches for the current lock going stale,
// in which case it attempts to become leader.
func (c *Coordinator) followerTick(ctx context.Context) {
	now := time.Now()

	c.mu.RLock()
	lock := c.currentLock
	c.mu.RUnlock()

	observed, found, err := c.locks.Read(ctx)
	if err == nil && found {
		c.mu.Lock()
		c.currentLock = observed
		c.mu.Unlock()
		lock = observed
	}

	if !found || lock.IsStale(now, c.staleTimeout) {
		c.setRole(RoleJoining, "")
		return
	}

	c.Poll(ctx)
}

// Poll reads the shared-state file once and, if it carries a strictly
// newer version than last observed, applies it to the SnapshotSink
// (§4.2 "Follower observation", §8 R3).
//
// Params:
//   - ctx: bounds the read call.
func (c *Coordinator) Poll(ctx context.Context) {
	snap, found, err := c.snaps.Read(ctx)
	if err != nil || !found {
		return
	}

	c.mu.Lock()
	if snap.Version <= c.lastObservedVersion {
		c.mu.Unlock()
		return
	}
	c.lastObservedVersion = snap.Version
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.Apply(snap)
	}
}

// WatchAndPoll drains push-style change notifications from watchCh
// (typically SnapshotStore.Watch's return value), batching a burst of
// fsnotify events into a single Poll per drain window instead of
// reacting once per filesystem event (§9 "File-watching for state
// sync"). It returns when ctx is cancelled or watchCh closes.
//
// Params:
//   - ctx: bounds each drain and Poll call.
//   - watchCh: the snapshot-changed notification channel.
func (c *Coordinator) WatchAndPoll(ctx context.Context, watchCh <-chan struct{}) {
	cfg := &longpoll.ChannelConfig{MaxSize: -1, PartialTimeout: 50 * time.Millisecond}
	for {
		if err := longpoll.Channel(ctx, cfg, watchCh, func(struct{}) error { return nil }); err != nil {
			return
		}
		c.Poll(ctx)
	}
}
