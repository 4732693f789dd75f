package coordinator_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSejas/health-watch-sub002/internal/application/coordinator"
	domaincoordination "github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	infracoordination "github.com/GSejas/health-watch-sub002/internal/infrastructure/coordination"
	infraevents "github.com/GSejas/health-watch-sub002/internal/infrastructure/events"
)

type nopStates struct{}

func (nopStates) Snapshot() map[string]domaincoordination.ChannelView { return nil }

type recordingSink struct{ applied []domaincoordination.Snapshot }

func (s *recordingSink) Apply(snap domaincoordination.Snapshot) { s.applied = append(s.applied, snap) }

func newIdentity() domaincoordination.Identity {
	return domaincoordination.Identity{PID: 1, StartedAt: time.Now(), Nonce: uuid.NewString()}
}

func TestCoordinator_TryAcquire_FirstRunnerBecomesLeader(t *testing.T) {
	dir := t.TempDir()
	locks := infracoordination.NewLockFile(dir)
	snaps := infracoordination.NewSnapshotFile(dir)
	c := coordinator.New(newIdentity(), locks, snaps, infraevents.New(), nopStates{}, &recordingSink{})

	assert.Equal(t, coordinator.RoleJoining, c.Role())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, c.IsLeader, 2*time.Second, 10*time.Millisecond)
}

func TestCoordinator_SecondRunnerBecomesFollower(t *testing.T) {
	dir := t.TempDir()
	locks := infracoordination.NewLockFile(dir)
	snaps := infracoordination.NewSnapshotFile(dir)

	leader := coordinator.New(newIdentity(), locks, snaps, infraevents.New(), nopStates{}, &recordingSink{})
	follower := coordinator.New(newIdentity(), locks, snaps, infraevents.New(), nopStates{}, &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go leader.Run(ctx)
	require.Eventually(t, leader.IsLeader, 2*time.Second, 10*time.Millisecond)

	go follower.Run(ctx)
	require.Eventually(t, func() bool { return follower.Role() == coordinator.RoleFollower }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, follower.IsLeader())
}

func TestCoordinator_FollowerAppliesPublishedSnapshot(t *testing.T) {
	dir := t.TempDir()
	locks := infracoordination.NewLockFile(dir)
	snaps := infracoordination.NewSnapshotFile(dir)

	states := nopStates{}
	leader := coordinator.New(newIdentity(), locks, snaps, infraevents.New(), states, &recordingSink{})
	sink := &recordingSink{}
	follower := coordinator.New(newIdentity(), locks, snaps, infraevents.New(), nopStates{}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go leader.Run(ctx)
	require.Eventually(t, leader.IsLeader, 2*time.Second, 10*time.Millisecond)

	go follower.Run(ctx)
	require.Eventually(t, func() bool { return follower.Role() == coordinator.RoleFollower }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return len(sink.applied) > 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestCoordinator_Poll_SkipsAlreadyObservedVersion(t *testing.T) {
	dir := t.TempDir()
	locks := infracoordination.NewLockFile(dir)
	snaps := infracoordination.NewSnapshotFile(dir)
	sink := &recordingSink{}
	c := coordinator.New(newIdentity(), locks, snaps, infraevents.New(), nopStates{}, sink)

	snap := domaincoordination.NewSnapshot("someone-else", time.Now())
	require.NoError(t, snaps.Publish(context.Background(), snap))

	c.Poll(context.Background())
	c.Poll(context.Background())

	assert.Len(t, sink.applied, 1)
}

func TestCoordinator_Republish_NoopWhenNotLeader(t *testing.T) {
	dir := t.TempDir()
	locks := infracoordination.NewLockFile(dir)
	snaps := infracoordination.NewSnapshotFile(dir)
	c := coordinator.New(newIdentity(), locks, snaps, infraevents.New(), nopStates{}, &recordingSink{})

	c.Republish(context.Background())

	_, found, err := snaps.Read(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCoordinator_WatchAndPoll_StopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	locks := infracoordination.NewLockFile(dir)
	snaps := infracoordination.NewSnapshotFile(dir)
	c := coordinator.New(newIdentity(), locks, snaps, infraevents.New(), nopStates{}, &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	watchCh := make(chan struct{})

	done := make(chan struct{})
	go func() {
		c.WatchAndPoll(ctx, watchCh)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchAndPoll did not return after context cancellation")
	}
}
