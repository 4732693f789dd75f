package coordination_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaincoordination "github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	infracoordination "github.com/GSejas/health-watch-sub002/internal/infrastructure/coordination"
)

func testIdentity(nonce string) domaincoordination.Identity {
	return domaincoordination.Identity{PID: 1, StartedAt: time.Now(), Nonce: nonce}
}

func TestLockFile_TryCreate_FirstWriterWins(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	lock := domaincoordination.Lock{Holder: testIdentity("a"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}

	_, created, err := f.TryCreate(context.Background(), lock)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestLockFile_TryCreate_SecondWriterObservesExisting(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	first := domaincoordination.Lock{Holder: testIdentity("a"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	_, _, err := f.TryCreate(context.Background(), first)
	require.NoError(t, err)

	second := domaincoordination.Lock{Holder: testIdentity("b"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	existing, created, err := f.TryCreate(context.Background(), second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "a", existing.Holder.Nonce)
}

func TestLockFile_Read_AbsentFileReportsNotFound(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	_, found, err := f.Read(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLockFile_Heartbeat_RefusesMismatchedHolder(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	held := domaincoordination.Lock{Holder: testIdentity("a"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	_, _, err := f.TryCreate(context.Background(), held)
	require.NoError(t, err)

	other := held
	other.Holder = testIdentity("b")
	ok, err := f.Heartbeat(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockFile_Heartbeat_UpdatesMatchingHolder(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	held := domaincoordination.Lock{Holder: testIdentity("a"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	_, _, err := f.TryCreate(context.Background(), held)
	require.NoError(t, err)

	updated := held
	updated.LastHeartbeat = held.LastHeartbeat.Add(time.Second)
	ok, err := f.Heartbeat(context.Background(), updated)
	require.NoError(t, err)
	assert.True(t, ok)

	reread, found, err := f.Read(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, updated.LastHeartbeat.Unix(), reread.LastHeartbeat.Unix())
}

func TestLockFile_Reclaim_ReplacesStaleLockAtomically(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	stale := domaincoordination.Lock{Holder: testIdentity("a"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	_, _, err := f.TryCreate(context.Background(), stale)
	require.NoError(t, err)

	next := domaincoordination.Lock{Holder: testIdentity("b"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	ok, err := f.Reclaim(context.Background(), stale, next)
	require.NoError(t, err)
	assert.True(t, ok)

	reread, found, err := f.Read(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", reread.Holder.Nonce)
}

func TestLockFile_Reclaim_RefusesIfAlreadyChanged(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	original := domaincoordination.Lock{Holder: testIdentity("a"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	_, _, err := f.TryCreate(context.Background(), original)
	require.NoError(t, err)

	winner := domaincoordination.Lock{Holder: testIdentity("b"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	ok, err := f.Reclaim(context.Background(), original, winner)
	require.NoError(t, err)
	require.True(t, ok)

	loser := domaincoordination.Lock{Holder: testIdentity("c"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	ok, err = f.Reclaim(context.Background(), original, loser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockFile_Release_RemovesOwnLock(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	held := domaincoordination.Lock{Holder: testIdentity("a"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	_, _, err := f.TryCreate(context.Background(), held)
	require.NoError(t, err)

	require.NoError(t, f.Release(context.Background(), held.Holder))

	_, found, err := f.Read(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLockFile_Release_IgnoresMismatchedHolder(t *testing.T) {
	f := infracoordination.NewLockFile(t.TempDir())
	held := domaincoordination.Lock{Holder: testIdentity("a"), AcquiredAt: time.Now(), LastHeartbeat: time.Now()}
	_, _, err := f.TryCreate(context.Background(), held)
	require.NoError(t, err)

	require.NoError(t, f.Release(context.Background(), testIdentity("b")))

	_, found, err := f.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSnapshotFile_PublishThenRead_RoundTrips(t *testing.T) {
	f := infracoordination.NewSnapshotFile(t.TempDir())
	snap := domaincoordination.NewSnapshot("leader-a", time.Now())
	snap.Channels["web"] = domaincoordination.ChannelView{State: "online"}

	require.NoError(t, f.Publish(context.Background(), snap))

	got, found, err := f.Read(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "leader-a", got.Publisher)
	assert.Equal(t, "online", got.Channels["web"].State)
}

func TestSnapshotFile_Read_AbsentFileReportsNotFound(t *testing.T) {
	f := infracoordination.NewSnapshotFile(t.TempDir())
	_, found, err := f.Read(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSnapshotFile_Watch_FiresOnPublish(t *testing.T) {
	dir := t.TempDir()
	f := infracoordination.NewSnapshotFile(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Watch(ctx)
	require.NoError(t, err)
	require.NotNil(t, ch)

	snap := domaincoordination.NewSnapshot("leader-a", time.Now())
	require.NoError(t, f.Publish(context.Background(), snap))

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch notification")
	}
}
