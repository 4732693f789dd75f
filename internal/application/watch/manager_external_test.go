package watch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSejas/health-watch-sub002/internal/application/watch"
	infraevents "github.com/GSejas/health-watch-sub002/internal/infrastructure/events"
	persistencestore "github.com/GSejas/health-watch-sub002/internal/infrastructure/persistence/store"
)

func newManager(t *testing.T) *watch.Manager {
	t.Helper()
	store, err := persistencestore.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return watch.New(store, infraevents.New())
}

func TestStartGlobal_CoversAnyChannel(t *testing.T) {
	m := newManager(t)
	m.StartGlobal(time.Minute, false, watch.Overrides{}, time.Now())

	assert.True(t, m.IsChannelWatched("web"))
	assert.True(t, m.IsChannelWatched("db"))
}

func TestStartChannel_RefusesDoubleStart(t *testing.T) {
	m := newManager(t)
	_, err := m.StartChannel("web", time.Minute, false, watch.Overrides{}, time.Now())
	require.NoError(t, err)

	_, err = m.StartChannel("web", time.Minute, false, watch.Overrides{}, time.Now())
	assert.ErrorIs(t, err, watch.ErrAlreadyActive)
}

func TestStop_UnknownScopeErrors(t *testing.T) {
	m := newManager(t)
	err := m.Stop("nonexistent", time.Now())
	assert.ErrorIs(t, err, watch.ErrNotFound)
}

func TestStop_EndsCoverage(t *testing.T) {
	m := newManager(t)
	_, err := m.StartChannel("web", time.Minute, false, watch.Overrides{}, time.Now())
	require.NoError(t, err)

	require.NoError(t, m.Stop("web", time.Now()))
	assert.False(t, m.IsChannelWatched("web"))
}

func TestEffectiveOverrides_ChannelScopePrecedesGlobal(t *testing.T) {
	m := newManager(t)
	now := time.Now()
	m.StartGlobal(time.Minute, false, watch.Overrides{IntervalSec: 5}, now)
	_, err := m.StartChannel("web", time.Minute, false, watch.Overrides{IntervalSec: 1}, now)
	require.NoError(t, err)

	got := m.EffectiveOverrides("web")
	assert.Equal(t, 1, got.IntervalSec)

	got = m.EffectiveOverrides("other")
	assert.Equal(t, 5, got.IntervalSec)
}

func TestRecordSample_IncrementsActiveSession(t *testing.T) {
	m := newManager(t)
	session, err := m.StartChannel("web", time.Minute, false, watch.Overrides{}, time.Now())
	require.NoError(t, err)

	m.RecordSample("web")
	m.RecordSample("web")
	// StartChannel returns the live session, so its count is observable
	assert.Equal(t, 2, session.SampleCount)
	assert.True(t, m.IsChannelWatched("web"))
}
