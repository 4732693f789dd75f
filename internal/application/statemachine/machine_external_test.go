package statemachine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSejas/health-watch-sub002/internal/application/statemachine"
	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
)

func newMachine(threshold int) *statemachine.Machine {
	return statemachine.New(nil, nil, func(string) int { return threshold })
}

func TestApply_UnknownToOnline(t *testing.T) {
	m := newMachine(2)
	m.Apply(channel.Sample{ChannelID: "web", TimestampMs: 1, Success: true})

	state := m.State("web")
	require.NotNil(t, state)
	assert.Equal(t, channel.StateOnline, state.Current)
	assert.Equal(t, 1, state.ConsecutiveSuccesses)
}

func TestApply_OfflineAfterThresholdFailures(t *testing.T) {
	m := newMachine(2)
	m.Apply(channel.Sample{ChannelID: "web", TimestampMs: 1, Success: false, Error: "timeout"})
	state := m.State("web")
	assert.Equal(t, channel.StateUnknown, state.Current)

	m.Apply(channel.Sample{ChannelID: "web", TimestampMs: 2, Success: false, Error: "timeout"})
	state = m.State("web")
	assert.Equal(t, channel.StateOffline, state.Current)
	require.NotNil(t, state.Outage)
	assert.True(t, state.Outage.IsOpen())
}

func TestApply_RecoveryClosesOutage(t *testing.T) {
	m := newMachine(1)
	m.Apply(channel.Sample{ChannelID: "web", TimestampMs: 1, Success: false, Error: "timeout"})
	m.Apply(channel.Sample{ChannelID: "web", TimestampMs: 2, Success: true})

	state := m.State("web")
	assert.Equal(t, channel.StateOnline, state.Current)
	require.NotNil(t, state.Outage)
	assert.False(t, state.Outage.IsOpen())
}

func TestApply_DuplicateTimestampIsNoOp(t *testing.T) {
	m := newMachine(1)
	m.Apply(channel.Sample{ChannelID: "web", TimestampMs: 1, Success: false})
	first := m.State("web")

	m.Apply(channel.Sample{ChannelID: "web", TimestampMs: 1, Success: true})
	second := m.State("web")

	assert.Equal(t, first.Current, second.Current)
	assert.Equal(t, first.ConsecutiveFailures, second.ConsecutiveFailures)
}

func TestSeed_InstallsPriorState(t *testing.T) {
	m := newMachine(2)
	seeded := channel.NewChannelState("web")
	seeded.Current = channel.StateOnline
	m.Seed(seeded)

	state := m.State("web")
	require.NotNil(t, state)
	assert.Equal(t, channel.StateOnline, state.Current)
}

func TestState_UnknownChannelReturnsNil(t *testing.T) {
	m := newMachine(2)
	assert.Nil(t, m.State("does-not-exist"))
}
