package bootstrap

import (
	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
	"github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	"github.com/GSejas/health-watch-sub002/internal/application/statemachine"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/registry"
)

// stateSource adapts the registry into the coordinator.StateSource
// port: a leader condenses its live ChannelState set into the
// per-channel views it publishes each snapshot interval (§4.2).
type stateSource struct {
	reg *registry.Registry
}

func newStateSource(reg *registry.Registry) *stateSource {
	return &stateSource{reg: reg}
}

// Snapshot implements coordinator.StateSource.
func (s *stateSource) Snapshot() map[string]coordination.ChannelView {
	states, err := s.reg.All()
	if err != nil {
		return nil
	}
	out := make(map[string]coordination.ChannelView, len(states))
	for _, st := range states {
		view := coordination.ChannelView{
			State:             string(st.Current),
			LastStateChangeMs: st.LastStateChangeMs,
		}
		if st.LastSample != nil {
			view.LastSampleSuccess = st.LastSample.Success
			view.LastSampleTimestampMs = st.LastSample.TimestampMs
		}
		out[st.ChannelID] = view
	}
	return out
}

// snapshotSink adapts the state machine into the
// coordinator.SnapshotSink port: a follower mirrors an accepted
// snapshot into local state without performing its own probes (§4.2
// "Follower observation").
type snapshotSink struct {
	machine *statemachine.Machine
	reg     *registry.Registry
	priority func(channelID string) channel.Priority
}

func newSnapshotSink(machine *statemachine.Machine, reg *registry.Registry, priority func(channelID string) channel.Priority) *snapshotSink {
	return &snapshotSink{machine: machine, reg: reg, priority: priority}
}

// Apply implements coordinator.SnapshotSink.
func (s *snapshotSink) Apply(snap coordination.Snapshot) {
	for channelID, view := range snap.Channels {
		state := &channel.ChannelState{
			ChannelID:         channelID,
			Current:           channel.State(view.State),
			LastStateChangeMs: view.LastStateChangeMs,
		}
		if view.LastSampleTimestampMs > 0 {
			state.LastSample = &channel.Sample{
				ChannelID:   channelID,
				TimestampMs: view.LastSampleTimestampMs,
				Success:     view.LastSampleSuccess,
			}
		}
		s.machine.Seed(state)
		_ = s.reg.Upsert(s.priority(channelID), state)
	}
}
