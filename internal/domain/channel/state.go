package channel

// State is the live status of a channel.
type State string

const (
	// StateUnknown is the initial state before any sample is applied.
	StateUnknown State = "unknown"
	// StateOnline means the most recently applied sample succeeded.
	StateOnline State = "online"
	// StateOffline means the consecutive-failure streak reached the
	// channel's threshold.
	StateOffline State = "offline"
)

// AdaptiveMeta records the scheduler's most recent interval decision
// for a channel, surfaced for diagnostics and SharedStateSnapshot
// publication.
type AdaptiveMeta struct {
	// CurrentIntervalSec is the interval currently scheduled.
	CurrentIntervalSec float64
	// LastAdjustmentMs is when the interval was last recomputed.
	LastAdjustmentMs int64
	// Reason names the strategy that produced the interval (watch,
	// crisis, recovery, stable).
	Reason string
}

// ChannelState is per-channel live status, exclusively mutated by the
// ChannelStateMachine and serialized by the AtomicStore.
type ChannelState struct {
	// ChannelID identifies the channel.
	ChannelID string
	// Current is the live state.
	Current State
	// LastStateChangeMs is when Current last changed.
	LastStateChangeMs int64
	// ConsecutiveFailures counts the current failure streak; resets to 0
	// on success.
	ConsecutiveFailures int
	// ConsecutiveSuccesses counts the current success streak; resets to 0
	// on failure.
	ConsecutiveSuccesses int
	// LastSample is the most recently applied sample, or nil before the
	// first apply.
	LastSample *Sample
	// Adaptive carries the scheduler's most recent interval decision.
	Adaptive AdaptiveMeta
	// Outage references the open outage, or after a recovery the most
	// recently closed one (replaced when the next failure opens a new
	// outage); nil before the first failure (P3).
	Outage *Outage
}

// NewChannelState returns a freshly initialized ChannelState in the
// unknown state, as required by §4.5 ("Initial: unknown").
//
// Params:
//   - channelID: the channel this state belongs to.
//
// Returns:
//   - *ChannelState: a new, zeroed channel state.
func NewChannelState(channelID string) *ChannelState {
	return &ChannelState{
		ChannelID: channelID,
		Current:   StateUnknown,
	}
}

// CheckInvariants validates P1-P4 against the current state and, when
// given, the last applied sample. Callers (ChannelStateMachine) treat a
// non-nil return as a self-repair trigger (§7, Fatal).
//
// Params:
//   - threshold: the channel's effective failure threshold.
//
// Returns:
//   - error: the first invariant violation found, or nil.
func (s *ChannelState) CheckInvariants(threshold int) error {
	// P1: last sample success=true implies online.
	if s.LastSample != nil && s.LastSample.Success && s.Current != StateOnline {
		return errInvariantP1
	}
	// P2: offline implies consecutiveFailures >= threshold.
	if s.Current == StateOffline && s.ConsecutiveFailures < threshold {
		return errInvariantP2
	}
	// P3 (partial, single-state check): an offline channel's outage
	// reference must be open; a closed reference is only valid after
	// recovery.
	if s.Current == StateOffline && s.Outage != nil && !s.Outage.IsOpen() {
		return errInvariantP3
	}
	// part of ChannelState/Outage consistency: an open outage's start
	// time must not be in the future relative to the last sample.
	if s.Outage != nil && s.Outage.IsOpen() && s.LastSample != nil && s.Outage.FirstFailureTimeMs > s.LastSample.TimestampMs {
		return errInvariantOutageStart
	}
	return nil
}
