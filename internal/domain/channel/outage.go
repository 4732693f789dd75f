package channel

// Outage is a recorded period of offline or degraded status for one
// channel. Closed outages are append-only; at most one outage per
// channel may be open at a time (P3).
type Outage struct {
	// ChannelID identifies the affected channel.
	ChannelID string
	// FirstFailureTimeMs is the timestamp of the earliest failure in the
	// streak that produced this outage.
	FirstFailureTimeMs int64
	// ConfirmedAtMs is the timestamp the failure threshold was crossed
	// and the channel transitioned to offline. Zero while the streak has
	// not yet crossed the threshold.
	ConfirmedAtMs int64
	// EndTimeMs is the close timestamp; zero while the outage is open.
	EndTimeMs int64
	// ActualDurationMs is EndTimeMs-FirstFailureTimeMs, set on close (P4).
	ActualDurationMs int64
	// Reason holds the earliest non-empty failure reason observed.
	Reason string
	// FailureCount is the number of failed samples observed for this
	// outage, including ones before the threshold was crossed.
	FailureCount int
}

// IsOpen reports whether the outage has not yet been closed.
//
// Returns:
//   - bool: true while EndTimeMs is unset.
func (o *Outage) IsOpen() bool {
	return o.EndTimeMs == 0
}

// IsConfirmed reports whether the failure streak crossed the threshold
// and produced an offline transition.
//
// Returns:
//   - bool: true once ConfirmedAtMs is set.
func (o *Outage) IsConfirmed() bool {
	return o.ConfirmedAtMs != 0
}

// Close finalizes the outage at endTimeMs, computing ActualDurationMs
// per P4. It is a no-op if the outage is already closed.
//
// Params:
//   - endTimeMs: the close timestamp.
func (o *Outage) Close(endTimeMs int64) {
	if !o.IsOpen() {
		return
	}
	o.EndTimeMs = endTimeMs
	o.ActualDurationMs = o.EndTimeMs - o.FirstFailureTimeMs
}

// RecordFailure increments FailureCount and keeps the earliest
// non-empty reason, matching the "keep earliest non-empty" rule in
// §4.5's transition table.
//
// Params:
//   - reason: the failure reason from the triggering sample.
func (o *Outage) RecordFailure(reason string) {
	o.FailureCount++
	if o.Reason == "" && reason != "" {
		o.Reason = reason
	}
}

// MaxClosedOutageHistory is the trim target applied by the AtomicStore
// when a record's serialized size exceeds the per-record cap (§4.1
// step 2).
const MaxClosedOutageHistory = 500
