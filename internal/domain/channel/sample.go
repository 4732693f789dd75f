package channel

// Sample is the immutable outcome of one probe execution.
type Sample struct {
	// ChannelID identifies the channel this sample belongs to.
	ChannelID string
	// TimestampMs is milliseconds since epoch; monotonic-preferred for
	// ordering within a single process.
	TimestampMs int64
	// Success indicates the probe succeeded.
	Success bool
	// LatencyMs is the probe latency in milliseconds. Absent (use
	// HasLatency) on immediate transport failure.
	LatencyMs int64
	// HasLatency reports whether LatencyMs is meaningful.
	HasLatency bool
	// Error describes the failure; empty on success.
	Error string
	// ActiveWatch marks that a WatchSession covered the channel when this
	// sample was taken.
	ActiveWatch bool
	// ActiveMaintenance marks that the channel was in a maintenance
	// window (snoozed) when this sample was taken.
	ActiveMaintenance bool
}

// Identity returns the (channel, timestamp) pair used for idempotence
// checks (P9): applying the same identity twice must be a no-op.
//
// Returns:
//   - string: channel id.
//   - int64: timestamp in ms.
func (s Sample) Identity() (string, int64) {
	return s.ChannelID, s.TimestampMs
}

// MaxSamplesPerChannel is the bounded ring size enforced by the
// AtomicStore for per-channel sample history (B4).
const MaxSamplesPerChannel = 1000
