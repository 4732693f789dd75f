// Package events provides the in-process pub/sub event model (§4.9).
package events

// Kind names one of the published event types.
type Kind string

const (
	// KindSample is published whenever a probe produces a sample.
	KindSample Kind = "sample"
	// KindStateChanged is published on a channel state transition.
	KindStateChanged Kind = "state-changed"
	// KindOutageOpened is published when a new outage begins.
	KindOutageOpened Kind = "outage-opened"
	// KindOutageClosed is published when an open outage closes.
	KindOutageClosed Kind = "outage-closed"
	// KindWatchStarted is published when a WatchSession starts.
	KindWatchStarted Kind = "watch-started"
	// KindWatchEnded is published when a WatchSession ends.
	KindWatchEnded Kind = "watch-ended"
	// KindSnapshotPublished is published whenever the leader writes a
	// new SharedStateSnapshot.
	KindSnapshotPublished Kind = "snapshot-published"
	// KindLeadershipChanged is published on coordinator role transitions.
	KindLeadershipChanged Kind = "leadership-changed"
	// KindStoreHealth is published on store degradation/recovery.
	KindStoreHealth Kind = "store-health"
)

// Event is one published occurrence. Delivery is synchronous,
// best-effort, FIFO per publisher (§4.9, §5).
type Event struct {
	// Kind names the event type.
	Kind Kind
	// ChannelID identifies the affected channel, when applicable.
	ChannelID string
	// TimestampMs is when the event was published.
	TimestampMs int64
	// Snoozed marks that the affected channel/scope was snoozed at
	// publication time (S6: "receive them with a snoozed flag").
	Snoozed bool
	// Data carries the kind-specific payload (Sample, ChannelState,
	// Outage, Session, Snapshot, or a plain string for store-health).
	Data interface{}
}
