// Package store provides domain types and ports for crash-safe,
// versioned on-disk persistence (§4.1, §6 "On-disk layout").
package store

// CurrentSchemaVersion is the envelope schema version written by this
// build. Readers reject higher versions (§6: "readers reject higher
// versions with a logged incompatibility and treat as absent").
const CurrentSchemaVersion int = 1

// Envelope is the common wrapper written around every persisted
// payload.
type Envelope struct {
	// SchemaVersion is the envelope format version.
	SchemaVersion int `json:"schemaVersion"`
	// WrittenAtMs is when this envelope was serialized.
	WrittenAtMs int64 `json:"writtenAt"`
	// Payload is the kind-specific body, deferred-decoded by callers.
	Payload interface{} `json:"payload"`
}

// RecordKind names one of the distinct persisted record families under
// the workspace directory (§6, "On-disk layout").
type RecordKind string

const (
	// KindLeaderLock is leader.lock.
	KindLeaderLock RecordKind = "leader-lock"
	// KindSharedState is shared-state.json.
	KindSharedState RecordKind = "shared-state"
	// KindChannelSamples is channels/<id>.samples.json.
	KindChannelSamples RecordKind = "channel-samples"
	// KindChannelState is channels/<id>.state.json.
	KindChannelState RecordKind = "channel-state"
	// KindOutages is outages.json.
	KindOutages RecordKind = "outages"
	// KindWatch is watch.json.
	KindWatch RecordKind = "watch"
	// KindSnooze is snooze.json.
	KindSnooze RecordKind = "snooze"
)

// MaxRecordBytes is the per-record-kind file size cap (§4.1 step 2,
// §6 "per-record file size cap").
const MaxRecordBytes = 1 << 20 // 1 MiB
