package coordination

import "time"

// ChannelView is the condensed per-channel state the leader publishes
// for followers to mirror (§3, SharedStateSnapshot).
type ChannelView struct {
	// State is the channel's current state, as a string (channel.State).
	State string
	// LastSampleSuccess mirrors the last sample's success flag.
	LastSampleSuccess bool
	// LastSampleTimestampMs is the last sample's timestamp.
	LastSampleTimestampMs int64
	// LastStateChangeMs is when the channel's state last changed.
	LastStateChangeMs int64
}

// Aggregate carries workspace-wide metadata alongside the per-channel
// views.
type Aggregate struct {
	// ActiveProbeCount is the number of channels currently scheduled.
	ActiveProbeCount int
	// LastProbeTimeMs is the most recent probe completion observed by
	// the leader.
	LastProbeTimeMs int64
}

// Snapshot is the leader's periodic publication of channel states for
// followers (§3). Versions from a single publisher strictly increase
// (P5).
type Snapshot struct {
	// Channels maps channel id to its condensed view.
	Channels map[string]ChannelView
	// PublishedAtMs is when this snapshot was produced.
	PublishedAtMs int64
	// Version strictly increases per publisher identity.
	Version uint64
	// Publisher identifies which leader produced this snapshot.
	Publisher string
	// Meta carries optional aggregate metadata.
	Meta Aggregate
}

// NewSnapshot returns an empty snapshot stamped with version 1 for a
// freshly-elected publisher, matching S3's "version resetting to 1
// under B's publisher identity".
//
// Params:
//   - publisher: the new leader's identity string.
//   - now: the publication instant.
//
// Returns:
//   - Snapshot: an initial, empty snapshot.
func NewSnapshot(publisher string, now time.Time) Snapshot {
	return Snapshot{
		Channels:      make(map[string]ChannelView),
		PublishedAtMs: now.UnixMilli(),
		Version:       1,
		Publisher:     publisher,
	}
}

// Next returns a copy of s advanced to the next version, stamped at
// now, for the same publisher (P5: strictly increasing per publisher).
//
// Params:
//   - now: the publication instant.
//
// Returns:
//   - Snapshot: the next version of this snapshot.
func (s Snapshot) Next(now time.Time) Snapshot {
	next := s
	next.Channels = make(map[string]ChannelView, len(s.Channels))
	for k, v := range s.Channels {
		next.Channels[k] = v
	}
	next.Version = s.Version + 1
	next.PublishedAtMs = now.UnixMilli()
	return next
}
