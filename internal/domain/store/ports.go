package store

import (
	"context"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
	"github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	"github.com/GSejas/health-watch-sub002/internal/domain/snooze"
	"github.com/GSejas/health-watch-sub002/internal/domain/watch"
)

// Snapshot is the full set of persisted records returned by loadAll
// (§4.1).
type Snapshot struct {
	// States maps channel id to its last persisted ChannelState.
	States map[string]*channel.ChannelState
	// Samples maps channel id to its persisted sample ring, oldest first.
	Samples map[string][]channel.Sample
	// Outages holds both open and recently-closed outages.
	Outages []channel.Outage
	// Watches holds active and recent watch sessions.
	Watches []watch.Session
	// Snoozes holds the persisted snooze set.
	Snoozes []snooze.Snooze
	// SharedState is the leader's last published snapshot, if any.
	SharedState *coordination.Snapshot
	// Lock is the last observed leader lock, if any.
	Lock *coordination.Lock
}

// CompletionHandle is returned by write operations so callers that
// depend on durability can await it, while fire-and-forget callers may
// drop it (§9, "Fire-and-forget persistence").
type CompletionHandle interface {
	// Wait blocks until the write this handle represents has either
	// landed on disk or failed permanently.
	Wait(ctx context.Context) error
}

// Store is the AtomicStore port: durable, crash-safe persistence with
// write-or-nothing visibility (§4.1).
type Store interface {
	// LoadAll reads every persisted record kind, applying best-effort
	// recovery to corrupt files (§4.1).
	LoadAll(ctx context.Context) (Snapshot, error)
	// WriteRecord upserts a typed record, keyed by kind and, for
	// per-channel kinds, channel id.
	WriteRecord(kind RecordKind, channelID string, payload interface{}) CompletionHandle
	// AppendSample appends one sample to a channel's bounded ring,
	// dropping the oldest entry on overflow (B4).
	AppendSample(channelID string, sample channel.Sample) CompletionHandle
	// Flush blocks until every queued write is durable on disk.
	Flush(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}
