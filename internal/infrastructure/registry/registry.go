// Package registry provides an in-memory, indexed view over live
// ChannelState records, backed by hashicorp/go-memdb so callers can
// query by channel id, current state, or priority without the
// ChannelStateMachine's own locking getting in the way of snapshot
// building and scheduler priority queries.
package registry

import (
	"github.com/hashicorp/go-memdb"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
)

const tableChannelState = "channel_state"

// record is the memdb row, pairing a ChannelState snapshot with the
// owning channel's priority so "by priority" queries don't need to
// join back against configuration.
type record struct {
	ChannelID string
	Priority  string
	State     *channel.ChannelState
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableChannelState: {
				Name: tableChannelState,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ChannelID"},
					},
					"state": {
						Name:    "state",
						Indexer: &memdb.StringFieldIndex{Field: "State.Current"},
					},
					"priority": {
						Name:    "priority",
						Indexer: &memdb.StringFieldIndex{Field: "Priority"},
					},
				},
			},
		},
	}
}

// Registry is an indexed, concurrency-safe view over ChannelState
// records. It is a read cache: the ChannelStateMachine remains the
// sole writer of truth, and the engine calls Upsert after every Apply.
type Registry struct {
	db *memdb.MemDB
}

// New constructs an empty Registry.
//
// Returns:
//   - *Registry: ready to use.
//   - error: non-nil if the schema failed validation (never expected
//     with the fixed schema above, but memdb's constructor returns
//     one).
func New() (*Registry, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, err
	}
	return &Registry{db: db}, nil
}

// Upsert inserts or replaces the record for state.ChannelID.
//
// Params:
//   - priority: the owning channel's configured priority, for the
//     priority index.
//   - state: the channel's current live state.
//
// Returns:
//   - error: propagated from the underlying transaction.
func (r *Registry) Upsert(priority channel.Priority, state *channel.ChannelState) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tableChannelState, &record{
		ChannelID: state.ChannelID,
		Priority:  string(priority),
		State:     state,
	}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Delete removes the record for channelID, if present.
//
// Params:
//   - channelID: the channel to remove, typically on configuration
//     reload dropping a channel.
//
// Returns:
//   - error: propagated from the underlying transaction.
func (r *Registry) Delete(channelID string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableChannelState, "id", channelID)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if err := txn.Delete(tableChannelState, raw); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Get returns the state for channelID.
//
// Params:
//   - channelID: the channel to look up.
//
// Returns:
//   - *channel.ChannelState: nil if not present.
//   - error: propagated from the underlying transaction.
func (r *Registry) Get(channelID string) (*channel.ChannelState, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableChannelState, "id", channelID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*record).State, nil
}

// ByState returns every channel currently in the given state.
//
// Params:
//   - state: the state to filter by.
//
// Returns:
//   - []*channel.ChannelState: may be empty.
//   - error: propagated from the underlying transaction.
func (r *Registry) ByState(state channel.State) ([]*channel.ChannelState, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableChannelState, "state", string(state))
	if err != nil {
		return nil, err
	}
	var out []*channel.ChannelState
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*record).State)
	}
	return out, nil
}

// ByPriority returns every channel at the given priority tier.
//
// Params:
//   - priority: the priority to filter by.
//
// Returns:
//   - []*channel.ChannelState: may be empty.
//   - error: propagated from the underlying transaction.
func (r *Registry) ByPriority(priority channel.Priority) ([]*channel.ChannelState, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableChannelState, "priority", string(priority))
	if err != nil {
		return nil, err
	}
	var out []*channel.ChannelState
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*record).State)
	}
	return out, nil
}

// All returns every tracked channel state, in no particular order.
//
// Returns:
//   - []*channel.ChannelState: may be empty.
//   - error: propagated from the underlying transaction.
func (r *Registry) All() ([]*channel.ChannelState, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableChannelState, "id")
	if err != nil {
		return nil, err
	}
	var out []*channel.ChannelState
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*record).State)
	}
	return out, nil
}
