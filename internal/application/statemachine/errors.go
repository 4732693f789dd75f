// Package statemachine applies probe samples to per-channel state,
// producing state transitions and outage lifecycle updates (§4.5).
package statemachine

import "errors"

// ErrChannelNotFound indicates an operation referenced a channel id the
// machine has no state for.
var ErrChannelNotFound = errors.New("statemachine: channel not found")
