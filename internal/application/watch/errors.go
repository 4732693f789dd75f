// Package watch implements the WatchManager application service: it
// starts, stops, and resolves transient intensified-monitoring
// sessions (§4.7).
package watch

import "errors"

// ErrAlreadyActive is returned by StartChannel when a per-channel
// session already covers the requested channel.
var ErrAlreadyActive = errors.New("watch: session already active for channel")

// ErrNotFound is returned by Stop when scopeKey has no active session.
var ErrNotFound = errors.New("watch: no active session for scope")
