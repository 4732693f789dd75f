// Package healthprobe provides the probe-kind registry and built-in
// probe operations referenced by §6's "Probe operation interface". The
// wire transports themselves (HTTP/TCP/DNS/script) are thin adapters
// the spec explicitly keeps out of the hard engineering scope; this
// package exists so configuration loading has a concrete set of known
// kinds to validate against, and so the daemon is runnable end to end
// without a host supplying its own operations.
package healthprobe

import "github.com/GSejas/health-watch-sub002/internal/domain/channel"

// KnownKinds is the set of probe kinds the daemon ships an operation
// for. Configuration loading rejects channels naming any other kind
// (§6 "unknown kinds are rejected at configuration load").
//
// Returns:
//   - map[channel.Kind]struct{}: the known-kind set.
func KnownKinds() map[channel.Kind]struct{} {
	return map[channel.Kind]struct{}{
		channel.KindHTTP:   {},
		channel.KindTCP:    {},
		channel.KindDNS:    {},
		channel.KindScript: {},
		channel.KindTask:   {},
	}
}

// IsKnown reports whether kind has a registered built-in operation.
//
// Params:
//   - kind: the probe kind to check.
//
// Returns:
//   - bool: true if kind is in KnownKinds.
func IsKnown(kind channel.Kind) bool {
	_, ok := KnownKinds()[kind]
	return ok
}
