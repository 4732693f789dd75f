package channel

import "errors"

// ErrInvalidThreshold indicates a channel's threshold is not positive
// (B2: threshold=0 is rejected at configuration load).
var ErrInvalidThreshold = errors.New("channel threshold must be >= 1")

// ErrDuplicateChannelID indicates two channels share the same id.
var ErrDuplicateChannelID = errors.New("duplicate channel id")

// ErrUnknownProbeKind indicates a channel names a probe kind with no
// registered operation (§6: "unknown kinds are rejected at configuration
// load").
var ErrUnknownProbeKind = errors.New("unknown probe kind")

// errInvariantP1 indicates a success sample left the state machine in a
// non-online state.
var errInvariantP1 = errors.New("invariant violation: last successful sample but state is not online")

// errInvariantP2 indicates an offline state without enough consecutive
// failures to justify it.
var errInvariantP2 = errors.New("invariant violation: offline state with consecutiveFailures below threshold")

// errInvariantP3 indicates a stored outage reference that is not
// actually open.
var errInvariantP3 = errors.New("invariant violation: outage reference is not open")

// errInvariantOutageStart indicates an open outage whose start time is
// after the last applied sample.
var errInvariantOutageStart = errors.New("invariant violation: outage start time is after last sample")
