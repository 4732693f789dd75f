// Package channel provides domain types for monitored endpoints, their
// probe outcomes, live state, and outage history.
package channel

// Kind identifies which probe operation a Channel uses.
type Kind string

const (
	// KindHTTP probes an HTTP(S)-like endpoint.
	KindHTTP Kind = "http-like"
	// KindTCP probes raw TCP connectivity.
	KindTCP Kind = "tcp"
	// KindDNS probes DNS resolution.
	KindDNS Kind = "dns"
	// KindScript runs an external script and inspects its exit status.
	KindScript Kind = "script"
	// KindTask runs an in-process task function.
	KindTask Kind = "task"
)

// Priority expresses how aggressively a Channel should be monitored.
// Higher priority channels get shorter watch/crisis intervals (§4.6).
type Priority string

const (
	// PriorityLow is the least aggressive monitoring tier.
	PriorityLow Priority = "low"
	// PriorityMedium is the default monitoring tier.
	PriorityMedium Priority = "medium"
	// PriorityHigh is monitored more aggressively than medium.
	PriorityHigh Priority = "high"
	// PriorityCritical is monitored the most aggressively.
	PriorityCritical Priority = "critical"
)

// Default attribute values, applied when a Channel omits the field.
const (
	// DefaultThreshold is the default consecutive-failure count for the
	// online->offline transition.
	DefaultThreshold int = 3
	// DefaultJitterPct is the default jitter percentage applied to
	// computed probe intervals.
	DefaultJitterPct int = 10
)

// Channel is a declared monitoring target. It is owned by the
// configuration loader and only mutated on configuration reload; the
// scheduler and other components reference it, never own it.
type Channel struct {
	// ID is the stable identifier, unique per workspace.
	ID string
	// Name is the human-readable display name.
	Name string
	// Kind selects which probe operation runs for this channel.
	Kind Kind
	// Params holds kind-specific probe parameters (e.g. URL, host:port).
	Params map[string]string
	// BaselineIntervalSec is the steady-state probe cadence in seconds.
	BaselineIntervalSec int
	// TimeoutMs is the per-channel probe timeout in milliseconds.
	TimeoutMs int
	// Threshold is the number of consecutive failures required before the
	// channel transitions to offline. Must be >= 1 (B2).
	Threshold int
	// JitterPct is the jitter percentage applied to computed intervals.
	JitterPct int
	// Enabled controls whether the scheduler probes this channel at all.
	Enabled bool
	// Priority influences watch defaults and crisis acceleration.
	Priority Priority
	// Guards names prerequisite guards that must pass before a probe runs.
	Guards []string
	// Hidden marks the channel as excluded from default visibility views.
	// This is a hint consumed by the (out of scope) host UI.
	Hidden bool
}

// EffectiveThreshold returns Threshold, normalized to DefaultThreshold
// when unset. Configuration loading should already reject Threshold==0
// (B2); this guards callers constructing a Channel outside that path
// (e.g. tests).
//
// Returns:
//   - int: the threshold to use for offline transitions.
func (c Channel) EffectiveThreshold() int {
	// a zero threshold is invalid per B2; fall back to the documented default
	if c.Threshold <= 0 {
		return DefaultThreshold
	}
	return c.Threshold
}

// EffectiveJitterPct returns JitterPct, normalized to DefaultJitterPct
// when unset.
//
// Returns:
//   - int: the jitter percentage to use.
func (c Channel) EffectiveJitterPct() int {
	if c.JitterPct <= 0 {
		return DefaultJitterPct
	}
	return c.JitterPct
}
