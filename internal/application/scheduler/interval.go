package scheduler

import (
	"math"
	"math/rand"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
	"github.com/GSejas/health-watch-sub002/internal/domain/watch"
)

// MinIntervalSec and MaxIntervalSec bound every computed interval,
// regardless of strategy (P7, §6 "minimum/maximum probe interval").
const (
	MinIntervalSec = 10.0
	MaxIntervalSec = 3600.0
)

// DefaultCeilingSec is the per-process stable-state cap applied before
// jitter (§4.6 "Stable", §6 knob list has no distinct name for this;
// it is the scheduler's own default ceiling).
const DefaultCeilingSec = 600.0

// watchPriorityDefaults are the priority-based fallback intervals used
// when a WatchSession is active but specifies no override (§4.6
// "Watch").
var watchPriorityDefaults = map[channel.Priority]float64{
	channel.PriorityCritical: 10,
	channel.PriorityHigh:     15,
	channel.PriorityMedium:   30,
	channel.PriorityLow:      60,
}

// reason names identify which strategy produced an interval, stored in
// ChannelState.Adaptive.Reason for diagnostics and SharedStateSnapshot
// publication.
const (
	reasonWatch    = "watch"
	reasonCrisis   = "crisis"
	reasonRecovery = "recovery"
	reasonStable   = "stable"
)

// decision is the pre-jitter outcome of strategy selection.
type decision struct {
	intervalSec float64
	reason      string
}

// computeBase selects the base interval for ch given its live state and
// any active watch overrides, applying the precedence order watch >
// crisis > recovery > stable (§4.6).
func computeBase(ch channel.Channel, state *channel.ChannelState, watched bool, overrides watch.Overrides) decision {
	if watched {
		if overrides.HasInterval() {
			return decision{intervalSec: float64(overrides.IntervalSec), reason: reasonWatch}
		}
		if def, ok := watchPriorityDefaults[ch.Priority]; ok {
			return decision{intervalSec: def, reason: reasonWatch}
		}
		return decision{intervalSec: watchPriorityDefaults[channel.PriorityMedium], reason: reasonWatch}
	}

	baseline := float64(ch.BaselineIntervalSec)
	if baseline <= 0 {
		baseline = MinIntervalSec
	}

	if state == nil {
		return decision{intervalSec: baseline, reason: reasonStable}
	}

	switch state.Current {
	case channel.StateOffline:
		mult := crisisMultiplier(state.ConsecutiveFailures, ch.Priority)
		interval := baseline * mult
		if interval < MinIntervalSec {
			interval = MinIntervalSec
		}
		return decision{intervalSec: interval, reason: reasonCrisis}

	case channel.StateUnknown:
		if state.ConsecutiveFailures >= 1 {
			interval := baseline * 0.5
			if interval < 15 {
				interval = 15
			}
			return decision{intervalSec: interval, reason: reasonRecovery}
		}
		return decision{intervalSec: baseline, reason: reasonStable}

	default: // StateOnline
		interval := baseline
		if interval > DefaultCeilingSec {
			interval = DefaultCeilingSec
		}
		return decision{intervalSec: interval, reason: reasonStable}
	}
}

// crisisMultiplier is f(consecutiveFailures, priority) from §4.6: a
// factor starting below 1.0 that decreases monotonically as the
// failure streak grows, so the effective interval shortens the longer
// a channel stays offline. Critical-priority channels accelerate
// further.
func crisisMultiplier(consecutiveFailures int, priority channel.Priority) float64 {
	if consecutiveFailures < 1 {
		consecutiveFailures = 1
	}
	base := 1.0 / (1.0 + 0.4*float64(consecutiveFailures))
	if priority == channel.PriorityCritical {
		base *= 0.5
	}
	return base
}

// applyJitter multiplies intervalSec by (1 + uniform in
// [-jitterPct/100, +jitterPct/100]) and clamps to [MinIntervalSec,
// MaxIntervalSec] (§4.6, P7).
//
// Params:
//   - intervalSec: the pre-jitter interval.
//   - jitterPct: the channel's effective jitter percentage.
//   - rng: source of uniform randomness in [0,1); nil uses the package
//     default.
//
// Returns:
//   - float64: the jittered, clamped interval in seconds.
func applyJitter(intervalSec float64, jitterPct int, rng func() float64) float64 {
	if rng == nil {
		rng = rand.Float64
	}
	if jitterPct > 0 {
		frac := float64(jitterPct) / 100
		delta := (rng()*2 - 1) * frac
		intervalSec *= 1 + delta
	}
	return clamp(intervalSec, MinIntervalSec, MaxIntervalSec)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
