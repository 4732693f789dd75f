// Package ratelimit guards the runChannelNow command (§6) against a
// host bug or user mashing the command from starving the probe worker
// pool, per channel.
package ratelimit

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// DefaultWindow and DefaultMax bound runChannelNow to one immediate
// probe per channel every 5 seconds, well under the minimum scheduled
// interval (§6 "minimum probe interval (10 s)") so the command stays
// useful without being able to flood the dispatcher.
const (
	DefaultWindow = 5 * time.Second
	DefaultMax    = 1
)

// RunChannelNowLimiter rate-limits the guard-bypassing immediate-probe
// command on a per-channel basis.
type RunChannelNowLimiter struct {
	limiter *catrate.Limiter
}

// NewRunChannelNowLimiter constructs a limiter allowing at most max
// calls per channel within window.
//
// Params:
//   - window: the sliding window duration.
//   - max: the maximum calls allowed within window; falls back to
//     DefaultMax if not positive.
//
// Returns:
//   - *RunChannelNowLimiter: ready to use.
func NewRunChannelNowLimiter(window time.Duration, max int) *RunChannelNowLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &RunChannelNowLimiter{
		limiter: catrate.NewLimiter(map[time.Duration]int{window: max}),
	}
}

// Allow reports whether an immediate probe for channelID may run now.
//
// Params:
//   - channelID: the channel the host requested an immediate probe
//     for.
//
// Returns:
//   - time.Time: when the next call for this channel will be allowed;
//     zero value if unrestricted right now.
//   - bool: true if the call is allowed and has been recorded.
func (r *RunChannelNowLimiter) Allow(channelID string) (time.Time, bool) {
	return r.limiter.Allow(channelID)
}
