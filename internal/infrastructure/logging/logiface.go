package logging

import (
	"io"
	"log/slog"

	"github.com/joeycumines/logiface"
	islog "github.com/joeycumines/logiface-slog"
)

// Event is the concrete event type this build's structured logger
// produces; callers type their Logger as *logiface.Logger[*Event].
type Event = islog.Event

// New constructs the structured logger used across the daemon,
// wrapping a slog.JSONHandler so every component emits the same
// machine-parseable line format regardless of which package it lives
// in (§"Logging" in SPEC_FULL.md).
//
// Params:
//   - w: destination for JSON log lines.
//   - level: the minimum logiface level that reaches w.
//
// Returns:
//   - *logiface.Logger[*Event]: ready for Info()/Debug()/Err()/... calls.
func New(w io.Writer, level logiface.Level) *logiface.Logger[*Event] {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return logiface.New[*Event](islog.NewLogger(handler), logiface.WithLevel[*Event](level))
}

// DispatchFields are the structured fields attached to a per-channel
// dispatch log line (SPEC_FULL.md "Per-channel dispatch metrics").
type DispatchFields struct {
	ChannelID string
	Success   bool
	LatencyMs int64
	Err       string
}

// LogDispatch emits a Debug-level record for one probe dispatch, one
// of which is produced per channel per tick so an external log
// pipeline can reconstruct dispatch history without the sample ring.
//
// Params:
//   - logger: the structured logger to write through.
//   - f: the dispatch outcome to record.
func LogDispatch(logger *logiface.Logger[*Event], f DispatchFields) {
	b := logger.Debug().Str("channelId", f.ChannelID).Bool("success", f.Success)
	if f.LatencyMs > 0 {
		b = b.Int64("latencyMs", f.LatencyMs)
	}
	if f.Err != "" {
		b = b.Str("error", f.Err)
	}
	b.Log("probe dispatched")
}
