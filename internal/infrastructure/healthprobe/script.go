package healthprobe

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/application/dispatcher"
)

// Script returns the "script" probe operation: runs
// params["command"] (with params["args"] space-separated, if present)
// and treats a zero exit status as success.
//
// Params (channel.Channel.Params):
//   - command: the executable to run (required).
//   - args: optional space-separated arguments.
//
// Returns:
//   - dispatcher.Operation: the registered implementation for
//     channel.KindScript.
func Script() dispatcher.Operation {
	return func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		command := params["command"]
		if command == "" {
			return dispatcher.Outcome{Error: "script probe missing \"command\" param"}
		}

		cmd := exec.CommandContext(ctx, command, splitArgs(params["args"])...)
		started := time.Now()
		err := cmd.Run()
		latency := time.Since(started).Milliseconds()
		if err != nil {
			return dispatcher.Outcome{LatencyMs: latency, HasLatency: true, Error: fmt.Sprintf("script exited: %v", err)}
		}

		return dispatcher.Outcome{Success: true, LatencyMs: latency, HasLatency: true}
	}
}

func splitArgs(raw string) []string {
	if raw == "" {
		return nil
	}
	var args []string
	start := -1
	for i, r := range raw {
		if r == ' ' {
			if start >= 0 {
				args = append(args, raw[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		args = append(args, raw[start:])
	}
	return args
}
