package healthprobe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/application/dispatcher"
)

// TCP returns the "tcp" probe operation: dials params["address"]
// (host:port) and treats a successful connection as success.
//
// Params (channel.Channel.Params):
//   - address: host:port to dial (required).
//
// Returns:
//   - dispatcher.Operation: the registered implementation for
//     channel.KindTCP.
func TCP() dispatcher.Operation {
	var dialer net.Dialer
	return func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		addr := params["address"]
		if addr == "" {
			return dispatcher.Outcome{Error: "tcp probe missing \"address\" param"}
		}

		started := time.Now()
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		latency := time.Since(started).Milliseconds()
		if err != nil {
			return dispatcher.Outcome{Error: fmt.Sprintf("dial %s: %v", addr, err)}
		}
		conn.Close()

		return dispatcher.Outcome{Success: true, LatencyMs: latency, HasLatency: true}
	}
}
