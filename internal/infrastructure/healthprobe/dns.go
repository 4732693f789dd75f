package healthprobe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/application/dispatcher"
)

// DNS returns the "dns" probe operation: resolves params["host"] and
// treats at least one returned address as success.
//
// Params (channel.Channel.Params):
//   - host: the hostname to resolve (required).
//
// Returns:
//   - dispatcher.Operation: the registered implementation for
//     channel.KindDNS.
func DNS() dispatcher.Operation {
	var resolver net.Resolver
	return func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		host := params["host"]
		if host == "" {
			return dispatcher.Outcome{Error: "dns probe missing \"host\" param"}
		}

		started := time.Now()
		addrs, err := resolver.LookupHost(ctx, host)
		latency := time.Since(started).Milliseconds()
		if err != nil {
			return dispatcher.Outcome{Error: fmt.Sprintf("resolving %s: %v", host, err)}
		}
		if len(addrs) == 0 {
			return dispatcher.Outcome{LatencyMs: latency, HasLatency: true, Error: fmt.Sprintf("no addresses for %s", host)}
		}

		return dispatcher.Outcome{
			Success:    true,
			LatencyMs:  latency,
			HasLatency: true,
			Details:    map[string]string{"address": addrs[0]},
		}
	}
}
