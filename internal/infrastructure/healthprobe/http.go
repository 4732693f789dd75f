package healthprobe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/application/dispatcher"
)

// HTTP returns the "http-like" probe operation: a GET request against
// params["url"], treating any 2xx/3xx response as success.
//
// Params (channel.Channel.Params):
//   - url: the endpoint to request (required).
//   - method: HTTP method, default GET.
//
// Returns:
//   - dispatcher.Operation: the registered implementation for
//     channel.KindHTTP.
func HTTP() dispatcher.Operation {
	client := &http.Client{}
	return func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		url := params["url"]
		if url == "" {
			return dispatcher.Outcome{Error: "http-like probe missing \"url\" param"}
		}
		method := params["method"]
		if method == "" {
			method = http.MethodGet
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return dispatcher.Outcome{Error: fmt.Sprintf("building request: %v", err)}
		}

		started := time.Now()
		resp, err := client.Do(req)
		latency := time.Since(started).Milliseconds()
		if err != nil {
			return dispatcher.Outcome{Error: err.Error()}
		}
		defer resp.Body.Close()

		success := resp.StatusCode < 400
		outcome := dispatcher.Outcome{
			Success:    success,
			LatencyMs:  latency,
			HasLatency: true,
			Details:    map[string]string{"status": resp.Status},
		}
		if !success {
			outcome.Error = fmt.Sprintf("unexpected status %s", resp.Status)
		}
		return outcome
	}
}
