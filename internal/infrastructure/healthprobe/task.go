package healthprobe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/application/dispatcher"
)

// TaskFunc is an in-process health check function registered under a
// name and referenced by a channel's params["name"].
type TaskFunc func(ctx context.Context) error

// TaskRegistry holds named in-process TaskFuncs for the "task" probe
// kind, which has no external transport to adapt.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

// NewTaskRegistry returns an empty TaskRegistry.
//
// Returns:
//   - *TaskRegistry: ready to use.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]TaskFunc)}
}

// Register installs fn under name.
//
// Params:
//   - name: the key channels reference via params["name"].
//   - fn: the check to run.
func (r *TaskRegistry) Register(name string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = fn
}

// Operation returns the "task" probe operation bound to this registry.
//
// Returns:
//   - dispatcher.Operation: the registered implementation for
//     channel.KindTask.
func (r *TaskRegistry) Operation() dispatcher.Operation {
	return func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		name := params["name"]
		if name == "" {
			return dispatcher.Outcome{Error: "task probe missing \"name\" param"}
		}

		r.mu.RLock()
		fn, ok := r.tasks[name]
		r.mu.RUnlock()
		if !ok {
			return dispatcher.Outcome{Error: fmt.Sprintf("no task registered under name %q", name)}
		}

		started := time.Now()
		err := fn(ctx)
		latency := time.Since(started).Milliseconds()
		if err != nil {
			return dispatcher.Outcome{LatencyMs: latency, HasLatency: true, Error: err.Error()}
		}
		return dispatcher.Outcome{Success: true, LatencyMs: latency, HasLatency: true}
	}
}
