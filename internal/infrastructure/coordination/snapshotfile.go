package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	domainstore "github.com/GSejas/health-watch-sub002/internal/domain/store"
)

// SnapshotFile implements coordinator.SnapshotStore against
// shared-state.json, with change notification via fsnotify so
// followers can observe pushes instead of polling blind (§9
// "File-watching for state sync").
type SnapshotFile struct {
	dir  string
	path string
}

// NewSnapshotFile returns a SnapshotFile rooted at dir/shared-state.json.
//
// Params:
//   - dir: the workspace directory.
//
// Returns:
//   - *SnapshotFile: ready to use.
func NewSnapshotFile(dir string) *SnapshotFile {
	return &SnapshotFile{dir: dir, path: filepath.Join(dir, "shared-state.json")}
}

// Publish implements coordinator.SnapshotStore using the same
// temp-write-then-rename sequence as the AtomicStore, since the
// snapshot is a single small file with no benefit from batching.
func (f *SnapshotFile) Publish(_ context.Context, snap coordination.Snapshot) error {
	env := domainstore.Envelope{
		SchemaVersion: domainstore.CurrentSchemaVersion,
		WrittenAtMs:   time.Now().UnixMilli(),
		Payload:       snap,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d.%d", f.path, os.Getpid(), time.Now().UnixNano())
	fh, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		os.Remove(tmp)
		return err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		os.Remove(tmp)
		return err
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Read implements coordinator.SnapshotStore.
func (f *SnapshotFile) Read(_ context.Context) (coordination.Snapshot, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return coordination.Snapshot{}, false, nil
		}
		return coordination.Snapshot{}, false, err
	}

	var env struct {
		SchemaVersion int                   `json:"schemaVersion"`
		Payload       coordination.Snapshot `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		// a reader racing a concurrent writer's rename can observe a
		// torn read only if the writer skipped fsync; treat as absent
		// rather than surfacing a decode error to the follower loop.
		return coordination.Snapshot{}, false, nil
	}
	if env.SchemaVersion > domainstore.CurrentSchemaVersion {
		return coordination.Snapshot{}, false, nil
	}
	return env.Payload, true, nil
}

// Watch implements coordinator.SnapshotStore using the
// fsnotify.NewWatcher/Add/Events pattern on the workspace directory.
// The returned channel is closed when ctx is cancelled; a failed
// watcher setup returns a nil channel so the caller falls back to
// polling.
//
// Params:
//   - ctx: bounds the watcher's lifetime.
//
// Returns:
//   - <-chan struct{}: fires once per observed write/create/rename of
//     the snapshot file; nil if the watcher could not be set up.
//   - error: non-nil if the watcher could not be created or the watch
//     directory could not be added.
func (f *SnapshotFile) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != f.path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
					// a pending notification already covers this one
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
