// Package coordination implements the on-disk leader-lock and
// shared-state primitives the Coordinator application service depends
// on (§4.1, §4.2).
package coordination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	domainstore "github.com/GSejas/health-watch-sub002/internal/domain/store"
)

// LockFile implements coordinator.LockStore directly against
// leader.lock, using exclusive file creation for uncontested
// acquisition and a read-compare-rewrite cycle for heartbeat/reclaim,
// which the coalescing AtomicStore write queue cannot express (§4.2).
type LockFile struct {
	path string
}

// NewLockFile returns a LockFile rooted at dir/leader.lock.
//
// Params:
//   - dir: the workspace directory.
//
// Returns:
//   - *LockFile: ready to use.
func NewLockFile(dir string) *LockFile {
	return &LockFile{path: filepath.Join(dir, "leader.lock")}
}

// TryCreate implements coordinator.LockStore.
func (l *LockFile) TryCreate(_ context.Context, lock coordination.Lock) (coordination.Lock, bool, error) {
	data, err := marshalLock(lock)
	if err != nil {
		return coordination.Lock{}, false, err
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		defer f.Close()
		if _, werr := f.Write(data); werr != nil {
			os.Remove(l.path)
			return coordination.Lock{}, false, werr
		}
		_ = f.Sync()
		return coordination.Lock{}, true, nil
	}

	if !errors.Is(err, os.ErrExist) {
		return coordination.Lock{}, false, err
	}

	existing, found, rerr := l.Read(context.Background())
	if rerr != nil {
		return coordination.Lock{}, false, rerr
	}
	if !found {
		// raced with a concurrent delete; caller should retry
		return coordination.Lock{}, false, fmt.Errorf("coordination: lock file vanished during read")
	}
	return existing, false, nil
}

// Read implements coordinator.LockStore.
func (l *LockFile) Read(_ context.Context) (coordination.Lock, bool, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return coordination.Lock{}, false, nil
		}
		return coordination.Lock{}, false, err
	}
	lock, ok := unmarshalLock(data)
	if !ok {
		return coordination.Lock{}, false, nil
	}
	return lock, true, nil
}

// Heartbeat implements coordinator.LockStore: it rewrites the file only
// if the on-disk holder still matches lock.Holder (§4.2 "Heartbeat").
func (l *LockFile) Heartbeat(ctx context.Context, lock coordination.Lock) (bool, error) {
	current, found, err := l.Read(ctx)
	if err != nil {
		return false, err
	}
	if !found || current.Holder.String() != lock.Holder.String() {
		return false, nil
	}
	return l.rewrite(lock)
}

// Reclaim implements coordinator.LockStore: it replaces a known-stale
// lock with next, provided the on-disk content still matches stale
// (§4.2 "if stale, delete and retry").
func (l *LockFile) Reclaim(ctx context.Context, stale coordination.Lock, next coordination.Lock) (bool, error) {
	current, found, err := l.Read(ctx)
	if err != nil {
		return false, err
	}
	if !found || current.Holder.String() != stale.Holder.String() || !current.AcquiredAt.Equal(stale.AcquiredAt) {
		return false, nil
	}
	return l.rewrite(next)
}

// Release implements coordinator.LockStore.
func (l *LockFile) Release(ctx context.Context, holder coordination.Identity) error {
	current, found, err := l.Read(ctx)
	if err != nil {
		return err
	}
	if !found || current.Holder.String() != holder.String() {
		return nil
	}
	return os.Remove(l.path)
}

func (l *LockFile) rewrite(lock coordination.Lock) (bool, error) {
	data, err := marshalLock(lock)
	if err != nil {
		return false, err
	}
	tmp := fmt.Sprintf("%s.tmp.%d.%d", l.path, os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return false, err
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return false, err
	}
	return true, nil
}

func marshalLock(lock coordination.Lock) ([]byte, error) {
	env := domainstore.Envelope{
		SchemaVersion: domainstore.CurrentSchemaVersion,
		WrittenAtMs:   time.Now().UnixMilli(),
		Payload:       lock,
	}
	return json.MarshalIndent(env, "", "  ")
}

func unmarshalLock(data []byte) (coordination.Lock, bool) {
	var env struct {
		SchemaVersion int             `json:"schemaVersion"`
		Payload       coordination.Lock `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return coordination.Lock{}, false
	}
	if env.SchemaVersion > domainstore.CurrentSchemaVersion {
		return coordination.Lock{}, false
	}
	return env.Payload, true
}
