// Package store implements the AtomicStore: crash-safe, versioned JSON
// persistence under a workspace directory, with temp-file+rename
// writes and per-target write coalescing (§4.1).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/joeycumines/go-microbatch"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
	"github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	"github.com/GSejas/health-watch-sub002/internal/domain/snooze"
	domainstore "github.com/GSejas/health-watch-sub002/internal/domain/store"
	"github.com/GSejas/health-watch-sub002/internal/domain/watch"
)

// retryAttempts is the bounded retry count for transient write
// failures (§4.1 "Failure semantics").
const retryAttempts = 3

// writeJob is one queued write, batched and coalesced by target file.
type writeJob struct {
	target  string
	encode  func() ([]byte, error)
	trim    func() ([]byte, error) // re-encode after trimming, used on size-cap overflow
	handle  *completionHandle
}

type completionHandle struct {
	done chan struct{}
	err  error
}

func newCompletionHandle() *completionHandle {
	return &completionHandle{done: make(chan struct{})}
}

// Wait implements domainstore.CompletionHandle.
func (h *completionHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *completionHandle) finish(err error) {
	h.err = err
	close(h.done)
}

// Store is the filesystem-backed AtomicStore.
type Store struct {
	dir     string
	batcher *microbatch.Batcher[*writeJob]

	mu      sync.Mutex
	samples map[string][]channel.Sample
	healthListener func(healthy bool, err error)
}

// New constructs a Store rooted at dir, creating it (and a channels/
// subdirectory) if necessary.
//
// Params:
//   - dir: the workspace-local directory housing all record files.
//
// Returns:
//   - *Store: a ready-to-use store.
//   - error: if dir could not be created.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "channels"), 0o755); err != nil {
		return nil, fmt.Errorf("store: create workspace dir: %w", err)
	}

	s := &Store{
		dir:     dir,
		samples: make(map[string][]channel.Sample),
	}
	s.batcher = microbatch.NewBatcher[*writeJob](&microbatch.BatcherConfig{
		MaxSize:       64,
		FlushInterval: 25 * time.Millisecond,
	}, s.processBatch)
	return s, nil
}

// OnHealthChange registers a callback invoked after every processed
// write batch, for publishing store-health events (§4.1 "Failure
// semantics"). It is called per batch, not only when health changes.
//
// Params:
//   - fn: called with healthy=false and the error for each failed write
//     in a batch, or once with healthy=true when no write in the batch
//     failed.
func (s *Store) OnHealthChange(fn func(healthy bool, err error)) {
	s.healthListener = fn
}

// processBatch is the microbatch.BatchProcessor: it collapses queued
// jobs per target to the latest, then performs the atomic write for
// each distinct target (§4.1 "Write queue").
func (s *Store) processBatch(ctx context.Context, jobs []*writeJob) error {
	latest := make(map[string]*writeJob, len(jobs))
	order := make([]string, 0, len(jobs))
	for _, j := range jobs {
		if _, seen := latest[j.target]; !seen {
			order = append(order, j.target)
		}
		latest[j.target] = j
	}
	sort.Strings(order) // deterministic write order, not semantically required

	failed := false
	for _, target := range order {
		j := latest[target]
		if isFlushMarker(target) {
			// a Flush marker: nothing to write, just unblock the waiter
			j.handle.finish(nil)
			continue
		}
		err := s.writeAtomic(j.target, j.encode, j.trim)
		j.handle.finish(err)
		if err != nil {
			failed = true
			s.reportHealth(false, err)
		}
	}
	if !failed {
		s.reportHealth(true, nil)
	}
	return nil
}

func (s *Store) reportHealth(healthy bool, err error) {
	if s.healthListener != nil {
		s.healthListener(healthy, err)
	}
}

// writeAtomic performs the temp-file+fsync+rename algorithm (§4.1
// "Algorithm — atomic write"), retrying transient failures with
// bounded backoff.
func (s *Store) writeAtomic(target string, encode func() ([]byte, error), trim func() ([]byte, error)) error {
	data, err := encode()
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", target, err)
	}

	if len(data) > domainstore.MaxRecordBytes && trim != nil {
		data, err = trim()
		if err != nil {
			return fmt.Errorf("store: trim %s: %w", target, err)
		}
		if len(data) > domainstore.MaxRecordBytes {
			return fmt.Errorf("store: %s exceeds %d bytes even after trimming", target, domainstore.MaxRecordBytes)
		}
	}

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff(attempt))
		}
		if lastErr = s.writeOnce(target, data); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("store: write %s failed after %d attempts: %w", target, retryAttempts, lastErr)
}

func backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 50 * time.Millisecond
}

func (s *Store) writeOnce(target string, data []byte) error {
	dir := filepath.Dir(target)
	tmp := fmt.Sprintf("%s.tmp.%d.%d", target, os.Getpid(), time.Now().UnixNano())

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	// best-effort parent directory fsync (§4.1 step 6)
	if df, err := os.Open(dir); err == nil {
		_ = df.Sync()
		_ = df.Close()
	}
	return nil
}

// enqueue submits a write job and returns its completion handle.
func (s *Store) enqueue(j *writeJob) domainstore.CompletionHandle {
	j.handle = newCompletionHandle()
	result, err := s.batcher.Submit(context.Background(), j)
	if err != nil {
		j.handle.finish(err)
		return j.handle
	}
	go func() {
		_ = result.Wait(context.Background())
	}()
	return j.handle
}

func envelope(payload interface{}) ([]byte, error) {
	env := domainstore.Envelope{
		SchemaVersion: domainstore.CurrentSchemaVersion,
		WrittenAtMs:   time.Now().UnixMilli(),
		Payload:       payload,
	}
	return json.MarshalIndent(env, "", "  ")
}

// WriteRecord implements domainstore.Store.
func (s *Store) WriteRecord(kind domainstore.RecordKind, channelID string, payload interface{}) domainstore.CompletionHandle {
	target := s.pathFor(kind, channelID)
	return s.enqueue(&writeJob{
		target: target,
		encode: func() ([]byte, error) { return envelope(payload) },
	})
}

// AppendSample implements domainstore.Store: it maintains an in-memory
// bounded ring per channel and persists the whole ring on each append,
// trimming to the newest MaxSamplesPerChannel on overflow (B4).
func (s *Store) AppendSample(channelID string, sample channel.Sample) domainstore.CompletionHandle {
	s.mu.Lock()
	ring := append(s.samples[channelID], sample)
	if len(ring) > channel.MaxSamplesPerChannel {
		ring = ring[len(ring)-channel.MaxSamplesPerChannel:]
	}
	s.samples[channelID] = ring
	snapshot := make([]channel.Sample, len(ring))
	copy(snapshot, ring)
	s.mu.Unlock()

	target := s.pathFor(domainstore.KindChannelSamples, channelID)
	return s.enqueue(&writeJob{
		target: target,
		encode: func() ([]byte, error) { return envelope(snapshot) },
		trim: func() ([]byte, error) {
			trimmed := snapshot
			if len(trimmed) > 1 {
				trimmed = trimmed[len(trimmed)/2:]
			}
			return envelope(trimmed)
		},
	})
}

// Flush implements domainstore.Store by enqueuing a unique marker job
// and waiting for the batch containing it to run, draining everything
// queued ahead of it.
func (s *Store) Flush(ctx context.Context) error {
	j := &writeJob{target: flushMarkerTarget(), encode: func() ([]byte, error) { return nil, nil }}
	return s.enqueue(j).Wait(ctx)
}

// flushMarkerTarget generates a target string guaranteed not to
// collide with any real file path or another concurrent marker, so
// concurrent Flush calls never coalesce into a single completion.
func flushMarkerTarget() string {
	return fmt.Sprintf("\x00flush-%d", time.Now().UnixNano())
}

func isFlushMarker(target string) bool {
	return len(target) > 0 && target[0] == 0
}

// Close implements domainstore.Store.
func (s *Store) Close() error {
	return s.batcher.Close()
}

// pathFor maps a record kind (and, for per-channel kinds, a channel
// id) to its on-disk path (§6 "On-disk layout").
func (s *Store) pathFor(kind domainstore.RecordKind, channelID string) string {
	switch kind {
	case domainstore.KindLeaderLock:
		return filepath.Join(s.dir, "leader.lock")
	case domainstore.KindSharedState:
		return filepath.Join(s.dir, "shared-state.json")
	case domainstore.KindChannelSamples:
		return filepath.Join(s.dir, "channels", channelID+".samples.json")
	case domainstore.KindChannelState:
		return filepath.Join(s.dir, "channels", channelID+".state.json")
	case domainstore.KindOutages:
		return filepath.Join(s.dir, "outages.json")
	case domainstore.KindWatch:
		return filepath.Join(s.dir, "watch.json")
	case domainstore.KindSnooze:
		return filepath.Join(s.dir, "snooze.json")
	default:
		return filepath.Join(s.dir, string(kind)+".json")
	}
}

// LoadAll implements domainstore.Store.LoadAll, reading every record
// kind and applying best-effort recovery to corrupt files (§4.1).
func (s *Store) LoadAll(ctx context.Context) (domainstore.Snapshot, error) {
	var snap domainstore.Snapshot
	snap.States = make(map[string]*channel.ChannelState)
	snap.Samples = make(map[string][]channel.Sample)

	if lock, ok := loadRecord[coordination.Lock](s.pathFor(domainstore.KindLeaderLock, "")); ok {
		snap.Lock = &lock
	}
	if shared, ok := loadRecord[coordination.Snapshot](s.pathFor(domainstore.KindSharedState, "")); ok {
		snap.SharedState = &shared
	}
	if outages, ok := loadRecord[[]channel.Outage](s.pathFor(domainstore.KindOutages, "")); ok {
		snap.Outages = outages
	}
	if watches, ok := loadRecord[[]watch.Session](s.pathFor(domainstore.KindWatch, "")); ok {
		snap.Watches = watches
	}
	if snoozes, ok := loadRecord[[]snooze.Snooze](s.pathFor(domainstore.KindSnooze, "")); ok {
		snap.Snoozes = snoozes
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, "channels"))
	if err == nil {
		for _, e := range entries {
			name := e.Name()
			switch {
			case hasSuffix(name, ".state.json"):
				id := name[:len(name)-len(".state.json")]
				if st, ok := loadRecord[channel.ChannelState](filepath.Join(s.dir, "channels", name)); ok {
					snap.States[id] = &st
				}
			case hasSuffix(name, ".samples.json"):
				id := name[:len(name)-len(".samples.json")]
				if samples, ok := loadRecord[[]channel.Sample](filepath.Join(s.dir, "channels", name)); ok {
					snap.Samples[id] = samples
					s.mu.Lock()
					s.samples[id] = samples
					s.mu.Unlock()
				}
			}
		}
	}

	return snap, nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// loadRecord reads and decodes one envelope-wrapped record, quarantining
// unrecoverable content to a `.corrupt.<ts>` sibling (§4.1, §6).
// A missing file, or one with a higher-than-supported schema version,
// returns ok=false.
func loadRecord[T any](path string) (T, bool) {
	var zero T

	data, err := os.ReadFile(path)
	if err != nil {
		return zero, false
	}

	var env domainstore.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		quarantine(path)
		return zero, false
	}
	if env.SchemaVersion > domainstore.CurrentSchemaVersion {
		// §6: "readers reject higher versions ... and treat as absent"
		return zero, false
	}

	raw, err := json.Marshal(env.Payload)
	if err != nil {
		quarantine(path)
		return zero, false
	}
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		quarantine(path)
		return zero, false
	}
	return payload, true
}

// quarantine renames an unrecoverable file aside so the core resumes
// with empty state for that record (§4.1, §7).
func quarantine(path string) {
	dest := fmt.Sprintf("%s.corrupt.%d", path, time.Now().UnixNano())
	_ = os.Rename(path, dest)
}
