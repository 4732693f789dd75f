// Package bootstrap isolates all dependency construction from the
// CLI entry point (cmd/healthwatchd), so main stays a thin flag/exit-
// code shell and the wiring itself stays testable in one place.
//
// Wire (github.com/google/wire) is the documented injector pattern
// for this graph, matching the teacher's own bootstrap package;
// Initialize below is the hand-authored equivalent of a generated
// wire_gen.go, since this build never invokes the wire binary.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"

	"github.com/GSejas/health-watch-sub002/internal/application/coordinator"
	"github.com/GSejas/health-watch-sub002/internal/application/dispatcher"
	"github.com/GSejas/health-watch-sub002/internal/application/engine"
	"github.com/GSejas/health-watch-sub002/internal/application/guard"
	"github.com/GSejas/health-watch-sub002/internal/application/scheduler"
	"github.com/GSejas/health-watch-sub002/internal/application/snooze"
	"github.com/GSejas/health-watch-sub002/internal/application/statemachine"
	"github.com/GSejas/health-watch-sub002/internal/application/watch"
	"github.com/GSejas/health-watch-sub002/internal/config"
	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
	domaincoordination "github.com/GSejas/health-watch-sub002/internal/domain/coordination"
	domainguard "github.com/GSejas/health-watch-sub002/internal/domain/guard"
	infracoordination "github.com/GSejas/health-watch-sub002/internal/infrastructure/coordination"
	infraevents "github.com/GSejas/health-watch-sub002/internal/infrastructure/events"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/guardkind"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/healthprobe"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/logging"
	persistencestore "github.com/GSejas/health-watch-sub002/internal/infrastructure/persistence/store"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/ratelimit"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/registry"
)

// App is the fully wired composition root: every long-running
// component plus the handles Run needs to start and stop them.
type App struct {
	Config *config.Config
	Engine *engine.Engine
	Store  *persistencestore.Store
	Logger *logiface.Logger[*logging.Event]
}

// Initialize builds an App from a config path and workspace directory
// (the "designated workspace-local directory (path supplied by host)"
// of §6's on-disk layout).
//
// Params:
//   - configPath: path to the YAML configuration document.
//   - workspaceDir: directory the AtomicStore and coordination files
//     live under.
//
// Returns:
//   - *App: ready for Engine.Run.
//   - error: configuration or store failure.
func Initialize(configPath, workspaceDir string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}

	logger := logging.New(os.Stdout, logiface.LevelInfo)

	store, err := persistencestore.New(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	bus := infraevents.New()

	reg, err := registry.New()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	channels := cfg.ToDomain()
	channelsByID := make(map[string]channel.Channel, len(channels))
	priorityByID := make(map[string]channel.Priority, len(channels))
	thresholdByID := make(map[string]int, len(channels))
	for _, ch := range channels {
		channelsByID[ch.ID] = ch
		priorityByID[ch.ID] = ch.Priority
		thresholdByID[ch.ID] = ch.EffectiveThreshold()
	}
	priorityFor := func(channelID string) channel.Priority {
		if p, ok := priorityByID[channelID]; ok {
			return p
		}
		return channel.PriorityMedium
	}

	guards := guard.New()
	registerBuiltinGuards(guards, cfg.Guards)

	disp := dispatcher.New(dispatcher.DefaultConcurrency)
	registerBuiltinProbes(disp)

	machine := statemachine.New(store, bus, func(channelID string) int {
		if t, ok := thresholdByID[channelID]; ok {
			return t
		}
		return channel.DefaultThreshold
	})

	if err := restoreFromStore(store, machine, reg, priorityFor); err != nil {
		logging.LogDispatch(logger, logging.DispatchFields{ChannelID: "*", Success: false, Err: err.Error()})
	}

	watchMgr := watch.New(store, bus)
	snoozeReg := snooze.New(store)

	sched := scheduler.New(
		schedulerStateLookup{machine: machine},
		watchMgr,
		schedulerGuardChecker{guards: guards},
	)

	identity := domaincoordination.Identity{
		PID:       os.Getpid(),
		StartedAt: time.Now(),
		Nonce:     uuid.NewString(),
	}
	locks := infracoordination.NewLockFile(workspaceDir)
	snaps := infracoordination.NewSnapshotFile(workspaceDir)
	sink := newSnapshotSink(machine, reg, priorityFor)
	coord := coordinator.New(identity, locks, snaps, bus, newStateSource(reg), sink)

	limiter := ratelimit.NewRunChannelNowLimiter(ratelimit.DefaultWindow, ratelimit.DefaultMax)

	eng := engine.New(channelsByID, reg, guards, disp, machine, sched, watchMgr, snoozeReg, coord, limiter, logger)
	if watchCh, err := snaps.Watch(context.Background()); err == nil && watchCh != nil {
		eng.SetSnapshotWatch(watchCh)
	}

	enabled := make([]channel.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.Enabled {
			enabled = append(enabled, ch)
		}
	}
	sched.UpdateChannels(enabled, time.Now())

	return &App{Config: cfg, Engine: eng, Store: store, Logger: logger}, nil
}

// restoreFromStore seeds the state machine and registry from the
// AtomicStore's persisted records (§4.1: "on restart, reload the last
// persisted ChannelState per channel").
func restoreFromStore(store *persistencestore.Store, machine *statemachine.Machine, reg *registry.Registry, priorityFor func(string) channel.Priority) error {
	snap, err := store.LoadAll(context.Background())
	if err != nil {
		return err
	}
	for id, state := range snap.States {
		machine.Seed(state)
		if err := reg.Upsert(priorityFor(id), state); err != nil {
			return err
		}
	}
	return nil
}

func registerBuiltinProbes(disp *dispatcher.Dispatcher) {
	disp.Register(channel.KindHTTP, healthprobe.HTTP())
	disp.Register(channel.KindTCP, healthprobe.TCP())
	disp.Register(channel.KindDNS, healthprobe.DNS())
	disp.Register(channel.KindScript, healthprobe.Script())
	disp.Register(channel.KindTask, healthprobe.NewTaskRegistry().Operation())
}

func registerBuiltinGuards(ev *guard.Evaluator, defs map[string]config.Guard) {
	for name, def := range defs {
		switch def.Kind {
		case guardkind.KindInterfaceUp:
			ev.Register(name, guardkind.InterfaceUp(def.Params))
		case guardkind.KindDNSReachable:
			ev.Register(name, guardkind.DNSReachable(def.Params))
		}
	}
}

// schedulerStateLookup adapts the state machine to scheduler.StateLookup.
type schedulerStateLookup struct {
	machine *statemachine.Machine
}

func (s schedulerStateLookup) State(channelID string) *channel.ChannelState {
	return s.machine.State(channelID)
}

// schedulerGuardChecker adapts the guard evaluator to scheduler.GuardChecker.
type schedulerGuardChecker struct {
	guards *guard.Evaluator
}

func (s schedulerGuardChecker) Evaluate(ctx context.Context, refs []string) domainguard.Aggregate {
	return s.guards.Evaluate(ctx, refs)
}
