package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes (§6 "Exit codes (if embedded in a CLI)").
const (
	ExitClean                = 0
	ExitConfigurationInvalid = 2
	ExitStoreError           = 3
	ExitCoordinatorFailure   = 4
)

// ErrConfigurationInvalid wraps any error Initialize returns because
// the configuration failed to load or validate.
var ErrConfigurationInvalid = errors.New("configuration invalid")

// ErrStoreUnavailable wraps any error Initialize returns because the
// AtomicStore or its indexes failed to construct.
var ErrStoreUnavailable = errors.New("unrecoverable store error")

// ErrCoordinatorUnavailable marks a coordinator that could neither
// acquire leadership nor follow; exitCodeFor maps it to
// ExitCoordinatorFailure. No code path in this package produces it,
// so Run never returns ExitCoordinatorFailure.
var ErrCoordinatorUnavailable = errors.New("coordinator could neither acquire nor follow")

// Run starts the engine and blocks until SIGTERM, SIGINT, or ctx is
// cancelled, then flushes the store and returns the process exit code
// to use.
//
// Params:
//   - ctx: parent context; typically context.Background() from main.
//   - configPath: path to the YAML configuration document.
//   - workspaceDir: the workspace-local directory for on-disk state.
//
// Returns:
//   - int: one of the Exit* constants.
func Run(ctx context.Context, configPath, workspaceDir string) int {
	app, err := Initialize(configPath, workspaceDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}
	defer func() { _ = app.Store.Close() }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Engine.Run(runCtx)
	}()

	select {
	case <-sigCh:
		cancel()
	case <-runCtx.Done():
	}
	<-done

	if err := app.Store.Flush(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error flushing store on shutdown: %v\n", err)
		return ExitStoreError
	}
	return ExitClean
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrConfigurationInvalid):
		return ExitConfigurationInvalid
	case errors.Is(err, ErrCoordinatorUnavailable):
		return ExitCoordinatorFailure
	default:
		return ExitStoreError
	}
}
