// Command healthwatchd runs the local health-monitoring core, and
// provides short-lived commands that mutate the on-disk workspace a
// running daemon shares with them (startGlobalWatch, snooze, etc.):
// each invocation is itself one more process observing the same
// workspace, exactly like the daemon it talks to.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GSejas/health-watch-sub002/internal/bootstrap"
	"github.com/GSejas/health-watch-sub002/internal/domain/snooze"
	"github.com/GSejas/health-watch-sub002/internal/domain/watch"
)

var (
	version      = "dev"
	configPath   string
	workspaceDir string
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "healthwatchd",
		Short:   "local health-monitoring core",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "/etc/healthwatchd/config.yaml", "path to the YAML configuration document")
	root.PersistentFlags().StringVar(&workspaceDir, "workspace", "/var/lib/healthwatchd", "workspace-local directory for on-disk state")

	root.AddCommand(newRunCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newWatchCommand())
	root.AddCommand(newSnoozeCommand())
	return root
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the daemon until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			code := bootstrap.Run(context.Background(), configPath, workspaceDir)
			if code != bootstrap.ExitClean {
				os.Exit(code)
			}
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "print the last known state of every channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Initialize(configPath, workspaceDir)
			if err != nil {
				return err
			}
			defer func() { _ = app.Store.Close() }()

			for _, ch := range app.Config.Channels {
				fmt.Printf("%s\t%s\n", ch.ID, statusLabel(app, ch.ID))
			}
			return nil
		},
	}
}

func statusLabel(app *bootstrap.App, channelID string) string {
	state := app.Engine.ChannelState(channelID)
	if state == nil {
		return color.YellowString("unknown")
	}
	switch state.Current {
	case "online":
		return color.GreenString("online")
	case "offline":
		return color.RedString("offline")
	default:
		return color.YellowString(string(state.Current))
	}
}

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "start or stop an intensified monitoring window",
	}

	var duration time.Duration
	var forever bool

	start := &cobra.Command{
		Use:   "start [channel-id]",
		Short: "start a watch session (global if no channel id given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Initialize(configPath, workspaceDir)
			if err != nil {
				return err
			}
			defer func() { _ = app.Store.Close() }()

			overrides := watch.Overrides{}
			if len(args) == 1 {
				return app.Engine.StartChannelWatch(args[0], duration, forever, overrides)
			}
			app.Engine.StartGlobalWatch(duration, forever, overrides)
			return nil
		},
	}
	start.Flags().DurationVar(&duration, "duration", 10*time.Minute, "watch window length")
	start.Flags().BoolVar(&forever, "forever", false, "keep the window open until explicitly stopped")

	stop := &cobra.Command{
		Use:   "stop [channel-id]",
		Short: "stop a watch session (global if no channel id given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Initialize(configPath, workspaceDir)
			if err != nil {
				return err
			}
			defer func() { _ = app.Store.Close() }()

			if len(args) == 1 {
				return app.Engine.StopChannelWatch(args[0])
			}
			return app.Engine.StopGlobalWatch()
		},
	}

	cmd.AddCommand(start, stop)
	return cmd
}

func newSnoozeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snooze",
		Short: "suppress alert-side effects for a scope",
	}

	var duration time.Duration
	var reason string

	add := &cobra.Command{
		Use:   "add [channel-id]",
		Short: "snooze a channel, or every channel if no id given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Initialize(configPath, workspaceDir)
			if err != nil {
				return err
			}
			defer func() { _ = app.Store.Close() }()

			scope := snooze.WildcardScope
			if len(args) == 1 {
				scope = args[0]
			}
			app.Engine.Snooze(scope, duration, reason)
			return nil
		},
	}
	add.Flags().DurationVar(&duration, "duration", 30*time.Minute, "suppression window length")
	add.Flags().StringVar(&reason, "reason", "", "free-text note shown to the user")

	clear := &cobra.Command{
		Use:   "clear [channel-id]",
		Short: "clear snoozes for a scope, or every channel if no id given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Initialize(configPath, workspaceDir)
			if err != nil {
				return err
			}
			defer func() { _ = app.Store.Close() }()

			scope := snooze.WildcardScope
			if len(args) == 1 {
				scope = args[0]
			}
			app.Engine.ClearSnooze(scope)
			return nil
		},
	}

	cmd.AddCommand(add, clear)
	return cmd
}

