// westctl is the terminal client for the finance dashboard: it starts
// sync jobs on the backend, tracks their progress over websocket and
// polling, and browses the boundary resources.
package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Roughriver74/west-rashod-sub001/internals/conf"
	"github.com/Roughriver74/west-rashod-sub001/internals/env"
	"github.com/Roughriver74/west-rashod-sub001/sdk"
)

var (
	flagAPIURL  string
	flagVerbose bool
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "westctl",
		Short:         "Terminal client for the West finance dashboard",
		Version:       conf.GetConfig().Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&flagAPIURL, "api", "", "API base URL (overrides config and WEST_API_URL)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newVersionCommand(),
		newSyncCommand(),
		newTaskCommand(),
		newTasksCommand(),
		newCancelCommand(),
		newWatchCommand(),
		newExportCommand(),
		newStubCommand(),
	)
	return cmd
}

func Execute() error {
	return newRootCommand().Execute()
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:   level,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func newClient() *sdk.Client {
	opts := []sdk.Option{}
	// Precedence: --api flag, then WEST_API_URL (the sdk default), then the
	// config file.
	baseURL := flagAPIURL
	if baseURL == "" && env.Get().API_URL == "" {
		baseURL = conf.GetConfig().API.BaseURL
	}
	if baseURL != "" {
		opts = append(opts, sdk.WithBaseURL(baseURL))
	}
	return sdk.NewClient(opts...)
}
