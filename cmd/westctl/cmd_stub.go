package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Roughriver74/west-rashod-sub001/internals/env"
	"github.com/Roughriver74/west-rashod-sub001/stubd/server"
)

func newStubCommand() *cobra.Command {
	var (
		addr string
		step time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run the development stub backend in the foreground",
		Long:  "Runs an in-memory stand-in for the dashboard backend. Tasks do not survive a restart, which makes it handy for exercising the not-found handling too.",
		RunE: func(cmd *cobra.Command, args []string) error {
			envs := env.Get()
			if addr == "" {
				addr = envs.LISTEN_ADDR
				fmt.Printf("point westctl at it with: --api %s\n", envs.STUB_URL)
			}
			level := slog.LevelInfo
			if flagVerbose {
				level = slog.LevelDebug
			}
			s := server.New(server.Options{
				Logger:    server.InitLogger(os.Stderr, level),
				StepEvery: step,
				Version:   "stub",
			})
			return s.Start(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from WEST_STUB_PORT)")
	cmd.Flags().DurationVar(&step, "step", time.Second, "pace of the simulated jobs")
	return cmd
}
