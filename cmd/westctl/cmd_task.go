package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Roughriver74/west-rashod-sub001/internals/conf"
	"github.com/Roughriver74/west-rashod-sub001/internals/timeouts"
	"github.com/Roughriver74/west-rashod-sub001/sdk"
)

func newTaskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "task <id>",
		Short: "Show the current state of one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Request)
			defer cancel()

			record, err := client.GetTask(ctx, args[0])
			if err != nil {
				if errors.Is(err, sdk.ErrTaskNotFound) {
					return fmt.Errorf("task %s is unknown to the server; it may have restarted since the task was created", args[0])
				}
				return err
			}
			printRecord(*record)
			return nil
		},
	}
}

func newCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Ask the backend to cancel a task",
		Long:  "Requests cancellation. The request is advisory: the job stops at its next checkpoint, and a task that already finished keeps its outcome.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.CancelRequest)
			defer cancel()

			resp, err := client.CancelTask(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
}

func newWatchCommand() *cobra.Command {
	var (
		noWS       bool
		background bool
	)
	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a task's progress in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			client := newClient()
			useWS := conf.GetConfig().Tracking.UseWebSocket && !noWS
			return trackTask(client, args[0], useWS, background, logger)
		},
	}
	cmd.Flags().BoolVar(&noWS, "no-ws", false, "poll only, skip the websocket stream")
	cmd.Flags().BoolVar(&background, "background", false, "keep tracking after the view is detached")
	return cmd
}
