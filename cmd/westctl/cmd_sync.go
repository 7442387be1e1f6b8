package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Roughriver74/west-rashod-sub001/internals/conf"
	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
	"github.com/Roughriver74/west-rashod-sub001/internals/timeouts"
	"github.com/Roughriver74/west-rashod-sub001/sdk"
)

func syncKindNames() []string {
	kinds := schemas.SyncKinds()
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, string(kind))
	}
	return names
}

func newSyncCommand() *cobra.Command {
	var (
		dateFrom     string
		dateTo       string
		autoClassify bool
		noWatch      bool
		noWS         bool
		background   bool
	)

	cmd := &cobra.Command{
		Use:       "sync <kind>",
		Short:     "Start a sync job on the backend and track it",
		Long:      "Starts one of the backend sync jobs and follows its progress.\n\nKinds: " + fmt.Sprint(syncKindNames()),
		Args:      cobra.ExactArgs(1),
		ValidArgs: syncKindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			client := newClient()

			request := schemas.TaskCreateRequest{
				Kind: schemas.SyncKind(args[0]),
				Params: schemas.SyncParams{
					DateFrom:     dateFrom,
					DateTo:       dateTo,
					AutoClassify: autoClassify,
				},
			}
			if errs := schemas.TaskCreateSchema.Validate(&request); errs != nil {
				return fmt.Errorf("invalid sync request: %v", errs)
			}
			if !sdk.IsRunning(client.BaseURL()) {
				return fmt.Errorf("backend at %s is unreachable; start it or run: westctl stub", client.BaseURL())
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Request)
			defer cancel()
			created, err := client.CreateTask(ctx, request)
			if err != nil {
				return err
			}
			fmt.Printf("started %s as task %s\n", request.Kind, created.TaskID)

			if noWatch {
				fmt.Printf("track it with: westctl watch %s\n", created.TaskID)
				return nil
			}
			useWS := conf.GetConfig().Tracking.UseWebSocket && !noWS
			return trackTask(client, created.TaskID, useWS, background, logger)
		},
	}

	cmd.Flags().StringVar(&dateFrom, "from", "", "period start, YYYY-MM-DD")
	cmd.Flags().StringVar(&dateTo, "to", "", "period end, YYYY-MM-DD")
	cmd.Flags().BoolVar(&autoClassify, "auto-classify", false, "classify imported transactions")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "start the job and exit")
	cmd.Flags().BoolVar(&noWS, "no-ws", false, "poll only, skip the websocket stream")
	cmd.Flags().BoolVar(&background, "background", false, "keep tracking after the view is detached")
	return cmd
}
