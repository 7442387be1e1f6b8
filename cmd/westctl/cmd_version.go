package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Roughriver74/west-rashod-sub001/internals/conf"
	"github.com/Roughriver74/west-rashod-sub001/internals/timeouts"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client and server versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("client:", conf.GetConfig().Version)

			client := newClient()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Probe)
			defer cancel()
			serverVersion, err := client.Version(ctx)
			if err != nil {
				fmt.Println("server: unreachable")
				return nil
			}
			fmt.Println("server:", serverVersion)
			return nil
		},
	}
}
