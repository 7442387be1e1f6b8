package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
	"github.com/Roughriver74/west-rashod-sub001/internals/timeouts"
)

func newTasksCommand() *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks known to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Request)
			defer cancel()

			list, err := client.ListTasks(ctx, kind, limit)
			if err != nil {
				return err
			}
			if len(list.Tasks) == 0 {
				fmt.Println("no tasks")
				return nil
			}
			printTaskTable(list.Tasks)
			if list.Total > len(list.Tasks) {
				fmt.Printf("showing %d of %d\n", len(list.Tasks), list.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "filter by task kind")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum tasks to list")
	cmd.AddCommand(newTasksHistoryCommand())
	return cmd
}

// newTasksHistoryCommand reads the local cache instead of the backend, so
// it still answers for tasks the server has since forgotten.
func newTasksHistoryCommand() *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List locally cached finished tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store := openHistory(logger)
			if store == nil {
				return fmt.Errorf("task history cache unavailable")
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Request)
			defer cancel()
			records, err := store.List(ctx, kind, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no cached tasks")
				return nil
			}
			printTaskTable(records)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "filter by task kind")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum tasks to list")
	return cmd
}

func printTaskTable(records []schemas.TaskRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATUS\tPROGRESS\tMESSAGE")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n",
			record.TaskID, record.TaskType, record.Status, record.Progress, record.Message)
	}
	w.Flush()
}
