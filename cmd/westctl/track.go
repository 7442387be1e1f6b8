package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Roughriver74/west-rashod-sub001/internals/conf"
	"github.com/Roughriver74/west-rashod-sub001/internals/history"
	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
	"github.com/Roughriver74/west-rashod-sub001/internals/term"
	"github.com/Roughriver74/west-rashod-sub001/internals/timeouts"
	"github.com/Roughriver74/west-rashod-sub001/internals/tracking"
	"github.com/Roughriver74/west-rashod-sub001/sdk"
	"github.com/Roughriver74/west-rashod-sub001/tui"
)

// openHistory opens the local task history cache under the configured data
// dir. Failures are non-fatal; tracking works without the cache.
func openHistory(logger *slog.Logger) *history.Store {
	cfg := conf.GetConfig()
	store, err := history.Open(filepath.Join(cfg.Client.DataDir, "history.db"))
	if err != nil {
		logger.Warn("task history cache unavailable", slog.String("error", err.Error()))
		return nil
	}
	return store
}

// trackTask runs a tracking session for taskID with the TUI attached and
// blocks until the task finishes or the user detaches. Terminal records
// are written to the history cache.
func trackTask(client *sdk.Client, taskID string, useWebSocket bool, background bool, logger *slog.Logger) error {
	cfg := conf.GetConfig()

	store := openHistory(logger)
	if store != nil {
		defer store.Close()
	}

	// A task that already finished has nothing left to track.
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Request)
	record, err := client.GetTask(ctx, taskID)
	cancel()
	if err == nil && record.Status.IsTerminal() {
		printRecord(*record)
		if store != nil {
			recordHistory(store, *record, logger)
		}
		return nil
	}

	completed := make(chan schemas.TaskRecord, 1)
	session, err := tracking.NewSession(tracking.SessionConfig{
		TaskID: taskID,
		API:    client,
		OnComplete: func(record schemas.TaskRecord) {
			if store != nil {
				recordHistory(store, record, logger)
			}
			select {
			case completed <- record:
			default:
			}
		},
		UseWebSocket:    useWebSocket,
		Background:      background,
		WSBaseURL:       client.WSBaseURL(cfg.API.WSScheme),
		PollInterval:    cfg.Tracking.PollEvery(),
		PushBaseDelay:   cfg.Tracking.PushDelay(),
		PushMaxAttempts: cfg.Tracking.PushMaxAttempts,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	session.Start()
	defer session.Stop()

	result, err := tui.Watch(session, taskID)
	if err != nil {
		return err
	}
	if result.Detached {
		return finishDetached(session, taskID, completed, timeouts.WatchDefault)
	}
	if result.Record != nil {
		printOutcome(*result.Record)
	}
	return nil
}

// finishDetached decides what a detached watch leaves behind. Without the
// background flag the session stops with the view; with it the session keeps
// tracking until the task finishes or the wait runs out, so the outcome still
// gets printed and cached.
func finishDetached(session *tracking.Session, taskID string, completed <-chan schemas.TaskRecord, wait time.Duration) error {
	if !session.Background() {
		fmt.Printf("detached; the task keeps running. Check on it with: westctl task %s\n", taskID)
		return nil
	}
	fmt.Printf("detached; still tracking task %s in the background\n", taskID)
	select {
	case record := <-completed:
		printOutcome(record)
	case <-time.After(wait):
		fmt.Printf("task %s still not finished after %s; check on it with: westctl task %s\n", taskID, wait, taskID)
	}
	return nil
}

func recordHistory(store *history.Store, record schemas.TaskRecord, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Request)
	defer cancel()
	if err := store.Record(ctx, record); err != nil {
		logger.Warn("failed to cache task record", slog.String("error", err.Error()))
	}
}

func printRecord(record schemas.TaskRecord) {
	fmt.Printf("%s  %s  %s", record.TaskID, record.TaskType, record.Status)
	if record.Progress > 0 {
		fmt.Printf("  %d%%", record.Progress)
	}
	fmt.Println()
	if record.Message != "" {
		fmt.Println(record.Message)
	}
	if record.Error != "" {
		fmt.Println("error:", record.Error)
	}
	if len(record.Result) > 0 {
		fmt.Println("result:", string(record.Result))
	}
	if url := dashboardTaskURL(record.TaskID); url != "" {
		fmt.Println(term.ClickableLink("open in dashboard", url))
	}
}

func printOutcome(record schemas.TaskRecord) {
	switch record.Status {
	case schemas.TaskStatusCompleted:
		fmt.Printf("task %s completed\n", record.TaskID)
		if len(record.Result) > 0 {
			fmt.Println("result:", string(record.Result))
		}
	case schemas.TaskStatusFailed:
		fmt.Printf("task %s failed\n", record.TaskID)
		if record.Error != "" {
			fmt.Println("error:", record.Error)
		}
	case schemas.TaskStatusCancelled:
		fmt.Printf("task %s cancelled\n", record.TaskID)
	}
	if url := dashboardTaskURL(record.TaskID); url != "" {
		fmt.Println(term.ClickableLink("open in dashboard", url))
	}
}

func dashboardTaskURL(taskID string) string {
	base := conf.GetConfig().Dashboard.URL
	if base == "" {
		return ""
	}
	return base + "/tasks/" + taskID
}
