package server_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
	"github.com/Roughriver74/west-rashod-sub001/internals/tracking"
	"github.com/Roughriver74/west-rashod-sub001/sdk"
	"github.com/Roughriver74/west-rashod-sub001/stubd/server"
)

func newStub(t *testing.T, stepEvery time.Duration) (*httptest.Server, *sdk.Client) {
	t.Helper()
	s := server.New(server.Options{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		StepEvery: stepEvery,
		Version:   "test",
	})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts, sdk.NewClient(sdk.WithBaseURL(ts.URL))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	_, client := newStub(t, 2*time.Millisecond)
	ctx := context.Background()

	created, err := client.CreateTask(ctx, schemas.TaskCreateRequest{
		Kind:   schemas.SyncTransactions,
		Params: schemas.SyncParams{DateFrom: "2026-08-01", DateTo: "2026-08-20"},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if created.TaskID == "" {
		t.Fatal("expected a task id")
	}

	waitFor(t, 2*time.Second, func() bool {
		record, err := client.GetTask(ctx, created.TaskID)
		return err == nil && record.Status == schemas.TaskStatusCompleted
	}, "task never completed")

	record, err := client.GetTask(ctx, created.TaskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if record.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", record.Progress)
	}
	if len(record.Result) == 0 {
		t.Fatal("expected a result payload on completion")
	}
	if record.Metadata["date_from"] != "2026-08-01" {
		t.Fatalf("params not recorded in metadata: %v", record.Metadata)
	}

	list, err := client.ListTasks(ctx, string(schemas.SyncTransactions), 10)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if list.Total != 1 || len(list.Tasks) != 1 || list.Tasks[0].TaskID != created.TaskID {
		t.Fatalf("unexpected task list: %+v", list)
	}
}

func TestUnknownTaskReturnsSentinel(t *testing.T) {
	_, client := newStub(t, time.Millisecond)
	_, err := client.GetTask(context.Background(), "no-such-task")
	if !errors.Is(err, sdk.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestCreateTaskRejectsUnknownKind(t *testing.T) {
	_, client := newStub(t, time.Millisecond)
	_, err := client.CreateTask(context.Background(), schemas.TaskCreateRequest{Kind: "sync_everything"})
	var apiErr *sdk.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q", apiErr.Code)
	}
}

func TestTrackingSessionObservesCompletion(t *testing.T) {
	ts, client := newStub(t, 5*time.Millisecond)

	created, err := client.CreateTask(context.Background(), schemas.TaskCreateRequest{Kind: schemas.SyncAll})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	var mu sync.Mutex
	var updates []schemas.TaskRecord
	completed := make(chan schemas.TaskRecord, 1)

	session, err := tracking.NewSession(tracking.SessionConfig{
		TaskID: created.TaskID,
		API:    client,
		OnUpdate: func(record schemas.TaskRecord) {
			mu.Lock()
			updates = append(updates, record)
			mu.Unlock()
		},
		OnComplete:   func(record schemas.TaskRecord) { completed <- record },
		UseWebSocket: true,
		WSBaseURL:    "ws://" + strings.TrimPrefix(ts.URL, "http://"),
		PollInterval: 25 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	session.Start()
	defer session.Stop()

	select {
	case record := <-completed:
		if record.Status != schemas.TaskStatusCompleted {
			t.Fatalf("expected completed, got %s", record.Status)
		}
		if record.Progress != 100 {
			t.Fatalf("expected progress 100, got %d", record.Progress)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("session never observed completion")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) < 2 {
		t.Fatalf("expected intermediate updates before completion, got %d", len(updates))
	}
	for _, record := range updates {
		if record.TaskID != created.TaskID {
			t.Fatalf("update for wrong task: %s", record.TaskID)
		}
	}
}

func TestTrackingSessionCancel(t *testing.T) {
	ts, client := newStub(t, 40*time.Millisecond)

	created, err := client.CreateTask(context.Background(), schemas.TaskCreateRequest{Kind: schemas.ImportFTP})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	running := make(chan struct{})
	var runningOnce sync.Once
	completed := make(chan schemas.TaskRecord, 1)

	session, err := tracking.NewSession(tracking.SessionConfig{
		TaskID: created.TaskID,
		API:    client,
		OnUpdate: func(record schemas.TaskRecord) {
			if record.Status == schemas.TaskStatusRunning {
				runningOnce.Do(func() { close(running) })
			}
		},
		OnComplete:   func(record schemas.TaskRecord) { completed <- record },
		UseWebSocket: true,
		WSBaseURL:    "ws://" + strings.TrimPrefix(ts.URL, "http://"),
		PollInterval: 25 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	session.Start()
	defer session.Stop()

	select {
	case <-running:
	case <-time.After(2 * time.Second):
		t.Fatal("task never started running")
	}
	if err := session.RequestCancel(context.Background()); err != nil {
		t.Fatalf("request cancel: %v", err)
	}

	select {
	case record := <-completed:
		if record.Status != schemas.TaskStatusCancelled {
			t.Fatalf("expected cancelled, got %s", record.Status)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("session never observed cancellation")
	}
}

func TestCancelAfterCompletionKeepsOutcome(t *testing.T) {
	_, client := newStub(t, time.Millisecond)
	ctx := context.Background()

	created, err := client.CreateTask(ctx, schemas.TaskCreateRequest{Kind: schemas.SyncCategories})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		record, err := client.GetTask(ctx, created.TaskID)
		return err == nil && record.Status.IsTerminal()
	}, "task never finished")

	resp, err := client.CancelTask(ctx, created.TaskID)
	if err != nil {
		t.Fatalf("cancel after completion: %v", err)
	}
	if !strings.Contains(resp.Message, "already finished") {
		t.Fatalf("unexpected cancel message: %q", resp.Message)
	}

	record, err := client.GetTask(ctx, created.TaskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if record.Status != schemas.TaskStatusCompleted {
		t.Fatalf("cancel overwrote terminal status: %s", record.Status)
	}
}

func TestBoundaryResources(t *testing.T) {
	_, client := newStub(t, time.Millisecond)
	ctx := context.Background()

	transactions, err := client.ListTransactions(ctx, schemas.TransactionFilter{Category: "rent"})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if transactions.Total != 1 || transactions.Transactions[0].Category != "rent" {
		t.Fatalf("category filter broken: %+v", transactions)
	}

	var csvOut strings.Builder
	if err := client.ExportTransactionsCSV(ctx, schemas.TransactionFilter{}, &csvOut); err != nil {
		t.Fatalf("export csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	if len(lines) < 2 || !strings.HasPrefix(lines[0], "id,date,amount") {
		t.Fatalf("unexpected csv output: %q", csvOut.String())
	}

	contracts, err := client.ListContracts(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list contracts: %v", err)
	}
	if contracts.Total == 0 {
		t.Fatal("expected stub contracts")
	}
}
