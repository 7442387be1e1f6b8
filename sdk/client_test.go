package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

func TestClientVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/version" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("  0.1.0  "))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	version, err := client.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != "0.1.0" {
		t.Fatalf("expected trimmed version, got %q", version)
	}
}

func TestClientTaskFlows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case http.MethodPost + " /api/tasks":
			var req schemas.TaskCreateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.Kind != schemas.SyncTransactions {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(&schemas.TaskCreateResponse{TaskID: "t1", Message: "sync started"})
		case http.MethodGet + " /api/tasks/t1":
			_ = json.NewEncoder(w).Encode(&schemas.TaskRecord{
				TaskID:   "t1",
				TaskType: string(schemas.SyncTransactions),
				Status:   schemas.TaskStatusRunning,
				Progress: 40,
			})
		case http.MethodGet + " /api/tasks":
			if r.URL.Query().Get("kind") != "sync_transactions" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(&schemas.TaskListResponse{
				Tasks: []schemas.TaskRecord{{TaskID: "t1", Status: schemas.TaskStatusRunning}},
				Total: 1,
			})
		case http.MethodPost + " /api/tasks/t1/cancel":
			_ = json.NewEncoder(w).Encode(&schemas.TaskCancelResponse{Message: "cancel requested"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	created, err := client.CreateTask(ctx, schemas.TaskCreateRequest{Kind: schemas.SyncTransactions})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.TaskID != "t1" {
		t.Fatalf("unexpected task id %s", created.TaskID)
	}

	record, err := client.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if record.Status != schemas.TaskStatusRunning || record.Progress != 40 {
		t.Fatalf("unexpected record: %+v", record)
	}

	list, err := client.ListTasks(ctx, "sync_transactions", 10)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if list.Total != 1 || len(list.Tasks) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}

	cancelResp, err := client.CancelTask(ctx, "t1")
	if err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	if cancelResp.Message != "cancel requested" {
		t.Fatalf("unexpected cancel message %q", cancelResp.Message)
	}
}

func TestClientGetTaskNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(&ErrorResponse{Code: "not_found", Message: "task not found"})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.GetTask(ctx, "ghost")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestClientAuthRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer secret" {
			_ = json.NewEncoder(w).Encode(&schemas.TaskListResponse{})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	anon := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithToken(""))
	if _, err := anon.ListTasks(ctx, "", 0); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}

	authed := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithToken("secret"))
	if _, err := authed.ListTasks(ctx, "", 0); err != nil {
		t.Fatalf("authed ListTasks: %v", err)
	}
}

func TestClientExportTransactionsCSV(t *testing.T) {
	const csv = "id,date,amount\n1,2026-01-02,100.50\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/transactions/export" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("date_from") != "2026-01-01" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(csv))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := client.ExportTransactionsCSV(ctx, schemas.TransactionFilter{DateFrom: "2026-01-01"}, &buf); err != nil {
		t.Fatalf("ExportTransactionsCSV: %v", err)
	}
	if buf.String() != csv {
		t.Fatalf("unexpected csv payload: %q", buf.String())
	}
}

func TestClientWSBaseURL(t *testing.T) {
	client := NewClient(WithBaseURL("https://finance.example.com/"))
	if got := client.WSBaseURL("wss"); got != "wss://finance.example.com" {
		t.Fatalf("unexpected ws base url: %q", got)
	}
	if got := client.WSBaseURL(""); got != "ws://finance.example.com" {
		t.Fatalf("unexpected default scheme url: %q", got)
	}
}
