package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
	"github.com/Roughriver74/west-rashod-sub001/sdk"
)

type collector struct {
	mu        sync.Mutex
	updates   []schemas.TaskRecord
	completes []schemas.TaskRecord
	errs      []error
}

func (c *collector) onUpdate(record schemas.TaskRecord) {
	c.mu.Lock()
	c.updates = append(c.updates, record)
	c.mu.Unlock()
}

func (c *collector) onComplete(record schemas.TaskRecord) {
	c.mu.Lock()
	c.completes = append(c.completes, record)
	c.mu.Unlock()
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

func (c *collector) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

func (c *collector) completeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.completes)
}

func (c *collector) lastUpdate() schemas.TaskRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) == 0 {
		return schemas.TaskRecord{}
	}
	return c.updates[len(c.updates)-1]
}

func (c *collector) statuses() []schemas.TaskStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schemas.TaskStatus, 0, len(c.updates))
	for _, update := range c.updates {
		out = append(out, update.Status)
	}
	return out
}

func terminal(id string, status schemas.TaskStatus) *schemas.TaskRecord {
	return &schemas.TaskRecord{TaskID: id, TaskType: "sync_all", Status: status, Progress: 100}
}

func pending(id string) *schemas.TaskRecord {
	return &schemas.TaskRecord{TaskID: id, TaskType: "sync_all", Status: schemas.TaskStatusPending}
}

func TestSessionPollOnlyLifecycle(t *testing.T) {
	api := &fakeAPI{script: []fetchResult{
		{record: pending("t1")},
		{record: running("t1", 50)},
		{record: terminal("t1", schemas.TaskStatusCompleted)},
	}}
	c := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:       "t1",
		API:          api,
		OnUpdate:     c.onUpdate,
		OnComplete:   c.onComplete,
		UseWebSocket: false,
		PollInterval: 5 * time.Millisecond,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Start()
	defer session.Stop()

	waitFor(t, time.Second, func() bool { return c.completeCount() == 1 }, "expected completion callback")

	statuses := c.statuses()
	want := []schemas.TaskStatus{schemas.TaskStatusPending, schemas.TaskStatusRunning, schemas.TaskStatusCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("unexpected status sequence: %v", statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("unexpected status sequence: %v", statuses)
		}
	}

	// No poll ticks may be scheduled after the terminal merge.
	settled := api.fetchCalls()
	time.Sleep(30 * time.Millisecond)
	if api.fetchCalls() > settled {
		t.Fatalf("polling continued after terminal status: %d -> %d", settled, api.fetchCalls())
	}
	if c.completeCount() != 1 {
		t.Fatalf("completion fired %d times", c.completeCount())
	}
}

func TestSessionLastWriteWinsAcrossChannels(t *testing.T) {
	api := &fakeAPI{script: []fetchResult{
		{record: pending("t1")},
		{record: running("t1", 35)},
	}}
	conn := newFakeConn()
	dialer := &fakeDialer{plan: []any{conn}}
	c := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:          "t1",
		API:             api,
		OnUpdate:        c.onUpdate,
		UseWebSocket:    true,
		WSBaseURL:       "ws://stub",
		PollInterval:    40 * time.Millisecond,
		PushBaseDelay:   time.Millisecond,
		PushMaxAttempts: 3,
		Dial:            dialer.dial,
		Logger:          quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Start()
	defer session.Stop()

	// Immediate poll delivers pending.
	waitFor(t, time.Second, func() bool { return c.updateCount() >= 1 }, "expected first poll result")
	if got := c.lastUpdate(); got.Status != schemas.TaskStatusPending {
		t.Fatalf("expected pending first, got %+v", got)
	}

	// Push reports running with higher progress.
	conn.frames <- taskFrame(t, schemas.TaskRecord{TaskID: "t1", TaskType: "sync_all", Status: schemas.TaskStatusRunning, Progress: 40})
	waitFor(t, time.Second, func() bool { return c.lastUpdate().Progress == 40 }, "expected push update applied")

	// The next poll independently reports lower progress; it still wins
	// because merges are last-write-wins, and the status never regresses.
	waitFor(t, time.Second, func() bool { return c.lastUpdate().Progress == 35 }, "expected poll update to overwrite")
	for _, status := range c.statuses()[1:] {
		if status != schemas.TaskStatusRunning {
			t.Fatalf("status regressed: %v", c.statuses())
		}
	}
}

func TestSessionAbsorbingTerminalState(t *testing.T) {
	api := &fakeAPI{script: []fetchResult{
		{record: terminal("t1", schemas.TaskStatusCompleted)},
	}}
	conn := newFakeConn()
	dialer := &fakeDialer{plan: []any{conn}}
	c := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:          "t1",
		API:             api,
		OnUpdate:        c.onUpdate,
		OnComplete:      c.onComplete,
		UseWebSocket:    true,
		WSBaseURL:       "ws://stub",
		PollInterval:    5 * time.Millisecond,
		PushBaseDelay:   time.Millisecond,
		PushMaxAttempts: 3,
		Dial:            dialer.dial,
		Logger:          quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Start()
	defer session.Stop()

	waitFor(t, time.Second, func() bool { return c.completeCount() == 1 }, "expected completion")

	// Late push messages for the same task are stale no-ops.
	conn.frames <- taskFrame(t, schemas.TaskRecord{TaskID: "t1", TaskType: "sync_all", Status: schemas.TaskStatusRunning, Progress: 10})
	conn.frames <- taskFrame(t, schemas.TaskRecord{TaskID: "t1", TaskType: "sync_all", Status: schemas.TaskStatusCancelled})
	time.Sleep(30 * time.Millisecond)

	if c.updateCount() != 1 {
		t.Fatalf("terminal state was not absorbing: %d updates", c.updateCount())
	}
	if got := c.lastUpdate(); got.Status != schemas.TaskStatusCompleted {
		t.Fatalf("observed status changed after terminal: %+v", got)
	}
	if c.completeCount() != 1 {
		t.Fatalf("completion fired %d times", c.completeCount())
	}
}

func TestSessionNotFoundFinality(t *testing.T) {
	api := &fakeAPI{script: []fetchResult{
		{err: fmt.Errorf("task t2: %w", sdk.ErrTaskNotFound)},
	}}
	c := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:       "t2",
		API:          api,
		OnUpdate:     c.onUpdate,
		OnComplete:   c.onComplete,
		UseWebSocket: false,
		PollInterval: 5 * time.Millisecond,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Start()
	defer session.Stop()

	waitFor(t, time.Second, func() bool { return c.completeCount() == 1 }, "expected synthesized terminal record")

	record := c.lastUpdate()
	if record.Status != schemas.TaskStatusFailed || record.Error == "" || record.Progress != 0 {
		t.Fatalf("unexpected synthesized record: %+v", record)
	}
	if c.updateCount() != 1 {
		t.Fatalf("expected exactly one update, got %d", c.updateCount())
	}

	time.Sleep(30 * time.Millisecond)
	if api.fetchCalls() != 1 {
		t.Fatalf("polling continued for a vanished task: %d fetches", api.fetchCalls())
	}
}

func TestSessionTeardownIdempotent(t *testing.T) {
	api := &fakeAPI{script: []fetchResult{{record: running("t1", 20)}}}
	c := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:       "t1",
		API:          api,
		OnUpdate:     c.onUpdate,
		OnComplete:   c.onComplete,
		UseWebSocket: false,
		PollInterval: 5 * time.Millisecond,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Start()
	waitFor(t, time.Second, func() bool { return c.updateCount() >= 1 }, "expected an update")

	session.Stop()
	session.Stop()

	settled := api.fetchCalls()
	time.Sleep(30 * time.Millisecond)
	if api.fetchCalls() > settled+1 {
		t.Fatalf("channel activity continued after teardown: %d -> %d", settled, api.fetchCalls())
	}
	if c.completeCount() != 0 {
		t.Fatal("teardown must not fabricate a completion")
	}
}

func TestSessionRequestCancel(t *testing.T) {
	api := &fakeAPI{script: []fetchResult{{record: running("t1", 20)}}}
	c := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:       "t1",
		API:          api,
		OnUpdate:     c.onUpdate,
		OnError:      c.onError,
		UseWebSocket: false,
		PollInterval: time.Hour,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Start()
	defer session.Stop()
	waitFor(t, time.Second, func() bool { return c.updateCount() == 1 }, "expected initial update")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := session.RequestCancel(ctx); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if api.cancelCount() != 1 {
		t.Fatalf("expected one cancel call, got %d", api.cancelCount())
	}

	// Never optimistic: the held record still says running until a channel
	// reports otherwise.
	if got := c.lastUpdate(); got.Status != schemas.TaskStatusRunning {
		t.Fatalf("record mutated by cancel request: %+v", got)
	}
}

func TestSessionViewHooksFollowOwnerCallbacks(t *testing.T) {
	api := &fakeAPI{script: []fetchResult{
		{record: pending("t1")},
		{record: running("t1", 50)},
		{record: terminal("t1", schemas.TaskStatusCompleted)},
	}}
	owner := &collector{}
	view := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:       "t1",
		API:          api,
		OnUpdate:     owner.onUpdate,
		OnComplete:   owner.onComplete,
		UseWebSocket: false,
		PollInterval: 5 * time.Millisecond,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.AttachView(ViewHooks{OnUpdate: view.onUpdate, OnComplete: view.onComplete})
	session.Start()
	defer session.Stop()

	waitFor(t, time.Second, func() bool { return view.completeCount() == 1 }, "expected view completion")
	if view.updateCount() != owner.updateCount() {
		t.Fatalf("view saw %d updates, owner %d", view.updateCount(), owner.updateCount())
	}
	if got := view.lastUpdate(); got.Status != schemas.TaskStatusCompleted {
		t.Fatalf("view missed terminal record: %+v", got)
	}
	session.DetachView()
}

func TestSessionDetachedViewStopsReceiving(t *testing.T) {
	api := &fakeAPI{script: []fetchResult{
		{record: running("t1", 10)},
	}}
	owner := &collector{}
	view := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:       "t1",
		API:          api,
		OnUpdate:     owner.onUpdate,
		UseWebSocket: false,
		PollInterval: 5 * time.Millisecond,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.AttachView(ViewHooks{OnUpdate: view.onUpdate})
	session.Start()
	defer session.Stop()

	waitFor(t, time.Second, func() bool { return view.updateCount() >= 1 }, "expected view update")
	session.DetachView()
	settled := view.updateCount()

	// The session keeps tracking for its owner; only the view goes quiet.
	ownerSettled := owner.updateCount()
	waitFor(t, time.Second, func() bool { return owner.updateCount() > ownerSettled }, "expected owner updates to continue")
	if view.updateCount() > settled+1 {
		t.Fatalf("detached view kept receiving: %d -> %d", settled, view.updateCount())
	}
}

func TestSessionForeignFrameCannotSeedRecord(t *testing.T) {
	// The first poll fails, so no record is held yet when a stream frame for
	// another task id arrives. It must not become the held record: the
	// session's own task would otherwise be rejected as a different id
	// forever and never complete.
	api := &fakeAPI{script: []fetchResult{
		{err: errors.New("connection reset")},
		{record: pending("t1")},
		{record: running("t1", 60)},
		{record: terminal("t1", schemas.TaskStatusCompleted)},
	}}
	conn := newFakeConn()
	dialer := &fakeDialer{plan: []any{conn}}
	c := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:          "t1",
		API:             api,
		OnUpdate:        c.onUpdate,
		OnComplete:      c.onComplete,
		UseWebSocket:    true,
		WSBaseURL:       "ws://stub",
		PollInterval:    20 * time.Millisecond,
		PushBaseDelay:   time.Millisecond,
		PushMaxAttempts: 3,
		Dial:            dialer.dial,
		Logger:          quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Start()
	defer session.Stop()

	waitFor(t, time.Second, func() bool { return api.fetchCalls() >= 1 }, "expected first poll attempt")
	conn.frames <- taskFrame(t, schemas.TaskRecord{TaskID: "zz-other", TaskType: "sync_all", Status: schemas.TaskStatusRunning, Progress: 10})

	waitFor(t, time.Second, func() bool { return c.completeCount() == 1 }, "session never completed after foreign frame")

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, update := range c.updates {
		if update.TaskID != "t1" {
			t.Fatalf("foreign record surfaced: %+v", update)
		}
	}
}

func TestSessionRequestCancelFailure(t *testing.T) {
	api := &fakeAPI{
		script:    []fetchResult{{record: running("t1", 20)}},
		cancelErr: errors.New("backend unavailable"),
	}
	c := &collector{}

	session, err := NewSession(SessionConfig{
		TaskID:       "t1",
		API:          api,
		OnUpdate:     c.onUpdate,
		OnError:      c.onError,
		UseWebSocket: false,
		PollInterval: time.Hour,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.Start()
	defer session.Stop()
	waitFor(t, time.Second, func() bool { return c.updateCount() == 1 }, "expected initial update")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := session.RequestCancel(ctx); err == nil {
		t.Fatal("expected cancel failure")
	}

	c.mu.Lock()
	errCount := len(c.errs)
	c.mu.Unlock()
	if errCount != 1 {
		t.Fatalf("expected one surfaced error, got %d", errCount)
	}
	if got := c.lastUpdate(); got.Status != schemas.TaskStatusRunning {
		t.Fatalf("record mutated by failed cancel: %+v", got)
	}
}
