package server

import (
	"sync"

	"github.com/Roughriver74/west-rashod-sub001/internals/assert"
	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

// taskStore keeps every task in memory on purpose: restarting the stub
// forgets all tasks, which is exactly the condition the tracking client's
// not-found handling exists for.
type taskStore struct {
	mu    sync.Mutex
	tasks map[string]*taskState
	order []string
}

type taskState struct {
	record          schemas.TaskRecord
	cancelRequested bool
	subscribers     map[chan schemas.TaskRecord]struct{}
}

func newTaskStore() *taskStore {
	return &taskStore{tasks: map[string]*taskState{}}
}

func (s *taskStore) create(record schemas.TaskRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.tasks[record.TaskID]
	assert.Assert(!exists, "task id collision: ", record.TaskID)
	s.tasks[record.TaskID] = &taskState{
		record:      record,
		subscribers: map[chan schemas.TaskRecord]struct{}{},
	}
	s.order = append(s.order, record.TaskID)
}

func (s *taskStore) get(taskID string) (schemas.TaskRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tasks[taskID]
	if !ok {
		return schemas.TaskRecord{}, false
	}
	return state.record, true
}

// list returns tasks newest-first, optionally filtered by task type.
func (s *taskStore) list(taskType string, limit int) ([]schemas.TaskRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]schemas.TaskRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		state := s.tasks[s.order[i]]
		if taskType != "" && state.record.TaskType != taskType {
			continue
		}
		records = append(records, state.record)
	}
	total := len(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, total
}

// mutate applies fn to a live record and broadcasts the result to stream
// subscribers. Terminal records are never overwritten: a cancel landing
// after completion must not resurrect the task.
func (s *taskStore) mutate(taskID string, fn func(*schemas.TaskRecord)) (schemas.TaskRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tasks[taskID]
	if !ok {
		return schemas.TaskRecord{}, false
	}
	if state.record.Status.IsTerminal() {
		return state.record, false
	}
	fn(&state.record)
	snapshot := state.record
	for ch := range state.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
	return snapshot, true
}

// requestCancel flags a running task for cancellation. The runner notices
// the flag on its next step; the store itself never flips the status.
func (s *taskStore) requestCancel(taskID string) (schemas.TaskRecord, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tasks[taskID]
	if !ok {
		return schemas.TaskRecord{}, false, false
	}
	if state.record.Status.IsTerminal() {
		return state.record, true, false
	}
	state.cancelRequested = true
	return state.record, true, true
}

func (s *taskStore) cancelRequested(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tasks[taskID]
	return ok && state.cancelRequested
}

// subscribe registers a buffered update channel for the task's stream. The
// returned func unsubscribes and closes the channel; both sends and the
// close happen under the store mutex so they cannot race. Updates dropped
// on a full channel are fine because every snapshot is complete state, not
// a delta.
func (s *taskStore) subscribe(taskID string) (chan schemas.TaskRecord, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tasks[taskID]
	if !ok {
		return nil, nil, false
	}
	ch := make(chan schemas.TaskRecord, 16)
	state.subscribers[ch] = struct{}{}
	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, subscribed := state.subscribers[ch]; !subscribed {
			return
		}
		delete(state.subscribers, ch)
		close(ch)
	}
	return ch, unsubscribe, true
}
