package schemas

import "encoding/json"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

func TaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusPending,
		TaskStatusRunning,
		TaskStatusCompleted,
		TaskStatusFailed,
		TaskStatusCancelled,
	}
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status is absorbing: once a task reaches a
// terminal status no later update may move it anywhere else.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits moving from s to
// next. pending -> running -> {completed|failed|cancelled}; pending may also
// jump straight to failed or cancelled. Self transitions are allowed because
// both delivery channels re-report the current state.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	switch s {
	case TaskStatusPending:
		return true
	case TaskStatusRunning:
		return next != TaskStatusPending
	}
	return false
}

// TaskRecord is the observable state of one server-side job at a point in
// time. The client never mutates a record field by field; it only replaces
// its held copy with server-reported snapshots.
type TaskRecord struct {
	TaskID      string            `json:"task_id"`
	TaskType    string            `json:"task_type"`
	Status      TaskStatus        `json:"status"`
	Progress    int               `json:"progress"`
	Processed   int               `json:"processed,omitempty"`
	Total       int               `json:"total,omitempty"`
	Message     string            `json:"message,omitempty"`
	Result      json.RawMessage   `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
	StartedAt   string            `json:"started_at,omitempty"`
	CompletedAt string            `json:"completed_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type TaskListResponse struct {
	Tasks []TaskRecord `json:"tasks"`
	Total int          `json:"total"`
}

type TaskCancelResponse struct {
	Message string `json:"message"`
}
