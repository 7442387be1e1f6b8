package tracking

import (
	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

// applyUpdate merges an incoming server snapshot into the currently held
// record. It returns the record to hold and whether the incoming snapshot was
// stale. A stale snapshot must be ignored by the caller.
//
// Staleness rules:
//   - a snapshot for a different task id never applies
//   - a snapshot that changes the task type never applies
//   - once the held record is terminal, every later snapshot is stale,
//     including duplicates of the terminal state itself
//   - a snapshot whose status transition is not permitted by the state
//     machine is stale
//
// Within those rules the merge is last-write-wins: no timestamp or progress
// reconciliation between channels.
func applyUpdate(current *schemas.TaskRecord, incoming schemas.TaskRecord) (schemas.TaskRecord, bool) {
	if !incoming.Status.Valid() {
		return deref(current), true
	}
	if current == nil {
		return incoming, false
	}
	if incoming.TaskID != current.TaskID {
		return *current, true
	}
	if incoming.TaskType != "" && current.TaskType != "" && incoming.TaskType != current.TaskType {
		return *current, true
	}
	if current.Status.IsTerminal() {
		return *current, true
	}
	if !current.Status.CanTransition(incoming.Status) {
		return *current, true
	}
	if incoming.TaskType == "" {
		incoming.TaskType = current.TaskType
	}
	if incoming.Metadata == nil {
		incoming.Metadata = current.Metadata
	}
	return incoming, false
}

func deref(record *schemas.TaskRecord) schemas.TaskRecord {
	if record == nil {
		return schemas.TaskRecord{}
	}
	return *record
}

// notFoundRecord synthesizes the terminal record reported when the server no
// longer knows a task id, typically after a restart that lost in-memory task
// state. The job's outcome is permanently unknowable at that point.
func notFoundRecord(taskID string) schemas.TaskRecord {
	return schemas.TaskRecord{
		TaskID:   taskID,
		Status:   schemas.TaskStatusFailed,
		Progress: 0,
		Error:    "task not found: the server no longer knows this task, it may have been restarted",
	}
}
