package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

const runnerSteps = 10

// runTask simulates a sync job: it walks the task from pending through
// running to completed in fixed steps, honoring cancel requests between
// steps. Runs in its own goroutine per task.
func (s *Server) runTask(taskID string) {
	s.store.mutate(taskID, func(record *schemas.TaskRecord) {
		record.Status = schemas.TaskStatusRunning
		record.StartedAt = time.Now().UTC().Format(time.RFC3339)
		record.Total = runnerSteps
		record.Message = "sync started"
	})

	for step := 1; step <= runnerSteps; step++ {
		time.Sleep(s.stepEvery)
		if s.store.cancelRequested(taskID) {
			s.store.mutate(taskID, func(record *schemas.TaskRecord) {
				record.Status = schemas.TaskStatusCancelled
				record.CompletedAt = time.Now().UTC().Format(time.RFC3339)
				record.Message = "cancelled by request"
			})
			s.logger.Info("task cancelled", slog.String("task_id", taskID))
			return
		}
		processed := step
		s.store.mutate(taskID, func(record *schemas.TaskRecord) {
			record.Progress = step * 100 / runnerSteps
			record.Processed = processed
			record.Message = fmt.Sprintf("processed %d of %d batches", processed, runnerSteps)
		})
	}

	result := json.RawMessage(fmt.Sprintf(`{"items_processed":%d}`, runnerSteps))
	s.store.mutate(taskID, func(record *schemas.TaskRecord) {
		record.Status = schemas.TaskStatusCompleted
		record.Progress = 100
		record.Result = result
		record.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		record.Message = "sync finished"
	})
	s.logger.Info("task completed", slog.String("task_id", taskID))
}
