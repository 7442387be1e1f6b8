package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/parsers/zjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Roughriver74/west-rashod-sub001/internals/logbuf"
	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

func (s *Server) HandlerCreateTask(w http.ResponseWriter, r *http.Request) {
	request := schemas.TaskCreateRequest{}
	if errs := schemas.TaskCreateSchema.Parse(zjson.Decode(r.Body), &request); errs != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, "invalid task request", z.Issues.Flatten(errs)), Render.Status(http.StatusUnprocessableEntity))
		return
	}

	record := schemas.TaskRecord{
		TaskID:    uuid.NewString(),
		TaskType:  string(request.Kind),
		Status:    schemas.TaskStatusPending,
		Message:   "queued",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if request.Params.DateFrom != "" || request.Params.DateTo != "" || request.Params.AutoClassify {
		record.Metadata = map[string]string{}
		if request.Params.DateFrom != "" {
			record.Metadata["date_from"] = request.Params.DateFrom
		}
		if request.Params.DateTo != "" {
			record.Metadata["date_to"] = request.Params.DateTo
		}
		if request.Params.AutoClassify {
			record.Metadata["auto_classify"] = "true"
		}
	}
	s.store.create(record)
	go s.runTask(record.TaskID)

	logbuf.FromContext(r.Context()).Info("task created",
		slog.String("task_id", record.TaskID),
		slog.String("kind", record.TaskType),
	)
	RenderJSON(w, r, schemas.TaskCreateResponse{
		TaskID:  record.TaskID,
		Message: "task accepted",
	}, Render.Status(http.StatusAccepted))
}

func (s *Server) HandlerGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	record, ok := s.store.get(taskID)
	if !ok {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, "task not found", nil), Render.Status(http.StatusNotFound))
		return
	}
	RenderJSON(w, r, record)
}

func (s *Server) HandlerListTasks(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, "limit must be a non-negative integer", nil), Render.Status(http.StatusBadRequest))
			return
		}
		limit = parsed
	}
	tasks, total := s.store.list(kind, limit)
	RenderJSON(w, r, schemas.TaskListResponse{Tasks: tasks, Total: total})
}

func (s *Server) HandlerCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	record, ok, requested := s.store.requestCancel(taskID)
	if !ok {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, "task not found", nil), Render.Status(http.StatusNotFound))
		return
	}
	if !requested {
		RenderJSON(w, r, schemas.TaskCancelResponse{
			Message: "task already finished with status " + string(record.Status),
		})
		return
	}
	logbuf.FromContext(r.Context()).Info("cancel requested", slog.String("task_id", taskID))
	RenderJSON(w, r, schemas.TaskCancelResponse{Message: "cancellation requested"})
}
