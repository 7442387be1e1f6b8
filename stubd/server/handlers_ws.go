package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

type streamFrame struct {
	Type string              `json:"type"`
	Task *schemas.TaskRecord `json:"task,omitempty"`
}

type clientAction struct {
	Action string `json:"action"`
}

// HandlerTaskStream upgrades to a websocket and pushes a snapshot frame for
// every state change of the task. It answers "ping" with a pong frame and
// treats {"action":"cancel"} like a cancel request over HTTP.
func (s *Server) HandlerTaskStream(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	record, ok := s.store.get(taskID)
	if !ok {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, "task not found", nil), Render.Status(http.StatusNotFound))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	updates, unsubscribe, ok := s.store.subscribe(taskID)
	if !ok {
		return
	}
	defer unsubscribe()

	// gorilla allows one concurrent writer, and both the update pump and
	// the pong reply write to the same conn.
	var writeMu sync.Mutex
	writeFrame := func(frame streamFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(frame)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		snapshot := record
		if err := writeFrame(streamFrame{Type: "task_update", Task: &snapshot}); err != nil {
			return
		}
		for update := range updates {
			update := update
			if err := writeFrame(streamFrame{Type: "task_update", Task: &update}); err != nil {
				return
			}
		}
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if string(payload) == "ping" {
			if err := writeFrame(streamFrame{Type: "pong"}); err != nil {
				break
			}
			continue
		}
		action := clientAction{}
		if err := json.Unmarshal(payload, &action); err != nil {
			continue
		}
		if action.Action == "cancel" {
			s.store.requestCancel(taskID)
		}
	}

	unsubscribe()
	conn.Close()
	<-done
}
