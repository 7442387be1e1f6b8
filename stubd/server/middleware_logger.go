package server

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Roughriver74/west-rashod-sub001/internals/logbuf"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade take over the connection.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// MiddlewareLogger attaches a request-scoped buffered logger and emits a
// single record per request once the handler returns.
func (s *Server) MiddlewareLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = strconv.FormatInt(time.Now().UnixNano(), 36)
		}
		requestLogger := s.logbuf.With(
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		ctx := logbuf.WithContext(r.Context(), requestLogger)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				requestLogger.Error("panic in handler",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				RenderJSON(recorder, r, JsonResponseError(JsonResponseErrorCodeInternal, "internal error", nil), Render.Status(http.StatusInternalServerError))
			}
			requestLogger.Add(
				slog.Int("status", recorder.status),
				slog.Duration("duration", time.Since(started)),
			)
			s.logger.Info("request", requestLogger.Flush())
		}()

		next.ServeHTTP(recorder, r.WithContext(ctx))
	})
}
