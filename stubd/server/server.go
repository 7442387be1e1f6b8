// Package server is a development stand-in for the finance dashboard
// backend. It implements the task control API surface (create/get/list/
// cancel plus the per-task update stream) with an in-memory store and a
// simulated job runner, which also makes the "server restarted and forgot
// the task" behavior easy to reproduce locally.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/Roughriver74/west-rashod-sub001/internals/logbuf"
)

type Options struct {
	Logger *slog.Logger
	// StepEvery is the pace of the simulated job runner. Tests use a few
	// milliseconds; the default imitates a real 1C sync.
	StepEvery time.Duration
	Version   string
}

type Server struct {
	logger     *slog.Logger
	logbuf     *logbuf.Logger
	store      *taskStore
	upgrader   websocket.Upgrader
	stepEvery  time.Duration
	version    string
	httpServer *http.Server
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = InitLogger(os.Stderr, slog.LevelInfo)
	}
	stepEvery := opts.StepEvery
	if stepEvery <= 0 {
		stepEvery = time.Second
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		logger:    logger,
		logbuf:    logbuf.New(slog.String("component", "stubd")),
		store:     newTaskStore(),
		upgrader:  websocket.Upgrader{},
		stepEvery: stepEvery,
		version:   version,
	}
}

func InitLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:   level,
		NoColor: noColor,
	})
	return slog.New(handler)
}

func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("stub backend listening", slog.String("addr", listener.Addr().String()))
	server := &http.Server{
		Handler: s.Router(),
	}
	s.httpServer = server
	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
