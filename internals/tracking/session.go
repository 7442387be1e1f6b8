package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

// TaskAPI is the slice of the Task Control API a session needs. *sdk.Client
// satisfies it.
type TaskAPI interface {
	Fetcher
	CancelTask(ctx context.Context, taskID string) (*schemas.TaskCancelResponse, error)
}

type SessionConfig struct {
	TaskID string
	API    TaskAPI

	// OnUpdate receives every merged, non-stale record.
	OnUpdate func(schemas.TaskRecord)
	// OnComplete fires exactly once, with the first terminal record.
	OnComplete func(schemas.TaskRecord)
	// OnError receives local, non-fatal errors (today: cancel request
	// failures). The held record is never touched by these.
	OnError func(error)

	// UseWebSocket selects whether the push channel is opened at all. The
	// poll channel runs either way.
	UseWebSocket bool
	// Background keeps the session alive while no view is attached to it.
	// The session itself does not render; this flag is advice for owners of
	// detachable views.
	Background bool

	// WSBaseURL is the explicit push endpoint base (e.g. ws://host:8000),
	// injected rather than derived from ambient state.
	WSBaseURL string

	PollInterval    time.Duration
	PushBaseDelay   time.Duration
	PushMaxAttempts int
	PushPingEvery   time.Duration

	// Dial overrides the websocket dialer. Test seam.
	Dial   DialFunc
	Logger *slog.Logger
}

// Session is the single source of truth for one task id. It owns one poll
// channel and at most one push channel, and funnels everything they deliver
// through one goroutine that alone may touch the held record.
type Session struct {
	cfg    SessionConfig
	logger *slog.Logger

	poller *Poller
	push   *PushChannel

	events chan sessionEvent
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	viewMu sync.Mutex
	view   *ViewHooks

	// loop goroutine state; untouched by anyone else
	record    *schemas.TaskRecord
	completed bool
}

type sessionEvent struct {
	record schemas.TaskRecord
	gone   bool
}

// ViewHooks are the callbacks a detachable view registers on a running
// session. They fire in addition to the session's own callbacks, and stop
// firing the moment the view detaches.
type ViewHooks struct {
	OnUpdate   func(schemas.TaskRecord)
	OnComplete func(schemas.TaskRecord)
	OnError    func(error)
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.TaskID == "" {
		return nil, errors.New("tracking: task id is required")
	}
	if cfg.API == nil {
		return nil, errors.New("tracking: task api is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("task_id", cfg.TaskID))

	s := &Session{
		cfg:    cfg,
		logger: logger,
		events: make(chan sessionEvent, 16),
		done:   make(chan struct{}),
	}

	s.poller = NewPoller(PollerConfig{
		TaskID:   cfg.TaskID,
		Fetch:    cfg.API,
		Interval: cfg.PollInterval,
		OnRecord: func(record schemas.TaskRecord) { s.deliver(sessionEvent{record: record}) },
		OnGone:   func(record schemas.TaskRecord) { s.deliver(sessionEvent{record: record, gone: true}) },
		Logger:   logger,
	})

	if cfg.UseWebSocket {
		s.push = NewPushChannel(PushConfig{
			URL:          fmt.Sprintf("%s/api/tasks/%s/ws", cfg.WSBaseURL, cfg.TaskID),
			BaseDelay:    cfg.PushBaseDelay,
			MaxAttempts:  cfg.PushMaxAttempts,
			PingInterval: cfg.PushPingEvery,
			Dial:         cfg.Dial,
			OnRecord:     func(record schemas.TaskRecord) { s.deliver(sessionEvent{record: record}) },
			Logger:       logger,
		})
	}

	return s, nil
}

// Start activates the session: one immediate poll fetch plus, when enabled,
// the push channel. Calling Start twice is a no-op.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		go s.loop()
		s.poller.Start()
		if s.push != nil {
			s.push.Connect()
		}
	})
}

// Stop releases both channels and the merge loop regardless of task status.
// Idempotent; safe to call after the task already finished.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.poller.Stop()
		if s.push != nil {
			s.push.Disconnect()
		}
	})
}

// Background reports whether the session should outlive a detached view.
func (s *Session) Background() bool {
	return s.cfg.Background
}

// AttachView registers view callbacks on a running session. At most one
// view is attached at a time; attaching replaces the previous one.
func (s *Session) AttachView(hooks ViewHooks) {
	s.viewMu.Lock()
	s.view = &hooks
	s.viewMu.Unlock()
}

// DetachView removes the current view. The session keeps tracking.
func (s *Session) DetachView() {
	s.viewMu.Lock()
	s.view = nil
	s.viewMu.Unlock()
}

func (s *Session) viewHooks() *ViewHooks {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	return s.view
}

// RequestCancel asks the server to cancel the job. Advisory and
// asynchronous: the held record is never updated optimistically; a later
// channel update carries the cancelled status if the server honored the
// request. When the push channel is live the cancel command is also sent
// through its side channel, best effort.
func (s *Session) RequestCancel(ctx context.Context) error {
	if s.push != nil {
		if err := s.push.SendCancel(); err != nil && !errors.Is(err, ErrPushNotConnected) {
			s.logger.Debug("push cancel command failed", slog.String("error", err.Error()))
		}
	}
	resp, err := s.cfg.API.CancelTask(ctx, s.cfg.TaskID)
	if err != nil {
		wrapped := fmt.Errorf("cancel request for task %s failed: %w", s.cfg.TaskID, err)
		if s.cfg.OnError != nil {
			s.cfg.OnError(wrapped)
		}
		if hooks := s.viewHooks(); hooks != nil && hooks.OnError != nil {
			hooks.OnError(wrapped)
		}
		return wrapped
	}
	if resp != nil && resp.Message != "" {
		s.logger.Info("cancel requested", slog.String("message", resp.Message))
	}
	return nil
}

// deliver hands a channel event to the merge loop without ever blocking a
// channel goroutine on a stopped session.
func (s *Session) deliver(event sessionEvent) {
	select {
	case <-s.done:
	case s.events <- event:
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.handle(event)
		}
	}
}

func (s *Session) handle(event sessionEvent) {
	// Both channels serve exactly one task id. A snapshot naming any other id
	// is malformed and must never seed or touch the held record, even while
	// no record is held yet.
	if event.record.TaskID != s.cfg.TaskID {
		s.logger.Warn("discarding update for foreign task", slog.String("got", event.record.TaskID))
		return
	}
	merged, stale := applyUpdate(s.record, event.record)
	if stale {
		s.logger.Debug("discarding stale update",
			slog.String("status", string(event.record.Status)),
			slog.Int("progress", event.record.Progress))
		return
	}
	s.record = &merged
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(merged)
	}
	if hooks := s.viewHooks(); hooks != nil && hooks.OnUpdate != nil {
		hooks.OnUpdate(merged)
	}
	if !merged.Status.IsTerminal() || s.completed {
		return
	}
	s.completed = true
	// No further poll ticks once the outcome is known. The push channel
	// stays open until explicit teardown; its late messages fall to the
	// staleness gate. The one exception is a vanished task: nothing will
	// ever arrive for it, so the stream is shut down too.
	s.poller.Stop()
	if event.gone && s.push != nil {
		s.push.Disconnect()
	}
	if s.cfg.OnComplete != nil {
		s.cfg.OnComplete(merged)
	}
	if hooks := s.viewHooks(); hooks != nil && hooks.OnComplete != nil {
		hooks.OnComplete(merged)
	}
}
