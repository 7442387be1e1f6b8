package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

type pushState int

const (
	pushIdle pushState = iota
	pushConnecting
	pushConnected
	pushExhausted
	pushClosed
)

func (s pushState) String() string {
	switch s {
	case pushIdle:
		return "idle"
	case pushConnecting:
		return "connecting"
	case pushConnected:
		return "connected"
	case pushExhausted:
		return "exhausted"
	case pushClosed:
		return "closed"
	}
	return "unknown"
}

var ErrPushNotConnected = errors.New("push channel is not connected")

const (
	dialTimeout         = 5 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Conn is the subset of a websocket connection the channel needs. It exists
// so tests can drive the channel without a network.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

func DialWebSocket(ctx context.Context, rawURL string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

type PushConfig struct {
	// URL is the fully constructed stream endpoint for one task. The channel
	// never consults ambient state to build it.
	URL          string
	BaseDelay    time.Duration
	MaxAttempts  int
	PingInterval time.Duration
	Dial         DialFunc
	OnRecord     func(schemas.TaskRecord)
	Logger       *slog.Logger
}

// PushChannel maintains a live stream of task updates for one task id. On
// unexpected close it reconnects with a linearly growing wait (attempt n
// waits n times BaseDelay) up to MaxAttempts, then goes silent without
// surfacing an error: polling is the channel of last resort, not this one.
type PushChannel struct {
	cfg    PushConfig
	logger *slog.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	state   pushState
	attempt int
	conn    Conn
	started bool
	closed  chan struct{}

	// waitFn sleeps out a reconnect delay, returning false when the channel
	// was torn down first. Defaults to waitDelay; test seam.
	waitFn func(delay time.Duration) bool
}

type pushFrame struct {
	Type string              `json:"type"`
	Task *schemas.TaskRecord `json:"task,omitempty"`
}

type pushCommand struct {
	Action string `json:"action"`
}

func NewPushChannel(cfg PushConfig) *PushChannel {
	if cfg.Dial == nil {
		cfg.Dial = DialWebSocket
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &PushChannel{
		cfg:    cfg,
		logger: logger.With(slog.String("channel", "push")),
		state:  pushIdle,
		closed: make(chan struct{}),
	}
	p.waitFn = p.waitDelay
	return p
}

// Connect starts the channel. It returns immediately; connection management
// happens on the channel's own goroutine. Calling Connect more than once, or
// after Disconnect, is a no-op.
func (p *PushChannel) Connect() {
	p.mu.Lock()
	if p.started || p.state == pushClosed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.state = pushConnecting
	p.mu.Unlock()
	go p.run()
}

// Disconnect tears the channel down. It is idempotent and terminal: no
// reconnect attempt survives it.
func (p *PushChannel) Disconnect() {
	p.mu.Lock()
	if p.state == pushClosed {
		p.mu.Unlock()
		return
	}
	p.state = pushClosed
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	close(p.closed)
	if conn != nil {
		conn.Close()
	}
}

// SendCancel asks the server to cancel the task through the stream's side
// channel. Best effort: callers should treat a failure as "use the REST
// cancel endpoint instead".
func (p *PushChannel) SendCancel() error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return ErrPushNotConnected
	}
	data, err := json.Marshal(pushCommand{Action: "cancel"})
	if err != nil {
		return err
	}
	return p.write(conn, data)
}

func (p *PushChannel) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.String()
}

func (p *PushChannel) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt
}

func (p *PushChannel) run() {
	for {
		select {
		case <-p.closed:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		conn, err := p.cfg.Dial(ctx, p.cfg.URL)
		cancel()
		if err != nil {
			p.logger.Debug("push dial failed", slog.String("url", p.cfg.URL), slog.String("error", err.Error()))
			if !p.waitRetry() {
				return
			}
			continue
		}

		p.mu.Lock()
		if p.state == pushClosed {
			p.mu.Unlock()
			conn.Close()
			return
		}
		p.conn = conn
		p.state = pushConnected
		p.attempt = 0
		p.mu.Unlock()
		p.logger.Debug("push connected", slog.String("url", p.cfg.URL))

		stopPing := make(chan struct{})
		go p.pingLoop(conn, stopPing)
		readErr := p.readLoop(conn)
		close(stopPing)
		conn.Close()

		p.mu.Lock()
		p.conn = nil
		closedNow := p.state == pushClosed
		if !closedNow {
			p.state = pushIdle
		}
		p.mu.Unlock()
		if closedNow {
			return
		}

		if readErr != nil {
			p.logger.Debug("push connection lost", slog.String("error", readErr.Error()))
		}
		if !p.waitRetry() {
			return
		}
	}
}

// waitRetry books the next reconnect attempt and sleeps out its delay. It
// returns false when the channel must stop retrying, either because it was
// disconnected or because the attempt budget ran out.
func (p *PushChannel) waitRetry() bool {
	p.mu.Lock()
	if p.state == pushClosed {
		p.mu.Unlock()
		return false
	}
	p.attempt++
	attempt := p.attempt
	if attempt > p.cfg.MaxAttempts {
		p.state = pushExhausted
		p.mu.Unlock()
		p.logger.Warn("push reconnect attempts exhausted, polling keeps the task alive",
			slog.Int("max_attempts", p.cfg.MaxAttempts))
		return false
	}
	p.state = pushConnecting
	p.mu.Unlock()

	delay := time.Duration(attempt) * p.cfg.BaseDelay
	p.logger.Debug("push reconnect scheduled", slog.Int("attempt", attempt), slog.Duration("delay", delay))
	return p.waitFn(delay)
}

func (p *PushChannel) waitDelay(delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-p.closed:
		return false
	case <-timer.C:
		return true
	}
}

func (p *PushChannel) readLoop(conn Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		p.handleFrame(data)
	}
}

func (p *PushChannel) handleFrame(data []byte) {
	frame := pushFrame{}
	if err := json.Unmarshal(data, &frame); err != nil {
		p.logger.Warn("dropping malformed push frame", slog.String("error", err.Error()))
		return
	}
	switch frame.Type {
	case "task_update":
		if frame.Task == nil {
			p.logger.Warn("dropping task_update frame without task payload")
			return
		}
		if p.cfg.OnRecord != nil {
			p.cfg.OnRecord(*frame.Task)
		}
	case "pong":
	default:
		p.logger.Debug("ignoring push frame", slog.String("type", frame.Type))
	}
}

func (p *PushChannel) pingLoop(conn Conn, stop chan struct{}) {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-p.closed:
			return
		case <-ticker.C:
			if err := p.write(conn, []byte("ping")); err != nil {
				return
			}
		}
	}
}

func (p *PushChannel) write(conn Conn, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}
