package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
	"github.com/Roughriver74/west-rashod-sub001/sdk"
)

type Fetcher interface {
	GetTask(ctx context.Context, taskID string) (*schemas.TaskRecord, error)
}

const pollTimeout = 10 * time.Second

type PollerConfig struct {
	TaskID   string
	Fetch    Fetcher
	Interval time.Duration
	// OnRecord receives every successfully fetched snapshot.
	OnRecord func(schemas.TaskRecord)
	// OnGone receives the locally synthesized failed record after a
	// not-found response. The poller stops itself first, so OnGone fires at
	// most once.
	OnGone func(schemas.TaskRecord)
	Logger *slog.Logger
}

// Poller fetches the task's current record on a fixed interval. It is the
// channel of last resort: transient fetch errors are logged and retried on
// the next tick, never surfaced.
type Poller struct {
	cfg    PollerConfig
	logger *slog.Logger

	mu       sync.Mutex
	started  bool
	stop     chan struct{}
	stopOnce sync.Once
}

func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		logger: logger.With(slog.String("channel", "poll")),
		stop:   make(chan struct{}),
	}
}

// Start begins polling. The first fetch happens immediately so the first
// render never waits out a full poll period.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()
	go p.run()
}

// Stop cancels future ticks. Idempotent.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// ForceTick runs a single fetch outside the schedule. Used by tests to prove
// that a stopped task id cannot be revived.
func (p *Poller) ForceTick() {
	p.tick()
}

func (p *Poller) run() {
	if !p.tick() {
		return
	}
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if !p.tick() {
				return
			}
		}
	}
}

// tick fetches once. It returns false when polling must stop for good.
func (p *Poller) tick() bool {
	select {
	case <-p.stop:
		return false
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	record, err := p.cfg.Fetch.GetTask(ctx, p.cfg.TaskID)
	cancel()
	if err != nil {
		if errors.Is(err, sdk.ErrTaskNotFound) {
			p.Stop()
			p.logger.Warn("task unknown to server, reporting terminal failure", slog.String("task_id", p.cfg.TaskID))
			if p.cfg.OnGone != nil {
				p.cfg.OnGone(notFoundRecord(p.cfg.TaskID))
			}
			return false
		}
		p.logger.Warn("poll fetch failed, retrying on next tick", slog.String("task_id", p.cfg.TaskID), slog.String("error", err.Error()))
		return true
	}
	if record == nil {
		p.logger.Warn("poll fetch returned no record", slog.String("task_id", p.cfg.TaskID))
		return true
	}
	if p.cfg.OnRecord != nil {
		p.cfg.OnRecord(*record)
	}
	return true
}
