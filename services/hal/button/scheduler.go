package button

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"sensornode-go/errcode"
	"sensornode-go/x/logx"
	"sensornode-go/x/timex"
)

const (
	DefaultInterval    = 10 * time.Millisecond
	DefaultPriority    = 2
	DefaultStackBudget = 4096
)

// Options tune a Scheduler. Zero values take defaults.
type Options struct {
	Interval time.Duration
	Clock    timex.Clock
}

// Stats is a diagnostic snapshot.
type Stats struct {
	Running         bool
	Ticks           uint64
	HandlerFailures uint64
	Priority        int
	StackBudget     int
}

// Scheduler drives a Registry's tick from one background goroutine.
type Scheduler struct {
	reg      *Registry
	clock    timex.Clock
	interval time.Duration
	log      *logrus.Entry

	mu       sync.Mutex
	cancel   context.CancelFunc
	gen      uint64
	running  bool
	priority int
	stack    int

	ticks atomic.Uint64
}

func NewScheduler(reg *Registry, opts Options, log *logrus.Entry) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = timex.NewMonoClock(0)
	}
	return &Scheduler{
		reg:      reg,
		clock:    opts.Clock,
		interval: opts.Interval,
		log:      logx.OrDiscard(log),
	}
}

// Start launches the tick goroutine. A positive priority pins it to its own
// OS thread; stackBudget is recorded for diagnostics only. The first tick
// returns every button to Idle. Calling Start while running is an error.
func (s *Scheduler) Start(ctx context.Context, priority, stackBudget int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.log.Warn("scheduler already running")
		return errcode.Wrap(errcode.AlreadyRunning, "start", "button scheduler", nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.gen++
	s.cancel = cancel
	s.running = true
	s.priority = priority
	s.stack = stackBudget

	go s.loop(ctx, s.gen, priority)
	s.log.WithFields(logrus.Fields{
		"interval": s.interval,
		"priority": priority,
		"stack":    stackBudget,
	}).Info("button scheduler started")
	return nil
}

// Stop cancels the tick goroutine without waiting for a tick in progress.
// Calling Stop while stopped is an error.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.log.Warn("scheduler not running")
		return errcode.Wrap(errcode.NotRunning, "stop", "button scheduler", nil)
	}
	s.cancel()
	s.cancel = nil
	s.running = false
	s.log.Info("button scheduler stopped")
	return nil
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Running:         s.running,
		Ticks:           s.ticks.Load(),
		HandlerFailures: s.reg.HandlerFailures(),
		Priority:        s.priority,
		StackBudget:     s.stack,
	}
}

func (s *Scheduler) loop(ctx context.Context, gen uint64, priority int) {
	if priority > 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer s.exited(gen)

	s.reg.ResetAll()
	s.tick()

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// Stop may race a pending tick; drop it.
			if ctx.Err() != nil {
				return
			}
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	s.reg.Tick(s.clock.NowMs(), s.clock.Period())
	s.ticks.Add(1)
}

// exited clears the running flag when the parent context ends the loop
// rather than Stop. A newer Start owns the flag otherwise.
func (s *Scheduler) exited(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.running {
		s.running = false
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	}
}
