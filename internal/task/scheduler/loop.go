package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "docwatch/pkg/logx"
)

// Job is one unit of scheduled work. The context carries the per-run deadline.
type Job func(ctx context.Context) error

type Config struct {
	Schedule string
	// Timezone is an IANA name used for cron schedules; empty means local.
	Timezone   string
	RunOnStart bool
	// RunTimeout is the hard upper bound of a single run. Zero disables it.
	RunTimeout time.Duration
}

// ErrPanic wraps a recovered job panic.
var ErrPanic = errors.New("job panicked")

// Snapshot is a point-in-time view of the loop.
type Snapshot struct {
	Schedule  string
	Runs      uint64
	Failures  uint64
	Running   bool
	LastStart time.Time
	LastEnd   time.Time
	LastErr   string
	Next      time.Time
}

type Loop struct {
	spec  ParsedSpec
	sched cron.Schedule
	loc   *time.Location
	cfg   Config
	job   Job
	log   logx.Logger
	now   func() time.Time

	mu   sync.Mutex
	snap Snapshot
}

func NewLoop(cfg Config, job Job, log logx.Logger) (*Loop, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is nil")
	}
	spec, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	loc, err := LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	sched, err := spec.Schedule(loc)
	if err != nil {
		return nil, err
	}
	if cfg.RunTimeout < 0 {
		cfg.RunTimeout = 0
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{
		spec:  spec,
		sched: sched,
		loc:   loc,
		cfg:   cfg,
		job:   job,
		log:   log,
		now:   time.Now,
		snap:  Snapshot{Schedule: spec.String()},
	}, nil
}

// LoadLocation resolves an IANA zone name; empty or "Local" is time.Local.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// Next is the first trigger after t.
func (l *Loop) Next(t time.Time) time.Time {
	return l.sched.Next(t.In(l.loc))
}

func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Run blocks until ctx is cancelled. It never returns a job's error.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("scheduler started",
		logx.String("schedule", l.spec.String()),
		logx.String("tz", l.loc.String()),
		logx.Duration("run_timeout", l.cfg.RunTimeout),
	)
	defer l.log.Info("scheduler stopped")

	if l.cfg.RunOnStart {
		l.RunOnce(ctx)
	}
	for {
		next := l.Next(l.now())
		l.mu.Lock()
		l.snap.Next = next
		l.mu.Unlock()

		wait := next.Sub(l.now())
		if wait < 0 {
			wait = 0
		}
		l.log.Debug("next run", logx.Time("at", next), logx.Duration("in", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		l.RunOnce(ctx)
	}
}

// RunOnce executes the job under the run deadline, recovering panics.
func (l *Loop) RunOnce(ctx context.Context) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	runCtx := ctx
	if l.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.cfg.RunTimeout)
		defer cancel()
	}

	start := l.now()
	l.mu.Lock()
	l.snap.Running = true
	l.snap.LastStart = start
	l.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
			l.log.Error("job panic", logx.Any("panic", p), logx.String("stack", string(debug.Stack())))
		}
		if err == nil && runCtx.Err() != nil && ctx.Err() == nil {
			l.log.Warn("run hit its deadline", logx.Duration("run_timeout", l.cfg.RunTimeout))
		}
		l.mu.Lock()
		l.snap.Running = false
		l.snap.Runs++
		l.snap.LastEnd = l.now()
		l.snap.LastErr = ""
		if err != nil {
			l.snap.Failures++
			l.snap.LastErr = err.Error()
		}
		l.mu.Unlock()
	}()

	if err = l.job(runCtx); err != nil {
		l.log.Debug("run returned error", logx.Err(err))
	}
	return err
}
