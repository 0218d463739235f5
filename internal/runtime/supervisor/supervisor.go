// Package supervisor runs named, panic-safe goroutines that share one
// cancellation scope.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	logx "docwatch/pkg/logx"
)

// Supervisor is an errgroup with names, panic recovery and per-goroutine
// stats. The first goroutine to fail cancels the shared context.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
	log    logx.Logger

	mu    sync.Mutex
	stats map[string]*GoroutineStats
}

// GoroutineStats is a best-effort view of one named goroutine.
type GoroutineStats struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	Err       string    `json:"err,omitempty"`
	Panicked  bool      `json:"panicked,omitempty"`
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

func New(parent context.Context, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	s := &Supervisor{
		ctx:    gctx,
		cancel: cancel,
		g:      g,
		log:    logx.Nop(),
		stats:  map[string]*GoroutineStats{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel stops every goroutine without waiting.
func (s *Supervisor) Cancel() { s.cancel() }

// Go starts fn. A returned context.Canceled is a clean stop; any other error
// or a panic cancels the group.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	st := &GoroutineStats{Name: name, Running: true, StartedAt: time.Now()}
	s.mu.Lock()
	s.stats[name] = st
	s.mu.Unlock()

	s.g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("goroutine panicked", logx.String("name", name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				err = fmt.Errorf("panic in %s: %v", name, r)
				s.mu.Lock()
				st.Panicked = true
				s.mu.Unlock()
			}
			s.mu.Lock()
			st.Running = false
			st.StoppedAt = time.Now()
			if err != nil {
				st.Err = err.Error()
			}
			s.mu.Unlock()
			s.log.Debug("goroutine stopped", logx.String("name", name))
		}()

		s.log.Debug("goroutine started", logx.String("name", name))
		if err := fn(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

// Wait blocks until every goroutine returned or ctx expires, and reports the
// first failure.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.g.Wait() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		s.cancel()
		return err
	}
}

// Stop cancels and waits.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

// Snapshot lists goroutines, running ones first.
func (s *Supervisor) Snapshot() []GoroutineStats {
	s.mu.Lock()
	out := make([]GoroutineStats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, *st)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Running != out[j].Running {
			return out[i].Running
		}
		return out[i].Name < out[j].Name
	})
	return out
}
