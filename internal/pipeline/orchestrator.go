// Package pipeline decides whether fetched content is new and, when it is,
// converts and delivers it exactly once.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"docwatch/internal/content"
	"docwatch/internal/eventbus"
	logx "docwatch/pkg/logx"
)

var ErrNoOutput = errors.New("no output record stored")

type Deps struct {
	Fetcher   Fetcher
	Store     Store
	Converter Converter
	Notifier  Notifier
	Bus       eventbus.Bus
}

// Orchestrator runs the state machine. Runs must not overlap; the scheduler
// and the process lock guarantee that.
type Orchestrator struct {
	deps Deps
	cfg  Config
	log  logx.Logger
	now  func() time.Time
}

func New(deps Deps, cfg Config, log logx.Logger) *Orchestrator {
	if deps.Bus == nil {
		deps.Bus = eventbus.Nop()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{deps: deps, cfg: cfg, log: log, now: time.Now}
}

type run struct {
	res Result
	log logx.Logger
}

func (r *run) enter(s State) {
	r.res.Trace = append(r.res.Trace, s)
	r.log.Debug("state", logx.String("state", string(s)))
}

func (r *run) fail(stage Stage, err error) {
	r.enter(StateFailed)
	r.res.Status = StatusFailed
	r.res.Stage = stage
	r.res.Err = err
}

func (r *run) done(status Status) {
	r.enter(StateDone)
	r.res.Status = status
}

func (o *Orchestrator) begin() *run {
	id := uuid.NewString()
	r := &run{
		res: Result{ID: id, StartedAt: o.now()},
		log: o.log.With(logx.String("run", id[:8])),
	}
	r.enter(StateIdle)
	return r
}

func (o *Orchestrator) finish(r *run) Result {
	r.res.Took = o.now().Sub(r.res.StartedAt)
	res := r.res

	fields := []logx.Field{
		logx.String("status", string(res.Status)),
		logx.Duration("took", res.Took),
	}
	if !res.Fingerprint.IsZero() {
		fields = append(fields, logx.String("fingerprint", res.Fingerprint.Short()))
	}
	if res.Regenerated {
		fields = append(fields, logx.Bool("regenerated", true))
	}
	if res.Failed() {
		fields = append(fields, logx.String("stage", string(res.Stage)), logx.Err(res.Err))
		r.log.Warn("run failed", fields...)
	} else {
		r.log.Info("run finished", fields...)
	}

	o.deps.Bus.Publish(eventbus.Event{Type: eventbus.TypePipelineRun, Time: res.StartedAt, Data: res})
	return res
}

// Run performs one pass: fetch, detect, and on change convert and notify.
// Every failure ends the run; nothing is returned as a Go error.
func (o *Orchestrator) Run(ctx context.Context) (res Result) {
	r := o.begin()
	defer func() {
		if p := recover(); p != nil {
			r.fail(StageRun, &PanicError{Value: p})
			res = o.finish(r)
		}
	}()

	r.enter(StateFetching)
	fetched, err := o.deps.Fetcher.Fetch(ctx)
	if err != nil {
		r.fail(StageFetch, err)
		return o.finish(r)
	}
	if fetched.Empty() {
		r.fail(StageFetch, errors.New("fetched document is empty"))
		return o.finish(r)
	}
	fetched.Format = content.FormatSource
	r.res.Fingerprint = fetched.Fingerprint()

	r.enter(StateDetecting)
	previous, err := o.deps.Store.LoadSource()
	if err != nil {
		r.fail(StageStore, err)
		return o.finish(r)
	}

	if !content.IsChanged(fetched, previous) {
		if !o.cfg.RegenerateMissingOutput {
			r.done(StatusUnchanged)
			return o.finish(r)
		}
		has, err := o.deps.Store.HasOutput()
		if err != nil {
			r.fail(StageStore, err)
			return o.finish(r)
		}
		if has {
			r.done(StatusUnchanged)
			return o.finish(r)
		}
		r.log.Info("source unchanged but output missing, regenerating")
		r.res.Regenerated = true
		o.convertAndNotify(ctx, r, *previous)
		return o.finish(r)
	}

	// The old output belongs to the old source. Dropping it first means an
	// interrupted commit or a failed conversion leaves the output absent,
	// which the next run treats as pending regeneration.
	if err := o.deps.Store.ClearOutput(); err != nil {
		r.fail(StageStore, err)
		return o.finish(r)
	}
	if err := o.deps.Store.ReplaceSource(fetched); err != nil {
		r.fail(StageStore, err)
		return o.finish(r)
	}
	o.convertAndNotify(ctx, r, fetched)
	return o.finish(r)
}

func (o *Orchestrator) convertAndNotify(ctx context.Context, r *run, source content.Artifact) {
	r.enter(StateConverting)
	out, err := o.deps.Converter.Convert(ctx, source)
	if err != nil {
		r.fail(StageConvert, err)
		return
	}
	out.Format = content.FormatDerived
	if err := o.deps.Store.StoreOutput(out); err != nil {
		r.fail(StageStore, err)
		return
	}

	if !o.notifyEnabled() {
		r.log.Info("notifications disabled, output stored only")
		r.done(StatusStored)
		return
	}

	r.enter(StateNotifying)
	if err := o.deps.Notifier.Send(ctx, out); err != nil {
		r.fail(StageNotify, err)
		return
	}
	r.done(StatusDelivered)
}

func (o *Orchestrator) notifyEnabled() bool {
	if s, ok := o.deps.Notifier.(switchable); ok {
		return s.Enabled()
	}
	return true
}

// Resend delivers the stored output record again without fetching or
// converting. It is the manual retry for a run that failed at notify. A
// changed run clears the output before committing its source, so a stored
// output always belongs to the current source.
func (o *Orchestrator) Resend(ctx context.Context) Result {
	r := o.begin()

	src, err := o.deps.Store.LoadSource()
	if err != nil {
		r.fail(StageStore, err)
		return o.finish(r)
	}
	if src != nil {
		r.res.Fingerprint = src.Fingerprint()
	}
	out, err := o.deps.Store.LoadOutput()
	if err != nil {
		r.fail(StageStore, err)
		return o.finish(r)
	}
	if out == nil {
		r.fail(StageStore, ErrNoOutput)
		return o.finish(r)
	}

	r.enter(StateNotifying)
	if err := o.deps.Notifier.Send(ctx, *out); err != nil {
		r.fail(StageNotify, err)
		return o.finish(r)
	}
	r.done(StatusDelivered)
	return o.finish(r)
}
