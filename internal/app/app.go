// Package app wires configuration into the running docwatch process.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"docwatch/internal/config"
	"docwatch/internal/convert"
	"docwatch/internal/eventbus"
	"docwatch/internal/fetch"
	"docwatch/internal/lock"
	"docwatch/internal/notifier"
	"docwatch/internal/pipeline"
	rtsup "docwatch/internal/runtime/supervisor"
	"docwatch/internal/storage"
	"docwatch/internal/task/scheduler"
	kit "docwatch/internal/transport"
	"docwatch/internal/transport/telegram"
	logx "docwatch/pkg/logx"
	"docwatch/pkg/systemd"
)

const lockFile = ".lock"

type App struct {
	cfg *config.Config

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	slots *storage.Slots
	audit storage.Audit
	notif *notifier.Service
	orch  *pipeline.Orchestrator
	sd    *systemd.Notifier

	lockPath string

	unsub    func()
	recorder sync.WaitGroup
}

// Option replaces a collaborator; used by tests and embedders.
type Option func(*deps)

type deps struct {
	fetcher   pipeline.Fetcher
	converter pipeline.Converter
	adapter   kit.Adapter
	logger    *logx.Logger
}

func WithFetcher(f pipeline.Fetcher) Option     { return func(d *deps) { d.fetcher = f } }
func WithConverter(c pipeline.Converter) Option { return func(d *deps) { d.converter = c } }
func WithAdapter(a kit.Adapter) Option          { return func(d *deps) { d.adapter = a } }
func WithLogger(l logx.Logger) Option           { return func(d *deps) { d.logger = &l } }

func New(cfg *config.Config, opts ...Option) (*App, error) {
	var d deps
	for _, o := range opts {
		o(&d)
	}

	bootLog := logx.NewConsole(cfg.Logging.Level)

	if d.adapter == nil && cfg.Telegram.Token != "" {
		ad, err := telegram.New(telegram.Config{
			Token:   cfg.Telegram.Token,
			APIURL:  cfg.Telegram.APIURL,
			Timeout: cfg.Telegram.TimeoutDur,
		}, bootLog.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		d.adapter = ad
	}

	var (
		logSvc *logx.Service
		log    logx.Logger
	)
	if d.logger != nil {
		log = *d.logger
	} else {
		logSvc, log = logx.New(mapLogConfig(cfg), d.adapter)
	}

	a := &App{
		cfg:      cfg,
		log:      log.With(logx.String("comp", "app")),
		logs:     logSvc,
		bus:      eventbus.New(),
		sd:       systemd.New(config.Enabled(cfg.Systemd.Notify, true), log.With(logx.String("comp", "systemd"))),
		lockPath: filepath.Join(cfg.Storage.Dir, lockFile),
	}

	var err error
	if a.slots, err = storage.OpenSlots(cfg.Storage.Dir, log.With(logx.String("comp", "storage")),
		storage.WithNames(slotNames(cfg))); err != nil {
		a.closeLogs()
		return nil, err
	}
	if a.audit, err = storage.OpenAudit(storage.AuditConfig{
		Driver:      cfg.Storage.Audit.Driver,
		Path:        cfg.Storage.Audit.Path,
		BusyTimeout: cfg.Storage.Audit.BusyTimeoutDur,
	}, log.With(logx.String("comp", "audit"))); err != nil {
		a.closeLogs()
		return nil, err
	}

	if d.fetcher == nil {
		if d.fetcher, err = fetch.New(mapFetchConfig(cfg), log.With(logx.String("comp", "fetch"))); err != nil {
			a.Close()
			return nil, err
		}
	}
	if d.converter == nil {
		d.converter = convert.New(mapConvertConfig(cfg), log.With(logx.String("comp", "convert")))
	}

	if a.notif, err = notifier.New(mapNotifierConfig(cfg), d.adapter, log.With(logx.String("comp", "notifier")), a.bus); err != nil {
		a.Close()
		return nil, err
	}

	a.orch = pipeline.New(pipeline.Deps{
		Fetcher:   d.fetcher,
		Store:     a.slots,
		Converter: d.converter,
		Notifier:  a.notif,
		Bus:       a.bus,
	}, pipeline.Config{
		RegenerateMissingOutput: config.Enabled(cfg.Pipeline.RegenerateMissingOutput, true),
	}, log.With(logx.String("comp", "pipeline")))

	a.startRecorder()
	return a, nil
}

// RunOnce performs one pipeline run under the storage lock. A busy lock
// yields StatusSkipped.
func (a *App) RunOnce(ctx context.Context) pipeline.Result {
	return a.locked(ctx, a.orch.Run)
}

// RetryNotify re-sends the stored output without fetching or converting.
func (a *App) RetryNotify(ctx context.Context) (pipeline.Result, error) {
	if !a.notif.Enabled() {
		return pipeline.Result{}, notifier.ErrDisabled
	}
	return a.locked(ctx, a.orch.Resend), nil
}

func (a *App) locked(ctx context.Context, fn func(context.Context) pipeline.Result) pipeline.Result {
	l, err := lock.TryAcquire(a.lockPath)
	if err != nil {
		res := pipeline.Result{StartedAt: time.Now(), Status: pipeline.StatusSkipped, Err: err}
		if !errors.Is(err, lock.ErrLocked) {
			res.Status = pipeline.StatusFailed
			res.Stage = pipeline.StageRun
			a.log.Warn("storage lock failed", logx.String("path", a.lockPath), logx.Err(err))
		} else {
			a.log.Info("another run holds the storage lock, skipping", logx.String("path", a.lockPath))
		}
		a.bus.Publish(eventbus.Event{Type: eventbus.TypePipelineRun, Time: res.StartedAt, Data: res})
		return res
	}
	defer func() {
		if err := l.Release(); err != nil {
			a.log.Warn("storage lock release failed", logx.Err(err))
		}
	}()
	if _, err := a.slots.Sweep(); err != nil {
		a.log.Warn("stale write cleanup failed", logx.Err(err))
	}
	return fn(ctx)
}

// Run drives the scheduler until ctx is cancelled, alongside the systemd
// watchdog.
func (a *App) Run(ctx context.Context) error {
	loop, err := scheduler.NewLoop(scheduler.Config{
		Schedule:   a.cfg.Schedule.Every,
		Timezone:   a.cfg.Schedule.Timezone,
		RunOnStart: config.Enabled(a.cfg.Schedule.RunOnStart, true),
		RunTimeout: a.cfg.Schedule.RunTimeoutDur,
	}, func(ctx context.Context) error {
		res := a.RunOnce(ctx)
		if res.Failed() {
			return fmt.Errorf("%s: %w", res.Stage, res.Err)
		}
		return nil
	}, a.log.With(logx.String("comp", "scheduler")))
	if err != nil {
		return err
	}

	sup := rtsup.New(ctx, rtsup.WithLogger(a.log.With(logx.String("comp", "supervisor"))))
	sup.Go("scheduler", loop.Run)
	sup.Go("systemd.watchdog", a.sd.Watchdog)

	a.sd.Ready()
	a.log.Info("docwatch started",
		logx.String("source", a.cfg.Source.URL),
		logx.String("storage", a.cfg.Storage.Dir),
		logx.Bool("notify", a.notif.Enabled()),
	)

	<-sup.Context().Done()
	a.sd.Stopping()

	wctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = sup.Wait(wctx)
	a.log.Info("docwatch stopped")
	return err
}

// Close stops the recorder after it drained pending events and releases
// every resource.
func (a *App) Close() error {
	if a.unsub != nil {
		a.unsub()
		a.recorder.Wait()
		a.unsub = nil
	}
	var errs []error
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
		a.audit = nil
	}
	errs = append(errs, a.closeLogs())
	return errors.Join(errs...)
}

func (a *App) closeLogs() error {
	if a.logs == nil {
		return nil
	}
	err := a.logs.Close()
	a.logs = nil
	return err
}
