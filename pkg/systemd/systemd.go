// Package systemd reports service state to the systemd manager via sd_notify.
// Every call is a no-op when the process was not started by systemd.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "docwatch/pkg/logx"
)

type Notifier struct {
	enabled bool
	log     logx.Logger
	notify  func(state string) (bool, error)

	// watchdog reports the WatchdogSec interval, 0 when none is set.
	watchdog func() (time.Duration, error)
}

func New(enabled bool, log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		enabled: enabled,
		log:     log,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
		watchdog: func() (time.Duration, error) {
			return daemon.SdWatchdogEnabled(false)
		},
	}
}

func (n *Notifier) send(state string) {
	if n == nil || !n.enabled {
		return
	}
	sent, err := n.notify(state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if !sent {
		n.log.Debug("sd_notify unsupported", logx.String("state", state))
	}
}

func (n *Notifier) Ready()          { n.send(daemon.SdNotifyReady) }
func (n *Notifier) Stopping()       { n.send(daemon.SdNotifyStopping) }
func (n *Notifier) Status(s string) { n.send("STATUS=" + s) }
func (n *Notifier) watchdogPing()   { n.send(daemon.SdNotifyWatchdog) }

// Watchdog pings at half the interval systemd configured (WatchdogSec) until
// ctx ends. It returns immediately when no watchdog is configured. A
// malformed watchdog environment is logged and never stops the caller.
func (n *Notifier) Watchdog(ctx context.Context) error {
	if n == nil || !n.enabled {
		return nil
	}
	interval, err := n.watchdog()
	if err != nil {
		n.log.Warn("watchdog disabled", logx.Err(err))
		return nil
	}
	if interval <= 0 {
		return nil
	}
	tick := time.NewTicker(interval / 2)
	defer tick.Stop()
	n.log.Debug("watchdog enabled", logx.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			n.watchdogPing()
		}
	}
}
