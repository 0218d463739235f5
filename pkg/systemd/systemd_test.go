package systemd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	logx "docwatch/pkg/logx"
)

func TestNotifierSendsStates(t *testing.T) {
	t.Parallel()
	var got []string
	n := New(true, logx.Nop())
	n.notify = func(state string) (bool, error) {
		got = append(got, state)
		return true, nil
	}

	n.Ready()
	n.Status("last run: delivered")
	n.Stopping()
	require.Equal(t, []string{"READY=1", "STATUS=last run: delivered", "STOPPING=1"}, got)
}

func TestDisabledNotifierIsSilent(t *testing.T) {
	t.Parallel()
	n := New(false, logx.Nop())
	n.notify = func(string) (bool, error) {
		t.Fatal("must not notify")
		return false, nil
	}
	n.Ready()
	require.NoError(t, n.Watchdog(context.Background()))

	var nilNotifier *Notifier
	nilNotifier.Ready()
}

func TestNotifyErrorIsLoggedNotFatal(t *testing.T) {
	t.Parallel()
	n := New(true, logx.Nop())
	n.notify = func(string) (bool, error) { return false, errors.New("socket gone") }
	n.Ready()
}

func TestWatchdogWithoutSystemd(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")
	n := New(true, logx.Nop())
	require.NoError(t, n.Watchdog(context.Background()))
}

func TestWatchdogConfigErrorIsNotFatal(t *testing.T) {
	t.Parallel()
	n := New(true, logx.Nop())
	n.watchdog = func() (time.Duration, error) { return 0, errors.New(`invalid WATCHDOG_USEC "abc"`) }
	require.NoError(t, n.Watchdog(context.Background()))
}

func TestWatchdogPingsUntilCancelled(t *testing.T) {
	t.Parallel()
	pings := make(chan string, 16)
	n := New(true, logx.Nop())
	n.notify = func(state string) (bool, error) {
		select {
		case pings <- state:
		default:
		}
		return true, nil
	}
	n.watchdog = func() (time.Duration, error) { return 20 * time.Millisecond, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Watchdog(ctx) }()

	select {
	case state := <-pings:
		require.Equal(t, "WATCHDOG=1", state)
	case <-time.After(2 * time.Second):
		t.Fatal("no watchdog ping")
	}
	cancel()
	require.NoError(t, <-done)
}
