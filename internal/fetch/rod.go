package fetch

import (
	"context"
	"fmt"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	logx "docwatch/pkg/logx"
)

type rodDriver struct {
	cfg Config
	log logx.Logger
}

func (d *rodDriver) start(ctx context.Context, downloadDir string) (io.Closer, error) {
	var (
		wsURL string
		lnch  *launcher.Launcher
	)
	if d.cfg.RemoteURL != "" {
		wsURL = d.cfg.RemoteURL
	} else {
		lnch = launcher.New().
			Context(ctx).
			Headless(d.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled").
			Set("disable-dev-shm-usage")
		if d.cfg.BrowserPath != "" {
			lnch = lnch.Bin(d.cfg.BrowserPath)
		}
		u, err := lnch.Launch()
		if err != nil {
			lnch.Kill()
			lnch.Cleanup()
			return nil, fail(ctx, KindBrowser, fmt.Errorf("launch: %w", err))
		}
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	closer := closerFunc(func() error {
		var err error
		if b != nil {
			err = b.Close()
		}
		if lnch != nil {
			lnch.Kill()
			lnch.Cleanup()
		}
		return err
	})

	if err := b.Connect(); err != nil {
		b = nil
		closer.Close()
		return nil, fail(ctx, KindBrowser, fmt.Errorf("connect: %w", err))
	}

	err := proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  downloadDir,
		EventsEnabled: true,
	}.Call(b)
	if err != nil {
		closer.Close()
		return nil, fail(ctx, KindBrowser, fmt.Errorf("download behavior: %w", err))
	}

	var page *rod.Page
	if d.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		closer.Close()
		return nil, fail(ctx, KindBrowser, fmt.Errorf("create page: %w", err))
	}
	page = page.Context(ctx)

	if err := page.Navigate(d.cfg.URL); err != nil {
		closer.Close()
		return nil, fail(ctx, KindNavigation, err)
	}
	if err := page.WaitLoad(); err != nil {
		closer.Close()
		return nil, fail(ctx, KindNavigation, err)
	}
	d.log.Debug("page loaded", logx.String("url", d.cfg.URL), logx.Bool("stealth", d.cfg.Stealth))

	scope := page
	if d.cfg.FrameSelector != "" {
		frameEl, err := page.Element(d.cfg.FrameSelector)
		if err != nil {
			closer.Close()
			return nil, fail(ctx, KindElementNotFound, fmt.Errorf("frame %s: %w", d.cfg.FrameSelector, err))
		}
		frame, err := frameEl.Frame()
		if err != nil {
			closer.Close()
			return nil, fail(ctx, KindElementNotFound, fmt.Errorf("frame %s: %w", d.cfg.FrameSelector, err))
		}
		scope = frame
		d.log.Debug("frame located", logx.String("selector", d.cfg.FrameSelector))
	}

	trigger, err := scope.Element(d.cfg.TriggerSelector)
	if err != nil {
		closer.Close()
		return nil, fail(ctx, KindElementNotFound, fmt.Errorf("trigger %s: %w", d.cfg.TriggerSelector, err))
	}
	// A DOM click works for triggers covered by overlays, unlike a mouse event.
	if _, err := trigger.Eval(`() => this.click()`); err != nil {
		closer.Close()
		return nil, fail(ctx, KindBrowser, fmt.Errorf("click: %w", err))
	}
	d.log.Debug("download triggered", logx.String("selector", d.cfg.TriggerSelector))
	return closer, nil
}
