package fetch

import (
	"context"
	"errors"
	"io"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	logx "docwatch/pkg/logx"
)

type chromedpDriver struct {
	cfg Config
	log logx.Logger
}

func (d *chromedpDriver) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, d.cfg.RemoteURL)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if d.cfg.BrowserPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.BrowserPath))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

func (d *chromedpDriver) start(ctx context.Context, downloadDir string) (io.Closer, error) {
	allocCtx, cancelAlloc := d.allocator(ctx)
	bctx, cancelBrowser := chromedp.NewContext(allocCtx)
	closer := closerFunc(func() error {
		cancelBrowser()
		cancelAlloc()
		return nil
	})

	err := chromedp.Run(bctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		closer.Close()
		return nil, fail(bctx, KindBrowser, err)
	}

	if err := chromedp.Run(bctx, chromedp.Navigate(d.cfg.URL)); err != nil {
		closer.Close()
		return nil, fail(bctx, KindNavigation, err)
	}
	d.log.Debug("page loaded", logx.String("url", d.cfg.URL))

	scope := []chromedp.QueryOption{chromedp.ByQuery}
	if d.cfg.FrameSelector != "" {
		var frames []*cdp.Node
		if err := chromedp.Run(bctx, chromedp.Nodes(d.cfg.FrameSelector, &frames, chromedp.ByQuery)); err != nil {
			closer.Close()
			return nil, fail(bctx, KindElementNotFound, err)
		}
		if len(frames) == 0 {
			closer.Close()
			return nil, &FetchError{Kind: KindElementNotFound, Err: errors.New("frame " + d.cfg.FrameSelector + " not found")}
		}
		scope = append(scope, chromedp.FromNode(frames[0]))
		d.log.Debug("frame located", logx.String("selector", d.cfg.FrameSelector))
	}

	if err := chromedp.Run(bctx, chromedp.WaitReady(d.cfg.TriggerSelector, scope...)); err != nil {
		closer.Close()
		return nil, fail(bctx, KindElementNotFound, err)
	}
	if err := chromedp.Run(bctx, chromedp.Click(d.cfg.TriggerSelector, scope...)); err != nil {
		closer.Close()
		return nil, fail(bctx, KindBrowser, err)
	}
	d.log.Debug("download triggered", logx.String("selector", d.cfg.TriggerSelector))
	return closer, nil
}
