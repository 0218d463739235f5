// Package fetch downloads the watched document with a headless browser.
//
// Every Fetch call owns its browser: it is launched, used and torn down
// inside the call, so a wedged session cannot leak into the next run.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docwatch/internal/content"
	logx "docwatch/pkg/logx"
)

const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"

	defaultTimeout = 90 * time.Second
	defaultSettle  = time.Second
)

// Fetcher returns the raw source document.
type Fetcher interface {
	Fetch(ctx context.Context) (content.Artifact, error)
}

type Config struct {
	Driver string
	URL    string
	// FrameSelector locates the iframe hosting the trigger. Empty means the
	// trigger lives in the top-level document.
	FrameSelector   string
	TriggerSelector string

	Headless bool
	// Stealth applies go-rod/stealth evasions (rod driver only).
	Stealth bool
	// RemoteURL connects to an already running browser instead of launching one.
	RemoteURL   string
	BrowserPath string

	// Timeout bounds the whole fetch: launch, navigation and download.
	Timeout time.Duration
	// Settle is how long a downloaded file's size must stay unchanged.
	Settle  time.Duration
	TempDir string
}

func (c *Config) defaults() {
	if c.Driver == "" {
		c.Driver = DriverChromedp
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = defaultSettle
	}
}

// driver performs navigation and clicks the download trigger. The returned
// closer tears the browser down; it must stay open until the download lands.
type driver interface {
	start(ctx context.Context, downloadDir string) (io.Closer, error)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type browserFetcher struct {
	cfg Config
	log logx.Logger
	drv driver
}

func New(cfg Config, log logx.Logger) (Fetcher, error) {
	cfg.defaults()
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("fetch: url is required")
	}
	if strings.TrimSpace(cfg.TriggerSelector) == "" {
		return nil, errors.New("fetch: trigger selector is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	var drv driver
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverChromedp:
		drv = &chromedpDriver{cfg: cfg, log: log}
	case DriverRod:
		drv = &rodDriver{cfg: cfg, log: log}
	default:
		return nil, fmt.Errorf("fetch: unknown driver %q", cfg.Driver)
	}
	return &browserFetcher{cfg: cfg, log: log, drv: drv}, nil
}

func (f *browserFetcher) Fetch(ctx context.Context) (content.Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	dir, err := os.MkdirTemp(f.cfg.TempDir, "docwatch-download-*")
	if err != nil {
		return content.Artifact{}, &FetchError{Kind: KindDownload, Err: err}
	}
	defer os.RemoveAll(dir)

	watcher, err := watchDownloads(dir, f.cfg.Settle, f.log)
	if err != nil {
		return content.Artifact{}, &FetchError{Kind: KindDownload, Err: err}
	}
	defer watcher.Close()

	start := time.Now()
	session, err := f.drv.start(ctx, dir)
	if err != nil {
		return content.Artifact{}, fail(ctx, KindBrowser, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			f.log.Debug("browser teardown", logx.Err(err))
		}
	}()

	path, err := watcher.Wait(ctx)
	if err != nil {
		return content.Artifact{}, fail(ctx, KindDownload, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return content.Artifact{}, fail(ctx, KindDownload, err)
	}

	f.log.Debug("document downloaded",
		logx.String("file", filepath.Base(path)),
		logx.Int("bytes", len(data)),
		logx.Duration("took", time.Since(start)),
	)
	return content.Artifact{Format: content.FormatSource, Name: filepath.Base(path), Data: data}, nil
}
