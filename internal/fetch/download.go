package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "docwatch/pkg/logx"
)

// Browsers write in-progress downloads under these suffixes and rename on
// completion.
var partialSuffixes = []string{".crdownload", ".part", ".partial", ".download", ".tmp"}

func isPartial(name string) bool {
	low := strings.ToLower(name)
	if strings.HasPrefix(low, ".") {
		return true
	}
	for _, s := range partialSuffixes {
		if strings.HasSuffix(low, s) {
			return true
		}
	}
	return false
}

type observation struct {
	size  int64
	since time.Time
}

// downloadWatcher waits for a finished file to appear in a directory.
// It must be created before the download is triggered so no event is missed.
type downloadWatcher struct {
	dir    string
	settle time.Duration
	log    logx.Logger
	w      *fsnotify.Watcher

	seen map[string]observation
	now  func() time.Time
}

func watchDownloads(dir string, settle time.Duration, log logx.Logger) (*downloadWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	return &downloadWatcher{
		dir:    dir,
		settle: settle,
		log:    log,
		w:      w,
		seen:   map[string]observation{},
		now:    time.Now,
	}, nil
}

func (d *downloadWatcher) Close() error { return d.w.Close() }

// Wait blocks until a complete file is present and returns its path.
//
// A file is complete when it is not a partial download, is non-empty and
// its size has not changed for the settle interval. Directory events trigger
// a rescan; a ticker covers the settle wait and backends that drop events.
func (d *downloadWatcher) Wait(ctx context.Context) (string, error) {
	tick := d.settle / 2
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		path, err := d.scan()
		if err != nil {
			return "", err
		}
		if path != "" {
			return path, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-d.w.Events:
			if !ok {
				return "", errors.New("download watcher closed")
			}
			d.log.Debug("download dir event", logx.String("name", filepath.Base(ev.Name)), logx.String("op", ev.Op.String()))
		case err, ok := <-d.w.Errors:
			if !ok {
				return "", errors.New("download watcher closed")
			}
			// Overflow only means events were lost; the next scan catches up.
			d.log.Warn("download watch error", logx.Err(err))
		case <-ticker.C:
		}
	}
}

func (d *downloadWatcher) scan() (string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return "", err
	}
	now := d.now()
	present := make(map[string]struct{}, len(entries))

	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || isPartial(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		name := e.Name()
		present[name] = struct{}{}

		obs, ok := d.seen[name]
		if !ok || obs.size != info.Size() {
			d.seen[name] = observation{size: info.Size(), since: now}
			continue
		}
		if info.Size() == 0 || now.Sub(obs.since) < d.settle {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = name, info.ModTime()
		}
	}
	for name := range d.seen {
		if _, ok := present[name]; !ok {
			delete(d.seen, name)
		}
	}
	if best == "" {
		return "", nil
	}
	return filepath.Join(d.dir, best), nil
}
