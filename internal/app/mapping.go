package app

import (
	"strings"

	"docwatch/internal/config"
	"docwatch/internal/convert"
	"docwatch/internal/fetch"
	"docwatch/internal/notifier"
	kit "docwatch/internal/transport"
	logx "docwatch/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	chat := cfg.Logging.Telegram.ChatID
	if chat == 0 {
		chat = cfg.Telegram.ChatID
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: config.Enabled(cfg.Logging.Console, true),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			Target:     kit.ChatTarget{ChatID: chat, ThreadID: cfg.Logging.Telegram.ThreadID},
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapFetchConfig(cfg *config.Config) fetch.Config {
	s := cfg.Source
	return fetch.Config{
		Driver:          s.Driver,
		URL:             s.URL,
		FrameSelector:   s.FrameSelector,
		TriggerSelector: s.TriggerSelector,
		Headless:        config.Enabled(s.Headless, true),
		Stealth:         s.Stealth,
		RemoteURL:       s.RemoteURL,
		BrowserPath:     s.BrowserPath,
		Timeout:         s.TimeoutDur,
		Settle:          s.SettleDur,
		TempDir:         cfg.Storage.TempDir,
	}
}

func mapConvertConfig(cfg *config.Config) convert.Config {
	c := cfg.Converter
	return convert.Config{
		Command:         c.Command,
		Args:            c.Args,
		InputExt:        c.InputExt,
		OutputExt:       c.OutputExt,
		Timeout:         c.TimeoutDur,
		IsolatedProfile: config.Enabled(c.IsolatedProfile, true),
		ValidatePDF:     c.ValidatePDF,
		TempDir:         cfg.Storage.TempDir,
	}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	n := cfg.Notify
	return notifier.Config{
		Enabled:    config.Enabled(n.Enabled, true),
		Target:     kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID},
		FileName:   n.FileName,
		Caption:    n.Caption,
		Silent:     n.Silent,
		RatePerSec: n.RatePerSec,
	}
}

// slotNames mirrors the converter's work file names, so a reloaded output
// is still sent as document.pdf.
func slotNames(cfg *config.Config) (source, output string) {
	return "document" + dotExt(cfg.Converter.InputExt, ".docx"), "document" + dotExt(cfg.Converter.OutputExt, ".pdf")
}

func dotExt(ext, def string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return def
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
