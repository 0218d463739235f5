package config

import "time"

// Config is the on-disk configuration. Durations are Go duration strings;
// Load resolves them into the *Dur fields.
type Config struct {
	Source    SourceConfig    `json:"source"`
	Storage   StorageConfig   `json:"storage"`
	Converter ConverterConfig `json:"converter"`
	Telegram  TelegramConfig  `json:"telegram"`
	Notify    NotifyConfig    `json:"notify"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Logging   LoggingConfig   `json:"logging"`
	Systemd   SystemdConfig   `json:"systemd"`
}

type SourceConfig struct {
	URL             string `json:"url" validate:"required,url"`
	FrameSelector   string `json:"frame_selector,omitempty"`
	TriggerSelector string `json:"trigger_selector" validate:"required"`
	Driver          string `json:"driver,omitempty" validate:"omitempty,oneof=chromedp rod"`
	Headless        *bool  `json:"headless,omitempty"`
	Stealth         bool   `json:"stealth,omitempty"`
	RemoteURL       string `json:"remote_url,omitempty" validate:"omitempty,url"`
	BrowserPath     string `json:"browser_path,omitempty"`
	Timeout         string `json:"timeout,omitempty"`
	Settle          string `json:"settle,omitempty"`

	TimeoutDur time.Duration `json:"-"`
	SettleDur  time.Duration `json:"-"`
}

type StorageConfig struct {
	Dir     string      `json:"dir" validate:"required"`
	TempDir string      `json:"temp_dir,omitempty"`
	Audit   AuditConfig `json:"audit"`
}

type AuditConfig struct {
	Driver      string `json:"driver,omitempty" validate:"omitempty,oneof=none file sqlite"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`

	BusyTimeoutDur time.Duration `json:"-"`
}

type ConverterConfig struct {
	Command         string   `json:"command,omitempty"`
	Args            []string `json:"args,omitempty"`
	InputExt        string   `json:"input_ext,omitempty"`
	OutputExt       string   `json:"output_ext,omitempty"`
	Timeout         string   `json:"timeout,omitempty"`
	ValidatePDF     bool     `json:"validate_pdf,omitempty"`
	IsolatedProfile *bool    `json:"isolated_profile,omitempty"`

	TimeoutDur time.Duration `json:"-"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty" validate:"gte=0"`
	APIURL   string `json:"api_url,omitempty" validate:"omitempty,url"`
	Timeout  string `json:"timeout,omitempty"`

	TimeoutDur time.Duration `json:"-"`
}

type NotifyConfig struct {
	Enabled    *bool   `json:"enabled,omitempty"`
	FileName   string  `json:"filename,omitempty"`
	Caption    string  `json:"caption,omitempty"`
	Silent     bool    `json:"silent,omitempty"`
	RatePerSec float64 `json:"rate_per_sec,omitempty" validate:"gte=0"`
}

type ScheduleConfig struct {
	Every      string `json:"every" validate:"required"`
	Timezone   string `json:"timezone,omitempty"`
	RunOnStart *bool  `json:"run_on_start,omitempty"`
	RunTimeout string `json:"run_timeout,omitempty"`

	RunTimeoutDur time.Duration `json:"-"`
}

type PipelineConfig struct {
	RegenerateMissingOutput *bool `json:"regenerate_missing_output,omitempty"`
}

type LoggingConfig struct {
	Level    string            `json:"level,omitempty"`
	Console  *bool             `json:"console,omitempty"`
	File     LogFileConfig     `json:"file"`
	Telegram LogTelegramConfig `json:"telegram"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LogTelegramConfig mirrors warnings to an operator chat. ChatID 0 reuses
// telegram.chat_id.
type LogTelegramConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	ChatID     int64  `json:"chat_id,omitempty"`
	ThreadID   int    `json:"thread_id,omitempty" validate:"gte=0"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty" validate:"gte=0"`
}

type SystemdConfig struct {
	Notify *bool `json:"notify,omitempty"`
}

// Enabled reports a *bool with a default.
func Enabled(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
