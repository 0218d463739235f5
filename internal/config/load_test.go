package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validYAML = `
source:
  url: https://example.com/schedule
  frame_selector: "iframe#viewer"
  trigger_selector: "button.download"
  driver: rod
  timeout: 45s
storage:
  dir: /var/lib/docwatch
  audit:
    driver: sqlite
    path: /var/lib/docwatch/audit.db
telegram:
  token: "123:abc"
  chat_id: -1001234
notify:
  caption: "Updated {{.Short}}"
schedule:
  every: "*/15 * * * *"
  timezone: Asia/Jakarta
  run_timeout: 5m
logging:
  level: debug
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "docwatch.yaml", validYAML), "")
	require.NoError(t, err)
	require.Equal(t, "rod", cfg.Source.Driver)
	require.Equal(t, 45*time.Second, cfg.Source.TimeoutDur)
	require.Equal(t, time.Second, cfg.Source.SettleDur)
	require.Equal(t, 5*time.Minute, cfg.Schedule.RunTimeoutDur)
	require.Equal(t, 2*time.Minute, cfg.Converter.TimeoutDur)
	require.EqualValues(t, -1001234, cfg.Telegram.ChatID)
	require.True(t, Enabled(cfg.Notify.Enabled, true))
	require.True(t, Enabled(cfg.Pipeline.RegenerateMissingOutput, true))
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeFile(t, "c.json", `{"source":{"url":"https://x.y","trigger_selector":"a","colour":"red"}}`), "")
	require.ErrorContains(t, err, "colour")
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse("c.json", []byte(`{"source":{}} {"source":{}}`))
	require.ErrorContains(t, err, "trailing data")
}

func TestEnvOverrides(t *testing.T) {
	env := writeFile(t, ".env", "DOCWATCH_TELEGRAM_TOKEN=from-env\nDOCWATCH_TELEGRAM_CHAT_ID=777\n")
	// godotenv writes into the process environment.
	t.Cleanup(func() {
		os.Unsetenv("DOCWATCH_TELEGRAM_TOKEN")
		os.Unsetenv("DOCWATCH_TELEGRAM_CHAT_ID")
	})
	t.Setenv("DOCWATCH_SCHEDULE", "30m")
	t.Setenv("DOCWATCH_STORAGE_DIR", "/tmp/dw")

	cfg, err := Load(writeFile(t, "docwatch.yaml", validYAML), env)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Telegram.Token)
	require.EqualValues(t, 777, cfg.Telegram.ChatID)
	require.Equal(t, "30m", cfg.Schedule.Every)
	require.Equal(t, "/tmp/dw", cfg.Storage.Dir)
}

func TestBadEnvNumber(t *testing.T) {
	t.Setenv("DOCWATCH_TELEGRAM_CHAT_ID", "not-a-number")
	_, err := Load(writeFile(t, "docwatch.yaml", validYAML), "")
	require.ErrorContains(t, err, "DOCWATCH_TELEGRAM_CHAT_ID")
}

func TestMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(writeFile(t, "docwatch.yaml", validYAML), filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestValidateFailsFast(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing url", `{"source":{"trigger_selector":"a"},"storage":{"dir":"d"},"schedule":{"every":"1m"},"notify":{"enabled":false}}`, "source.url"},
		{"bad driver", `{"source":{"url":"https://x.y","trigger_selector":"a","driver":"lynx"},"storage":{"dir":"d"},"schedule":{"every":"1m"},"notify":{"enabled":false}}`, "source.driver"},
		{"bad schedule", `{"source":{"url":"https://x.y","trigger_selector":"a"},"storage":{"dir":"d"},"schedule":{"every":"whenever"},"notify":{"enabled":false}}`, "schedule.every"},
		{"bad timezone", `{"source":{"url":"https://x.y","trigger_selector":"a"},"storage":{"dir":"d"},"schedule":{"every":"1m","timezone":"Mars/Base"},"notify":{"enabled":false}}`, "schedule.timezone"},
		{"notify without chat", `{"source":{"url":"https://x.y","trigger_selector":"a"},"storage":{"dir":"d"},"schedule":{"every":"1m"},"telegram":{"token":"t"}}`, "telegram.chat_id"},
		{"audit without path", `{"source":{"url":"https://x.y","trigger_selector":"a"},"storage":{"dir":"d","audit":{"driver":"file"}},"schedule":{"every":"1m"},"notify":{"enabled":false}}`, "storage.audit.path"},
		{"bad duration", `{"source":{"url":"https://x.y","trigger_selector":"a","timeout":"soon"},"storage":{"dir":"d"},"schedule":{"every":"1m"},"notify":{"enabled":false}}`, "source.timeout"},
		{"fetch longer than run", `{"source":{"url":"https://x.y","trigger_selector":"a","timeout":"5m"},"storage":{"dir":"d"},"schedule":{"every":"1m","run_timeout":"1m"},"notify":{"enabled":false}}`, "exceeds"},
		{"bad log level", `{"source":{"url":"https://x.y","trigger_selector":"a"},"storage":{"dir":"d"},"schedule":{"every":"1m"},"notify":{"enabled":false},"logging":{"level":"loud"}}`, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.json", tt.body), "")
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNotifyDisabledNeedsNoTelegram(t *testing.T) {
	cfg, err := Load(writeFile(t, "c.json", `{"source":{"url":"https://x.y","trigger_selector":"a"},"storage":{"dir":"d"},"schedule":{"every":"1m"},"notify":{"enabled":false}}`), "")
	require.NoError(t, err)
	require.False(t, Enabled(cfg.Notify.Enabled, true))
	require.Equal(t, 10*time.Minute, cfg.Schedule.RunTimeoutDur)
}
