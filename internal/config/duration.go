package config

import (
	"fmt"
	"strings"
	"time"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// resolveDurations fills every *Dur field, applying defaults.
func (c *Config) resolveDurations() error {
	var err error
	if c.Source.TimeoutDur, err = ParseDurationOrDefault("source.timeout", c.Source.Timeout, 90*time.Second); err != nil {
		return err
	}
	if c.Source.SettleDur, err = ParseDurationOrDefault("source.settle", c.Source.Settle, time.Second); err != nil {
		return err
	}
	if c.Storage.Audit.BusyTimeoutDur, err = ParseDurationOrDefault("storage.audit.busy_timeout", c.Storage.Audit.BusyTimeout, 5*time.Second); err != nil {
		return err
	}
	if c.Converter.TimeoutDur, err = ParseDurationOrDefault("converter.timeout", c.Converter.Timeout, 2*time.Minute); err != nil {
		return err
	}
	if c.Telegram.TimeoutDur, err = ParseDurationOrDefault("telegram.timeout", c.Telegram.Timeout, 60*time.Second); err != nil {
		return err
	}
	// A zero run timeout is allowed and means the loop imposes no bound.
	if c.Schedule.RunTimeoutDur, err = ParseDurationField("schedule.run_timeout", c.Schedule.RunTimeout); err != nil {
		return err
	}
	if c.Schedule.RunTimeout == "" {
		c.Schedule.RunTimeoutDur = 10 * time.Minute
	}
	return nil
}
