package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "DOCWATCH_"

// Load reads the optional env file, the config file at path (JSON or YAML),
// applies DOCWATCH_* overrides and validates the result.
//
// A missing env file is ignored. An empty path means "environment only".
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if cfg, err = Parse(path, b); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.resolveDurations(); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse strictly decodes a config document. The file extension selects YAML
// (.yaml/.yml) or JSON; YAML is re-encoded as JSON so both formats share the
// same unknown-field checks.
func Parse(path string, data []byte) (*Config, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
		j, err := json.Marshal(stringKeys(v))
		if err != nil {
			return nil, fmt.Errorf("yaml->json: %w", err)
		}
		data = j
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// stringKeys makes YAML maps JSON-marshalable.
func stringKeys(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = stringKeys(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = stringKeys(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = stringKeys(x[i])
		}
		return x
	default:
		return in
	}
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	i64 := func(name string, dst *int64) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}

	str("SOURCE_URL", &cfg.Source.URL)
	str("SOURCE_FRAME_SELECTOR", &cfg.Source.FrameSelector)
	str("SOURCE_TRIGGER_SELECTOR", &cfg.Source.TriggerSelector)
	str("SOURCE_DRIVER", &cfg.Source.Driver)
	str("SOURCE_REMOTE_URL", &cfg.Source.RemoteURL)
	str("STORAGE_DIR", &cfg.Storage.Dir)
	str("TELEGRAM_TOKEN", &cfg.Telegram.Token)
	i64("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	str("SCHEDULE", &cfg.Schedule.Every)
	str("TIMEZONE", &cfg.Schedule.Timezone)
	str("LOG_LEVEL", &cfg.Logging.Level)
	return errors.Join(errs...)
}
