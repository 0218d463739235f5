package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"docwatch/internal/task/scheduler"
	logx "docwatch/pkg/logx"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct tag rules and the cross-field checks tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q", trimNamespace(fe.Namespace()), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if cfg.Schedule.Every != "" {
		if _, err := scheduler.ParseSchedule(cfg.Schedule.Every); err != nil {
			errs = append(errs, fmt.Errorf("schedule.every: %w", err))
		}
	}
	if _, err := scheduler.LoadLocation(cfg.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}

	notify := Enabled(cfg.Notify.Enabled, true)
	if notify || cfg.Logging.Telegram.Enabled {
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			errs = append(errs, errors.New("telegram.token: required when notify or telegram logging is enabled"))
		}
	}
	if notify && cfg.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id: required when notify is enabled"))
	}
	if cfg.Logging.Telegram.Enabled && cfg.Logging.Telegram.ChatID == 0 && cfg.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("logging.telegram.chat_id: required (or set telegram.chat_id)"))
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	if !logx.ValidLevel(cfg.Logging.Telegram.MinLevel) {
		errs = append(errs, fmt.Errorf("logging.telegram.min_level: unknown level %q", cfg.Logging.Telegram.MinLevel))
	}
	if d := cfg.Storage.Audit.Driver; d != "" && d != "none" && strings.TrimSpace(cfg.Storage.Audit.Path) == "" {
		errs = append(errs, errors.New("storage.audit.path: required when an audit driver is set"))
	}
	if cfg.Schedule.RunTimeoutDur > 0 && cfg.Source.TimeoutDur > cfg.Schedule.RunTimeoutDur {
		errs = append(errs, fmt.Errorf("source.timeout (%s) exceeds schedule.run_timeout (%s)", cfg.Source.TimeoutDur, cfg.Schedule.RunTimeoutDur))
	}
	return errors.Join(errs...)
}

// trimNamespace drops the root struct name: "Config.source.url" -> "source.url".
func trimNamespace(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
