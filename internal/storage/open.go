package storage

import (
	"context"
	"errors"
	"strings"

	logx "docwatch/pkg/logx"
)

// Audit is the run journal.
type Audit interface {
	Append(ctx context.Context, r RunRecord) error
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]RunRecord, error)
	Close() error
}

// OpenAudit initializes the configured journal.
// It returns (nil, nil) if the journal is disabled.
func OpenAudit(cfg AuditConfig, log logx.Logger) (Audit, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFileAudit(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLiteAudit(cfg, log)
	default:
		return nil, errors.New("unknown audit driver: " + driver)
	}
}
