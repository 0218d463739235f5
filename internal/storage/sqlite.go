package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "docwatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteAudit struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLiteAudit(cfg AuditConfig, log logx.Logger) (Audit, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteAudit{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteAudit) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return err
	}
	return s.addColumn(ctx, "message_id", "INTEGER")
}

// addColumn upgrades journals created before the column existed.
func (s *sqliteAudit) addColumn(ctx context.Context, name, typ string) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('runs')`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return err
		}
		if col == name {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()
	_, err = s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE runs ADD COLUMN %s %s", name, typ))
	return err
}

func (s *sqliteAudit) Append(ctx context.Context, r RunRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, started_at, took_ms, status, stage, fingerprint, err, message_id)
		 VALUES(?,?,?,?,?,?,?,?)`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.TookMS, r.Status,
		nullStr(r.Stage), nullStr(r.Fingerprint), nullStr(r.Error), nullInt(r.MessageID),
	)
	return err
}

func (s *sqliteAudit) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, took_ms, status, stage, fingerprint, err, message_id
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r                 RunRecord
			started           string
			stage, fp, errStr sql.NullString
			msgID             sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &started, &r.TookMS, &r.Status, &stage, &fp, &errStr, &msgID); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			r.StartedAt = t
		}
		r.Stage, r.Fingerprint, r.Error = stage.String, fp.String, errStr.String
		r.MessageID = int(msgID.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteAudit) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
