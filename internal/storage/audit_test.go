package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	logx "docwatch/pkg/logx"
)

func TestOpenAuditDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		a, err := OpenAudit(AuditConfig{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		require.Nil(t, a)
	}
	_, err := OpenAudit(AuditConfig{Driver: "postgres"}, logx.Nop())
	require.Error(t, err)
}

func TestAuditDrivers(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "audit."+driver)
			a, err := OpenAudit(AuditConfig{Driver: driver, Path: path, BusyTimeout: time.Second}, logx.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			for i := 0; i < 5; i++ {
				require.NoError(t, a.Append(ctx, RunRecord{
					ID:        fmt.Sprintf("run-%d", i),
					StartedAt: base.Add(time.Duration(i) * time.Minute),
					TookMS:    int64(i),
					Status:    "unchanged",
				}))
			}
			require.NoError(t, a.Append(ctx, RunRecord{
				ID:        "run-5",
				StartedAt: base.Add(10 * time.Minute),
				Status:    "failed",
				Stage:     "convert",
				Error:     "exit status 1",
			}))
			require.NoError(t, a.Append(ctx, RunRecord{
				ID:        "run-6",
				StartedAt: base.Add(11 * time.Minute),
				Status:    "delivered",
				MessageID: 77,
			}))

			got, err := a.Recent(ctx, 4)
			require.NoError(t, err)
			require.Len(t, got, 4)
			require.Equal(t, "run-6", got[0].ID)
			require.Equal(t, 77, got[0].MessageID)
			require.Equal(t, "run-5", got[1].ID)
			require.Equal(t, "convert", got[1].Stage)
			require.Equal(t, "exit status 1", got[1].Error)
			require.Zero(t, got[1].MessageID)
			require.Equal(t, "run-4", got[2].ID)
			require.Equal(t, "run-3", got[3].ID)
			require.True(t, got[1].StartedAt.Equal(base.Add(10*time.Minute)))

			none, err := a.Recent(ctx, 0)
			require.NoError(t, err)
			require.Empty(t, none)
		})
	}
}

func TestFileAuditRequiresPath(t *testing.T) {
	t.Parallel()
	_, err := OpenAudit(AuditConfig{Driver: "file"}, logx.Nop())
	require.Error(t, err)
}

func TestSQLiteAuditUpgradesOlderJournal(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE runs (id TEXT PRIMARY KEY, started_at TEXT NOT NULL, took_ms INTEGER NOT NULL,
		status TEXT NOT NULL, stage TEXT, fingerprint TEXT, err TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO runs(id, started_at, took_ms, status) VALUES('old', '2026-01-01T00:00:00Z', 1, 'unchanged')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	a, err := OpenAudit(AuditConfig{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Append(ctx, RunRecord{ID: "new", StartedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), Status: "delivered", MessageID: 9}))
	got, err := a.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 9, got[0].MessageID)
	require.Equal(t, "old", got[1].ID)
}
