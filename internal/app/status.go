package app

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"docwatch/internal/content"
	"docwatch/internal/lock"
	"docwatch/internal/storage"
	logx "docwatch/pkg/logx"
)

type SlotInfo struct {
	Present     bool
	Fingerprint string
	Size        int
	ModTime     time.Time
}

type Status struct {
	StorageDir string
	Source     SlotInfo
	Output     SlotInfo
	// Busy is true while another process holds the storage lock.
	Busy   bool
	Recent []storage.RunRecord
}

// Status inspects both slots and the most recent audit rows. The slots are
// only read.
func (a *App) Status(ctx context.Context, recent int) (Status, error) {
	st := Status{StorageDir: a.slots.Dir()}

	src, err := a.slots.LoadSource()
	if err != nil {
		return st, err
	}
	st.Source = a.slotInfo(storage.SourceSlot, src)

	out, err := a.slots.LoadOutput()
	if err != nil {
		return st, err
	}
	st.Output = a.slotInfo(storage.OutputSlot, out)

	if l, err := lock.TryAcquire(a.lockPath); errors.Is(err, lock.ErrLocked) {
		st.Busy = true
	} else if err == nil {
		_ = l.Release()
	}

	if a.audit != nil && recent > 0 {
		if st.Recent, err = a.audit.Recent(ctx, recent); err != nil {
			return st, err
		}
	}
	return st, nil
}

func (a *App) slotInfo(slot string, art *content.Artifact) SlotInfo {
	if art == nil {
		return SlotInfo{}
	}
	info := SlotInfo{Present: true, Fingerprint: art.Fingerprint().String(), Size: art.Size()}
	if fi, err := os.Stat(filepath.Join(a.slots.Dir(), slot)); err == nil {
		info.ModTime = fi.ModTime()
	} else if !errors.Is(err, fs.ErrNotExist) {
		a.log.Debug("slot stat failed", logx.String("slot", slot), logx.Err(err))
	}
	return info
}
