package storage

import (
	"os"
	"path/filepath"
	"strings"
)

const tmpMarker = ".tmp-"

// writeFileAtomic writes data to dir/name so that readers either see the old
// file or the complete new one. beforeCommit, when set, runs after the temp
// file is durable and before it is renamed into place.
func writeFileAtomic(dir, name string, data []byte, beforeCommit func(tmp string) error) error {
	tmp, err := os.CreateTemp(dir, name+tmpMarker+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if beforeCommit != nil {
		if err := beforeCommit(tmpName); err != nil {
			return err
		}
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some filesystems refuse fsync on directories; the rename already happened.
	_ = d.Sync()
	return nil
}

// removeStaleTemps deletes temp files left behind by an interrupted write.
func removeStaleTemps(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), tmpMarker) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			n++
		}
	}
	return n, nil
}
