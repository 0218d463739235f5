// Package lock provides a cross-process advisory lock on a file.
package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
)

// ErrLocked means another process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// Lock is an acquired lock. Release is idempotent.
type Lock struct {
	f    *os.File
	path string
}

// TryAcquire takes the lock at path without blocking.
func TryAcquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err := tryLock(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	// Holder pid is informational only.
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{f: f, path: path}, nil
}

func (l *Lock) Path() string { return l.path }

func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	uerr := unlock(f)
	cerr := f.Close()
	return errors.Join(uerr, cerr)
}
