package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"docwatch/internal/content"
	logx "docwatch/pkg/logx"
)

// Slots is the file-backed content store: one source record and one output
// record under a single directory.
//
// Slots serialises its own writes; cross-process exclusion is the caller's
// job (see internal/lock).
type Slots struct {
	dir string
	log logx.Logger

	// sourceName and outputName label loaded artifacts, so a reloaded output
	// keeps a meaningful file name and extension.
	sourceName string
	outputName string

	mu sync.Mutex

	// beforeCommit is a test hook run between temp write and rename.
	beforeCommit func(tmp string) error
}

type SlotsOption func(*Slots)

// WithNames sets the artifact names LoadSource and LoadOutput report.
func WithNames(source, output string) SlotsOption {
	return func(s *Slots) {
		if source != "" {
			s.sourceName = source
		}
		if output != "" {
			s.outputName = output
		}
	}
}

// OpenSlots creates dir if needed. It does not touch existing files; call
// Sweep while holding the storage lock to drop interrupted writes.
func OpenSlots(dir string, log logx.Logger, opts ...SlotsOption) (*Slots, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage dir is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Slots{dir: dir, log: log, sourceName: "document", outputName: "document.pdf"}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Sweep removes temp files left behind by interrupted writes. The caller
// must hold the storage lock: a temp file may belong to another process's
// write in progress.
func (s *Slots) Sweep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := removeStaleTemps(s.dir)
	if err != nil {
		return 0, &StoreError{Op: "sweep", Slot: "*", Err: err}
	}
	if n > 0 {
		s.log.Warn("removed interrupted slot writes", logx.Int("count", n))
	}
	return n, nil
}

func (s *Slots) Dir() string { return s.dir }

func (s *Slots) path(slot string) string { return filepath.Join(s.dir, slot) }

// LoadSource returns the current source record, or nil if none exists.
func (s *Slots) LoadSource() (*content.Artifact, error) {
	return s.load(SourceSlot, s.sourceName, content.FormatSource)
}

// ReplaceSource atomically overwrites the source record.
func (s *Slots) ReplaceSource(a content.Artifact) error {
	return s.replace(SourceSlot, a)
}

func (s *Slots) HasOutput() (bool, error) {
	_, err := os.Stat(s.path(OutputSlot))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &StoreError{Op: "stat", Slot: OutputSlot, Err: err}
}

// LoadOutput returns the current output record, or nil if none exists.
func (s *Slots) LoadOutput() (*content.Artifact, error) {
	return s.load(OutputSlot, s.outputName, content.FormatDerived)
}

// StoreOutput atomically places the derived artifact in the output slot.
func (s *Slots) StoreOutput(a content.Artifact) error {
	return s.replace(OutputSlot, a)
}

// ClearOutput removes the output record. A missing record is not an error.
func (s *Slots) ClearOutput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(OutputSlot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &StoreError{Op: "clear", Slot: OutputSlot, Err: err}
	}
	if err := syncDir(s.dir); err != nil {
		return &StoreError{Op: "clear", Slot: OutputSlot, Err: err}
	}
	s.log.Debug("slot cleared", logx.String("slot", OutputSlot))
	return nil
}

func (s *Slots) load(slot, name string, f content.Format) (*content.Artifact, error) {
	b, err := os.ReadFile(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "load", Slot: slot, Err: err}
	}
	return &content.Artifact{Format: f, Name: name, Data: b}, nil
}

func (s *Slots) replace(slot string, a content.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.dir, slot, a.Data, s.beforeCommit); err != nil {
		return &StoreError{Op: "replace", Slot: slot, Err: err}
	}
	s.log.Debug("slot replaced",
		logx.String("slot", slot),
		logx.Int("bytes", a.Size()),
		logx.String("fingerprint", a.Fingerprint().Short()),
	)
	return nil
}
