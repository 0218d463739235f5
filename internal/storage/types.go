package storage

import (
	"errors"
	"fmt"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

const (
	SourceSlot = "latest-source"
	OutputSlot = "latest-output"
)

// StoreError reports an I/O failure on one of the slots.
type StoreError struct {
	Op   string // "load" | "replace" | "stat" | "clear" | "sweep"
	Slot string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Slot, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// AuditConfig configures the run journal.
//
// Driver values:
//   - "file": JSON Lines file at Path
//   - "sqlite": SQLite database at Path
//
// If Driver is empty or "none", the journal is disabled.
type AuditConfig struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord is one finished pipeline run. Keep it compact and schema-stable.
type RunRecord struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	TookMS      int64     `json:"took_ms"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Error       string    `json:"error,omitempty"`
	// MessageID is the chat message that carried the delivered document.
	MessageID int `json:"message_id,omitempty"`
}
