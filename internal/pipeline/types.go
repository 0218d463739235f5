package pipeline

import (
	"context"
	"time"

	"docwatch/internal/content"
)

// State is a node of the run state machine.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateDetecting  State = "detecting"
	StateConverting State = "converting"
	StateNotifying  State = "notifying"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Stage names the step a failed run stopped at.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageStore   Stage = "store"
	StageConvert Stage = "convert"
	StageNotify  Stage = "notify"
	// StageRun covers failures outside any step: a panic or a lost lock.
	StageRun Stage = "run"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	// StatusSkipped marks a tick that never started because another process
	// held the storage lock.
	StatusSkipped Status = "skipped"
	// StatusStored marks a changed run whose output was stored while
	// notifications were switched off.
	StatusStored Status = "stored"
)

type Fetcher interface {
	Fetch(ctx context.Context) (content.Artifact, error)
}

type Converter interface {
	Convert(ctx context.Context, source content.Artifact) (content.Artifact, error)
}

type Notifier interface {
	Send(ctx context.Context, doc content.Artifact) error
}

// switchable is implemented by notifiers that can be turned off. A changed
// run then ends StatusStored instead of claiming a delivery.
type switchable interface {
	Enabled() bool
}

// Store holds the two canonical records.
type Store interface {
	LoadSource() (*content.Artifact, error)
	ReplaceSource(a content.Artifact) error
	HasOutput() (bool, error)
	LoadOutput() (*content.Artifact, error)
	StoreOutput(a content.Artifact) error
	// ClearOutput removes the output record; absent is not an error.
	ClearOutput() error
}

type Config struct {
	// RegenerateMissingOutput converts the stored source again when the
	// fetched content is unchanged but no output record exists.
	RegenerateMissingOutput bool
}

// Result describes one finished run. It is never persisted as pipeline state.
type Result struct {
	ID        string
	StartedAt time.Time
	Took      time.Duration
	Status    Status
	// Stage is set only when Status is StatusFailed.
	Stage Stage
	// Fingerprint is the source fingerprint the run worked on, zero when the
	// fetch failed.
	Fingerprint content.Fingerprint
	// Regenerated is true when the output was rebuilt from the stored source.
	Regenerated bool
	// Trace lists every state the run passed through, starting at StateIdle.
	Trace []State
	Err   error
}

func (r Result) Failed() bool { return r.Status == StatusFailed }

// ErrorString is Err's message or "".
func (r Result) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
