package notifier

import (
	"errors"
	"fmt"
	"time"

	kit "docwatch/internal/transport"
)

var ErrDisabled = errors.New("notifier disabled")

type Config struct {
	Enabled bool
	Target  kit.ChatTarget
	// FileName and Caption are templates over TemplateData.
	FileName   string
	Caption    string
	Silent     bool
	RatePerSec float64
}

// TemplateData is what FileName and Caption templates see.
type TemplateData struct {
	Name        string
	Fingerprint string
	Short       string
	Size        int
	Time        time.Time
	Date        string
}

// SendError reports a failed delivery attempt.
type SendError struct {
	Target kit.ChatTarget
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to chat %d: %v", e.Target.ChatID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Event is published on the event bus after every attempt.
type Event struct {
	ChatID      int64     `json:"chat_id"`
	ThreadID    int       `json:"thread_id,omitempty"`
	MessageID   int       `json:"message_id,omitempty"`
	FileName    string    `json:"file_name"`
	Fingerprint string    `json:"fingerprint"`
	At          time.Time `json:"at"`
	Error       string    `json:"error,omitempty"`
}
