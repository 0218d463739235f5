package transport

import "context"

type ChatTarget struct {
	ChatID   int64
	ThreadID int // telegram forum topic thread id (0 if none)
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	// Silent delivers the message without a notification sound.
	Silent bool
}

// Document is a file upload. Data is sent as-is; FileName is what the
// recipient sees.
type Document struct {
	FileName string
	MIME     string
	Caption  string
	Data     []byte
}

// Adapter is the outbound side of a chat platform.
type Adapter interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendDocument(ctx context.Context, to ChatTarget, doc Document, opt *SendOptions) (MessageRef, error)
}
