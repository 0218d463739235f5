package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"docwatch/internal/transport"
)

const (
	chatQueueSize   = 128
	chatMessageMax  = 3500
	chatValueMax    = 600
	chatSendTimeout = 10 * time.Second
)

// chatSink is a zerolog.LevelWriter that forwards lines to an operator chat.
// Writes never block: when the queue is full or the limiter refuses, the
// line is dropped.
type chatSink struct {
	sender transport.Adapter

	mu       sync.Mutex
	target   transport.ChatTarget
	minLevel zerolog.Level
	limiter  *rate.Limiter

	queue   chan string
	once    sync.Once
	cancel  context.CancelFunc
	stopped chan struct{}
}

func newChatSink(sender transport.Adapter) *chatSink {
	return &chatSink{
		sender:   sender,
		minLevel: zerolog.WarnLevel,
		limiter:  rate.NewLimiter(1, 1),
		queue:    make(chan string, chatQueueSize),
	}
}

func (c *chatSink) apply(cfg ChatConfig) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	c.mu.Lock()
	c.target = cfg.Target
	c.minLevel = parseLevel(cfg.MinLevel, zerolog.WarnLevel)
	c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	c.mu.Unlock()

	c.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.stopped = make(chan struct{})
		go c.worker(ctx)
	})
}

func (c *chatSink) stop() {
	if c == nil || c.cancel == nil {
		return
	}
	c.cancel()
	<-c.stopped
}

func (c *chatSink) worker(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.queue:
			if c.sender == nil {
				continue
			}
			c.mu.Lock()
			to := c.target
			c.mu.Unlock()
			sctx, cancel := context.WithTimeout(ctx, chatSendTimeout)
			_, _ = c.sender.SendText(sctx, to, msg, &transport.SendOptions{DisablePreview: true})
			cancel()
		}
	}
}

func (c *chatSink) Write(p []byte) (int, error) {
	return c.WriteLevel(zerolog.InfoLevel, p)
}

func (c *chatSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	c.mu.Lock()
	chatID := c.target.ChatID
	min := c.minLevel
	lim := c.limiter
	c.mu.Unlock()

	if chatID == 0 || c.sender == nil || level < min || !lim.Allow() {
		return len(p), nil
	}
	msg := formatChatLine(p)
	if msg == "" {
		return len(p), nil
	}
	select {
	case c.queue <- msg:
	default:
	}
	return len(p), nil
}

// formatChatLine renders a zerolog JSON line as "[LEVEL] message" followed
// by one "- key=value" line per field, sorted by key.
func formatChatLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), chatMessageMax)
	}

	lvl, _ := m[zerolog.LevelFieldName].(string)
	msg, _ := m[zerolog.MessageFieldName].(string)

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n- " + k + "=")
		b.WriteString(truncate(fmt.Sprint(m[k]), chatValueMax))
	}
	return truncate(b.String(), chatMessageMax)
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
