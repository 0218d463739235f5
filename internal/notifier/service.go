package notifier

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"docwatch/internal/content"
	"docwatch/internal/eventbus"
	kit "docwatch/internal/transport"
	logx "docwatch/pkg/logx"
)

const (
	defaultFileName = "{{.Name}}"
	defaultCaption  = "Document updated {{.Time.Format \"2006-01-02 15:04\"}}"
)

// Service is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log     logx.Logger
	adapter kit.Adapter
	bus     eventbus.Bus
	now     func() time.Time

	cfg      Config
	limiter  *rate.Limiter
	fileTmpl *template.Template
	capTmpl  *template.Template
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger, bus eventbus.Bus) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	s := &Service{adapter: adapter, log: log, bus: bus, now: time.Now}
	if err := s.Apply(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled && s.adapter != nil
}

// Apply swaps the configuration. Templates are parsed up front so a bad
// template fails at startup rather than on the first change.
func (s *Service) Apply(cfg Config) error {
	if strings.TrimSpace(cfg.FileName) == "" {
		cfg.FileName = defaultFileName
	}
	if cfg.Caption == "" {
		cfg.Caption = defaultCaption
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	fileTmpl, err := template.New("filename").Option("missingkey=error").Parse(cfg.FileName)
	if err != nil {
		return fmt.Errorf("notifier: filename template: %w", err)
	}
	capTmpl, err := template.New("caption").Option("missingkey=error").Parse(cfg.Caption)
	if err != nil {
		return fmt.Errorf("notifier: caption template: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	s.fileTmpl = fileTmpl
	s.capTmpl = capTmpl
	return nil
}

// Send uploads doc once. A disabled notifier logs and returns nil; the
// pipeline checks Enabled first and reports such runs as stored.
func (s *Service) Send(ctx context.Context, doc content.Artifact) error {
	s.mu.Lock()
	cfg := s.cfg
	limiter := s.limiter
	fileTmpl, capTmpl := s.fileTmpl, s.capTmpl
	s.mu.Unlock()

	fp := doc.Fingerprint()
	if !cfg.Enabled || s.adapter == nil {
		s.log.Info("notification disabled, delivery skipped", logx.String("fingerprint", fp.Short()))
		return nil
	}

	now := s.now()
	data := TemplateData{
		Name:        doc.Name,
		Fingerprint: fp.String(),
		Short:       fp.Short(),
		Size:        doc.Size(),
		Time:        now,
		Date:        now.Format("2006-01-02"),
	}
	fileName, err := render(fileTmpl, data)
	if err != nil {
		return &SendError{Target: cfg.Target, Err: err}
	}
	if fileName == "" {
		fileName = "document" + filepath.Ext(doc.Name)
	}
	caption, err := render(capTmpl, data)
	if err != nil {
		return &SendError{Target: cfg.Target, Err: err}
	}

	if err := limiter.Wait(ctx); err != nil {
		return &SendError{Target: cfg.Target, Err: err}
	}

	mimeType := mime.TypeByExtension(filepath.Ext(fileName))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	ref, err := s.adapter.SendDocument(ctx, cfg.Target, kit.Document{
		FileName: fileName,
		MIME:     mimeType,
		Caption:  caption,
		Data:     doc.Data,
	}, &kit.SendOptions{Silent: cfg.Silent})

	ev := Event{
		ChatID:      cfg.Target.ChatID,
		ThreadID:    cfg.Target.ThreadID,
		MessageID:   ref.MessageID,
		FileName:    fileName,
		Fingerprint: fp.String(),
		At:          now,
	}
	if err != nil {
		ev.Error = err.Error()
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeNotification, Time: now, Data: ev})
		return &SendError{Target: cfg.Target, Err: err}
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeNotification, Time: now, Data: ev})

	s.log.Info("document delivered",
		logx.Int64("chat_id", cfg.Target.ChatID),
		logx.Int("message_id", ref.MessageID),
		logx.String("file", fileName),
		logx.String("fingerprint", fp.Short()),
	)
	return nil
}

func render(t *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
