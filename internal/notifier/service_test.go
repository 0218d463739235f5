package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docwatch/internal/content"
	"docwatch/internal/eventbus"
	kit "docwatch/internal/transport"
	logx "docwatch/pkg/logx"
)

type fakeAdapter struct {
	mu   sync.Mutex
	docs []kit.Document
	to   []kit.ChatTarget
	err  error
}

func (f *fakeAdapter) SendText(context.Context, kit.ChatTarget, string, *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}

func (f *fakeAdapter) SendDocument(_ context.Context, to kit.ChatTarget, doc kit.Document, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	f.to = append(f.to, to)
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.docs)}, nil
}

func pdf(data string) content.Artifact {
	return content.Artifact{Format: content.FormatDerived, Name: "document.pdf", Data: []byte(data)}
}

func TestSendRendersTemplates(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	s, err := New(Config{
		Enabled:  true,
		Target:   kit.ChatTarget{ChatID: -100, ThreadID: 3},
		FileName: "schedule-{{.Date}}.pdf",
		Caption:  "updated {{.Short}}",
	}, ad, logx.Nop(), bus)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC) }

	doc := pdf("%PDF-1.4")
	require.NoError(t, s.Send(context.Background(), doc))

	require.Len(t, ad.docs, 1)
	require.Equal(t, "schedule-2024-03-09.pdf", ad.docs[0].FileName)
	require.Equal(t, "updated "+doc.Fingerprint().Short(), ad.docs[0].Caption)
	require.Equal(t, "application/pdf", ad.docs[0].MIME)
	require.Equal(t, kit.ChatTarget{ChatID: -100, ThreadID: 3}, ad.to[0])

	ev := <-events
	require.Equal(t, eventbus.TypeNotification, ev.Type)
	require.Empty(t, ev.Data.(Event).Error)
}

func TestSendFailureIsSingleAttempt(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{err: errors.New("telegram: Bad Request (400)")}
	s, err := New(Config{Enabled: true, Target: kit.ChatTarget{ChatID: 1}}, ad, logx.Nop(), nil)
	require.NoError(t, err)

	err = s.Send(context.Background(), pdf("x"))
	var se *SendError
	require.ErrorAs(t, err, &se)
	require.EqualValues(t, 1, se.Target.ChatID)
	require.Len(t, ad.docs, 1)
}

func TestSendDisabledSkips(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s, err := New(Config{Enabled: false}, ad, logx.Nop(), nil)
	require.NoError(t, err)
	require.False(t, s.Enabled())
	require.NoError(t, s.Send(context.Background(), pdf("x")))
	require.Empty(t, ad.docs)
}

func TestDefaultFileNameUsesArtifactName(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s, err := New(Config{Enabled: true}, ad, logx.Nop(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), pdf("x")))
	require.Equal(t, "document.pdf", ad.docs[0].FileName)
}

func TestBadTemplateRejected(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Enabled: true, Caption: "{{.Nope"}, &fakeAdapter{}, logx.Nop(), nil)
	require.Error(t, err)
}

func TestSendRespectsCancelledContext(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s, err := New(Config{Enabled: true, RatePerSec: 0.001}, ad, logx.Nop(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), pdf("a")))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = s.Send(ctx, pdf("b"))
	var se *SendError
	require.ErrorAs(t, err, &se)
	require.Len(t, ad.docs, 1)
}
