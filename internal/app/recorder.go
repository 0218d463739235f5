package app

import (
	"context"
	"fmt"
	"time"

	"docwatch/internal/eventbus"
	"docwatch/internal/notifier"
	"docwatch/internal/pipeline"
	"docwatch/internal/storage"
	logx "docwatch/pkg/logx"
)

// startRecorder consumes pipeline.run events into the audit journal and the
// systemd status line. A notifier.document event precedes the run event of
// the same run; its message id is attached to that run's record.
func (a *App) startRecorder() {
	events, unsub := a.bus.Subscribe(64)
	a.unsub = unsub
	a.recorder.Add(1)
	go func() {
		defer a.recorder.Done()
		var sent *notifier.Event
		for ev := range events {
			switch ev.Type {
			case eventbus.TypeNotification:
				if n, ok := ev.Data.(notifier.Event); ok {
					sent = &n
				}
			case eventbus.TypePipelineRun:
				res, ok := ev.Data.(pipeline.Result)
				if !ok {
					continue
				}
				a.record(res, sent)
				sent = nil
			}
		}
	}()
}

func (a *App) record(res pipeline.Result, sent *notifier.Event) {
	a.sd.Status(statusLine(res))
	if a.audit == nil {
		return
	}
	rec := runRecord(res)
	if sent != nil && res.Status == pipeline.StatusDelivered {
		rec.MessageID = sent.MessageID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.audit.Append(ctx, rec); err != nil {
		a.log.Warn("audit append failed", logx.Err(err))
	}
}

func runRecord(res pipeline.Result) storage.RunRecord {
	rec := storage.RunRecord{
		ID:        res.ID,
		StartedAt: res.StartedAt,
		TookMS:    res.Took.Milliseconds(),
		Status:    string(res.Status),
		Stage:     string(res.Stage),
		Error:     res.ErrorString(),
	}
	if !res.Fingerprint.IsZero() {
		rec.Fingerprint = res.Fingerprint.String()
	}
	return rec
}

func statusLine(res pipeline.Result) string {
	at := res.StartedAt.Format("2006-01-02 15:04:05")
	if res.Failed() {
		return fmt.Sprintf("last run %s: failed at %s", at, res.Stage)
	}
	return fmt.Sprintf("last run %s: %s", at, res.Status)
}
