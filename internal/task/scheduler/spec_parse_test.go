package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		kind  SpecKind
		every time.Duration
		src   string
	}{
		{in: "10m", kind: SpecInterval, every: 10 * time.Minute, src: "duration"},
		{in: "02:30", kind: SpecInterval, every: 150 * time.Minute, src: "hhmm"},
		{in: "interval:45s", kind: SpecInterval, every: 45 * time.Second, src: "duration"},
		{in: "every: 00:05", kind: SpecInterval, every: 5 * time.Minute, src: "hhmm"},
		{in: "*/15 * * * *", kind: SpecCron, src: "cron"},
		{in: "@hourly", kind: SpecCron, src: "cron"},
		{in: "cron:0 30 7 * * *", kind: SpecCron, src: "cron"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			p, err := ParseSchedule(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.kind, p.Kind)
			require.Equal(t, tt.every, p.Every)
			require.Equal(t, tt.src, p.Source)
		})
	}
}

func TestParseScheduleRejects(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "soon", "0s", "-5m", "00:00", "01:75", "cron:", "cron:* * *", "61 * * * *"} {
		_, err := ParseSchedule(in)
		require.Error(t, err, in)
	}
}

func TestCronScheduleUsesTimezone(t *testing.T) {
	t.Parallel()
	p, err := ParseSchedule("0 9 * * *")
	require.NoError(t, err)
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	s, err := p.Schedule(loc)
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // 07:00 in Jakarta
	next := s.Next(from)
	require.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC), next.UTC())
}

func TestIntervalScheduleKeepsPrecision(t *testing.T) {
	t.Parallel()
	p, err := ParseSchedule("150ms")
	require.NoError(t, err)
	s, err := p.Schedule(time.UTC)
	require.NoError(t, err)
	from := time.Unix(100, 0)
	require.Equal(t, from.Add(150*time.Millisecond), s.Next(from))
}
