package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docwatch/internal/content"
	logx "docwatch/pkg/logx"
)

// argParse walks the converter's argv and leaves $outdir and $input set.
const argParse = `
outdir=""
input=""
while [ $# -gt 0 ]; do
  case "$1" in
    --outdir) outdir="$2"; shift 2; continue ;;
    --convert-to) shift 2; continue ;;
  esac
  input="$1"
  shift
done
base=$(basename "$input")
base="${base%.*}"
`

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub-converter.sh")
	script := "#!/bin/sh\n" + argParse + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func src(s string) content.Artifact {
	return content.Artifact{Format: content.FormatSource, Name: "schedule.docx", Data: []byte(s)}
}

func TestConvertSuccess(t *testing.T) {
	t.Parallel()
	stub := writeStub(t, `printf 'PDF:' > "$outdir/$base.pdf"; cat "$input" >> "$outdir/$base.pdf"`)
	tmp := t.TempDir()
	c := New(Config{Command: stub, TempDir: tmp, IsolatedProfile: true}, logx.Nop())

	out, err := c.Convert(context.Background(), src("hello"))
	require.NoError(t, err)
	require.Equal(t, content.FormatDerived, out.Format)
	require.Equal(t, "PDF:hello", string(out.Data))
	require.Equal(t, "document.pdf", out.Name)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Empty(t, entries, "work dir must be removed")
}

func TestConvertIsRepeatable(t *testing.T) {
	t.Parallel()
	stub := writeStub(t, `printf 'PDF:' > "$outdir/$base.pdf"; cat "$input" >> "$outdir/$base.pdf"`)
	c := New(Config{Command: stub, TempDir: t.TempDir()}, logx.Nop())

	a, err := c.Convert(context.Background(), src("same"))
	require.NoError(t, err)
	b, err := c.Convert(context.Background(), src("same"))
	require.NoError(t, err)
	require.Equal(t, a.Data, b.Data)
}

func TestConvertFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		body     string
		validate bool
		reason   Reason
	}{
		{name: "non zero exit", body: `echo "source file could not be loaded" >&2; exit 3`, reason: ReasonNonZeroExit},
		{name: "output missing", body: `exit 0`, reason: ReasonOutputMissing},
		{name: "output empty", body: `: > "$outdir/$base.pdf"`, reason: ReasonOutputEmpty},
		{name: "wrong output name", body: `echo x > "$outdir/other.pdf"`, reason: ReasonOutputMissing},
		{name: "invalid pdf", body: `echo "not a pdf" > "$outdir/$base.pdf"`, validate: true, reason: ReasonInvalidOutput},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := New(Config{Command: writeStub(t, tt.body), TempDir: t.TempDir(), ValidatePDF: tt.validate}, logx.Nop())
			_, err := c.Convert(context.Background(), src("input"))
			var ce *ConversionError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, tt.reason, ce.Reason)
		})
	}
}

func TestConvertNonZeroExitKeepsOutputTail(t *testing.T) {
	t.Parallel()
	c := New(Config{Command: writeStub(t, `echo "general I/O error" >&2; exit 1`), TempDir: t.TempDir()}, logx.Nop())
	_, err := c.Convert(context.Background(), src("x"))
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Output, "general I/O error")
	require.Contains(t, err.Error(), string(ReasonNonZeroExit))
}

func TestConvertTimeout(t *testing.T) {
	t.Parallel()
	c := New(Config{Command: writeStub(t, `exec sleep 5`), TempDir: t.TempDir(), Timeout: 100 * time.Millisecond}, logx.Nop())

	start := time.Now()
	_, err := c.Convert(context.Background(), src("x"))
	require.Less(t, time.Since(start), 4*time.Second)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ReasonNonZeroExit, ce.Reason)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{InputExt: "odt", OutputExt: "pdf"}
	cfg.defaults()
	require.Equal(t, defaultCommand, cfg.Command)
	require.Equal(t, []string{"--headless"}, cfg.Args)
	require.Equal(t, ".odt", cfg.InputExt)
	require.Equal(t, ".pdf", cfg.OutputExt)
	require.Equal(t, "pdf", cfg.Target)
	require.Equal(t, defaultTimeout, cfg.Timeout)
}

func TestValidatePDFRejectsGarbage(t *testing.T) {
	t.Parallel()
	require.Error(t, ValidatePDF([]byte(strings.Repeat("x", 64))))
}
