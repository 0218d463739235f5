// Package convert runs the external document converter (LibreOffice by
// default) and validates what it produced.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"docwatch/internal/content"
	logx "docwatch/pkg/logx"
)

const (
	defaultCommand = "soffice"
	defaultTimeout = 2 * time.Minute
	workBaseName   = "document"
	outputTailMax  = 512
)

// Config describes how to invoke the converter.
//
// The tool is called as:
//
//	<Command> <Args...> [-env:UserInstallation=...] --convert-to <target> --outdir <workdir> <workdir>/document<InputExt>
//
// and must leave <workdir>/document<OutputExt> behind.
type Config struct {
	Command   string
	Args      []string
	InputExt  string // ".docx"
	OutputExt string // ".pdf"
	// Target is the --convert-to value; defaults to OutputExt without the dot.
	Target  string
	Timeout time.Duration
	// IsolatedProfile gives each run its own LibreOffice profile so a desktop
	// instance holding the default profile lock cannot block conversion.
	IsolatedProfile bool
	ValidatePDF     bool
	// TempDir is the parent for per-run work dirs; empty uses os.TempDir().
	TempDir string
}

func (c *Config) defaults() {
	if strings.TrimSpace(c.Command) == "" {
		c.Command = defaultCommand
		if c.Args == nil {
			c.Args = []string{"--headless"}
		}
	}
	if c.InputExt == "" {
		c.InputExt = ".docx"
	}
	if c.OutputExt == "" {
		c.OutputExt = ".pdf"
	}
	if !strings.HasPrefix(c.InputExt, ".") {
		c.InputExt = "." + c.InputExt
	}
	if !strings.HasPrefix(c.OutputExt, ".") {
		c.OutputExt = "." + c.OutputExt
	}
	if c.Target == "" {
		c.Target = strings.TrimPrefix(c.OutputExt, ".")
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

type Converter struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) *Converter {
	cfg.defaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Converter{cfg: cfg, log: log}
}

// OutputExt is the extension of artifacts this converter produces.
func (c *Converter) OutputExt() string { return c.cfg.OutputExt }

// Convert writes source into a private work dir, runs the converter against
// that file and returns the derived artifact. The work dir is always removed.
func (c *Converter) Convert(ctx context.Context, source content.Artifact) (content.Artifact, error) {
	work, err := os.MkdirTemp(c.cfg.TempDir, "docwatch-convert-*")
	if err != nil {
		return content.Artifact{}, fmt.Errorf("convert: work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(work); err != nil {
			c.log.Warn("convert work dir cleanup failed", logx.String("dir", work), logx.Err(err))
		}
	}()

	in := filepath.Join(work, workBaseName+c.cfg.InputExt)
	if err := os.WriteFile(in, source.Data, 0o600); err != nil {
		return content.Artifact{}, fmt.Errorf("convert: stage input: %w", err)
	}

	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	args := append([]string(nil), c.cfg.Args...)
	if c.cfg.IsolatedProfile {
		args = append(args, "-env:UserInstallation=file://"+filepath.ToSlash(filepath.Join(work, "profile")))
	}
	args = append(args, "--convert-to", c.cfg.Target, "--outdir", work, in)

	var combined bytes.Buffer
	cmd := exec.CommandContext(rctx, c.cfg.Command, args...)
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	cmd.Dir = work
	// soffice may fork helpers that hold the output pipes after a kill.
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	runErr := cmd.Run()
	took := time.Since(start)
	if runErr != nil {
		if ctxErr := rctx.Err(); ctxErr != nil {
			runErr = fmt.Errorf("%w: %w", runErr, ctxErr)
		}
		return content.Artifact{}, &ConversionError{Reason: ReasonNonZeroExit, Output: tail(combined.String()), Err: runErr}
	}

	out := filepath.Join(work, workBaseName+c.cfg.OutputExt)
	fi, err := os.Stat(out)
	if errors.Is(err, fs.ErrNotExist) {
		return content.Artifact{}, &ConversionError{Reason: ReasonOutputMissing, Output: tail(combined.String())}
	}
	if err != nil {
		return content.Artifact{}, &ConversionError{Reason: ReasonOutputMissing, Err: err}
	}
	if fi.Size() == 0 {
		return content.Artifact{}, &ConversionError{Reason: ReasonOutputEmpty}
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return content.Artifact{}, &ConversionError{Reason: ReasonOutputMissing, Err: err}
	}
	if c.cfg.ValidatePDF {
		if err := ValidatePDF(data); err != nil {
			return content.Artifact{}, &ConversionError{Reason: ReasonInvalidOutput, Err: err}
		}
	}

	c.log.Debug("converted",
		logx.Int("in_bytes", source.Size()),
		logx.Int("out_bytes", len(data)),
		logx.Duration("took", took),
	)
	return content.Artifact{
		Format: content.FormatDerived,
		Name:   workBaseName + c.cfg.OutputExt,
		Data:   data,
	}, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= outputTailMax {
		return s
	}
	return "..." + s[len(s)-outputTailMax:]
}
