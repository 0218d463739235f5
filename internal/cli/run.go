package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"docwatch/internal/pipeline"
)

func newRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}

func newOnceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run the pipeline once and exit",
		Long: `Run a single fetch, detect, convert and notify pass.

Exit status is 0 for delivered, stored or unchanged, 1 when the run failed and 3 when
another docwatch process held the storage lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.RunOnce(cmd.Context())
			if err := printResult(cmd.OutOrStdout(), opts.Format, res); err != nil {
				return err
			}
			return resultError(res)
		},
	}
}

func newNotifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Re-send the stored PDF without fetching or converting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.RetryNotify(cmd.Context())
			if err != nil {
				return exitErr(ExitCommandError, "notify", err)
			}
			if err := printResult(cmd.OutOrStdout(), opts.Format, res); err != nil {
				return err
			}
			return resultError(res)
		},
	}
}

func resultError(res pipeline.Result) error {
	switch res.Status {
	case pipeline.StatusFailed:
		return exitErr(ExitFailure, fmt.Sprintf("run failed at %s", res.Stage), res.Err)
	case pipeline.StatusSkipped:
		return exitErr(ExitBusy, "skipped", res.Err)
	}
	return nil
}

type resultView struct {
	ID          string `json:"id,omitempty"`
	Status      string `json:"status"`
	Stage       string `json:"stage,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Regenerated bool   `json:"regenerated,omitempty"`
	TookMS      int64  `json:"took_ms"`
	Error       string `json:"error,omitempty"`
}

func printResult(w io.Writer, format string, res pipeline.Result) error {
	v := resultView{
		ID:          res.ID,
		Status:      string(res.Status),
		Stage:       string(res.Stage),
		Regenerated: res.Regenerated,
		TookMS:      res.Took.Milliseconds(),
		Error:       res.ErrorString(),
	}
	if !res.Fingerprint.IsZero() {
		v.Fingerprint = res.Fingerprint.String()
	}
	if format == "json" {
		return writeJSON(w, v)
	}
	line := v.Status
	if v.Stage != "" {
		line += " (" + v.Stage + ")"
	}
	if v.Fingerprint != "" {
		line += " " + res.Fingerprint.Short()
	}
	if v.Regenerated {
		line += " regenerated"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
