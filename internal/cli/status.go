package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docwatch/internal/app"
)

func newStatusCommand(opts *RootOptions) *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show stored records and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			st, err := a.Status(cmd.Context(), recent)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			return printStatus(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().IntVarP(&recent, "recent", "n", 10, "number of audit rows to show")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(w io.Writer, st app.Status) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "storage\t%s\n", st.StorageDir)
	fmt.Fprintf(tw, "source\t%s\n", slotLine(st.Source))
	fmt.Fprintf(tw, "output\t%s\n", slotLine(st.Output))
	if st.Busy {
		fmt.Fprintf(tw, "lock\theld by a running process\n")
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(st.Recent) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tSTAGE\tTOOK\tFINGERPRINT\tERROR")
	for _, r := range st.Recent {
		fp := r.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status, dash(r.Stage),
			(time.Duration(r.TookMS) * time.Millisecond).String(),
			dash(fp), dash(r.Error))
	}
	return tw.Flush()
}

func slotLine(s app.SlotInfo) string {
	if !s.Present {
		return "absent"
	}
	line := fmt.Sprintf("%s  %d bytes", s.Fingerprint[:12], s.Size)
	if !s.ModTime.IsZero() {
		line += "  " + s.ModTime.Local().Format("2006-01-02 15:04:05")
	}
	return line
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
