package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/lehigh-university-libraries/paddleocr/internal/manifest"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <manifest.parquet>",
		Short: "Summarize a saved run manifest",
		Long: `Reads a parquet manifest written with --manifest and prints, per run, how many
files succeeded, how many pages were recognized and which files failed.`,
		Example: `  paddleocr report runs/today.parquet`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := manifest.Read(args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), manifest.Summarize(rows))
			return nil
		},
	}
	return cmd
}

func printReport(w io.Writer, summaries []manifest.RunSummary) {
	for _, s := range summaries {
		fmt.Fprintln(w, "========================================")
		fmt.Fprintf(w, "Run:        %s\n", s.RunID)
		fmt.Fprintf(w, "Started:    %s\n", time.UnixMilli(s.StartedAt).UTC().Format(time.RFC3339))
		fmt.Fprintf(w, "Mode:       %s\n", s.Mode)
		fmt.Fprintf(w, "Succeeded:  %d/%d\n", s.Succeeded, s.Total)
		fmt.Fprintf(w, "Pages:      %d\n", s.Pages)
		if len(s.Failed) > 0 {
			fmt.Fprintln(w, "Failed files:")
			for _, f := range s.Failed {
				fmt.Fprintf(w, "  - %s: %s\n", f.File, f.Error)
			}
		}
	}
	fmt.Fprintln(w, "========================================")
}
