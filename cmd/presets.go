package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/lehigh-university-libraries/paddleocr/internal/config"
	"github.com/spf13/cobra"
)

func newPresetsCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Show preset modes and the options they send",
		Long: `Loads the config file and secrets overlay and prints every preset mode with
its effective recognition options after user overrides are merged.

No API token is required.`,
		Example: `  # Show presets from the default config.yaml
  paddleocr presets

  # Show presets from another config file
  paddleocr presets --config ./configs/paddleocr.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(global.paths())
			if err != nil {
				return err
			}
			return printPresets(cmd.OutOrStdout(), f)
		},
	}
	return cmd
}

func printPresets(w io.Writer, f *config.File) error {
	names := f.PresetNames()
	if len(names) == 0 {
		return fmt.Errorf("no presets defined in config")
	}

	for _, name := range names {
		eff, err := f.Resolve(name)
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}

		fmt.Fprintf(w, "%s\n", name)
		fmt.Fprintf(w, "  output format: %s\n", eff.OutputFormat)
		fmt.Fprintf(w, "  output dir:    %s\n", eff.OutputDir)

		keys := make([]string, 0, len(eff.RecognitionOptions))
		for k := range eff.RecognitionOptions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", k, eff.RecognitionOptions[k])
		}
		fmt.Fprintln(w)
	}

	token := "not set"
	if f.API.Token != "" {
		token = "set"
	}
	fmt.Fprintf(w, "API token: %s\n", token)
	return nil
}
