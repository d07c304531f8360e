package cmd

import (
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/paddleocr/internal/config"
	"github.com/spf13/cobra"
)

// globalOptions are shared by every command.
type globalOptions struct {
	configPath  string
	secretsPath string
	verbose     bool
}

func (o *globalOptions) paths() config.Paths {
	return config.Paths{Config: o.configPath, Secrets: o.secretsPath}
}

func NewRootCmd() *cobra.Command {
	global := &globalOptions{}
	opts := &recognizeOptions{global: global}

	cmd := &cobra.Command{
		Use:   "paddleocr [files...]",
		Short: "Recognize PDF and image files with the PaddleOCR-VL layout parsing API",
		Long: `paddleocr submits PDF and image files to a PaddleOCR-VL layout parsing
endpoint and saves the recognized pages as Markdown and/or JSON.

Supported formats: PDF, PNG, JPG/JPEG, BMP, TIF/TIFF.

Preset modes (defined in the config file):
  fast      simple documents, most advanced features disabled
  standard  balance of speed and accuracy, recommended for most documents
  fine      highest accuracy for complex documents, all features enabled

The API token is read from PADDLEOCR_TOKEN in the secrets file (.env by default).
Tokens are issued at https://aistudio.baidu.com/account/accessToken`,
		Example: `  # Recognize a single file with the standard preset
  paddleocr document.pdf

  # Use the fast preset
  paddleocr document.pdf --mode fast

  # Batch several files into a custom output directory
  paddleocr scan1.pdf page2.jpg --mode fine --output ./ocr

  # Keep a parquet record of the run
  paddleocr *.pdf --manifest runs/today.parquet`,
		Args: cobra.MinimumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(global.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecognize(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&global.configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	pf.StringVar(&global.secretsPath, "secrets", ".env", "Path to the secrets file holding PADDLEOCR_TOKEN")
	pf.BoolVarP(&global.verbose, "verbose", "v", false, "Verbose logging")

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", config.DefaultMode, "Preset mode (fast, standard, fine)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Output directory (default: output.markdown_dir from the config file)")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "Write a parquet record of the run to this path")

	_ = cmd.RegisterFlagCompletionFunc("mode", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return presetNames(global.paths()), cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(newPresetsCmd(global))
	cmd.AddCommand(newReportCmd())

	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// presetNames lists presets from the config file, falling back to the
// shipped names when the file cannot be read.
func presetNames(paths config.Paths) []string {
	f, err := config.Load(paths)
	if err != nil || len(f.Presets) == 0 {
		return []string{"fast", "standard", "fine"}
	}
	return f.PresetNames()
}
