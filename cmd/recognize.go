package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/paddleocr/internal/config"
	"github.com/lehigh-university-libraries/paddleocr/internal/manifest"
	"github.com/lehigh-university-libraries/paddleocr/internal/payload"
	"github.com/lehigh-university-libraries/paddleocr/internal/recognize"
)

type recognizeOptions struct {
	global       *globalOptions
	mode         string
	outputDir    string
	manifestPath string
}

func runRecognize(ctx context.Context, out io.Writer, args []string, opts *recognizeOptions) error {
	if _, err := os.Stat(opts.global.secretsPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("secrets file not found: %s\n\nCreate it with %s=<your token>\nTokens are issued at https://aistudio.baidu.com/account/accessToken", opts.global.secretsPath, config.EnvToken)
		}
		return fmt.Errorf("unable to access secrets file: %w", err)
	}

	files, skipped := payload.Filter(args)
	for _, s := range skipped {
		slog.Warn("Skipping input", "file", s.Path, "reason", s.Reason)
	}
	if len(files) == 0 {
		return fmt.Errorf("no valid files to process (supported: %s)", strings.Join(payload.SupportedExtensions(), ", "))
	}

	runner := recognize.NewRunner(opts.global.paths(), opts.mode, opts.outputDir)

	if len(files) == 1 {
		rec := recognize.Record{Path: files[0], Started: time.Now()}
		res, err := runner.RecognizeFile(ctx, files[0])
		rec.Result = res
		if err != nil {
			rec.Err = err.Error()
		}
		outcome := &recognize.Outcome{Total: 1, Records: []recognize.Record{rec}}
		if err == nil {
			outcome.Succeeded = 1
		}
		saveManifest(opts, outcome)
		return err
	}

	outcome := recognize.RunBatch(ctx, files, runner)
	recognize.PrintSummary(out, outcome)
	saveManifest(opts, outcome)
	return nil
}

// saveManifest writes the run manifest when requested. A failure here is
// logged and does not change the exit status.
func saveManifest(opts *recognizeOptions, outcome *recognize.Outcome) {
	if opts.manifestPath == "" {
		return
	}
	runID := manifest.NewRunID()
	rows := manifest.FromOutcome(runID, opts.mode, outcome)
	if err := manifest.Write(opts.manifestPath, rows); err != nil {
		slog.Error("Unable to write run manifest", "path", opts.manifestPath, "err", err)
		return
	}
	slog.Info("Run manifest saved", "path", opts.manifestPath, "run_id", runID)
}
