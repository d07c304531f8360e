package recognize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Processor handles a single file.
type Processor interface {
	RecognizeFile(ctx context.Context, path string) (*FileResult, error)
}

// Failure is a file that could not be processed.
type Failure struct {
	Path    string
	Message string
}

// Record is the outcome of one file in a batch.
type Record struct {
	Path    string
	Started time.Time
	Result  *FileResult
	Err     string
}

// Outcome summarizes a batch run.
type Outcome struct {
	Total     int
	Succeeded int
	Failed    []Failure
	Records   []Record
}

// RunBatch processes files one after another in the given order. A failing
// file is recorded and the batch moves on; nothing is shared between files.
// Once ctx is done the remaining files are recorded as failed.
func RunBatch(ctx context.Context, files []string, proc Processor) *Outcome {
	outcome := &Outcome{
		Total:   len(files),
		Records: make([]Record, 0, len(files)),
	}

	for i, path := range files {
		rec := Record{Path: path, Started: time.Now()}

		var err error
		if ctx.Err() != nil {
			err = fmt.Errorf("skipped %s: %w", path, ctx.Err())
		} else {
			slog.Info("Processing file", "file", path, "progress", fmt.Sprintf("%d/%d", i+1, len(files)))
			rec.Result, err = proc.RecognizeFile(ctx, path)
		}

		if err != nil {
			slog.Error("File failed", "file", path, "err", err)
			rec.Err = err.Error()
			outcome.Failed = append(outcome.Failed, Failure{Path: path, Message: rec.Err})
		} else {
			outcome.Succeeded++
		}
		outcome.Records = append(outcome.Records, rec)
	}

	return outcome
}

// PrintSummary writes a human readable summary of the outcome.
func PrintSummary(w io.Writer, outcome *Outcome) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintf(w, "Processed: %d/%d succeeded\n", outcome.Succeeded, outcome.Total)
	if len(outcome.Failed) > 0 {
		fmt.Fprintln(w, "\nFailed files:")
		for _, f := range outcome.Failed {
			fmt.Fprintf(w, "  - %s: %s\n", f.Path, f.Message)
		}
	}
	fmt.Fprintln(w, "========================================")
}
