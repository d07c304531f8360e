package manifest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/paddleocr/internal/recognize"
	"github.com/parquet-go/parquet-go"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Row is one processed file in a run manifest.
type Row struct {
	RunID      string   `parquet:"run_id"`
	Mode       string   `parquet:"mode"`
	File       string   `parquet:"file"`
	Status     string   `parquet:"status"`
	Error      string   `parquet:"error"`
	Shape      string   `parquet:"shape"`
	Pages      int64    `parquet:"pages"`
	Attempts   int64    `parquet:"attempts"`
	Outputs    []string `parquet:"outputs,list"`
	StartedAt  int64    `parquet:"started_at_ms"`
	DurationMs int64    `parquet:"duration_ms"`
}

// NewRunID returns a time-ordered identifier for a run.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FromOutcome converts a batch outcome into manifest rows.
func FromOutcome(runID, mode string, outcome *recognize.Outcome) []Row {
	rows := make([]Row, 0, len(outcome.Records))
	for _, rec := range outcome.Records {
		row := Row{
			RunID:     runID,
			Mode:      mode,
			File:      rec.Path,
			Status:    StatusSucceeded,
			StartedAt: rec.Started.UnixMilli(),
		}
		if rec.Err != "" {
			row.Status = StatusFailed
			row.Error = rec.Err
		}
		if res := rec.Result; res != nil {
			row.Shape = res.Shape.String()
			row.Pages = int64(res.Pages)
			row.Attempts = int64(res.Attempts)
			row.Outputs = res.Written
			row.DurationMs = res.Duration.Milliseconds()
		}
		rows = append(rows, row)
	}
	return rows
}

// Write saves rows to a parquet file, creating parent directories.
func Write(path string, rows []Row) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	slog.Debug("Wrote run manifest", "path", path, "rows", len(rows))
	return nil
}

// Read loads all rows from a manifest file.
func Read(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := make([]Row, 0, pf.NumRows())
	buf := make([]Row, 128)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest rows: %w", err)
		}
	}

	slog.Debug("Read run manifest", "path", path, "rows", len(rows))
	return rows, nil
}

// RunSummary aggregates the rows of one run.
type RunSummary struct {
	RunID     string
	Mode      string
	StartedAt int64
	Total     int
	Succeeded int
	Pages     int64
	Failed    []Row
}

// Summarize groups rows by run, ordered by the run's first start time.
func Summarize(rows []Row) []RunSummary {
	byRun := make(map[string]*RunSummary)
	var order []string

	for _, row := range rows {
		s, ok := byRun[row.RunID]
		if !ok {
			s = &RunSummary{RunID: row.RunID, Mode: row.Mode, StartedAt: row.StartedAt}
			byRun[row.RunID] = s
			order = append(order, row.RunID)
		}
		if row.StartedAt < s.StartedAt {
			s.StartedAt = row.StartedAt
		}
		s.Total++
		if row.Status == StatusSucceeded {
			s.Succeeded++
			s.Pages += row.Pages
		} else {
			s.Failed = append(s.Failed, row)
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return byRun[order[i]].StartedAt < byRun[order[j]].StartedAt })

	summaries := make([]RunSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byRun[id])
	}
	return summaries
}
