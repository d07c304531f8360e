package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/paddleocr/internal/config"
	"github.com/lehigh-university-libraries/paddleocr/internal/paddle"
	"github.com/lehigh-university-libraries/paddleocr/internal/payload"
	"github.com/lehigh-university-libraries/paddleocr/internal/results"
)

// Submitter sends one encoded file to the recognition service.
type Submitter interface {
	Submit(ctx context.Context, req *payload.Request, cfg *config.Effective) (*paddle.Response, error)
}

// FileResult describes a successfully processed file.
type FileResult struct {
	Path     string
	Mode     string
	Shape    results.Shape
	Pages    int
	Attempts int
	Written  []string
	Duration time.Duration
}

// Runner runs the single-file pipeline: resolve config, encode, submit,
// persist. Config is resolved again for every file.
type Runner struct {
	Paths config.Paths
	Mode  string
	// OutputDir overrides output.markdown_dir when set.
	OutputDir string

	Encoder *payload.Encoder
	Client  Submitter
}

// NewRunner creates a Runner with the default encoder and API client.
func NewRunner(paths config.Paths, mode, outputDir string) *Runner {
	return &Runner{
		Paths:     paths,
		Mode:      mode,
		OutputDir: outputDir,
		Encoder:   payload.NewEncoder(),
		Client:    paddle.New(),
	}
}

// RecognizeFile processes one file and writes its artifacts.
func (r *Runner) RecognizeFile(ctx context.Context, path string) (*FileResult, error) {
	start := time.Now()

	cfg, err := config.Resolve(r.Paths, r.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config for %s: %w", path, err)
	}
	if err := cfg.RequireToken(); err != nil {
		return nil, fmt.Errorf("cannot recognize %s: %w", path, err)
	}

	outputDir := cfg.OutputDir
	if r.OutputDir != "" {
		outputDir = r.OutputDir
	}

	req, err := r.Encoder.Encode(path)
	if err != nil {
		return nil, err
	}

	resp, err := r.Client.Submit(ctx, req, cfg)
	if err != nil {
		return nil, err
	}

	doc, err := results.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response for %s: %w", path, err)
	}
	if doc.Shape == results.ShapeMultiPage && req.Pages > 0 && req.Pages != doc.PageCount() {
		slog.Warn("Page count mismatch", "file", path, "input_pages", req.Pages, "result_pages", doc.PageCount())
	}

	written, err := results.Persist(doc, outputDir, BaseName(path), cfg.OutputFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to save results for %s: %w", path, err)
	}

	res := &FileResult{
		Path:     path,
		Mode:     cfg.Mode,
		Shape:    doc.Shape,
		Pages:    doc.PageCount(),
		Attempts: resp.Attempts,
		Written:  written,
		Duration: time.Since(start),
	}
	slog.Info("Recognized file", "file", path, "shape", doc.Shape, "pages", res.Pages, "files_written", len(written), "duration", res.Duration)
	return res, nil
}

// BaseName returns the file name without directory and extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
