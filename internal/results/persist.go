package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/paddleocr/internal/config"
)

// Persist writes the artifacts selected by format into outputDir and returns
// the written paths. Files are written in place, not atomically.
func Persist(doc *Document, outputDir, baseName string, format config.OutputFormat) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory %s: %w", ErrFileWrite, outputDir, err)
	}

	var written []string

	if format.WantsMarkdown() {
		files, err := writeMarkdown(doc, outputDir, baseName)
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}

	if format.WantsJSON() {
		path := filepath.Join(outputDir, baseName+".json")
		if err := writeJSON(doc.raw, path); err != nil {
			return written, err
		}
		slog.Info("Saved JSON result", "path", path)
		written = append(written, path)
	}

	return written, nil
}

func writeMarkdown(doc *Document, outputDir, baseName string) ([]string, error) {
	switch doc.Shape {
	case ShapeMultiPage:
		written := make([]string, 0, len(doc.Pages))
		for i, text := range doc.Pages {
			path := filepath.Join(outputDir, fmt.Sprintf("%s_%d.md", baseName, i))
			if err := writeFile(path, []byte(text)); err != nil {
				return written, err
			}
			slog.Info("Saved Markdown result", "path", path, "page", i)
			written = append(written, path)
		}
		return written, nil
	default:
		if !doc.HasMarkdown {
			slog.Warn("No Markdown content in response", "base_name", baseName)
		}
		path := filepath.Join(outputDir, baseName+".md")
		if err := writeFile(path, []byte(doc.Markdown)); err != nil {
			return nil, err
		}
		slog.Info("Saved Markdown result", "path", path)
		return []string{path}, nil
	}
}

func writeJSON(v any, path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: failed to encode %s: %w", ErrFileWrite, path, err)
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileWrite, path, err)
	}
	return nil
}
