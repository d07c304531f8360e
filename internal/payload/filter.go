package payload

import (
	"errors"
	"io/fs"
	"os"
)

// Skip reasons reported by Filter.
const (
	ReasonNotFound    = "file not found"
	ReasonUnsupported = "unsupported file format"
	ReasonDirectory   = "is a directory"
)

// Skipped is an input path rejected before any pipeline step runs.
type Skipped struct {
	Path   string
	Reason string
}

// Filter keeps existing files with a supported extension, preserving order.
func Filter(paths []string) (valid []string, skipped []Skipped) {
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil && errors.Is(err, fs.ErrNotExist):
			skipped = append(skipped, Skipped{Path: p, Reason: ReasonNotFound})
		case err != nil:
			skipped = append(skipped, Skipped{Path: p, Reason: err.Error()})
		case info.IsDir():
			skipped = append(skipped, Skipped{Path: p, Reason: ReasonDirectory})
		case !IsSupported(p):
			skipped = append(skipped, Skipped{Path: p, Reason: ReasonUnsupported})
		default:
			valid = append(valid, p)
		}
	}
	return valid, skipped
}
