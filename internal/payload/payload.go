package payload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var (
	ErrFileRead        = errors.New("failed to read input file")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Kind is the fileType discriminator expected by the recognition service.
type Kind int

const (
	Document Kind = 0
	Image    Kind = 1
)

func (k Kind) String() string {
	switch k {
	case Document:
		return "document"
	case Image:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func init() {
	// Keep pdfcpu from creating a config directory in the user's home.
	api.DisableConfigDir()
}

var kinds = map[string]Kind{
	".pdf":  Document,
	".png":  Image,
	".jpg":  Image,
	".jpeg": Image,
	".bmp":  Image,
	".tif":  Image,
	".tiff": Image,
}

// SupportedExtensions lists accepted input extensions.
func SupportedExtensions() []string {
	return []string{".pdf", ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}
}

// KindOf classifies a path by its extension.
func KindOf(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	k, ok := kinds[ext]
	if !ok {
		return 0, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedType, ext, strings.Join(SupportedExtensions(), ", "))
	}
	return k, nil
}

// IsSupported reports whether path has an accepted extension.
func IsSupported(path string) bool {
	_, err := KindOf(path)
	return err == nil
}

// Request is one file ready to be submitted.
type Request struct {
	Path    string
	Kind    Kind
	Content string
	Size    int

	// Best-effort inspection results; zero when unknown.
	Pages  int
	Width  int
	Height int
}

// PageCounter returns the number of pages in a PDF document.
type PageCounter func(data []byte) (int, error)

// Encoder turns files on disk into requests.
type Encoder struct {
	countPages PageCounter
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithPageCounter replaces the PDF page counter.
func WithPageCounter(c PageCounter) Option {
	return func(e *Encoder) { e.countPages = c }
}

// NewEncoder creates an encoder that counts PDF pages with pdfcpu.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{countPages: pdfPageCount}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Encode reads path and base64-encodes its content. Size limits are left to
// the service.
func (e *Encoder) Encode(path string) (*Request, error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFileRead, path, err)
	}

	req := &Request{
		Path:    path,
		Kind:    kind,
		Content: base64.StdEncoding.EncodeToString(data),
		Size:    len(data),
	}
	e.inspect(req, data)

	slog.Debug("Encoded file", "path", path, "kind", kind, "size_bytes", req.Size, "pages", req.Pages, "width", req.Width, "height", req.Height)
	return req, nil
}

func (e *Encoder) inspect(req *Request, data []byte) {
	switch req.Kind {
	case Document:
		if e.countPages == nil {
			return
		}
		n, err := e.countPages(data)
		if err != nil {
			slog.Debug("Unable to count PDF pages", "path", req.Path, "err", err)
			return
		}
		req.Pages = n
	case Image:
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			slog.Debug("Unable to read image dimensions", "path", req.Path, "err", err)
			return
		}
		req.Pages = 1
		req.Width, req.Height = cfg.Width, cfg.Height
		slog.Debug("Image format detected", "path", req.Path, "format", format)
	}
}

func pdfPageCount(data []byte) (n int, err error) {
	// pdfcpu can panic on badly damaged files; page counting is optional.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()
	return api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
}
