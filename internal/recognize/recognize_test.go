package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/paddleocr/internal/config"
	"github.com/lehigh-university-libraries/paddleocr/internal/paddle"
	"github.com/lehigh-university-libraries/paddleocr/internal/payload"
	"github.com/lehigh-university-libraries/paddleocr/internal/results"
)

type fakeProcessor struct {
	calls []string
	fail  map[string]error
}

func (f *fakeProcessor) RecognizeFile(ctx context.Context, path string) (*FileResult, error) {
	f.calls = append(f.calls, path)
	if err := f.fail[path]; err != nil {
		return nil, err
	}
	return &FileResult{Path: path, Pages: 1}, nil
}

func TestRunBatchPartialFailure(t *testing.T) {
	svcErr := fmt.Errorf("recognition failed for b.pdf: %w", &paddle.ServiceError{Code: "500", Message: "bad page"})
	proc := &fakeProcessor{fail: map[string]error{"b.pdf": svcErr}}
	files := []string{"a.pdf", "b.pdf", "c.png"}

	outcome := RunBatch(context.Background(), files, proc)

	if !reflect.DeepEqual(proc.calls, files) {
		t.Errorf("Expected sequential calls %v, got %v", files, proc.calls)
	}
	if outcome.Total != 3 {
		t.Errorf("Expected Total=3, got %d", outcome.Total)
	}
	if outcome.Succeeded != 2 {
		t.Errorf("Expected Succeeded=2, got %d", outcome.Succeeded)
	}
	want := []Failure{{Path: "b.pdf", Message: svcErr.Error()}}
	if !reflect.DeepEqual(outcome.Failed, want) {
		t.Errorf("Expected failures %v, got %v", want, outcome.Failed)
	}
	if len(outcome.Records) != 3 || outcome.Records[2].Result == nil {
		t.Errorf("Expected a result for the file after the failure, got %+v", outcome.Records)
	}
}

func TestRunBatchStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &fakeProcessor{}
	outcome := RunBatch(ctx, []string{"a.pdf", "b.pdf"}, proc)

	if len(proc.calls) != 0 {
		t.Errorf("Expected no calls after cancellation, got %v", proc.calls)
	}
	if outcome.Succeeded != 0 || len(outcome.Failed) != 2 {
		t.Errorf("Expected all files failed, got %+v", outcome)
	}
	if !strings.Contains(outcome.Failed[0].Message, context.Canceled.Error()) {
		t.Errorf("Expected cancellation message, got %q", outcome.Failed[0].Message)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &Outcome{
		Total:     3,
		Succeeded: 2,
		Failed:    []Failure{{Path: "b.pdf", Message: "boom"}},
	})

	out := buf.String()
	if !strings.Contains(out, "2/3 succeeded") {
		t.Errorf("Summary missing counts: %s", out)
	}
	if !strings.Contains(out, "b.pdf: boom") {
		t.Errorf("Summary missing failure: %s", out)
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"scan.pdf":             "scan",
		"/tmp/dir/Page.01.png": "Page.01",
		"noext":                "noext",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, expected %q", in, got, want)
		}
	}
}

func setupRunner(t *testing.T, serverURL, secrets, outputFormat string) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := fmt.Sprintf(`api:
  base_url: %s
  timeout: 5
  max_retries: 2
output:
  markdown_dir: %s
presets:
  standard:
    useLayoutDetection: true
    outputFormat: %s
options:
  use_chart_recognition: false
`, serverURL, filepath.Join(dir, "out"), outputFormat)

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	secretsPath := filepath.Join(dir, ".env")
	if secrets != "" {
		if err := os.WriteFile(secretsPath, []byte(secrets), 0644); err != nil {
			t.Fatal(err)
		}
	}

	r := &Runner{
		Paths:   config.Paths{Config: configPath, Secrets: secretsPath},
		Mode:    "standard",
		Encoder: payload.NewEncoder(payload.WithPageCounter(func([]byte) (int, error) { return 2, nil })),
		Client: paddle.New(paddle.WithSleeper(func(context.Context, time.Duration) error {
			return nil
		})),
	}
	return r, dir
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRecognizeFileEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token tok" {
			t.Errorf("Unexpected Authorization %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"result":{"layoutParsingResults":[{"markdown":{"text":"p0"}},{"markdown":{"text":"p1"}}]}}`))
	}))
	defer server.Close()

	r, dir := setupRunner(t, server.URL, "PADDLEOCR_TOKEN=tok\n", "both")
	input := writeInput(t, dir, "thesis.pdf")

	res, err := r.RecognizeFile(context.Background(), input)
	if err != nil {
		t.Fatalf("RecognizeFile failed: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	want := []string{
		filepath.Join(outDir, "thesis_0.md"),
		filepath.Join(outDir, "thesis_1.md"),
		filepath.Join(outDir, "thesis.json"),
	}
	if !reflect.DeepEqual(res.Written, want) {
		t.Errorf("Expected written %v, got %v", want, res.Written)
	}
	if res.Shape != results.ShapeMultiPage || res.Pages != 2 || res.Attempts != 1 {
		t.Errorf("Unexpected result %+v", res)
	}
	data, err := os.ReadFile(want[1])
	if err != nil || string(data) != "p1" {
		t.Errorf("Expected p1 in %s, got %q (%v)", want[1], data, err)
	}
}

func TestRecognizeFileOutputDirOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"markdown":"legacy"}}`))
	}))
	defer server.Close()

	r, dir := setupRunner(t, server.URL, "PADDLEOCR_TOKEN=tok\n", "markdown")
	r.OutputDir = filepath.Join(dir, "override")
	input := writeInput(t, dir, "scan.pdf")

	if _, err := r.RecognizeFile(context.Background(), input); err != nil {
		t.Fatalf("RecognizeFile failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "override", "scan.md")); err != nil {
		t.Errorf("Expected output in override dir: %v", err)
	}
}

func TestRecognizeFileMissingToken(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	r, dir := setupRunner(t, server.URL, "", "markdown")
	input := writeInput(t, dir, "scan.pdf")

	_, err := r.RecognizeFile(context.Background(), input)
	if !errors.Is(err, config.ErrMissingToken) {
		t.Fatalf("Expected ErrMissingToken, got %v", err)
	}
	if !strings.Contains(err.Error(), input) {
		t.Errorf("Error should name the file: %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("No request should be sent without a token")
	}
}

func TestRecognizeFileUnknownPreset(t *testing.T) {
	r, dir := setupRunner(t, "http://127.0.0.1:1", "PADDLEOCR_TOKEN=tok\n", "markdown")
	r.Mode = "turbo"

	_, err := r.RecognizeFile(context.Background(), writeInput(t, dir, "scan.pdf"))

	var unknown *config.UnknownPresetError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownPresetError, got %v", err)
	}
}

func TestBatchWithServiceErrorOnSecondFile(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 2 {
			_, _ = w.Write([]byte(`{"error_code":1001,"error_msg":"unreadable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"markdown":"ok"}}`))
	}))
	defer server.Close()

	r, dir := setupRunner(t, server.URL, "PADDLEOCR_TOKEN=tok\n", "markdown")
	files := []string{
		writeInput(t, dir, "one.pdf"),
		writeInput(t, dir, "two.pdf"),
		writeInput(t, dir, "three.pdf"),
	}

	outcome := RunBatch(context.Background(), files, r)

	if outcome.Succeeded != 2 {
		t.Errorf("Expected 2 successes, got %d", outcome.Succeeded)
	}
	if len(outcome.Failed) != 1 || outcome.Failed[0].Path != files[1] {
		t.Fatalf("Expected only %s to fail, got %+v", files[1], outcome.Failed)
	}
	if !strings.Contains(outcome.Failed[0].Message, "unreadable") {
		t.Errorf("Expected service message, got %q", outcome.Failed[0].Message)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "three.md")); err != nil {
		t.Errorf("Third file should still be processed: %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("Expected 3 requests (no retry of service error), got %d", hits)
	}
}
