package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL    = "https://l3s4h7i4v7keefk4.aistudio-app.com/layout-parsing"
	DefaultTimeout    = 300
	DefaultMaxRetries = 3
	DefaultOutputDir  = "output"
	DefaultMode       = "standard"

	// outputFormatKey is the preset option that selects which artifacts are
	// written. It is consumed locally and never sent to the service.
	outputFormatKey = "outputFormat"
)

// Keys recognized in the secrets overlay.
const (
	EnvToken      = "PADDLEOCR_TOKEN"
	EnvAPIURL     = "PADDLEOCR_API_URL"
	EnvTimeout    = "PADDLEOCR_TIMEOUT"
	EnvMaxRetries = "PADDLEOCR_MAX_RETRIES"
)

// OutputFormat selects the artifacts persisted for a recognized file.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatBoth     OutputFormat = "both"
)

// WantsMarkdown reports whether Markdown files should be written.
func (f OutputFormat) WantsMarkdown() bool {
	return f == FormatMarkdown || f == FormatBoth
}

// WantsJSON reports whether the raw response should be written as JSON.
func (f OutputFormat) WantsJSON() bool {
	return f == FormatJSON || f == FormatBoth
}

// ParseOutputFormat validates a configured output format.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatMarkdown, FormatJSON, FormatBoth:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: markdown, json, both)", ErrInvalidOutputFormat, s)
	}
}

// Paths locates the config file and the secrets overlay. Both are explicit so
// callers (and tests) decide where they live.
type Paths struct {
	Config  string
	Secrets string
}

// File is the parsed YAML config with the secrets overlay applied.
type File struct {
	API     APISection        `yaml:"api"`
	Output  OutputSection     `yaml:"output"`
	Presets map[string]Preset `yaml:"presets"`
	Options map[string]any    `yaml:"options"`
}

// APISection holds the service endpoint settings. Pointer fields distinguish
// an absent key from an explicit zero.
type APISection struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	Timeout    *int   `yaml:"timeout"`
	MaxRetries *int   `yaml:"max_retries"`
}

// OutputSection holds output defaults.
type OutputSection struct {
	MarkdownDir string `yaml:"markdown_dir"`
}

// Preset is a named set of recognition options. Keys use the service's
// camel case vocabulary.
type Preset map[string]any

// Effective is the fully merged configuration used to process one file.
type Effective struct {
	Mode               string
	BaseURL            string
	Timeout            time.Duration
	MaxRetries         int
	Token              string
	RecognitionOptions map[string]any
	OutputFormat       OutputFormat
	OutputDir          string
}

// RequireToken returns ErrMissingToken when no token was resolved. The check
// is deferred to the point of use so configs can be inspected without one.
func (e *Effective) RequireToken() error {
	if e.Token == "" {
		return fmt.Errorf("%w: set %s in the secrets file", ErrMissingToken, EnvToken)
	}
	return nil
}

// Load reads the YAML config at paths.Config and applies the secrets overlay
// found at paths.Secrets. A missing secrets file is not an error.
func Load(paths Paths) (*File, error) {
	data, err := os.ReadFile(paths.Config)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, paths.Config)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", paths.Config, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", paths.Config, err)
	}

	secrets, err := LoadSecrets(paths.Secrets)
	if err != nil {
		return nil, err
	}
	if err := f.applySecrets(secrets); err != nil {
		return nil, err
	}

	slog.Debug("Loaded config", "config", paths.Config, "secrets", paths.Secrets, "presets", len(f.Presets), "secret_keys", len(secrets))
	return &f, nil
}

// LoadSecrets reads a KEY=VALUE secrets file. Comments and blank lines are
// ignored. An empty path or a missing file yields an empty overlay.
func LoadSecrets(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read secrets file %s: %w", path, err)
	}
	return vars, nil
}

func (f *File) applySecrets(secrets map[string]string) error {
	if v, ok := secrets[EnvToken]; ok {
		f.API.Token = v
	}
	if v, ok := secrets[EnvAPIURL]; ok {
		f.API.BaseURL = v
	}
	if v, ok := secrets[EnvTimeout]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidSecret, EnvTimeout, v)
		}
		f.API.Timeout = &n
	}
	if v, ok := secrets[EnvMaxRetries]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidSecret, EnvMaxRetries, v)
		}
		f.API.MaxRetries = &n
	}
	return nil
}

// PresetNames returns the configured preset names in sorted order.
func (f *File) PresetNames() []string {
	names := make([]string, 0, len(f.Presets))
	for name := range f.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a copy of the named preset.
func (f *File) Preset(mode string) (Preset, error) {
	p, ok := f.Presets[mode]
	if !ok {
		return nil, &UnknownPresetError{Mode: mode, Available: f.PresetNames()}
	}
	out := make(Preset, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, nil
}

// Resolve builds the effective configuration for the given preset mode.
func (f *File) Resolve(mode string) (*Effective, error) {
	preset, err := f.Preset(mode)
	if err != nil {
		return nil, err
	}

	opts := MergeOptions(preset, f.Options)

	format := FormatMarkdown
	if raw, ok := opts[outputFormatKey]; ok {
		s, isString := raw.(string)
		if !isString {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutputFormat, raw)
		}
		if format, err = ParseOutputFormat(s); err != nil {
			return nil, err
		}
		delete(opts, outputFormatKey)
	}

	timeout := DefaultTimeout
	if f.API.Timeout != nil {
		timeout = *f.API.Timeout
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: api.timeout must be positive, got %d", ErrInvalidConfig, timeout)
	}

	retries := DefaultMaxRetries
	if f.API.MaxRetries != nil {
		retries = *f.API.MaxRetries
	}
	if retries < 1 {
		return nil, fmt.Errorf("%w: api.max_retries must be at least 1, got %d", ErrInvalidConfig, retries)
	}

	baseURL := f.API.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	outputDir := f.Output.MarkdownDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}

	return &Effective{
		Mode:               mode,
		BaseURL:            baseURL,
		Timeout:            time.Duration(timeout) * time.Second,
		MaxRetries:         retries,
		Token:              f.API.Token,
		RecognitionOptions: opts,
		OutputFormat:       format,
		OutputDir:          outputDir,
	}, nil
}

// Resolve loads the config and secrets at paths and resolves mode.
func Resolve(paths Paths, mode string) (*Effective, error) {
	f, err := Load(paths)
	if err != nil {
		return nil, err
	}
	return f.Resolve(mode)
}

// MergeOptions overlays user options on a preset. Options whose value is nil
// (unset in YAML) leave the preset untouched; all others replace the camel
// cased key. The preset itself is not modified.
func MergeOptions(preset Preset, options map[string]any) map[string]any {
	merged := make(map[string]any, len(preset)+len(options))
	for k, v := range preset {
		merged[k] = v
	}
	for k, v := range options {
		if v == nil {
			continue
		}
		merged[ToCamelCase(k)] = v
	}
	return merged
}
