package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfigNotFound      = errors.New("config file not found")
	ErrMissingToken        = errors.New("API token not set")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrInvalidSecret       = errors.New("invalid secrets value")
	ErrInvalidOutputFormat = errors.New("invalid output format")
)

// UnknownPresetError is returned when the requested mode is not one of the
// presets defined in the config file.
type UnknownPresetError struct {
	Mode      string
	Available []string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("preset mode %q not found, available: [%s]", e.Mode, strings.Join(e.Available, ", "))
}
