// Package config loads pyrefactor settings from `.pyrefactor.yaml`,
// PYREFACTOR_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/refactor"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
)

// Sentinel validation errors.
var (
	ErrInvalidRenderMode   = errors.New("invalid render mode")
	ErrInvalidWorkers      = errors.New("batch workers must not be negative")
	ErrInvalidMaxFileSize  = errors.New("invalid batch max file size")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidSampleRatio  = errors.New("telemetry sample ratio must be within [0, 1]")
	ErrEmptyVersionTarget  = errors.New("pkg_resources target module and function must be set")
	ErrInvalidImportTarget = errors.New("import mapping needs both old and new module")
)

// Config is the top-level configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Render    RenderConfig    `mapstructure:"render"`
	Modernize ModernizeConfig `mapstructure:"modernize"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// RenderConfig controls how trees are printed.
type RenderConfig struct {
	Mode string `mapstructure:"mode"`
}

// ModernizeConfig holds targets for the modernization operations.
type ModernizeConfig struct {
	PkgResourcesModule   string          `mapstructure:"pkg_resources_module"`
	PkgResourcesFunction string          `mapstructure:"pkg_resources_function"`
	ImportMappings       []ImportMapping `mapstructure:"import_mappings"`
}

// ImportMapping is one extra legacy module replacement. A list is used
// instead of a map because viper lowercases map keys.
type ImportMapping struct {
	Old string `mapstructure:"old"`
	New string `mapstructure:"new"`
}

// BatchConfig holds directory processing knobs.
type BatchConfig struct {
	Workers        int    `mapstructure:"workers"`
	MaxFileSize    string `mapstructure:"max_file_size"`
	BackupDir      string `mapstructure:"backup_dir"`
	Report         string `mapstructure:"report"`
	GitTrackedOnly bool   `mapstructure:"git_tracked_only"`
	ExcludeVendor  bool   `mapstructure:"exclude_vendor"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Endpoint    string            `mapstructure:"endpoint"`
	Headers     map[string]string `mapstructure:"headers"`
	Insecure    bool              `mapstructure:"insecure"`
	SampleRatio float64           `mapstructure:"sample_ratio"`
	MetricsFile string            `mapstructure:"metrics_file"`
}

// Validate checks all sections and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := c.Render.ParsedMode(); err != nil {
		return err
	}

	if c.Modernize.PkgResourcesModule == "" || c.Modernize.PkgResourcesFunction == "" {
		return ErrEmptyVersionTarget
	}

	for _, mapping := range c.Modernize.ImportMappings {
		if strings.TrimSpace(mapping.Old) == "" || strings.TrimSpace(mapping.New) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidImportTarget, mapping.Old)
		}
	}

	if c.Batch.Workers < 0 {
		return ErrInvalidWorkers
	}

	if _, err := c.Batch.MaxFileSizeBytes(); err != nil {
		return err
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

// ParsedMode returns the configured render mode.
func (rc RenderConfig) ParsedMode() (unparse.Mode, error) {
	mode, err := unparse.ParseMode(rc.Mode)
	if err != nil {
		return unparse.Lenient, fmt.Errorf("%w: %w", ErrInvalidRenderMode, err)
	}

	return mode, nil
}

// Mappings converts the configured extra import mappings, in file order.
func (mc ModernizeConfig) Mappings() []refactor.ImportMapping {
	out := make([]refactor.ImportMapping, 0, len(mc.ImportMappings))

	for _, mapping := range mc.ImportMappings {
		out = append(out, refactor.ImportMapping{Old: mapping.Old, New: mapping.New})
	}

	return out
}

// MaxFileSizeBytes parses MaxFileSize ("1 MiB", "512kB"). Empty means no
// limit and yields zero.
func (bc BatchConfig) MaxFileSizeBytes() (uint64, error) {
	if strings.TrimSpace(bc.MaxFileSize) == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(bc.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidMaxFileSize, err)
	}

	return size, nil
}

// SlogLevel converts Level to a slog level.
func (lc LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, lc.Level)
	}

	return level, nil
}
