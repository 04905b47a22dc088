// =============================================================================
// TPA Claim Loader - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
//
// CONFIGURATION SOURCES (later sources win):
//   1. Built-in defaults
//   2. Main config file (config.yaml)
//   3. Environment variables, optionally seeded from a .env file
//
// Database credentials are expected to come from the environment rather than
// the YAML file so the file can be committed alongside the TPA exports.
//
// ENVIRONMENT VARIABLES:
//   CLAIMLOADER_DATABASE_DSN     - overrides database.dsn
//   CLAIMLOADER_DATABASE_DRIVER  - overrides database.driver
//   CLAIMLOADER_SINK             - overrides sink
//   CLAIMLOADER_LOG_LEVEL        - overrides log_level
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/tpa-claim-loader/internal/header"
	"github.com/ginjaninja78/tpa-claim-loader/internal/logging"
	"github.com/ginjaninja78/tpa-claim-loader/internal/sink"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for .xlsx and .csv TPA exports.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// InputArchiveDir receives input files after every sheet loaded.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputDir holds XML sink output and processing summaries.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is appended to in addition to console output. Empty disables it.
	// Default: "./logs/claimloader.log"
	LogFile string `yaml:"log_file"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps processing the remaining files when one fails.
	// Sheets within a file are always processed independently.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// ArchiveOnSuccess moves fully loaded input files to InputArchiveDir.
	// Default: true
	ArchiveOnSuccess *bool `yaml:"archive_on_success"`

	// Sink selects where tables go: "postgres" or "xml".
	// Default: "xml"
	Sink string `yaml:"sink"`

	// TableNameFormat builds destination table names.
	// Placeholders: {tpa}, {sheet}, {date}
	// Default: "{tpa}_{sheet}"
	TableNameFormat string `yaml:"table_name_format"`

	// ProvenanceColumns appends tpa_name, file_date and load_id columns to
	// every loaded row.
	// Default: false
	ProvenanceColumns bool `yaml:"provenance_columns"`

	// CSVDelimiter is the field separator for .csv inputs.
	// Default: ","
	CSVDelimiter string `yaml:"csv_delimiter"`

	// HeaderDetection sizes the window inspected for the header row.
	HeaderDetection HeaderDetection `yaml:"header_detection"`

	// Database configures the postgres sink.
	Database Database `yaml:"database"`
}

// HeaderDetection configures the header row locator.
type HeaderDetection struct {
	// SampleRows is the number of leading rows inspected. Default: 10
	SampleRows int `yaml:"sample_rows"`

	// SampleCols is the number of leading columns inspected. Default: 5
	SampleCols int `yaml:"sample_cols"`

	// NullPlaceholder is text treated as a missing cell. Default: "null"
	NullPlaceholder string `yaml:"null_placeholder"`
}

// Database configures the SQL connection.
type Database struct {
	// Driver is the database/sql driver name. Default: "postgres"
	Driver string `yaml:"driver"`

	// DSN is the connection string. Prefer CLAIMLOADER_DATABASE_DSN.
	DSN string `yaml:"dsn"`
}

// Locator returns the header locator described by the configuration.
func (c *MainConfig) Locator() header.Locator {
	return header.Locator{
		SampleRows:      c.HeaderDetection.SampleRows,
		SampleCols:      c.HeaderDetection.SampleCols,
		NullPlaceholder: c.HeaderDetection.NullPlaceholder,
	}
}

// ShouldContinueOnError reports the effective continue_on_error value.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// ShouldArchive reports the effective archive_on_success value.
func (c *MainConfig) ShouldArchive() bool {
	return c.ArchiveOnSuccess == nil || *c.ArchiveOnSuccess
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadEnvFile loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error unless required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// A missing file is not an error: defaults and the environment are used,
// so the loader can run against a bare input directory.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(&config)
	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides copies set environment variables over file values.
func applyEnvOverrides(config *MainConfig) {
	if v := os.Getenv("CLAIMLOADER_DATABASE_DSN"); v != "" {
		config.Database.DSN = v
	}
	if v := os.Getenv("CLAIMLOADER_DATABASE_DRIVER"); v != "" {
		config.Database.Driver = v
	}
	if v := os.Getenv("CLAIMLOADER_SINK"); v != "" {
		config.Sink = v
	}
	if v := os.Getenv("CLAIMLOADER_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/claimloader.log"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Sink == "" {
		config.Sink = sink.KindXML
	}
	config.Sink = strings.ToLower(config.Sink)
	if config.TableNameFormat == "" {
		config.TableNameFormat = "{tpa}_{sheet}"
	}
	if config.CSVDelimiter == "" {
		config.CSVDelimiter = ","
	}
	if config.HeaderDetection.SampleRows <= 0 {
		config.HeaderDetection.SampleRows = header.DefaultSampleRows
	}
	if config.HeaderDetection.SampleCols <= 0 {
		config.HeaderDetection.SampleCols = header.DefaultSampleCols
	}
	if config.HeaderDetection.NullPlaceholder == "" {
		config.HeaderDetection.NullPlaceholder = header.DefaultNullPlaceholder
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "postgres"
	}
}

// validateMainConfig checks enumerated values. Directories are created by
// the commands that need them, not here.
func validateMainConfig(config *MainConfig) error {
	switch config.Sink {
	case sink.KindXML, sink.KindPostgres:
	default:
		return fmt.Errorf("unknown sink %q (want %q or %q)", config.Sink, sink.KindXML, sink.KindPostgres)
	}

	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}

	return nil
}

// EnsureDirectories creates the input, archive, and output directories.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.InputArchiveDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
