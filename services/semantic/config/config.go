// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads syslens configuration.
//
// Values come from, in increasing priority: Default(), a YAML file (JSON
// is accepted as a fallback), then SYSLENS_* environment variables. The
// merged result is validated with struct tags.
//
//	cfg, err := config.Load(".syslens.yaml")
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/syslens/pkg/telemetry"
)

// DefaultFile is the config file name looked up in the corpus root.
const DefaultFile = ".syslens.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SYSLENS_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the complete syslens configuration.
type Config struct {
	Workspace WorkspaceConfig  `yaml:"workspace" json:"workspace"`
	Loader    LoaderConfig     `yaml:"loader" json:"loader"`
	Watch     WatchConfig      `yaml:"watch" json:"watch"`
	Logging   LoggingConfig    `yaml:"logging" json:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
}

// WorkspaceConfig configures the semantic index.
type WorkspaceConfig struct {
	AutoInvalidate bool `yaml:"auto_invalidate" json:"auto_invalidate"`
	MaxAliasDepth  int  `yaml:"max_alias_depth" json:"max_alias_depth" validate:"min=1,max=1024"`
}

// LoaderConfig configures corpus discovery.
type LoaderConfig struct {
	// Root is the corpus directory.
	Root string `yaml:"root" json:"root" validate:"required"`

	// StdlibPath is loaded before Root when set.
	StdlibPath string `yaml:"stdlib_path" json:"stdlib_path"`

	// Suffixes are the accepted document suffixes.
	Suffixes []string `yaml:"suffixes" json:"suffixes" validate:"min=1,dive,required"`

	RespectGitignore bool  `yaml:"respect_gitignore" json:"respect_gitignore"`
	Workers          int   `yaml:"workers" json:"workers" validate:"min=1,max=256"`
	MaxFileSize      int64 `yaml:"max_file_size" json:"max_file_size" validate:"min=1"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce            time.Duration `yaml:"debounce" json:"debounce" validate:"min=0"`
	MinPopulateInterval time.Duration `yaml:"min_populate_interval" json:"min_populate_interval" validate:"min=0"`

	// MetricsAddr enables the /healthz and /metrics server, e.g. ":9464".
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr" validate:"omitempty,hostname_port"`

	// Ignore are extra path patterns the watcher skips.
	Ignore []string `yaml:"ignore" json:"ignore"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=auto text json"`
	LogDir string `yaml:"log_dir" json:"log_dir"`
}

// Default returns a configuration usable without any file.
func Default() Config {
	tel := telemetry.DefaultConfig()
	return Config{
		Workspace: WorkspaceConfig{
			AutoInvalidate: true,
			MaxAliasDepth:  32,
		},
		Loader: LoaderConfig{
			Root:             ".",
			Suffixes:         []string{".sysml.yaml", ".sysml.yml", ".sysml.json", ".kerml.yaml", ".kerml.yml", ".kerml.json"},
			RespectGitignore: true,
			Workers:          4,
			MaxFileSize:      8 << 20,
		},
		Watch: WatchConfig{
			Debounce:            100 * time.Millisecond,
			MinPopulateInterval: 250 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Telemetry: tel,
	}
}

// Load builds the configuration from defaults, path and the environment.
//
// Description:
//
//	A missing file is not an error. An empty path skips the file.
//
// Outputs:
//
//	Config - The merged configuration, also returned on error.
//	error  - A read or parse failure, or ErrInvalid.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse %s (tried YAML and JSON): YAML error: %v, JSON error: %w", path, err, jsonErr)
		}
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv applies SYSLENS_* overrides. Malformed values are errors.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = i
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = splitList(v)
		}
	}

	boolean("AUTO_INVALIDATE", &cfg.Workspace.AutoInvalidate)
	integer("MAX_ALIAS_DEPTH", &cfg.Workspace.MaxAliasDepth)

	str("ROOT", &cfg.Loader.Root)
	str("STDLIB_PATH", &cfg.Loader.StdlibPath)
	list("SUFFIXES", &cfg.Loader.Suffixes)
	boolean("RESPECT_GITIGNORE", &cfg.Loader.RespectGitignore)
	integer("WORKERS", &cfg.Loader.Workers)
	if v, ok := lookup(EnvPrefix + "MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_FILE_SIZE: %w", EnvPrefix, err))
		} else {
			cfg.Loader.MaxFileSize = n
		}
	}

	duration("DEBOUNCE", &cfg.Watch.Debounce)
	duration("MIN_POPULATE_INTERVAL", &cfg.Watch.MinPopulateInterval)
	str("METRICS_ADDR", &cfg.Watch.MetricsAddr)
	list("WATCH_IGNORE", &cfg.Watch.Ignore)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_DIR", &cfg.Logging.LogDir)

	str("TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)
	str("METRIC_EXPORTER", &cfg.Telemetry.MetricExporter)
	str("OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of every section.
//
// Outputs:
//
//	error - ErrInvalid wrapping one line per failing field, or nil.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
