// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command syslens indexes SysML v2 and KerML model corpora.
//
// Usage:
//
//	syslens index [dir] [--symbols] [--strict] [--json]
//	syslens watch [dir] [--metrics-addr :9464]
//	syslens version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/syslens/pkg/logging"
	"github.com/AleutianAI/syslens/pkg/telemetry"
	"github.com/AleutianAI/syslens/services/semantic/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the state shared by every command after setup.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	quiet      bool

	cfg      config.Config
	logger   *logging.Logger
	shutdown func(context.Context) error
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if terr := a.teardown(ctx); terr != nil {
		fmt.Fprintln(stderr, "Error: shutting down:", terr)
	}

	var exit *exitError
	switch {
	case err == nil:
		return CLIExitSuccess
	case errors.As(err, &exit):
		return exit.code
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return CLIExitError
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "syslens",
		Short:             "Semantic index for SysML v2 and KerML models",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default: <dir>/"+config.DefaultFile+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: auto, text, json")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "suppress log output")

	root.AddCommand(a.indexCommand(), a.watchCommand(), versionCommand())
	return root
}

// setup loads the configuration and starts logging and telemetry. The
// first positional argument, when present, is the corpus root.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}

	path := a.configPath
	if path == "" {
		path = filepath.Join(dir, config.DefaultFile)
		if dir == "" {
			path = config.DefaultFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.Loader.Root = dir
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		Format:  logging.Format(cfg.Logging.Format),
		LogDir:  cfg.Logging.LogDir,
		Service: "syslens",
		Quiet:   a.quiet,
		Output:  cmd.ErrOrStderr(),
	})
	a.logger.SetDefault()

	tel := cfg.Telemetry
	tel.ServiceVersion = version
	shutdown, err := telemetry.Init(cmd.Context(), tel)
	if err != nil {
		a.logger.Close()
		return fmt.Errorf("telemetry: %w", err)
	}
	a.shutdown = shutdown

	a.logger.Debug("configuration loaded",
		slog.String("config", path),
		slog.String("root", cfg.Loader.Root),
		slog.String("trace_exporter", tel.TraceExporter),
		slog.String("metric_exporter", tel.MetricExporter),
	)
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.WithoutCancel(ctx)))
		a.shutdown = nil
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
		a.logger = nil
	}
	return errors.Join(errs...)
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the syslens version",
		Args:  cobra.NoArgs,
		// version needs no config, logging or telemetry.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "syslens %s\n", version)
		},
	}
}
