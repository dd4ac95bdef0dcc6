// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/syslens/services/semantic/diag"
	"github.com/AleutianAI/syslens/services/semantic/loader"
	"github.com/AleutianAI/syslens/services/semantic/workspace"
)

type indexFlags struct {
	symbols bool
	strict  bool
	json    bool
}

func (a *app) indexCommand() *cobra.Command {
	var f indexFlags
	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Index a model directory and report diagnostics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, failures, err := a.openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			res := ws.PopulateAll(cmd.Context())
			report := buildReport(ws, res, failures, f.symbols)

			out := cmd.OutOrStdout()
			if f.json {
				err = outputJSON(out, CommandResult{
					APIVersion: "1.0",
					Command:    "index",
					Timestamp:  time.Now().UTC(),
					DurationMs: res.Duration.Milliseconds(),
					Success:    report.Errors == 0,
					Data:       report,
				})
			} else {
				err = report.write(out)
			}
			if err != nil {
				return err
			}
			if f.strict && report.Errors > 0 {
				return &exitError{code: CLIExitFindings}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.symbols, "symbols", false, "list every indexed symbol")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "exit 1 when any error diagnostic is reported")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the report as JSON")
	return cmd
}

// openWorkspace loads the configured corpus into a new workspace.
// Per-file load failures are returned next to the workspace; only a
// corpus that cannot be walked fails the call.
func (a *app) openWorkspace(ctx context.Context) (*workspace.Workspace, []loader.FileError, error) {
	logger := a.logger.Slog()
	ws := workspace.New(
		workspace.WithLogger(logger),
		workspace.WithAutoInvalidation(a.cfg.Workspace.AutoInvalidate),
		workspace.WithMaxAliasDepth(a.cfg.Workspace.MaxAliasDepth),
	)

	opts := loader.FromConfig(a.cfg.Loader)
	opts.Logger = logger
	res, err := loader.LoadInto(ctx, ws, opts)

	var loadErr *loader.LoadError
	if err != nil && !errors.As(err, &loadErr) {
		return nil, nil, fmt.Errorf("loading %s: %w", opts.Root, err)
	}
	var failures []loader.FileError
	if loadErr != nil {
		failures = loadErr.Failures
		for _, f := range failures {
			logger.Warn("file not loaded", slog.String("path", f.Path), slog.String("error", f.Err.Error()))
		}
	}
	logger.Info("corpus loaded",
		slog.String("root", opts.Root),
		slog.Int("documents", len(res.Documents)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("failed", len(failures)),
	)
	return ws, failures, nil
}

// report is the printable outcome of an index run.
type report struct {
	Files         int                `json:"files"`
	Symbols       int                `json:"symbols"`
	Relationships int                `json:"relationships"`
	Errors        int                `json:"errors"`
	Warnings      int                `json:"warnings"`
	Duration      time.Duration      `json:"duration_ns"`
	Diagnostics   []diagnosticReport `json:"diagnostics"`
	SymbolList    []symbolReport     `json:"symbol_list,omitempty"`
}

type diagnosticReport struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

type symbolReport struct {
	QualifiedName string `json:"qualified_name"`
	Kind          string `json:"kind"`
	ElementKind   string `json:"element_kind,omitempty"`
	Location      string `json:"location,omitempty"`
	References    int    `json:"references"`
}

func buildReport(ws *workspace.Workspace, res *workspace.PopulateResult, failures []loader.FileError, withSymbols bool) report {
	r := report{
		Files:         len(ws.Files()),
		Symbols:       ws.Symbols().Len(),
		Relationships: ws.Relations().Len(),
		Duration:      res.Duration,
		Diagnostics:   []diagnosticReport{},
	}

	for _, f := range failures {
		r.Errors++
		r.Diagnostics = append(r.Diagnostics, diagnosticReport{
			Severity: diag.SeverityError.String(),
			Kind:     "load",
			Location: f.Path,
			Message:  f.Error(),
		})
	}
	for _, err := range ws.Diagnostics() {
		d := describe(err)
		if d.Severity == diag.SeverityWarning.String() {
			r.Warnings++
		} else {
			r.Errors++
		}
		r.Diagnostics = append(r.Diagnostics, d)
	}

	if withSymbols {
		for _, sym := range ws.Symbols().AllSymbols() {
			s := symbolReport{
				QualifiedName: sym.QualifiedName,
				Kind:          sym.Kind.String(),
				ElementKind:   sym.ElementKind,
				References:    len(sym.References),
			}
			switch {
			case sym.Span != nil:
				s.Location = fmt.Sprintf("%s:%d", sym.SourceFile, sym.Span.Start.Line+1)
			case sym.SourceFile != "":
				s.Location = sym.SourceFile
			}
			r.SymbolList = append(r.SymbolList, s)
		}
	}
	return r
}

func describe(err error) diagnosticReport {
	var e *diag.Error
	if !errors.As(err, &e) {
		return diagnosticReport{
			Severity: diag.SeverityError.String(),
			Kind:     "other",
			Message:  err.Error(),
		}
	}
	d := diagnosticReport{
		Severity: e.Severity.String(),
		Kind:     e.Kind.String(),
		Message:  err.Error(),
	}
	if e.Location != nil {
		d.Location = e.Location.String()
	}
	return d
}

func (r report) write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "files:\t%d\n", r.Files)
	fmt.Fprintf(tw, "symbols:\t%d\n", r.Symbols)
	fmt.Fprintf(tw, "relationships:\t%d\n", r.Relationships)
	fmt.Fprintf(tw, "diagnostics:\t%d (%d errors, %d warnings)\n", len(r.Diagnostics), r.Errors, r.Warnings)
	fmt.Fprintf(tw, "duration:\t%s\n", r.Duration.Round(time.Microsecond))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.SymbolList) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SYMBOL\tKIND\tLOCATION\tREFS")
		for _, s := range r.SymbolList {
			kind := s.Kind
			if s.ElementKind != "" {
				kind = s.ElementKind
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.QualifiedName, kind, s.Location, s.References)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintln(w)
	}
	for _, d := range r.Diagnostics {
		if _, err := fmt.Fprintf(w, "%s: %s\n", d.Severity, d.Message); err != nil {
			return err
		}
	}
	return nil
}
