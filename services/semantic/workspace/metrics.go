// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/syslens/services/semantic/diag"
)

// Package-level tracer and meter for workspace operations.
var (
	tracer = otel.Tracer("syslens.workspace")
	meter  = otel.Meter("syslens.workspace")
)

// Metrics for workspace operations.
var (
	populateLatency metric.Float64Histogram
	populateTotal   metric.Int64Counter
	filesPopulated  metric.Int64Counter
	diagnosticTotal metric.Int64Counter
	symbolCount     metric.Int64Gauge

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		populateLatency, err = meter.Float64Histogram(
			"workspace_populate_duration_seconds",
			metric.WithDescription("Duration of population passes"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		populateTotal, err = meter.Int64Counter(
			"workspace_populate_total",
			metric.WithDescription("Total number of population passes"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesPopulated, err = meter.Int64Counter(
			"workspace_files_populated_total",
			metric.WithDescription("Total number of files re-populated"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diagnosticTotal, err = meter.Int64Counter(
			"workspace_diagnostics_total",
			metric.WithDescription("Semantic diagnostics reported, by kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		symbolCount, err = meter.Int64Gauge(
			"workspace_symbols",
			metric.WithDescription("Current number of symbols in the index"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startPopulateSpan creates a span for a population pass.
func startPopulateSpan(ctx context.Context, mode string, files int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Workspace.Populate",
		trace.WithAttributes(
			attribute.String("workspace.mode", mode),
			attribute.Int("workspace.files", files),
		),
	)
}

// setPopulateSpanResult sets the result attributes on a population span.
func setPopulateSpanResult(span trace.Span, res *PopulateResult) {
	span.SetAttributes(
		attribute.String("workspace.run_id", res.RunID),
		attribute.Int("workspace.symbols_added", res.SymbolsAdded),
		attribute.Int("workspace.symbols_removed", res.SymbolsRemoved),
		attribute.Int("workspace.diagnostics", res.Errors.Len()),
		attribute.Bool("workspace.success", !res.Errors.HasErrors()),
	)
}

// recordPopulateMetrics records metrics for one population pass.
func recordPopulateMetrics(ctx context.Context, res *PopulateResult, symbols int) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("mode", res.Mode),
		attribute.Bool("success", !res.Errors.HasErrors()),
	)

	populateLatency.Record(ctx, res.Duration.Seconds(), attrs)
	populateTotal.Add(ctx, 1, attrs)
	filesPopulated.Add(ctx, int64(len(res.Files)), attrs)
	symbolCount.Record(ctx, int64(symbols))

	for _, err := range res.Errors.Unwrap() {
		diagnosticTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kindLabel(err)),
		))
	}
}

func kindLabel(err error) string {
	if k := diag.KindOf(err); k != 0 {
		return k.String()
	}
	return "other"
}
