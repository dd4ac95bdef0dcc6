// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("syslens.watch")
	meter  = otel.Meter("syslens.watch")
)

var (
	changesTotal metric.Int64Counter
	passesTotal  metric.Int64Counter
	failedTotal  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		changesTotal, err = meter.Int64Counter(
			"watch_changes_total",
			metric.WithDescription("File changes applied to the workspace, by op"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		passesTotal, err = meter.Int64Counter(
			"watch_passes_total",
			metric.WithDescription("Incremental population passes run by the watch service"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		failedTotal, err = meter.Int64Counter(
			"watch_changes_failed_total",
			metric.WithDescription("File changes that could not be applied"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startApplySpan(ctx context.Context, changes int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Watch.Apply",
		trace.WithAttributes(attribute.Int("watch.changes", changes)),
	)
}

func recordChange(ctx context.Context, op Op, failed bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("op", op.String()))
	if failed {
		failedTotal.Add(ctx, 1, attrs)
		return
	}
	changesTotal.Add(ctx, 1, attrs)
}

func recordPass(ctx context.Context, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	passesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
