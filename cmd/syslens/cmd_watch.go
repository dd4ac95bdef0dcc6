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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/syslens/pkg/telemetry"
	"github.com/AleutianAI/syslens/services/semantic/watch"
	"github.com/AleutianAI/syslens/services/semantic/workspace"
)

const shutdownTimeout = 5 * time.Second

func (a *app) watchCommand() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Index a model directory and keep the index current as files change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if metricsAddr != "" {
				a.cfg.Watch.MetricsAddr = metricsAddr
			}
			return a.runWatch(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /healthz and /metrics on this address, e.g. :9464")
	return cmd
}

func (a *app) runWatch(ctx context.Context) error {
	logger := a.logger.Slog()
	ws, _, err := a.openWorkspace(ctx)
	if err != nil {
		return err
	}
	res := ws.PopulateAll(ctx)
	logger.Info("initial index ready",
		slog.Int("files", len(ws.Files())),
		slog.Int("symbols", ws.Symbols().Len()),
		slog.Int("diagnostics", res.Errors.Len()),
	)

	opts := watch.OptionsFromConfig(a.cfg.Loader, a.cfg.Watch)
	opts.Logger = logger
	svc, err := watch.NewService(ws, opts)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })

	if addr := a.cfg.Watch.MetricsAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           newRouter(svc, telemetry.MetricsHandler()),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving health and metrics", slog.String("address", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

// healthStatus is the /healthz body.
type healthStatus struct {
	Status      string `json:"status"`
	Files       int    `json:"files"`
	Pending     int    `json:"pending"`
	Symbols     int    `json:"symbols"`
	Diagnostics int    `json:"diagnostics"`
	Passes      int64  `json:"passes"`
}

// newRouter serves /healthz and, when metrics is non-nil, /metrics.
func newRouter(svc *watch.Service, metrics http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("syslens"))

	router.GET("/healthz", func(c *gin.Context) {
		h := healthStatus{Status: "ok", Passes: svc.Passes()}
		svc.View(func(ws *workspace.Workspace) {
			h.Files = len(ws.Files())
			h.Pending = len(ws.Pending())
			h.Symbols = ws.Symbols().Len()
			h.Diagnostics = len(ws.Diagnostics())
		})
		c.JSON(http.StatusOK, h)
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	return router
}
