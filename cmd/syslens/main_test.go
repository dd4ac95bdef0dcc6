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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/watch"
	"github.com/AleutianAI/syslens/services/semantic/workspace"
)

const quietConfig = `
telemetry:
  trace_exporter: none
  metric_exporter: none
`

const baseDoc = `
elements:
  - package:
      name: Lib
      body:
        - definition: {kind: part def, name: Engine}
`

const carDoc = `
elements:
  - package:
      name: Cars
      body:
        - import: "Lib::*"
        - definition:
            kind: part def
            name: Car
            body:
              - usage: {kind: part, name: engine, typed_by: [Engine]}
`

const brokenDoc = `
elements:
  - package:
      name: Broken
      body:
        - usage: {kind: part, name: ghost, typed_by: [Nowhere]}
`

func corpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files[".syslens.yaml"] = quietConfig
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecute_Version(t *testing.T) {
	code, out, _ := run(t, "version")
	assert.Equal(t, CLIExitSuccess, code)
	assert.Equal(t, "syslens dev\n", out)
}

func TestExecute_UnknownCommand(t *testing.T) {
	code, _, errOut := run(t, "frobnicate")
	assert.Equal(t, CLIExitError, code)
	assert.Contains(t, errOut, "unknown command")
}

func TestExecute_Index(t *testing.T) {
	dir := corpus(t, map[string]string{
		"lib/base.sysml.yaml": baseDoc,
		"car.sysml.yaml":      carDoc,
	})

	code, out, _ := run(t, "index", dir, "--quiet", "--symbols")
	require.Equal(t, CLIExitSuccess, code, out)

	assert.Contains(t, out, "files:")
	assert.Contains(t, out, "(0 errors, 0 warnings)")
	assert.Contains(t, out, "Cars::Car::engine")
	assert.Contains(t, out, "lib/base.sysml.yaml")
}

func TestExecute_IndexStrict(t *testing.T) {
	dir := corpus(t, map[string]string{"broken.sysml.yaml": brokenDoc})

	t.Run("reports without failing", func(t *testing.T) {
		code, out, _ := run(t, "index", dir, "-q")
		assert.Equal(t, CLIExitSuccess, code)
		assert.Contains(t, out, "error: ")
		assert.Contains(t, out, "Nowhere")
	})

	t.Run("strict fails on errors", func(t *testing.T) {
		code, _, _ := run(t, "index", dir, "-q", "--strict")
		assert.Equal(t, CLIExitFindings, code)
	})
}

func TestExecute_IndexJSON(t *testing.T) {
	dir := corpus(t, map[string]string{
		"lib/base.sysml.yaml": baseDoc,
		"car.sysml.yaml":      carDoc,
		"bad.sysml.yaml":      "elements: [{package: {name: [oops]}}]\n",
	})

	code, out, _ := run(t, "index", dir, "-q", "--json")
	require.Equal(t, CLIExitSuccess, code)

	var result struct {
		Command string `json:"command"`
		Success bool   `json:"success"`
		Data    report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "index", result.Command)
	assert.False(t, result.Success, "the undecodable file is an error")
	assert.Equal(t, 2, result.Data.Files)
	assert.Equal(t, 1, result.Data.Errors)
	require.Len(t, result.Data.Diagnostics, 1)
	assert.Equal(t, "load", result.Data.Diagnostics[0].Kind)
	assert.Equal(t, "bad.sysml.yaml", result.Data.Diagnostics[0].Location)
}

func TestExecute_InvalidLogLevel(t *testing.T) {
	dir := corpus(t, map[string]string{})
	code, _, errOut := run(t, "index", dir, "--log-level", "loud")
	assert.Equal(t, CLIExitError, code)
	assert.NotEmpty(t, errOut)
}

func TestRouter(t *testing.T) {
	ws := workspace.New(workspace.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, ws.AddFile("a.sysml", &ast.SysMLFile{Elements: ast.Elements{
		&ast.Package{Name: "P", Body: ast.Elements{&ast.Definition{Kind: "part def", Name: "X"}}},
	}}))
	svc, err := watch.NewService(ws, watch.ServiceOptions{Root: t.TempDir()})
	require.NoError(t, err)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# metrics\n")
	})

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(svc, metrics).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var h healthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
		assert.Equal(t, "ok", h.Status)
		assert.Equal(t, 1, h.Files)
		assert.Equal(t, 1, h.Pending)
		assert.Zero(t, h.Symbols)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(svc, metrics).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "# metrics\n", rec.Body.String())
	})

	t.Run("metrics disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
