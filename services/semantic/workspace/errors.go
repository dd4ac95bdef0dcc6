// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace is the orchestration layer of the semantic index.
//
// A Workspace owns the files of a corpus, one symbol table, one
// relationship graph and one dependency graph. Files move through three
// states: added (loaded but unpopulated), populated, and removed. A
// population pass walks every pending file through its language adapter,
// re-resolves cross-file dependencies, runs the validation pass and
// rebuilds the find-references index exactly once.
//
// # Thread Safety
//
// Workspace is NOT safe for concurrent use. Callers that share one, such
// as the watch service, serialize access with their own lock.
package workspace

import "errors"

var (
	// ErrFileNotFound is returned when an operation names a path the
	// workspace does not hold.
	ErrFileNotFound = errors.New("file not found in workspace")

	// ErrNilFile is returned when AddFile or UpdateFile receives a nil AST.
	ErrNilFile = errors.New("file content must not be nil")

	// ErrEmptyPath is returned when a file is added without a path.
	ErrEmptyPath = errors.New("file path must not be empty")
)
