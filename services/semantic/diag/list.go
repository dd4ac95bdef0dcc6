// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diag

import (
	"errors"
	"fmt"
	"strings"
)

// List aggregates errors from a batch operation.
//
// A population pass appends every per-file and per-symbol error here and
// returns the whole list; callers decide whether to warn or fail.
//
// List implements the Go 1.20+ multi-error Unwrap, so errors.Is and
// errors.As see every member.
type List struct {
	Errors []error
}

// Add appends err if it is non-nil. Nested Lists are flattened.
func (l *List) Add(err error) {
	if err == nil {
		return
	}
	var nested *List
	if errors.As(err, &nested) && nested != l {
		l.Errors = append(l.Errors, nested.Errors...)
		return
	}
	l.Errors = append(l.Errors, err)
}

// AddAll appends every non-nil error in errs.
func (l *List) AddAll(errs []error) {
	for _, err := range errs {
		l.Add(err)
	}
}

// Len returns the number of collected errors, warnings included.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Errors)
}

// HasErrors reports whether any member has error severity. Errors that are
// not *Error values count as errors.
func (l *List) HasErrors() bool {
	if l == nil {
		return false
	}
	for _, err := range l.Errors {
		var de *Error
		if errors.As(err, &de) && de.Severity == SeverityWarning {
			continue
		}
		return true
	}
	return false
}

// Count returns the number of members of the given kind.
func (l *List) Count(kind Kind) int {
	if l == nil {
		return 0
	}
	n := 0
	for _, err := range l.Errors {
		if KindOf(err) == kind {
			n++
		}
	}
	return n
}

// Err returns l as an error, or nil when it is empty.
func (l *List) Err() error {
	if l.Len() == 0 {
		return nil
	}
	return l
}

// Error returns a summary: the single message, or a count with the first.
func (l *List) Error() string {
	switch len(l.Errors) {
	case 0:
		return "no errors"
	case 1:
		return l.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v (and %d more)", len(l.Errors), l.Errors[0], len(l.Errors)-1)
}

// Unwrap returns the members for errors.Is and errors.As.
func (l *List) Unwrap() []error {
	return l.Errors
}

// Lines returns every member on its own line.
func (l *List) Lines() string {
	var b strings.Builder
	for i, err := range l.Errors {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(err.Error())
	}
	return b.String()
}
