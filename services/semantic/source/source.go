// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package source defines the position types shared by every semantic
// component: positions, spans and file-qualified locations.
//
// Positions are 0-indexed in both line and column, matching what the parser
// layer hands over. Rendering via String() is 1-indexed for humans.
package source

import "fmt"

// Position is a point in a source file.
type Position struct {
	// Line is the 0-indexed line number.
	Line int `json:"line" yaml:"line"`

	// Column is the 0-indexed column on Line.
	Column int `json:"column" yaml:"column"`
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Span is a half-open range [Start, End) within one file.
type Span struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// NewSpan builds a span from raw line/column values.
func NewSpan(startLine, startCol, endLine, endCol int) Span {
	return Span{
		Start: Position{Line: startLine, Column: startCol},
		End:   Position{Line: endLine, Column: endCol},
	}
}

// Contains reports whether pos lies inside the span.
func (s Span) Contains(pos Position) bool {
	return !pos.Before(s.Start) && pos.Before(s.End)
}

// String returns "line:col-line:col" using 1-indexed numbers.
func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line+1, s.Start.Column+1, s.End.Line+1, s.End.Column+1)
}

// Location is a span within a named file.
type Location struct {
	File string `json:"file"`
	Span Span   `json:"span"`
}

// String returns "file:line:col" using 1-indexed numbers.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Span.Start.Line+1, l.Span.Start.Column+1)
}

// Less orders locations by file, then start position.
func (l Location) Less(other Location) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	if l.Span.Start != other.Span.Start {
		return l.Span.Start.Before(other.Span.Start)
	}
	return l.Span.End.Before(other.Span.End)
}
