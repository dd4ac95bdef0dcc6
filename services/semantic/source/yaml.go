// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either the mapping form
//
//	span: {start: {line: 0, column: 4}, end: {line: 0, column: 9}}
//
// or the compact sequence form [startLine, startCol, endLine, endCol].
func (s *Span) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var raw []int
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if len(raw) != 4 {
			return fmt.Errorf("line %d: span needs 4 numbers, got %d", value.Line, len(raw))
		}
		*s = NewSpan(raw[0], raw[1], raw[2], raw[3])
		return nil
	case yaml.MappingNode:
		// Decode into an alias type to avoid recursing into this method.
		type plain Span
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*s = Span(p)
		return nil
	}
	return fmt.Errorf("line %d: span must be a mapping or a sequence", value.Line)
}
