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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSpan_Contains(t *testing.T) {
	span := NewSpan(2, 4, 2, 10)

	assert.True(t, span.Contains(Position{Line: 2, Column: 4}))
	assert.True(t, span.Contains(Position{Line: 2, Column: 9}))
	assert.False(t, span.Contains(Position{Line: 2, Column: 10}), "end is exclusive")
	assert.False(t, span.Contains(Position{Line: 1, Column: 5}))
}

func TestLocation_String(t *testing.T) {
	loc := Location{File: "vehicle.sysml", Span: NewSpan(0, 0, 0, 7)}
	assert.Equal(t, "vehicle.sysml:1:1", loc.String())
}

func TestLocation_Less(t *testing.T) {
	a := Location{File: "a.sysml", Span: NewSpan(5, 0, 5, 1)}
	b := Location{File: "b.sysml", Span: NewSpan(0, 0, 0, 1)}
	c := Location{File: "a.sysml", Span: NewSpan(5, 2, 5, 3)}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Less(c))
}

func TestSpan_UnmarshalYAML(t *testing.T) {
	t.Run("compact", func(t *testing.T) {
		var s Span
		require.NoError(t, yaml.Unmarshal([]byte("[1, 2, 3, 4]"), &s))
		assert.Equal(t, NewSpan(1, 2, 3, 4), s)
	})

	t.Run("mapping", func(t *testing.T) {
		var s Span
		doc := "start: {line: 0, column: 4}\nend: {line: 0, column: 9}\n"
		require.NoError(t, yaml.Unmarshal([]byte(doc), &s))
		assert.Equal(t, NewSpan(0, 4, 0, 9), s)
	})

	t.Run("wrong arity", func(t *testing.T) {
		var s Span
		assert.Error(t, yaml.Unmarshal([]byte("[1, 2]"), &s))
	})

	t.Run("scalar rejected", func(t *testing.T) {
		var s Span
		assert.Error(t, yaml.Unmarshal([]byte("nope"), &s))
	})
}
