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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/syslens/services/semantic/adapter"
	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/diag"
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/source"
)

func sp(line int) *source.Span {
	s := source.NewSpan(line, 0, line, 10)
	return &s
}

func ref(name string) []ast.Ref { return []ast.Ref{{Name: name}} }

func baseFile() *ast.SysMLFile {
	return &ast.SysMLFile{Elements: ast.Elements{
		&ast.Package{Name: "Lib", Span: sp(0), Body: ast.Elements{
			&ast.Definition{Kind: "part def", Name: "Engine", Span: sp(1)},
			&ast.Definition{Kind: "part def", Name: "Vehicle", Span: sp(2), Abstract: true, Body: ast.Elements{
				&ast.Usage{Kind: "part", Name: "wheels", Span: sp(3)},
			}},
			&ast.Definition{Kind: "requirement def", Name: "Safety", Span: sp(4)},
			&ast.Definition{Kind: "action def", Name: "Drive", Span: sp(5)},
		}},
	}}
}

func carFile() *ast.SysMLFile {
	return &ast.SysMLFile{Elements: ast.Elements{
		&ast.Package{Name: "Cars", Span: sp(0), Body: ast.Elements{
			&ast.Import{Path: "Lib", Namespace: true, Span: sp(1)},
			&ast.Definition{Kind: "part def", Name: "Car", Span: sp(2),
				Specializes: []ast.Ref{{Name: "Vehicle", Span: sp(2)}},
				Body: ast.Elements{
					&ast.Usage{Kind: "part", Name: "engine", Span: sp(3), TypedBy: []ast.Ref{{Name: "Engine", Span: sp(3)}}},
					&ast.Usage{Kind: "part", Span: sp(4), Redefines: ref("wheels")},
					&ast.Usage{Kind: "part", Name: "checked", Span: sp(5), Satisfies: ref("Safety")},
				}},
		}},
	}}
}

func newVehicleWorkspace(t *testing.T, opts ...Option) *Workspace {
	t.Helper()
	w := New(opts...)
	// Added in reverse so dependency edges only appear after population.
	require.NoError(t, w.AddFile("car.sysml", carFile()))
	require.NoError(t, w.AddFile("base.sysml", baseFile()))
	return w
}

func TestWorkspace_PopulateAll(t *testing.T) {
	w := newVehicleWorkspace(t)
	assert.Empty(t, w.Dependencies().Dependencies("car.sysml"))

	res := w.PopulateAll(context.Background())
	require.NoError(t, res.Err(), res.Errors.Lines())
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, ModeAll, res.Mode)
	assert.Equal(t, []string{"base.sysml", "car.sysml"}, res.Files)
	assert.Zero(t, res.SymbolsRemoved)
	assert.Equal(t, w.Symbols().Len(), res.SymbolsAdded)
	assert.Empty(t, w.Pending())

	t.Run("cross-file dependency", func(t *testing.T) {
		assert.Equal(t, []string{"base.sysml"}, w.Dependencies().Dependencies("car.sysml"))
		assert.Equal(t, []string{"car.sysml"}, w.Dependencies().Dependents("base.sysml"))
	})

	t.Run("targets are canonical", func(t *testing.T) {
		g := w.Relations()
		assert.Equal(t, []string{"Lib::Vehicle"}, g.Targets(relations.Specialization, "Cars::Car"))
		assert.Equal(t, []string{"Lib::Engine"}, g.Targets(relations.Typing, "Cars::Car::engine"))
		assert.Equal(t, []string{"Lib::Vehicle::wheels"}, g.Targets(relations.Redefinition, "Cars::Car::wheels"),
			"anonymous redefinition resolves to the inherited feature")
		assert.Equal(t, []string{"Lib::Safety"}, g.Targets(relations.Satisfy, "Cars::Car::checked"))
	})

	t.Run("references", func(t *testing.T) {
		refs := w.References("Lib::Vehicle")
		require.Len(t, refs, 1)
		assert.Equal(t, "car.sysml", refs[0].File)
		assert.Equal(t, 2, refs[0].Span.Start.Line)

		assert.Len(t, w.References("Lib::Vehicle::wheels"), 1)
		assert.Nil(t, w.References("Nope"))
	})

	t.Run("lookup", func(t *testing.T) {
		car, ok := w.LookupQualified("Cars::Car")
		require.True(t, ok)
		assert.Equal(t, "car.sysml", car.SourceFile)

		_, ok = w.Lookup("Lib::Engine")
		assert.True(t, ok)
	})
}

func TestWorkspace_RepopulationIsStable(t *testing.T) {
	w := newVehicleWorkspace(t)
	first := w.PopulateAll(context.Background())
	require.NoError(t, first.Err())
	symbols := w.Symbols().Len()
	edges := w.Relations().Len()
	refs := first.References

	second := w.PopulateAll(context.Background())
	require.NoError(t, second.Err())
	assert.Equal(t, symbols, w.Symbols().Len())
	assert.Equal(t, edges, w.Relations().Len())
	assert.Equal(t, refs, second.References)
	assert.Equal(t, second.SymbolsAdded, second.SymbolsRemoved)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestWorkspace_PopulateAffectedNothingPending(t *testing.T) {
	w := newVehicleWorkspace(t)
	require.NoError(t, w.PopulateAll(context.Background()).Err())

	res := w.PopulateAffected(context.Background())
	assert.Empty(t, res.Files)
	assert.Zero(t, res.Errors.Len())
	assert.Len(t, w.References("Lib::Vehicle"), 1, "index is left untouched")
}

func TestWorkspace_AutoInvalidation(t *testing.T) {
	w := newVehicleWorkspace(t, WithAutoInvalidation(true))
	require.NoError(t, w.PopulateAll(context.Background()).Err())

	require.NoError(t, w.UpdateFile("base.sysml", baseFile()))
	assert.Equal(t, []string{"base.sysml", "car.sysml"}, w.Pending())

	res := w.PopulateAffected(context.Background())
	require.NoError(t, res.Err())
	assert.Equal(t, ModeAffected, res.Mode)
	assert.Equal(t, []string{"base.sysml", "car.sysml"}, res.Files)
	assert.Empty(t, w.Pending())
}

func TestWorkspace_WithoutAutoInvalidation(t *testing.T) {
	w := newVehicleWorkspace(t)
	require.NoError(t, w.PopulateAll(context.Background()).Err())

	require.NoError(t, w.UpdateFile("base.sysml", baseFile()))
	assert.Equal(t, []string{"base.sysml"}, w.Pending())

	assert.Equal(t, []string{"base.sysml", "car.sysml"}, w.InvalidateAffected("base.sysml"))
	assert.Equal(t, []string{"base.sysml", "car.sysml"}, w.Pending())
}

func TestWorkspace_Events(t *testing.T) {
	w := New()
	var got []Event
	w.Subscribe(func(ev Event) { got = append(got, ev) })
	w.Subscribe(nil)

	require.NoError(t, w.AddFile("base.sysml", baseFile()))
	require.NoError(t, w.AddFile("base.sysml", baseFile()))
	require.NoError(t, w.RemoveFile("base.sysml"))

	assert.Equal(t, []Event{
		{Kind: EventFileAdded, Path: "base.sysml"},
		{Kind: EventFileUpdated, Path: "base.sysml"},
		{Kind: EventFileRemoved, Path: "base.sysml"},
	}, got)
	assert.Equal(t, "file_updated", EventFileUpdated.String())
}

func TestWorkspace_UpdateSeesOldDependents(t *testing.T) {
	w := newVehicleWorkspace(t)
	require.NoError(t, w.PopulateAll(context.Background()).Err())

	var dependents []string
	w.Subscribe(func(ev Event) {
		if ev.Kind == EventFileUpdated {
			dependents = w.Dependencies().Dependents(ev.Path)
		}
	})
	require.NoError(t, w.UpdateFile("base.sysml", baseFile()))
	assert.Equal(t, []string{"car.sysml"}, dependents)
}

func TestWorkspace_RemoveFile(t *testing.T) {
	w := newVehicleWorkspace(t, WithAutoInvalidation(true))
	require.NoError(t, w.PopulateAll(context.Background()).Err())

	require.NoError(t, w.RemoveFile("base.sysml"))
	_, ok := w.LookupQualified("Lib::Engine")
	assert.False(t, ok)
	assert.Equal(t, []string{"car.sysml"}, w.Files())
	assert.Equal(t, []string{"car.sysml"}, w.Pending())

	res := w.PopulateAffected(context.Background())
	require.Error(t, res.Err())
	assert.Positive(t, res.Errors.Count(diag.KindUndefinedReference))
	assert.Equal(t, 1, res.Errors.Count(diag.KindInvalidImport))
	assert.Empty(t, w.Dependencies().Dependencies("car.sysml"))

	assert.ErrorIs(t, w.RemoveFile("base.sysml"), ErrFileNotFound)
}

func leafFiles(t *testing.T) *Workspace {
	t.Helper()
	w := New(WithAutoInvalidation(true))
	require.NoError(t, w.AddFile("a.sysml", &ast.SysMLFile{Elements: ast.Elements{
		&ast.Definition{Kind: "part def", Name: "Vehicle", Span: sp(0)},
	}}))
	require.NoError(t, w.AddFile("b.sysml", &ast.SysMLFile{Elements: ast.Elements{
		&ast.Definition{Kind: "part def", Name: "Car", Span: sp(2),
			Specializes: []ast.Ref{{Name: "Vehicle", Span: sp(2)}}},
	}}))
	require.NoError(t, w.PopulateAll(context.Background()).Err())
	require.Len(t, w.References("Vehicle"), 1)
	return w
}

func TestWorkspace_RemoveLeafFile(t *testing.T) {
	t.Run("references from the removed file are dropped", func(t *testing.T) {
		w := leafFiles(t)
		require.NoError(t, w.RemoveFile("b.sysml"))
		assert.Empty(t, w.Pending())

		res := w.PopulateAffected(context.Background())
		require.NoError(t, res.Err())
		assert.Empty(t, res.Files)
		assert.Empty(t, w.References("Vehicle"))
	})

	t.Run("dangling edges are reported", func(t *testing.T) {
		w := leafFiles(t)
		require.NoError(t, w.RemoveFile("a.sysml"))
		assert.Empty(t, w.Pending(), "no import edge links b to a")

		res := w.PopulateAffected(context.Background())
		assert.Empty(t, res.Files)
		assert.Equal(t, 1, res.Errors.Count(diag.KindUndefinedReference))

		var list diag.List
		list.AddAll(w.Diagnostics())
		assert.Equal(t, 1, list.Count(diag.KindUndefinedReference))
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		w := leafFiles(t)
		require.NoError(t, w.RemoveFile("b.sysml"))
		w.PopulateAffected(context.Background())

		res := w.PopulateAffected(context.Background())
		assert.Zero(t, res.Errors.Len())
		assert.Zero(t, res.References.Edges)
	})
}

func TestWorkspace_FileErrors(t *testing.T) {
	w := New()
	assert.ErrorIs(t, w.AddFile("", baseFile()), ErrEmptyPath)
	assert.ErrorIs(t, w.AddFile("a.sysml", nil), ErrNilFile)
	assert.ErrorIs(t, w.UpdateFile("a.sysml", baseFile()), ErrFileNotFound)
	assert.ErrorIs(t, w.UpdateFile("a.sysml", nil), ErrNilFile)

	restricted := New(WithRegistry(adapter.NewRegistry(adapter.NewKerMLAdapter())))
	assert.ErrorIs(t, restricted.AddFile("a.sysml", baseFile()), adapter.ErrNoAdapter)
}

func TestWorkspace_Diagnostics(t *testing.T) {
	bad := &ast.SysMLFile{Elements: ast.Elements{
		&ast.Package{Name: "Bad", Span: sp(0), Body: ast.Elements{
			&ast.Import{Path: "Nowhere", Namespace: true, Span: sp(1)},
			&ast.Definition{Kind: "part def", Name: "A", Span: sp(2), Specializes: ref("B")},
			&ast.Definition{Kind: "part def", Name: "B", Span: sp(3), Specializes: ref("A")},
			&ast.Usage{Kind: "part", Name: "typedByPackage", Span: sp(4), TypedBy: ref("Lib")},
			&ast.Usage{Kind: "part", Name: "missing", Span: sp(5), TypedBy: ref("Nope")},
			&ast.Usage{Kind: "part", Name: "loose", Span: sp(6), Redefines: ref("Lib::Vehicle::wheels")},
			&ast.Usage{Kind: "part", Name: "wrong", Span: sp(7), Satisfies: ref("Lib::Drive")},
			&ast.Definition{Kind: "part def", Name: "C", Span: sp(8), Specializes: ref("Lib::Vehicle::wheels")},
			&ast.Alias{Name: "Dangling", Target: ast.Ref{Name: "Ghost"}, Span: sp(9)},
		}},
	}}

	w := New()
	require.NoError(t, w.AddFile("base.sysml", baseFile()))
	require.NoError(t, w.AddFile("bad.sysml", bad))
	res := w.PopulateAll(context.Background())

	list := &res.Errors
	assert.Equal(t, 3, list.Count(diag.KindInvalidSpecialization), "both edges of the cycle plus one non-type target")
	assert.Equal(t, 1, list.Count(diag.KindInvalidType))
	assert.Equal(t, 2, list.Count(diag.KindUndefinedReference))
	assert.Equal(t, 1, list.Count(diag.KindInvalidFeatureContext))
	assert.Equal(t, 1, list.Count(diag.KindConstraintViolation))
	assert.Equal(t, 1, list.Count(diag.KindInvalidImport))
	assert.True(t, list.HasErrors())

	var violation *diag.Error
	for _, err := range list.Errors {
		if errors.As(err, &violation) && violation.Kind == diag.KindConstraintViolation {
			break
		}
	}
	require.NotNil(t, violation)
	require.NotNil(t, violation.Location)
	assert.Equal(t, "bad.sysml", violation.Location.File)
	assert.Contains(t, violation.Error(), "satisfy must target a requirement")

	var imp *diag.Error
	for _, err := range list.Errors {
		if errors.As(err, &imp) && imp.Kind == diag.KindInvalidImport {
			break
		}
	}
	assert.Equal(t, diag.SeverityWarning, imp.Severity)

	assert.Equal(t, res.Errors.Len(), len(w.Diagnostics()))
}

func TestWorkspace_CircularFileDependency(t *testing.T) {
	a := &ast.SysMLFile{Elements: ast.Elements{
		&ast.Package{Name: "A", Body: ast.Elements{
			&ast.Import{Path: "B", Namespace: true},
			&ast.Definition{Kind: "part def", Name: "X"},
		}},
	}}
	b := &ast.SysMLFile{Elements: ast.Elements{
		&ast.Package{Name: "B", Body: ast.Elements{
			&ast.Import{Path: "A", Namespace: true},
			&ast.Definition{Kind: "part def", Name: "Y"},
		}},
	}}

	w := New()
	require.NoError(t, w.AddFile("a.sysml", a))
	require.NoError(t, w.AddFile("b.sysml", b))
	res := w.PopulateAll(context.Background())

	require.Equal(t, 1, res.Errors.Count(diag.KindCircularDependency), res.Errors.Lines())
	assert.False(t, res.Errors.HasErrors(), "file cycles are warnings")
	assert.True(t, w.Dependencies().HasCircularDependency("a.sysml"))
}
