// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/diag"
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/source"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

func populate(t *testing.T, a LanguageAdapter, path string, f ast.File) (*symbols.Table, *relations.Graph, []error) {
	t.Helper()
	table := symbols.NewTable()
	graph := relations.NewGraph()
	table.SetCurrentFile(path)
	errs := a.Populate(f, table, graph)
	return table, graph, errs
}

func sp(line int) *source.Span {
	s := source.NewSpan(line, 0, line, 10)
	return &s
}

func TestSysMLValidator(t *testing.T) {
	v := SysMLValidator{}
	component := &symbols.Symbol{QualifiedName: "Car", Role: symbols.RoleComponent}
	req := &symbols.Symbol{QualifiedName: "SafetyReq", Role: symbols.RoleRequirement}
	action := &symbols.Symbol{QualifiedName: "Drive", Role: symbols.RoleAction}

	t.Run("satisfy requirement ok", func(t *testing.T) {
		assert.NoError(t, v.Validate(relations.Satisfy, component, req))
	})

	t.Run("satisfy action fails", func(t *testing.T) {
		err := v.Validate(relations.Satisfy, component, action)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must target a requirement")
		assert.True(t, errors.Is(err, diag.ErrConstraintViolation))
	})

	tests := []struct {
		kind relations.Kind
		role symbols.Role
		msg  string
	}{
		{relations.Perform, symbols.RoleState, "perform must target an action"},
		{relations.Exhibit, symbols.RoleAction, "exhibit must target a state"},
		{relations.Include, symbols.RoleUnknown, "include must target a use case"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := v.Validate(tt.kind, component, &symbols.Symbol{QualifiedName: "X", Role: tt.role})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	t.Run("unconstrained kinds pass", func(t *testing.T) {
		assert.NoError(t, v.Validate(relations.Typing, component, action))
		assert.NoError(t, v.Validate(relations.Specialization, component, action))
	})

	t.Run("nil source still reports", func(t *testing.T) {
		var err error
		require.NotPanics(t, func() { err = v.Validate(relations.Satisfy, nil, action) })
		var de *diag.Error
		require.True(t, errors.As(err, &de))
		assert.Empty(t, de.Name)
		assert.Equal(t, "Drive", de.Target)
		assert.NoError(t, v.Validate(relations.Satisfy, nil, nil))
	})
}

func TestKerMLValidator_AcceptsAll(t *testing.T) {
	v := KerMLValidator{}
	a := &symbols.Symbol{Role: symbols.RoleClass}
	assert.NoError(t, v.Validate(relations.Satisfy, a, a))
	assert.NoError(t, v.Validate("anything", a, nil))
}

func TestRoleTables(t *testing.T) {
	assert.Equal(t, symbols.RoleComponent, SysMLRole("part def"))
	assert.Equal(t, symbols.RoleComponent, SysMLRole("part"))
	assert.Equal(t, symbols.RoleUseCase, SysMLRole("use  case def"))
	assert.Equal(t, symbols.RoleRequirement, SysMLRole("Requirement Def"))
	assert.Equal(t, symbols.RoleVerification, SysMLRole("verification case def"))
	assert.Equal(t, symbols.RoleUnknown, SysMLRole("gizmo"))

	assert.Equal(t, symbols.RoleClass, KerMLRole("class"))
	assert.Equal(t, symbols.RoleDataType, KerMLRole("datatype"))
	assert.Equal(t, symbols.RoleFeature, KerMLRole("feature"))
}

func vehicleFile() *ast.SysMLFile {
	return &ast.SysMLFile{Elements: ast.Elements{
		&ast.Package{Name: "Vehicles", Span: sp(0), Body: ast.Elements{
			&ast.Import{Path: "Lib", Namespace: true},
			&ast.Definition{Kind: "part def", Name: "Vehicle", Span: sp(1), Abstract: true},
			&ast.Definition{Kind: "part def", Name: "Car", Span: sp(2),
				Specializes: []ast.Ref{{Name: "Vehicle", Span: sp(2)}},
				Body: ast.Elements{
					&ast.Comment{Text: "  A road vehicle. "},
					&ast.Usage{Kind: "part", Name: "engine", Span: sp(3), TypedBy: []ast.Ref{{Name: "Engine"}}},
					&ast.Usage{Kind: "part", Name: "wheels", Span: sp(4), Satisfies: []ast.Ref{{Name: "Req"}}},
					&ast.Binding{Left: ast.Ref{Name: "engine"}, Right: ast.Ref{Name: "wheels"}},
				}},
			&ast.Alias{Name: "Auto", Target: ast.Ref{Name: "Car"}, Span: sp(5)},
		}},
	}}
}

func TestSysMLAdapter_Populate(t *testing.T) {
	table, graph, errs := populate(t, NewSysMLAdapter(), "vehicles.sysml", vehicleFile())
	require.Empty(t, errs)

	car, ok := table.LookupQualified("Vehicles::Car")
	require.True(t, ok)
	assert.Equal(t, symbols.KindDefinition, car.Kind)
	assert.Equal(t, symbols.RoleComponent, car.Role)
	assert.Equal(t, "vehicles.sysml", car.SourceFile)
	assert.Equal(t, "A road vehicle.", car.Doc)

	vehicle, ok := table.LookupQualified("Vehicles::Vehicle")
	require.True(t, ok)
	assert.True(t, vehicle.Abstract)

	assert.Equal(t, []string{"Vehicle"}, graph.Targets(relations.Specialization, "Vehicles::Car"))
	assert.Equal(t, []string{"Engine"}, graph.Targets(relations.Typing, "Vehicles::Car::engine"))
	assert.Equal(t, []string{"Req"}, graph.Targets(relations.Satisfy, "Vehicles::Car::wheels"))
	assert.True(t, graph.AreRelated(relations.Binding, "Vehicles::Car::wheels", "Vehicles::Car::engine"))

	target, ok := graph.GetOneToOne(relations.AliasOf, "Vehicles::Auto")
	require.True(t, ok)
	assert.Equal(t, "Car", target)

	imports := table.Imports()
	require.Len(t, imports, 1)
	assert.Equal(t, "Lib", imports[0].Path)
	assert.Equal(t, "vehicles.sysml", imports[0].File)

	assert.Equal(t, []string{"Lib::*"}, NewSysMLAdapter().Imports(vehicleFile()))
	assert.Equal(t, symbols.RootScopeID, table.CurrentScope(), "walk leaves the table at the root")
}

func TestSysMLAdapter_AliasLookup(t *testing.T) {
	f := &ast.SysMLFile{Elements: ast.Elements{
		&ast.Definition{Kind: "part def", Name: "A"},
		&ast.Alias{Name: "B", Target: ast.Ref{Name: "A"}},
	}}
	table, _, errs := populate(t, NewSysMLAdapter(), "alias.sysml", f)
	require.Empty(t, errs)

	a, ok := table.Lookup("A")
	require.True(t, ok)
	b, ok := table.Lookup("B")
	require.True(t, ok)
	assert.Same(t, a, b)
}

func TestSysMLAdapter_AnonymousRedefinition(t *testing.T) {
	t.Run("takes redefined name", func(t *testing.T) {
		f := &ast.SysMLFile{Elements: ast.Elements{
			&ast.Definition{Kind: "part def", Name: "SportsCar", Body: ast.Elements{
				&ast.Usage{Kind: "part", Redefines: []ast.Ref{{Name: "Car::engine"}}},
			}},
		}}
		table, graph, errs := populate(t, NewSysMLAdapter(), "s.sysml", f)
		require.Empty(t, errs)

		sym, ok := table.LookupQualified("SportsCar::engine")
		require.True(t, ok)
		assert.Equal(t, "engine", sym.Name)
		assert.Equal(t, []string{"Car::engine"}, graph.Targets(relations.Redefinition, "SportsCar::engine"))
	})

	t.Run("skipped when name exists", func(t *testing.T) {
		f := &ast.SysMLFile{Elements: ast.Elements{
			&ast.Definition{Kind: "part def", Name: "SportsCar", Body: ast.Elements{
				&ast.Usage{Kind: "part", Name: "engine", TypedBy: []ast.Ref{{Name: "V8"}}},
				&ast.Usage{Kind: "part", Redefines: []ast.Ref{{Name: "engine"}}, TypedBy: []ast.Ref{{Name: "V6"}}},
			}},
		}}
		table, graph, errs := populate(t, NewSysMLAdapter(), "s.sysml", f)
		assert.Empty(t, errs, "skipping is not a duplicate error")
		assert.Len(t, table.SymbolsInFile("s.sysml"), 2)
		assert.Equal(t, []string{"V8"}, graph.Targets(relations.Typing, "SportsCar::engine"))
	})

	t.Run("plain anonymous usage produces nothing", func(t *testing.T) {
		f := &ast.SysMLFile{Elements: ast.Elements{
			&ast.Usage{Kind: "part", TypedBy: []ast.Ref{{Name: "Thing"}}},
		}}
		table, graph, errs := populate(t, NewSysMLAdapter(), "s.sysml", f)
		assert.Empty(t, errs)
		assert.Zero(t, table.Len())
		assert.Zero(t, graph.Len())
	})
}

func TestSysMLAdapter_DuplicatesAreCollected(t *testing.T) {
	f := &ast.SysMLFile{Elements: ast.Elements{
		&ast.Definition{Kind: "part def", Name: "A", Span: sp(0)},
		&ast.Definition{Kind: "part def", Name: "A", Span: sp(1), Body: ast.Elements{
			&ast.Usage{Kind: "part", Name: "inner"},
		}},
		&ast.Definition{Kind: "part def", Name: "B"},
		&ast.Import{Path: "Lib", Namespace: true},
		&ast.Import{Path: "Lib", Namespace: true},
	}}
	table, _, errs := populate(t, NewSysMLAdapter(), "dup.sysml", f)

	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], diag.ErrDuplicateDefinition))
	assert.Contains(t, errs[0].Error(), "dup.sysml:2:1")

	_, ok := table.LookupQualified("A::inner")
	assert.True(t, ok, "the body of a duplicate is still indexed")
	_, ok = table.LookupQualified("B")
	assert.True(t, ok, "later siblings are still indexed")
	assert.Len(t, table.Imports(), 1)
}

func TestSysMLAdapter_FileNamespace(t *testing.T) {
	f := &ast.SysMLFile{
		Namespace: &ast.Namespace{Name: "Model"},
		Elements:  ast.Elements{&ast.Definition{Kind: "requirement def", Name: "R"}},
	}
	table, _, errs := populate(t, NewSysMLAdapter(), "m.sysml", f)
	require.Empty(t, errs)

	ns, ok := table.LookupQualified("Model")
	require.True(t, ok)
	assert.Equal(t, symbols.KindPackage, ns.Kind)
	r, ok := table.LookupQualified("Model::R")
	require.True(t, ok)
	assert.Equal(t, symbols.RoleRequirement, r.Role)
	assert.Equal(t, symbols.RootScopeID, table.CurrentScope())
}

func TestSysMLAdapter_WrongShape(t *testing.T) {
	_, _, errs := populate(t, NewSysMLAdapter(), "x.kerml", &ast.KerMLFile{})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrNoAdapter)
}

func TestKerMLAdapter_Populate(t *testing.T) {
	f := &ast.KerMLFile{Elements: ast.Elements{
		&ast.Package{Name: "Base", Body: ast.Elements{
			&ast.Classifier{Kind: "class", Name: "Anything", Abstract: true},
			&ast.Classifier{Kind: "datatype", Name: "Value",
				Specializes:  []ast.Ref{{Name: "Anything"}},
				Conjugates:   &ast.Ref{Name: "Other"},
				DisjointFrom: []ast.Ref{{Name: "Nothing"}},
				Body: ast.Elements{
					&ast.Feature{Name: "self", TypedBy: []ast.Ref{{Name: "Value"}}},
					&ast.Feature{Redefines: []ast.Ref{{Name: "Anything::that"}}},
				}},
		}},
	}}
	table, graph, errs := populate(t, NewKerMLAdapter(), "base.kerml", f)
	require.Empty(t, errs)

	value, ok := table.LookupQualified("Base::Value")
	require.True(t, ok)
	assert.Equal(t, symbols.KindClassifier, value.Kind)
	assert.Equal(t, symbols.RoleDataType, value.Role)

	self, ok := table.LookupQualified("Base::Value::self")
	require.True(t, ok)
	assert.Equal(t, symbols.KindFeature, self.Kind)
	assert.Equal(t, "feature", self.ElementKind)

	_, ok = table.LookupQualified("Base::Value::that")
	assert.True(t, ok)

	assert.Equal(t, []string{"Anything"}, graph.Targets(relations.Specialization, "Base::Value"))
	conj, ok := graph.GetOneToOne(relations.Conjugation, "Base::Value")
	require.True(t, ok)
	assert.Equal(t, "Other", conj)
	assert.True(t, graph.AreRelated(relations.Disjoining, "Nothing", "Base::Value"))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []ast.Language{ast.LanguageKerML, ast.LanguageSysML}, r.Languages())

	a, err := r.For(&ast.SysMLFile{})
	require.NoError(t, err)
	assert.Equal(t, ast.LanguageSysML, a.Language())

	a, err = r.ForPath("lib/base.kerml.yaml")
	require.NoError(t, err)
	assert.Equal(t, ast.LanguageKerML, a.Language())

	_, err = r.ForPath("readme.md")
	assert.ErrorIs(t, err, ErrNoAdapter)
	_, err = r.For(nil)
	assert.ErrorIs(t, err, ErrNoAdapter)

	empty := NewRegistry()
	_, err = empty.ForLanguage(ast.LanguageSysML)
	assert.ErrorIs(t, err, ErrNoAdapter)
}
