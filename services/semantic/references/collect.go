// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package references builds the find-references index.
//
// Collect runs once after a population pass. It folds the typing,
// specialization, redefinition, subsetting and reference-subsetting
// edges into per-symbol back-references, so callers answer "where is X
// used" with a single read of X.References.
package references

import (
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/source"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// Stats describes one collection pass.
type Stats struct {
	// Sources is the number of symbols with both a file and a span.
	Sources int

	// Edges is the number of edges examined.
	Edges int

	// References is the number of distinct back-references stored.
	References int

	// Unresolved is the number of edges whose target matched nothing.
	Unresolved int
}

// Collect rebuilds every symbol's References from the graph.
//
// Description:
//
//	Existing references are cleared first. For every symbol with a
//	source file and span, and every edge of a reference kind leaving it,
//	the edge span (or the symbol span when the edge has none) is
//	recorded on the target. Targets are resolved by exact qualified name
//	first, then by simple name. References end up deduplicated and
//	sorted by location.
//
// Inputs:
//
//	table - The symbol table to write references into.
//	graph - The relationship graph to read edges from.
//
// Outputs:
//
//	Stats - Counts for logging and metrics.
func Collect(table *symbols.Table, graph *relations.Graph) Stats {
	var stats Stats
	table.ClearReferences()

	for _, sym := range table.AllSymbols() {
		if sym.Span == nil || sym.SourceFile == "" {
			continue
		}
		stats.Sources++

		for _, kind := range relations.ReferenceKinds {
			for _, edge := range graph.TargetsWithSpans(kind, sym.QualifiedName) {
				stats.Edges++
				target, ok := resolve(table, edge.Target)
				if !ok {
					stats.Unresolved++
					continue
				}
				span := edge.Span
				if span == nil {
					span = sym.Span
				}
				table.AddReference(target.QualifiedName, source.Location{File: sym.SourceFile, Span: *span})
			}
		}
	}

	table.SortReferences()
	for _, sym := range table.AllSymbols() {
		stats.References += len(sym.References)
	}
	return stats
}

func resolve(table *symbols.Table, name string) (*symbols.Symbol, bool) {
	if sym, ok := table.LookupQualified(name); ok {
		return sym, true
	}
	sym, ok := table.FindBySimpleName(symbols.SimpleName(name))
	if !ok {
		return nil, false
	}
	if sym.Kind == symbols.KindAlias {
		return table.LookupQualified(sym.QualifiedName)
	}
	return sym, true
}
