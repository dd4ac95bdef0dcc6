// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package relations provides the typed multi-relation graph of the
// semantic index.
//
// Nodes are qualified names, not symbol pointers, so the graph has no
// dependency on the symbol table and survives symbol purges. Each kind
// is bound to one Shape at first use.
//
// # Symmetric kinds
//
// Symmetric kinds have set semantics: relating the same pair twice is a
// no-op and a self-relation is stored once.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use.
package relations

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/syslens/services/semantic/source"
)

// Edge is one target of a relationship.
type Edge struct {
	Target string
	Span   *source.Span
}

// Relation is a fully spelled-out edge, used for iteration.
type Relation struct {
	Kind   Kind
	Source string
	Target string
	Span   *source.Span
}

// Graph stores relationships by kind.
type Graph struct {
	shapes map[Kind]Shape

	// oneToMany targets keep insertion order.
	oneToMany map[Kind]map[string][]Edge
	oneToOne  map[Kind]map[string]Edge
	symmetric map[Kind]map[string]map[string]struct{}
}

// NewGraph returns a graph with the standard kinds registered.
func NewGraph() *Graph {
	g := &Graph{
		shapes:    make(map[Kind]Shape),
		oneToMany: make(map[Kind]map[string][]Edge),
		oneToOne:  make(map[Kind]map[string]Edge),
		symmetric: make(map[Kind]map[string]map[string]struct{}),
	}
	for kind, shape := range StandardKinds {
		g.shapes[kind] = shape
	}
	return g
}

// Register binds kind to shape.
//
// Outputs:
//
//	error - ErrShapeMismatch if kind is already bound to another shape.
func (g *Graph) Register(kind Kind, shape Shape) error {
	return g.ensure(kind, shape)
}

// Shape returns the shape kind is bound to.
func (g *Graph) Shape(kind Kind) (Shape, bool) {
	s, ok := g.shapes[kind]
	return s, ok
}

// Kinds returns every registered kind, sorted.
func (g *Graph) Kinds() []Kind {
	kinds := make([]Kind, 0, len(g.shapes))
	for k := range g.shapes {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (g *Graph) ensure(kind Kind, shape Shape) error {
	if kind == "" {
		return ErrEmptyKind
	}
	existing, ok := g.shapes[kind]
	if !ok {
		g.shapes[kind] = shape
		return nil
	}
	if existing != shape {
		return fmt.Errorf("%w: %q is %s, not %s", ErrShapeMismatch, kind, existing, shape)
	}
	return nil
}

// AddOneToMany records src -> tgt.
//
// Description:
//
//	Insertion is deduplicated by (src, tgt). The span of the first
//	insertion is kept and later duplicates are no-ops.
func (g *Graph) AddOneToMany(kind Kind, src, tgt string, span *source.Span) error {
	if err := g.ensure(kind, OneToMany); err != nil {
		return err
	}
	bySource := g.oneToMany[kind]
	if bySource == nil {
		bySource = make(map[string][]Edge)
		g.oneToMany[kind] = bySource
	}
	for _, e := range bySource[src] {
		if e.Target == tgt {
			return nil
		}
	}
	bySource[src] = append(bySource[src], Edge{Target: tgt, Span: span})
	return nil
}

// Targets returns the targets of src in insertion order.
func (g *Graph) Targets(kind Kind, src string) []string {
	edges := g.oneToMany[kind][src]
	if len(edges) == 0 {
		return nil
	}
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.Target
	}
	return out
}

// TargetsWithSpans returns a copy of the edges of src in insertion order.
func (g *Graph) TargetsWithSpans(kind Kind, src string) []Edge {
	edges := g.oneToMany[kind][src]
	if len(edges) == 0 {
		return nil
	}
	return append([]Edge(nil), edges...)
}

// Sources returns every node with at least one outgoing edge of kind,
// sorted. It covers all three shapes.
func (g *Graph) Sources(kind Kind) []string {
	var out []string
	switch g.shapes[kind] {
	case OneToMany:
		for src, edges := range g.oneToMany[kind] {
			if len(edges) > 0 {
				out = append(out, src)
			}
		}
	case OneToOne:
		for src := range g.oneToOne[kind] {
			out = append(out, src)
		}
	case Symmetric:
		for src, peers := range g.symmetric[kind] {
			if len(peers) > 0 {
				out = append(out, src)
			}
		}
	}
	sort.Strings(out)
	return out
}

// SetOneToOne sets the target of src. A later call replaces it.
func (g *Graph) SetOneToOne(kind Kind, src, tgt string, span *source.Span) error {
	if err := g.ensure(kind, OneToOne); err != nil {
		return err
	}
	bySource := g.oneToOne[kind]
	if bySource == nil {
		bySource = make(map[string]Edge)
		g.oneToOne[kind] = bySource
	}
	bySource[src] = Edge{Target: tgt, Span: span}
	return nil
}

// GetOneToOne returns the target of src.
func (g *Graph) GetOneToOne(kind Kind, src string) (string, bool) {
	e, ok := g.oneToOne[kind][src]
	return e.Target, ok
}

// AddSymmetric relates a and b in both directions.
func (g *Graph) AddSymmetric(kind Kind, a, b string) error {
	if err := g.ensure(kind, Symmetric); err != nil {
		return err
	}
	byNode := g.symmetric[kind]
	if byNode == nil {
		byNode = make(map[string]map[string]struct{})
		g.symmetric[kind] = byNode
	}
	link := func(from, to string) {
		peers := byNode[from]
		if peers == nil {
			peers = make(map[string]struct{})
			byNode[from] = peers
		}
		peers[to] = struct{}{}
	}
	link(a, b)
	link(b, a)
	return nil
}

// AreRelated reports whether a and b are related by kind.
func (g *Graph) AreRelated(kind Kind, a, b string) bool {
	_, ok := g.symmetric[kind][a][b]
	return ok
}

// Related returns every node related to a by kind, sorted.
func (g *Graph) Related(kind Kind, a string) []string {
	peers := g.symmetric[kind][a]
	if len(peers) == 0 {
		return nil
	}
	out := make([]string, 0, len(peers))
	for p := range peers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Relations returns every edge of kind, ordered by source then insertion.
// Symmetric pairs are listed once with Source <= Target.
func (g *Graph) Relations(kind Kind) []Relation {
	var out []Relation
	for _, src := range g.Sources(kind) {
		switch g.shapes[kind] {
		case OneToMany:
			for _, e := range g.oneToMany[kind][src] {
				out = append(out, Relation{Kind: kind, Source: src, Target: e.Target, Span: e.Span})
			}
		case OneToOne:
			e := g.oneToOne[kind][src]
			out = append(out, Relation{Kind: kind, Source: src, Target: e.Target, Span: e.Span})
		case Symmetric:
			for _, peer := range g.Related(kind, src) {
				if src <= peer {
					out = append(out, Relation{Kind: kind, Source: src, Target: peer})
				}
			}
		}
	}
	return out
}

// Len returns the total number of stored relations across all kinds,
// counting each symmetric pair once.
func (g *Graph) Len() int {
	n := 0
	for _, kind := range g.Kinds() {
		n += len(g.Relations(kind))
	}
	return n
}

// RemoveSource drops every edge whose source is name, in every kind.
// For symmetric kinds name is removed from both sides.
func (g *Graph) RemoveSource(name string) {
	for _, bySource := range g.oneToMany {
		delete(bySource, name)
	}
	for _, bySource := range g.oneToOne {
		delete(bySource, name)
	}
	for _, byNode := range g.symmetric {
		for peer := range byNode[name] {
			if peers := byNode[peer]; peers != nil {
				delete(peers, name)
				if len(peers) == 0 {
					delete(byNode, peer)
				}
			}
		}
		delete(byNode, name)
	}
}

// Retarget rewrites every one-to-many target of src through fn. Targets
// that collapse onto the same name are deduplicated, keeping the first
// edge's span.
func (g *Graph) Retarget(kind Kind, src string, fn func(target string) string) {
	edges := g.oneToMany[kind][src]
	if len(edges) == 0 {
		return
	}
	out := edges[:0]
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		e.Target = fn(e.Target)
		if seen[e.Target] {
			continue
		}
		seen[e.Target] = true
		out = append(out, e)
	}
	g.oneToMany[kind][src] = out
}
