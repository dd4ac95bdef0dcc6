// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package deps provides the file-level dependency graph used for
// incremental re-analysis.
//
// An edge A -> B means "A imports B". The graph keeps a mirrored reverse
// index so the dependents of a file are an O(1) lookup, which is what
// invalidation needs: when B changes, everything that reaches B through
// the reverse index must be re-populated.
package deps

import "sort"

type set map[string]struct{}

func (s set) sorted() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Graph is a directed file dependency graph.
//
// Description:
//
//	Forward edges map a file to the files it imports. The reverse index
//	maps a file to the files importing it. Both are kept in sync by every
//	mutation.
//
// Thread Safety:
//
//	Not safe for concurrent use. The owning workspace serializes access.
type Graph struct {
	forward map[string]set
	reverse map[string]set
}

// NewGraph creates an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		forward: make(map[string]set),
		reverse: make(map[string]set),
	}
}

// AddDependency records that from imports to.
//
// Description:
//
//	Idempotent: adding the same edge twice stores it once.
//
// Inputs:
//
//	from - The importing file.
//	to - The imported file.
func (g *Graph) AddDependency(from, to string) {
	link(g.forward, from, to)
	link(g.reverse, to, from)
}

func link(m map[string]set, a, b string) {
	s := m[a]
	if s == nil {
		s = make(set)
		m[a] = s
	}
	s[b] = struct{}{}
}

func unlink(m map[string]set, a, b string) {
	s := m[a]
	if s == nil {
		return
	}
	delete(s, b)
	if len(s) == 0 {
		delete(m, a)
	}
}

// Dependencies returns the files file imports, sorted.
func (g *Graph) Dependencies(file string) []string {
	return g.forward[file].sorted()
}

// Dependents returns the files importing file, sorted.
func (g *Graph) Dependents(file string) []string {
	return g.reverse[file].sorted()
}

// AllAffected returns every file that transitively depends on file.
//
// Description:
//
//	Breadth-first traversal of the reverse index starting at file. The
//	result excludes file itself, even when it sits on a cycle, and lists
//	each file once. Within one BFS level files are visited in sorted
//	order, so the result is deterministic.
//
// Inputs:
//
//	file - The changed file.
//
// Outputs:
//
//	[]string - The affected files in BFS order. Nil if none.
func (g *Graph) AllAffected(file string) []string {
	visited := set{file: {}}
	queue := []string{file}
	var out []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range g.reverse[current].sorted() {
			if _, seen := visited[dependent]; seen {
				continue
			}
			visited[dependent] = struct{}{}
			out = append(out, dependent)
			queue = append(queue, dependent)
		}
	}
	return out
}

// HasCircularDependency reports whether a cycle is reachable from file.
func (g *Graph) HasCircularDependency(file string) bool {
	return g.FindCycle(file) != nil
}

type color uint8

const (
	white color = iota
	grey
	black
)

// FindCycle returns the first import cycle reachable from file.
//
// Description:
//
//	Depth-first search over forward edges, in sorted order. Grey files are
//	on the current path and black files are fully explored, so reaching a
//	grey file closes a cycle.
//
// Outputs:
//
//	[]string - The cycle from its first file back to that file, for
//	           example [a b a]. Nil when no cycle is reachable.
func (g *Graph) FindCycle(file string) []string {
	colors := make(map[string]color)
	return g.findCycleFrom(file, colors)
}

func (g *Graph) findCycleFrom(file string, colors map[string]color) []string {
	var path []string
	var cycle []string

	var visit func(node string) bool
	visit = func(node string) bool {
		colors[node] = grey
		path = append(path, node)
		for _, next := range g.forward[node].sorted() {
			switch colors[next] {
			case grey:
				for i, p := range path {
					if p == next {
						cycle = append(append([]string(nil), path[i:]...), next)
						break
					}
				}
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		colors[node] = black
		return false
	}

	if colors[file] != white {
		return nil
	}
	visit(file)
	// An early return leaves the rest of the path grey.
	for _, p := range path {
		colors[p] = black
	}
	return cycle
}

// Cycles scans every file in sorted order and returns the cycles found.
// Files explored by an earlier scan are not revisited, so each returned
// cycle is distinct but not every cycle is guaranteed to be listed.
func (g *Graph) Cycles() [][]string {
	colors := make(map[string]color)
	var out [][]string
	for _, file := range g.Files() {
		if cycle := g.findCycleFrom(file, colors); cycle != nil {
			out = append(out, cycle)
		}
	}
	return out
}

// ClearDependencies removes the forward edges of file, keeping the edges
// of files that import it.
func (g *Graph) ClearDependencies(file string) {
	for to := range g.forward[file] {
		unlink(g.reverse, to, file)
	}
	delete(g.forward, file)
}

// RemoveFile removes file from the graph in both directions.
//
// Description:
//
//	Deletes the forward edges of file and removes it from every target's
//	reverse entry, then removes it as a target wherever it was imported.
func (g *Graph) RemoveFile(file string) {
	g.ClearDependencies(file)
	for from := range g.reverse[file] {
		unlink(g.forward, from, file)
	}
	delete(g.reverse, file)
}

// Files returns every file that appears in any edge, sorted.
func (g *Graph) Files() []string {
	all := make(set, len(g.forward)+len(g.reverse))
	for f := range g.forward {
		all[f] = struct{}{}
	}
	for f := range g.reverse {
		all[f] = struct{}{}
	}
	return all.sorted()
}

// Len returns the number of edges.
func (g *Graph) Len() int {
	n := 0
	for _, s := range g.forward {
		n += len(s)
	}
	return n
}
