// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package relations

// Derived queries. All of them walk one-to-many kinds only; for other
// shapes they see no edges.

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// HasTransitivePath reports whether to is reachable from from via edges of
// kind. A node always reaches itself.
func (g *Graph) HasTransitivePath(kind Kind, from, to string) bool {
	if from == to {
		return true
	}
	bySource := g.oneToMany[kind]
	if bySource == nil {
		return false
	}

	visited := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range bySource[node] {
			if e.Target == to {
				return true
			}
			if !visited[e.Target] {
				visited[e.Target] = true
				stack = append(stack, e.Target)
			}
		}
	}
	return false
}

// HasCircularDependency reports whether node reaches itself through at
// least one edge of kind.
func (g *Graph) HasCircularDependency(kind Kind, node string) bool {
	for _, e := range g.oneToMany[kind][node] {
		if g.HasTransitivePath(kind, e.Target, node) {
			return true
		}
	}
	return false
}

// FindCycles enumerates the cycles of kind.
//
// Description:
//
//	Depth-first search from every source in sorted order, keeping the
//	current path on an explicit stack. Reaching a node already on the
//	stack closes a cycle, reported as the path slice from that node to
//	the top of the stack. A node is reported as a cycle start only the
//	first time it closes a path.
//
// Outputs:
//
//	[][]string - Cycles without the repeated start node, e.g. [A B C]
//	             for A -> B -> C -> A. Nil when the kind is acyclic.
func (g *Graph) FindCycles(kind Kind) [][]string {
	bySource := g.oneToMany[kind]
	if len(bySource) == 0 {
		return nil
	}

	states := make(map[string]visitState)
	onPath := make(map[string]int)
	reported := make(map[string]bool)
	var path []string
	var cycles [][]string

	var visit func(node string)
	visit = func(node string) {
		states[node] = stateVisiting
		onPath[node] = len(path)
		path = append(path, node)

		for _, e := range bySource[node] {
			switch states[e.Target] {
			case stateVisiting:
				if !reported[e.Target] {
					reported[e.Target] = true
					start := onPath[e.Target]
					cycles = append(cycles, append([]string(nil), path[start:]...))
				}
			case stateDone:
			default:
				visit(e.Target)
			}
		}

		path = path[:len(path)-1]
		delete(onPath, node)
		states[node] = stateDone
	}

	for _, src := range g.Sources(kind) {
		if states[src] == 0 {
			visit(src)
		}
	}
	return cycles
}
