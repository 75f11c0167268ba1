package org

import "sort"

// DefaultMaxDepth bounds traversal so malformed (cyclic) data cannot run away.
const DefaultMaxDepth = 3

// Edge links a node to its parent. Roots have an empty ParentID.
type Edge struct {
	ID       string
	ParentID string
}

// Forest is an adjacency list over department or reporting edges.
type Forest struct {
	children map[string][]string
	parent   map[string]string
}

func NewForest(edges []Edge) *Forest {
	f := &Forest{
		children: make(map[string][]string, len(edges)),
		parent:   make(map[string]string, len(edges)),
	}
	for _, edge := range edges {
		if edge.ID == "" {
			continue
		}
		f.parent[edge.ID] = edge.ParentID
		if edge.ParentID != "" {
			f.children[edge.ParentID] = append(f.children[edge.ParentID], edge.ID)
		}
	}
	for id := range f.children {
		sort.Strings(f.children[id])
	}
	return f
}

// IsAncestor reports whether ancestor is reached from node by following parent
// links. The walk is not depth-capped and stops on a repeated node.
func (f *Forest) IsAncestor(ancestor, node string) bool {
	seen := map[string]struct{}{}
	for current := f.parent[node]; current != ""; current = f.parent[current] {
		if current == ancestor {
			return true
		}
		if _, ok := seen[current]; ok {
			return false
		}
		seen[current] = struct{}{}
	}
	return false
}

// Descendants walks breadth-first from root for at most maxDepth levels.
// The root itself is never part of the result, even when a cycle leads back to it.
func (f *Forest) Descendants(root string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	var out []string
	seen := map[string]struct{}{root: {}}
	frontier := []string{root}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			for _, child := range f.children[node] {
				if _, ok := seen[child]; ok {
					continue
				}
				seen[child] = struct{}{}
				out = append(out, child)
				next = append(next, child)
			}
		}
		frontier = next
	}
	return out
}

// Ancestors walks parent links for at most maxDepth steps.
func (f *Forest) Ancestors(node string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	var out []string
	current := node
	for depth := 0; depth < maxDepth; depth++ {
		parent := f.parent[current]
		if parent == "" || parent == node {
			break
		}
		out = append(out, parent)
		current = parent
	}
	return out
}
