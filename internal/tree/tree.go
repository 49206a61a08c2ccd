// Package tree synthesizes outline entries into a validated category tree.
//
// Nodes live in a flat arena and refer to each other by id; nested views are
// derived by Export.
package tree

import (
	"sort"
)

// Source records where a category came from.
type Source string

const (
	SourceDocumentTOC Source = "document_toc"
	SourceManual      Source = "manual"
)

// DefaultMaxDepth is the depth ceiling used when none is configured.
const DefaultMaxDepth = 10

// Node is one category. Depth 0 is top-level. PageStart and PageEnd are nil
// when the section has no resolvable page.
type Node struct {
	ID        int64          `json:"id"`
	ProjectID string         `json:"project_id"`
	DocID     string         `json:"doc_id"`
	ParentID  *int64         `json:"parent_id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Depth     int            `json:"depth"`
	Position  int            `json:"position"`
	PageStart *int           `json:"page_start"`
	PageEnd   *int           `json:"page_end"`
	Source    Source         `json:"source"`
	Metadata  map[string]any `json:"metadata"`
}

// Pageless reports whether neither bound resolved.
func (n *Node) Pageless() bool {
	return n.PageStart == nil && n.PageEnd == nil
}

// Contains reports whether page lies in the node's range. Each nil bound is
// open in its own direction; a pageless node contains nothing.
func (n *Node) Contains(page int) bool {
	if n.Pageless() {
		return false
	}
	if n.PageStart != nil && page < *n.PageStart {
		return false
	}
	return n.PageEnd == nil || page <= *n.PageEnd
}

// Stats are the build counters reported to callers.
type Stats struct {
	TotalCreated int `json:"total_created"`
	MaxDepth     int `json:"max_depth"`
	SkippedDepth int `json:"skipped_depth"`
}

// Tree is an arena of nodes plus a parent/child index.
type Tree struct {
	Nodes []Node
	Stats Stats

	index    map[int64]int
	children map[int64][]int64
	roots    []int64
}

// FromNodes indexes nodes loaded from storage. Siblings are ordered by
// Position, then ID. Nodes whose parent is missing are treated as roots.
func FromNodes(nodes []Node) *Tree {
	t := &Tree{Nodes: nodes}
	t.reindex()
	for _, n := range nodes {
		if n.Depth > t.Stats.MaxDepth {
			t.Stats.MaxDepth = n.Depth
		}
	}
	t.Stats.TotalCreated = len(nodes)
	return t
}

func (t *Tree) reindex() {
	t.index = make(map[int64]int, len(t.Nodes))
	t.children = make(map[int64][]int64)
	t.roots = nil
	for i, n := range t.Nodes {
		t.index[n.ID] = i
	}
	for _, n := range t.Nodes {
		if n.ParentID != nil {
			if _, ok := t.index[*n.ParentID]; ok {
				t.children[*n.ParentID] = append(t.children[*n.ParentID], n.ID)
				continue
			}
		}
		t.roots = append(t.roots, n.ID)
	}
	byPosition := func(ids []int64) {
		sort.SliceStable(ids, func(i, j int) bool {
			a, b := t.Nodes[t.index[ids[i]]], t.Nodes[t.index[ids[j]]]
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			return a.ID < b.ID
		})
	}
	byPosition(t.roots)
	for _, ids := range t.children {
		byPosition(ids)
	}
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Node returns the node with id, or nil.
func (t *Tree) Node(id int64) *Node {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return &t.Nodes[i]
}

// Roots returns top-level node ids in order.
func (t *Tree) Roots() []int64 {
	return t.roots
}

// Children returns the ids of id's children in order.
func (t *Tree) Children(id int64) []int64 {
	return t.children[id]
}

// Renumber replaces node ids using ids (old -> new), typically after the
// nodes were persisted. Parent links follow.
func (t *Tree) Renumber(ids map[int64]int64) {
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if id, ok := ids[n.ID]; ok {
			n.ID = id
		}
		if n.ParentID != nil {
			if id, ok := ids[*n.ParentID]; ok {
				n.ParentID = &id
			}
		}
	}
	t.reindex()
}
