package tree

// ExportNode is the serialized form of a node with its subtree.
type ExportNode struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Depth     int            `json:"depth"`
	ParentID  *int64         `json:"parent_id"`
	PageStart *int           `json:"page_start"`
	PageEnd   *int           `json:"page_end"`
	Source    Source         `json:"source"`
	Metadata  map[string]any `json:"metadata"`
	Children  []ExportNode   `json:"children"`
}

// Export returns the nested view of the tree. Root nodes have a nil
// ParentID and every Children slice is non-nil.
func (t *Tree) Export() []ExportNode {
	return t.exportIDs(t.roots)
}

// ExportSubtree returns the nested view rooted at id, or false if id is not
// in the tree.
func (t *Tree) ExportSubtree(id int64) (ExportNode, bool) {
	if t.Node(id) == nil {
		return ExportNode{}, false
	}
	return t.exportIDs([]int64{id})[0], true
}

func (t *Tree) exportIDs(ids []int64) []ExportNode {
	out := make([]ExportNode, 0, len(ids))
	for _, id := range ids {
		n := t.Node(id)
		meta := n.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		out = append(out, ExportNode{
			ID:        n.ID,
			Name:      n.Name,
			Slug:      n.Slug,
			Depth:     n.Depth,
			ParentID:  n.ParentID,
			PageStart: n.PageStart,
			PageEnd:   n.PageEnd,
			Source:    n.Source,
			Metadata:  meta,
			Children:  t.exportIDs(t.children[id]),
		})
	}
	return out
}

// Walk visits nodes depth-first in sibling order.
func (t *Tree) Walk(fn func(n *Node)) {
	var walk func(ids []int64)
	walk = func(ids []int64) {
		for _, id := range ids {
			fn(t.Node(id))
			walk(t.children[id])
		}
	}
	walk(t.roots)
}
