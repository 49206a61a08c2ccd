package tree

import (
	"github.com/dgallion1/docstruct/internal/outline"
)

// Options controls a build.
type Options struct {
	// MaxDepth is the deepest allowed depth (0 = top level). Values <= 0
	// mean DefaultMaxDepth.
	MaxDepth int
	// LastPage bounds the final root's range. 0 leaves it open.
	LastPage  int
	ProjectID string
	DocID     string
	Source    Source
}

// item is an entry with its nesting resolved.
type item struct {
	entry    outline.Entry
	children []*item
}

// Build turns entries into a tree. Flat input (no entry has children) is
// nested by level; nested input is taken as is. Node ids are assigned 1..n
// in document order.
//
// An entry deeper than MaxDepth is skipped and counted. Its children are
// re-attached to the nearest ancestor that can take a child within the
// limit, which is the skipped entry's grandparent (or the root level). When
// a promoted child has children of its own, those are one level too deep
// again, so under a tight limit deep chains alternate between kept and
// skipped levels.
func Build(entries []outline.Entry, opts Options) *Tree {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Source == "" {
		opts.Source = SourceDocumentTOC
	}

	b := &builder{
		opts:     opts,
		tree:     &Tree{},
		siblings: make(map[int64]*siblingNames),
		position: make(map[int64]int),
	}
	for _, it := range nest(entries) {
		b.place(it, 0)
	}
	b.tree.reindex()
	b.assignRanges()
	b.tree.Stats.TotalCreated = len(b.tree.Nodes)
	return b.tree
}

// nest converts entries to items. Flat lists use a stack of open ancestors
// keyed by level; an entry with no shallower predecessor becomes a root.
func nest(entries []outline.Entry) []*item {
	nested := false
	for _, e := range entries {
		if len(e.Children) > 0 {
			nested = true
			break
		}
	}
	if nested {
		return fromNested(entries)
	}

	var (
		roots []*item
		stack []*item
	)
	for _, e := range entries {
		it := &item{entry: e}
		for len(stack) > 0 && stack[len(stack)-1].entry.Level >= e.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, it)
		} else {
			top := stack[len(stack)-1]
			top.children = append(top.children, it)
		}
		stack = append(stack, it)
	}
	return roots
}

func fromNested(entries []outline.Entry) []*item {
	out := make([]*item, 0, len(entries))
	for _, e := range entries {
		out = append(out, &item{entry: e, children: fromNested(e.Children)})
	}
	return out
}

type builder struct {
	opts     Options
	tree     *Tree
	siblings map[int64]*siblingNames // keyed by parent id, 0 for roots
	position map[int64]int
}

// place creates it under parent (0 = root level), or skips it when that
// would exceed the depth limit.
func (b *builder) place(it *item, parent int64) {
	depth := 0
	if parent != 0 {
		depth = b.node(parent).Depth + 1
	}

	if depth > b.opts.MaxDepth {
		b.tree.Stats.SkippedDepth++
		target := b.ancestorWithRoom(parent)
		for _, c := range it.children {
			b.place(c, target)
		}
		return
	}

	id := b.create(it.entry, parent, depth)
	for _, c := range it.children {
		b.place(c, id)
	}
}

// ancestorWithRoom walks up from id to the first node whose children stay
// within the limit. 0 means the root level.
func (b *builder) ancestorWithRoom(id int64) int64 {
	for id != 0 && b.node(id).Depth+1 > b.opts.MaxDepth {
		p := b.node(id).ParentID
		if p == nil {
			return 0
		}
		id = *p
	}
	return id
}

// node resolves an id during a build, where ids are 1-based arena positions.
func (b *builder) node(id int64) *Node {
	return &b.tree.Nodes[id-1]
}

func (b *builder) create(e outline.Entry, parent int64, depth int) int64 {
	var parentID *int64
	if parent != 0 {
		pid := parent
		parentID = &pid
	}

	names, ok := b.siblings[parent]
	if !ok {
		names = newSiblingNames()
		b.siblings[parent] = names
	}
	name, slug := names.claim(e.Title)

	meta := map[string]any{}
	if name != e.Title {
		meta["source_title"] = e.Title
	}

	id := int64(len(b.tree.Nodes) + 1)
	node := Node{
		ID:        id,
		ProjectID: b.opts.ProjectID,
		DocID:     b.opts.DocID,
		ParentID:  parentID,
		Name:      name,
		Slug:      slug,
		Depth:     depth,
		Position:  b.position[parent],
		Source:    b.opts.Source,
		Metadata:  meta,
	}
	if e.Page != nil {
		node.PageStart = outline.IntPtr(*e.Page)
	}
	b.position[parent]++

	b.tree.Nodes = append(b.tree.Nodes, node)
	if depth > b.tree.Stats.MaxDepth {
		b.tree.Stats.MaxDepth = depth
	}
	return id
}

// assignRanges sets PageEnd top-down: the next paged sibling's start minus
// one, else the parent's end, else the document's last page for roots.
func (b *builder) assignRanges() {
	var last *int
	if b.opts.LastPage > 0 {
		last = outline.IntPtr(b.opts.LastPage)
	}
	b.rangeSiblings(b.tree.roots, last)
}

func (b *builder) rangeSiblings(ids []int64, parentEnd *int) {
	for i, id := range ids {
		n := b.tree.Node(id)
		if n.PageStart != nil {
			end := parentEnd
			for _, next := range ids[i+1:] {
				if s := b.tree.Node(next).PageStart; s != nil {
					end = outline.IntPtr(*s - 1)
					break
				}
			}
			if end != nil && *end < *n.PageStart {
				end = outline.IntPtr(*n.PageStart)
			}
			if end != nil {
				n.PageEnd = outline.IntPtr(*end)
			}
		}
		// Pageless nodes pass the parent's end through to their children.
		childEnd := n.PageEnd
		if n.PageStart == nil {
			childEnd = parentEnd
		}
		b.rangeSiblings(b.tree.Children(id), childEnd)
	}
}
