package doctree

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Pages    int        // Physical pages for PDFs, logical pages otherwise
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Heading  bool       // Title comes from heading markup rather than a synthetic label
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // 1-based page; logical section ordinal for non-paginated formats, 0 if N/A
	Children []*DocNode // Subsections
}

// Chunk is a sized text segment with structural context.
type Chunk struct {
	Text       string   // Chunk text content
	Index      int      // Sequence number within document
	Breadcrumb []string // Heading hierarchy, e.g. ["Financial Results", "Revenue", "Q4"]
	PageStart  int
	PageEnd    int
}

// Walk visits every node depth-first in document order. depth is 0 for
// top-level sections.
func (t *DocTree) Walk(fn func(n *DocNode, depth int)) {
	var walk func(nodes []*DocNode, depth int)
	walk = func(nodes []*DocNode, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(t.Children, 0)
}

// PageCounter hands out sequential logical page numbers.
type PageCounter struct {
	n int
}

// Next returns the next logical page number, starting at 1.
func (c *PageCounter) Next() int {
	c.n++
	return c.n
}

// Count returns how many pages were handed out.
func (c *PageCounter) Count() int {
	return c.n
}
