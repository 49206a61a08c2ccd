package parser

import (
	"strings"

	"github.com/dgallion1/docstruct/internal/doctree"
)

// sectionBuilder nests heading-delimited sections by level and assigns each
// section a logical page so non-paginated formats stay page-addressable.
type sectionBuilder struct {
	root  *doctree.DocNode
	stack []sectionEntry
	text  strings.Builder
	pages doctree.PageCounter
}

type sectionEntry struct {
	node  *doctree.DocNode
	level int
}

func newSectionBuilder() *sectionBuilder {
	root := &doctree.DocNode{}
	return &sectionBuilder{
		root:  root,
		stack: []sectionEntry{{node: root, level: 0}},
	}
}

// heading opens a new section at level (1 = top). Blank titles are ignored.
func (b *sectionBuilder) heading(level int, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	b.flush()

	node := &doctree.DocNode{Title: title, Heading: true, Page: b.pages.Next()}

	// Pop stack until we find a parent with lower level.
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, sectionEntry{node: node, level: level})
}

// addText buffers body text for the currently open section.
func (b *sectionBuilder) addText(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *sectionBuilder) flush() {
	t := strings.TrimSpace(b.text.String())
	b.text.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top == b.root && b.root.Page == 0 {
		b.root.Page = b.pages.Next()
	}
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// finish moves the built sections into tree. Text before the first heading
// becomes an untitled leading section.
func (b *sectionBuilder) finish(tree *doctree.DocTree) {
	b.flush()
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &doctree.DocNode{Text: b.root.Text, Page: b.root.Page})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	tree.Pages = b.pages.Count()
}
