package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docstruct/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser turns h1-h6 into nested sections. Block text goes to the open
// section and tables are rendered as pipe tables.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(strings.TrimSuffix(filename, ".html"), ".htm"),
	}
	if title := find(doc, atom.Title); title != nil {
		if t := nodeText(title); t != "" {
			tree.Title = t
		}
	}

	root := find(doc, atom.Body)
	if root == nil {
		root = doc
	}
	b := newSectionBuilder()
	walkHTML(root, b)
	b.finish(tree)
	return tree, nil
}

func walkHTML(n *html.Node, b *sectionBuilder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			b.heading(int(c.Data[1]-'0'), nodeText(c))
		case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Nav, atom.Header, atom.Footer, atom.Aside:
		case atom.Table:
			b.addText(pipeTable(tableRows(c)))
		case atom.P, atom.Li, atom.Blockquote, atom.Pre, atom.Dt, atom.Dd, atom.Figcaption:
			b.addText(nodeText(c))
		default:
			walkHTML(c, b)
		}
	}
}

// tableRows collects th/td text per tr, skipping nested tables.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type != html.ElementNode || c.DataAtom == atom.Table:
			case c.DataAtom == atom.Tr:
				var cells []string
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.DataAtom == atom.Td || td.DataAtom == atom.Th {
						cells = append(cells, nodeText(td))
					}
				}
				if len(cells) > 0 {
					rows = append(rows, cells)
				}
			default:
				visit(c)
			}
		}
	}
	visit(table)
	return rows
}

// nodeText is the whitespace-collapsed text under n.
func nodeText(n *html.Node) string {
	var parts []string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			parts = append(parts, n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(strings.Join(parts, "")), " ")
}

// find returns the first element with the given atom in document order.
func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, a); f != nil {
			return f
		}
	}
	return nil
}
