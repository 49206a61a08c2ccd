package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docstruct/internal/doctree"
)

// TextParser handles plain text. Form feeds split pages, as in text exported
// from paginated sources; otherwise the whole file is one page. Each
// paragraph becomes an untitled node on its page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	tree := &doctree.DocTree{Title: strings.TrimSuffix(filename, ".txt")}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return tree, nil
	}

	pages := strings.Split(strings.TrimSuffix(text, "\f"), "\f")
	for i, page := range pages {
		for _, para := range textParagraphs(page) {
			tree.Children = append(tree.Children, &doctree.DocNode{Text: para, Page: i + 1})
		}
	}
	tree.Pages = len(pages)
	return tree, nil
}

// textParagraphs splits on blank or whitespace-only lines.
func textParagraphs(s string) []string {
	var out []string
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(lines) > 0 {
				out = append(out, strings.Join(lines, "\n"))
				lines = lines[:0]
			}
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
	}
	if len(lines) > 0 {
		out = append(out, strings.Join(lines, "\n"))
	}
	return out
}
