package parser

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/dgallion1/docstruct/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser produces one untitled node per non-blank physical page. When
// the pure-Go reader fails and FallbackPdftotext is set, poppler's
// pdftotext is tried.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := pdfPageTexts(data)
	if err != nil && p.FallbackPdftotext {
		if alt, altErr := pdftotextPages(data); altErr == nil {
			pages, err = alt, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".pdf"),
		Pages: len(pages),
	}
	for i, text := range pages {
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Page %d", i+1),
			Text:  text,
			Page:  i + 1,
		})
	}
	return tree, nil
}

// pdfPageTexts returns the plain text of every page; unreadable pages are
// empty strings so numbering stays physical.
func pdfPageTexts(data []byte) (pages []string, err error) {
	// The reader panics on malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := reader.NumPage()
	pages = make([]string, n)
	for i := range n {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		if text, err := page.GetPlainText(nil); err == nil {
			pages[i] = text
		}
	}
	return pages, nil
}

// pdftotextPages runs pdftotext over stdin. It separates pages with form
// feeds.
func pdftotextPages(data []byte) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(strings.TrimSuffix(string(out), "\f"), "\f"), nil
}
