package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docstruct/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options tunes format-specific behavior.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	switch Ext(filename) {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", Ext(filename))
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[Ext(filename)]
}

// HasHeadingMarkup reports whether the format carries explicit heading
// markup the parser turns into sections.
func HasHeadingMarkup(filename string) bool {
	switch Ext(filename) {
	case ".md", ".markdown", ".html", ".htm", ".docx":
		return true
	}
	return false
}

// IsPDF reports whether filename names a PDF.
func IsPDF(filename string) bool {
	return Ext(filename) == ".pdf"
}

// Ext returns the lower-cased extension of filename.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
