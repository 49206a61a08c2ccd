// Package outline discovers a document's table of contents. Several
// independent extraction methods produce normalized, leveled entries and a
// Selector picks one of them with a fixed-priority waterfall.
package outline

import (
	"context"
	"fmt"

	"github.com/dgallion1/docstruct/internal/parser"
)

// Method identifies an extraction method.
type Method string

const (
	// MethodBookmarks reads the embedded bookmark tree with pdfcpu.
	MethodBookmarks Method = "bookmarks"
	// MethodOutline walks the raw /Outlines dictionary with ledongthuc/pdf.
	MethodOutline Method = "outline"
	// MethodInferred infers headings from layout or heading markup.
	MethodInferred Method = "inferred"
	// MethodNone marks the terminal "nothing found" result.
	MethodNone Method = "none"
)

// NoOutlineError is the error carried by the terminal result when no method
// produced entries.
const NoOutlineError = "no structural outline found"

// Entry is one outline record before it becomes a tree node. Level 0 is the
// top. Flat lists leave Children empty; nested lists make Children
// authoritative and keep Level in agreement with the nesting.
type Entry struct {
	Title    string  `json:"title"`
	Level    int     `json:"level"`
	Page     *int    `json:"page,omitempty"`
	Children []Entry `json:"children,omitempty"`
}

// ExtractionResult is produced once per method invocation and never mutated
// afterwards.
type ExtractionResult struct {
	Method       Method         `json:"method"`
	Success      bool           `json:"success"`
	Entries      []Entry        `json:"entries"`
	TotalEntries int            `json:"total_entries"`
	MaxDepth     int            `json:"max_depth"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Confidence returns the method's self-reported confidence, or 0 when absent.
func (r ExtractionResult) Confidence() float64 {
	if v, ok := r.Metadata["confidence"].(float64); ok {
		return v
	}
	return 0
}

// Document is the handle every method reads from.
type Document struct {
	ID        string
	Filename  string
	Data      []byte
	PageCount int // 0 when unknown
}

// IsPDF reports whether the document is a PDF.
func (d *Document) IsPDF() bool {
	return parser.IsPDF(d.Filename)
}

//go:generate mockgen -source=outline.go -destination=mocks/mock_extractor.go -package=mocks

// Extractor is one extraction method. Extract never panics and never
// returns an error: failures are reported through Success and Error.
type Extractor interface {
	Method() Method
	Extract(ctx context.Context, doc *Document) ExtractionResult
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

func failed(m Method, format string, args ...any) ExtractionResult {
	return ExtractionResult{
		Method:  m,
		Success: false,
		Entries: []Entry{},
		Error:   fmt.Sprintf(format, args...),
	}
}

// recoverResult converts a panic inside a method into a failed result.
// Use as: defer recoverResult(m, &res).
func recoverResult(m Method, res *ExtractionResult) {
	if rec := recover(); rec != nil {
		*res = failed(m, "malformed document: %v", rec)
	}
}
