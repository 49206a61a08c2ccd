// Package content produces the page-addressable units (text chunks, tables
// and formulas) that category nodes are bound to.
package content

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/docstruct/internal/chunker"
	"github.com/dgallion1/docstruct/internal/doctree"
	"github.com/dgallion1/docstruct/internal/parser"
)

// Kind is the unit type.
type Kind string

const (
	KindChunk   Kind = "chunk"
	KindTable   Kind = "table"
	KindFormula Kind = "formula"
)

// Unit is one extracted fragment. Index is the ordinal among units of the
// same kind in the document. CategoryID is nil until bound.
type Unit struct {
	ID         int64    `json:"id"`
	DocID      string   `json:"doc_id"`
	Kind       Kind     `json:"kind"`
	Index      int      `json:"index"`
	PageNumber int      `json:"page_number"`
	Text       string   `json:"text"`
	Breadcrumb []string `json:"breadcrumb,omitempty"`
	CategoryID *int64   `json:"category_id"`
}

// Options tunes extraction.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Parser       parser.Options
}

// Result is the output of one extraction run.
type Result struct {
	Units []Unit
	Pages int
}

// Counts returns how many units of each kind r holds.
func (r *Result) Counts() map[Kind]int {
	out := map[Kind]int{KindChunk: 0, KindTable: 0, KindFormula: 0}
	for _, u := range r.Units {
		out[u.Kind]++
	}
	return out
}

// Extract parses data and splits it into units. CSV batches become tables;
// other formats yield text chunks plus any pipe tables and formula lines
// found in section text.
func Extract(ctx context.Context, docID, filename string, data []byte, opts Options) (*Result, error) {
	p, err := parser.ForFile(filename, opts.Parser)
	if err != nil {
		return nil, err
	}
	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Pages: tree.Pages}
	next := map[Kind]int{}
	add := func(k Kind, page int, text string, bc []string) {
		res.Units = append(res.Units, Unit{
			DocID:      docID,
			Kind:       k,
			Index:      next[k],
			PageNumber: page,
			Text:       text,
			Breadcrumb: bc,
		})
		next[k]++
	}

	if parser.Ext(filename) == ".csv" {
		for _, n := range tree.Children {
			add(KindTable, n.Page, n.Text, nil)
		}
		return res, nil
	}

	chunks := chunker.ChunkTree(tree, chunker.Config{
		ChunkSize:    opts.ChunkSize,
		ChunkOverlap: opts.ChunkOverlap,
		MinChunk:     1,
	})
	for _, c := range chunks {
		add(KindChunk, c.PageStart, c.Text, c.Breadcrumb)
	}

	tree.Walk(func(n *doctree.DocNode, _ int) {
		if n.Text == "" {
			return
		}
		for _, tbl := range pipeTables(n.Text) {
			add(KindTable, n.Page, tbl, nil)
		}
		for _, line := range strings.Split(n.Text, "\n") {
			if line = strings.TrimSpace(line); IsFormula(line) {
				add(KindFormula, n.Page, line, nil)
			}
		}
	})

	return res, nil
}

// pipeTables returns runs of two or more consecutive lines that start and
// end with '|'.
func pipeTables(text string) []string {
	var (
		out []string
		run []string
	)
	flush := func() {
		if len(run) >= 2 {
			out = append(out, strings.Join(run, "\n"))
		}
		run = nil
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 2 && strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			run = append(run, line)
			continue
		}
		flush()
	}
	flush()
	return out
}
