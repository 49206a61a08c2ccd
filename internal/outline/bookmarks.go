package outline

import (
	"bytes"
	"context"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func init() {
	// Keep pdfcpu from creating a config directory under $HOME.
	api.DisableConfigDir()
}

// BookmarkExtractor reads the bookmark tree from pdfcpu's validated context.
// Every outline item is kept: items without a resolvable destination take
// the page of their nearest enclosing bookmark, or of their first child when
// they are containers.
type BookmarkExtractor struct{}

// NewBookmarkExtractor returns the pdfcpu-backed bookmark method.
func NewBookmarkExtractor() *BookmarkExtractor {
	return &BookmarkExtractor{}
}

func (e *BookmarkExtractor) Method() Method { return MethodBookmarks }

func (e *BookmarkExtractor) Extract(_ context.Context, doc *Document) (res ExtractionResult) {
	defer recoverResult(MethodBookmarks, &res)

	if !doc.IsPDF() {
		return failed(MethodBookmarks, "unsupported format: bookmarks require a PDF")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.Cmd = model.LISTBOOKMARKS

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc.Data), conf)
	if err != nil {
		return failed(MethodBookmarks, "open pdf: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return failed(MethodBookmarks, "count pages: %v", err)
	}
	pageCount := ctx.PageCount
	meta := map[string]any{
		"page_count": pageCount,
		"library":    "pdfcpu",
	}

	outlines, err := outlinesDict(ctx)
	if err != nil {
		return failed(MethodBookmarks, "read outlines: %v", err)
	}
	if outlines == nil {
		return succeeded(MethodBookmarks, nil, pageCount, meta)
	}
	// Named destinations live in the Dests name tree; a missing tree is fine.
	_ = ctx.LocateNameTree("Dests", false)

	w := &bookmarkWalker{ctx: ctx, pageCount: pageCount, budget: maxOutlineItems}
	entries, err := w.walk(outlines.IndirectRefEntry("First"), 0)
	if err != nil {
		return failed(MethodBookmarks, "read bookmarks: %v", err)
	}
	fillEnclosingPages(entries)

	return succeeded(MethodBookmarks, entries, pageCount, meta)
}

func outlinesDict(ctx *model.Context) (types.Dict, error) {
	if ctx.Outlines != nil {
		return ctx.Outlines, nil
	}
	cat, err := ctx.Catalog()
	if err != nil {
		return nil, err
	}
	o, ok := cat.Find("Outlines")
	if !ok || o == nil {
		return nil, nil
	}
	return ctx.DereferenceDict(o)
}

type bookmarkWalker struct {
	ctx       *model.Context
	pageCount int
	budget    int
}

// walk follows a First/Next chain. A broken item reference ends the chain
// with an error; a broken destination only loses that item's page.
func (w *bookmarkWalker) walk(first *types.IndirectRef, level int) ([]Entry, error) {
	var out []Entry
	for ir := first; ir != nil && w.budget > 0; {
		w.budget--
		d, err := w.ctx.DereferenceDict(*ir)
		if err != nil {
			return nil, err
		}
		if d == nil {
			break
		}
		e := Entry{Title: w.title(d), Level: level, Page: w.page(d)}
		if level < maxOutlineNesting {
			kids, err := w.walk(d.IndirectRefEntry("First"), level+1)
			if err != nil {
				return nil, err
			}
			e.Children = kids
		}
		out = append(out, e)
		ir = d.IndirectRefEntry("Next")
	}
	return out, nil
}

func (w *bookmarkWalker) title(d types.Dict) string {
	obj, err := w.ctx.Dereference(d["Title"])
	if err != nil || obj == nil {
		return ""
	}
	s, err := model.Text(obj)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// page resolves the item's /Dest or GoTo action. Any failure yields nil.
func (w *bookmarkWalker) page(d types.Dict) (p *int) {
	defer func() {
		if recover() != nil {
			p = nil
		}
	}()

	dest, ok := d["Dest"]
	if !ok {
		act, err := w.ctx.DereferenceDict(d["A"])
		if err != nil || act == nil || act.NameEntry("S") == nil || *act.NameEntry("S") != "GoTo" {
			return nil
		}
		dest = act["D"]
	}
	obj, err := w.ctx.Dereference(dest)
	if err != nil || obj == nil {
		return nil
	}
	if arr, ok := obj.(types.Array); ok {
		if len(arr) == 0 {
			return nil
		}
		// Integer targets are zero-based page indexes.
		if i, ok := arr[0].(types.Integer); ok {
			return w.valid(i.Value() + 1)
		}
	}
	if dd, ok := obj.(types.Dict); ok {
		// A destination dictionary wraps the array under /D.
		if obj, err = w.ctx.Dereference(dd["D"]); err != nil || obj == nil {
			return nil
		}
	}
	n, err := pdfcpu.PageNrFromDestination(w.ctx, obj)
	if err != nil {
		return nil
	}
	return w.valid(n)
}

func (w *bookmarkWalker) valid(n int) *int {
	if n < 1 || (w.pageCount > 0 && n > w.pageCount) {
		return nil
	}
	return IntPtr(n)
}
