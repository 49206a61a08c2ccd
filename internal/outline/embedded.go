package outline

import (
	"bytes"
	"context"

	"github.com/ledongthuc/pdf"
)

const (
	// maxOutlineItems bounds the walk so a First/Next cycle cannot spin.
	maxOutlineItems = 10000
	// maxOutlineNesting bounds recursion into First chains.
	maxOutlineNesting = 64
	// maxDestHops bounds named-destination indirection.
	maxDestHops = 4
)

// OutlineExtractor walks the document catalog's /Outlines dictionary
// directly and resolves each item's destination (explicit, named, or via a
// GoTo action) to a page number.
type OutlineExtractor struct{}

// NewOutlineExtractor returns the raw-outline method.
func NewOutlineExtractor() *OutlineExtractor {
	return &OutlineExtractor{}
}

func (e *OutlineExtractor) Method() Method { return MethodOutline }

func (e *OutlineExtractor) Extract(_ context.Context, doc *Document) (res ExtractionResult) {
	defer recoverResult(MethodOutline, &res)

	if !doc.IsPDF() {
		return failed(MethodOutline, "unsupported format: outline requires a PDF")
	}

	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return failed(MethodOutline, "open pdf: %v", err)
	}

	trailer := r.Trailer()
	pageCount := r.NumPage()
	meta := map[string]any{
		"page_count": pageCount,
		"encrypted":  !trailer.Key("Encrypt").IsNull(),
	}

	root := trailer.Key("Root")
	first := root.Key("Outlines").Key("First")
	if first.IsNull() {
		// A PDF without an outline is a valid, empty answer.
		return succeeded(MethodOutline, nil, pageCount, meta)
	}

	w := &outlineWalker{
		root:   root,
		pages:  indexPages(r),
		count:  pageCount,
		budget: maxOutlineItems,
	}
	entries := w.walk(first, 0)
	fillEnclosingPages(entries)

	return succeeded(MethodOutline, entries, pageCount, meta)
}

// indexPages maps each page object's serialized form to its 1-based page
// number. ledongthuc/pdf does not expose object ids, so page identity is
// established by content. When two pages serialize identically the first
// one wins.
func indexPages(r *pdf.Reader) map[string]int {
	idx := make(map[string]int, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		key := r.Page(i).V.String()
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

type outlineWalker struct {
	root   pdf.Value
	pages  map[string]int
	count  int
	budget int
}

func (w *outlineWalker) walk(item pdf.Value, level int) []Entry {
	var out []Entry
	for !item.IsNull() && w.budget > 0 {
		w.budget--
		e := Entry{Title: item.Key("Title").Text(), Level: level}
		if p, ok := w.target(item); ok {
			e.Page = IntPtr(p)
		}
		if level < maxOutlineNesting {
			e.Children = w.walk(item.Key("First"), level+1)
		}
		out = append(out, e)
		item = item.Key("Next")
	}
	return out
}

func (w *outlineWalker) target(item pdf.Value) (int, bool) {
	dest := item.Key("Dest")
	if dest.IsNull() {
		if a := item.Key("A"); a.Key("S").Name() == "GoTo" {
			dest = a.Key("D")
		}
	}
	return w.resolve(dest, 0)
}

func (w *outlineWalker) resolve(dest pdf.Value, hops int) (int, bool) {
	if hops > maxDestHops {
		return 0, false
	}
	switch dest.Kind() {
	case pdf.Array:
		if dest.Len() == 0 {
			return 0, false
		}
		target := dest.Index(0)
		switch target.Kind() {
		case pdf.Integer:
			// Remote-style destination: zero-based page index.
			n := int(target.Int64()) + 1
			if n >= 1 && n <= w.count {
				return n, true
			}
		case pdf.Dict:
			if n, ok := w.pages[target.String()]; ok {
				return n, true
			}
		}
		return 0, false
	case pdf.Dict:
		return w.resolve(dest.Key("D"), hops+1)
	case pdf.Name:
		return w.resolve(w.root.Key("Dests").Key(dest.Name()), hops+1)
	case pdf.String:
		found := lookupName(w.root.Key("Names").Key("Dests"), dest.RawString(), 0)
		return w.resolve(found, hops+1)
	}
	return 0, false
}

// lookupName searches a PDF name tree for key.
func lookupName(node pdf.Value, key string, depth int) pdf.Value {
	if node.IsNull() || depth > 32 {
		return pdf.Value{}
	}
	if names := node.Key("Names"); names.Kind() == pdf.Array {
		for i := 0; i+1 < names.Len(); i += 2 {
			if names.Index(i).RawString() == key {
				return names.Index(i + 1)
			}
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		kid := kids.Index(i)
		if lim := kid.Key("Limits"); lim.Len() == 2 {
			if key < lim.Index(0).RawString() || key > lim.Index(1).RawString() {
				continue
			}
		}
		if v := lookupName(kid, key, depth+1); !v.IsNull() {
			return v
		}
	}
	return pdf.Value{}
}
