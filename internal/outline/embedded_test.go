package outline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docstruct/internal/parser"
)

func outlinedPDF() []byte {
	pages := []string{
		textLineOp(11, 700, "page one"),
		textLineOp(11, 700, "page two"),
		textLineOp(11, 700, "page three"),
	}
	// Objects: 1 catalog, 2 pages, 3 font, 4-6 pages, 7-9 contents,
	// 10 outline root, 11-14 outline items.
	return pagedPDF(pages,
		"/Outlines 10 0 R /Dests << /ch2 [6 0 R /Fit] >>",
		"<< /Type /Outlines /First 11 0 R /Last 13 0 R /Count 4 >>",
		"<< /Title (Chapter 1) /Parent 10 0 R /Next 13 0 R /First 12 0 R /Last 12 0 R /Dest [4 0 R /Fit] >>",
		"<< /Title (Section 1.1) /Parent 11 0 R /A << /S /GoTo /D [5 0 R /XYZ 0 792 0] >> >>",
		"<< /Title (Chapter 2) /Parent 10 0 R /Prev 11 0 R /First 14 0 R /Last 14 0 R /Dest /ch2 >>",
		"<< /Title (Loose    end) /Parent 13 0 R >>",
	)
}

// containerPDF has a "Part I" bookmark with no destination of its own
// holding two chapters, followed by an appendix.
func containerPDF() []byte {
	pages := []string{
		textLineOp(11, 700, "first"),
		textLineOp(11, 700, "second"),
		textLineOp(11, 700, "third"),
	}
	return pagedPDF(pages,
		"/Outlines 10 0 R",
		"<< /Type /Outlines /First 11 0 R /Last 14 0 R /Count 4 >>",
		"<< /Title (Part I) /Parent 10 0 R /Next 14 0 R /First 12 0 R /Last 13 0 R /Count 2 >>",
		"<< /Title (Chapter 1) /Parent 11 0 R /Next 13 0 R /Dest [4 0 R /Fit] >>",
		"<< /Title (Chapter 2) /Parent 11 0 R /Prev 12 0 R /Dest [5 0 R /Fit] >>",
		"<< /Title (Appendix) /Parent 10 0 R /Prev 11 0 R /Dest [6 0 R /Fit] >>",
	)
}

type flatEntry struct {
	title string
	level int
	page  int
}

func flatten(entries []Entry) []flatEntry {
	var out []flatEntry
	var walk func([]Entry)
	walk = func(es []Entry) {
		for _, e := range es {
			fe := flatEntry{title: e.Title, level: e.Level}
			if e.Page != nil {
				fe.page = *e.Page
			}
			out = append(out, fe)
			walk(e.Children)
		}
	}
	walk(entries)
	return out
}

func TestBookmarkExtractor_ResolvesDestinations(t *testing.T) {
	doc := &Document{ID: "d1", Filename: "book.pdf", Data: outlinedPDF()}

	res := NewBookmarkExtractor().Extract(context.Background(), doc)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, MethodBookmarks, res.Method)
	assert.Equal(t, 3, res.Metadata["page_count"])
	assert.Equal(t, []flatEntry{
		{"Chapter 1", 0, 1},
		{"Section 1.1", 1, 2},
		{"Chapter 2", 0, 3},
		{"Loose end", 1, 3},
	}, flatten(res.Entries))
}

func TestBookmarkExtractor_KeepsItemsWithoutDestination(t *testing.T) {
	doc := &Document{Filename: "parts.pdf", Data: containerPDF()}

	res := NewBookmarkExtractor().Extract(context.Background(), doc)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 4, res.TotalEntries)
	assert.Equal(t, []flatEntry{
		{"Part I", 0, 1},
		{"Chapter 1", 1, 1},
		{"Chapter 2", 1, 2},
		{"Appendix", 0, 3},
	}, flatten(res.Entries))
}

func TestBookmarkExtractor_NoOutlineIsEmptySuccess(t *testing.T) {
	doc := &Document{Filename: "plain.pdf", Data: pagedPDF([]string{textLineOp(11, 700, "only")}, "")}

	res := NewBookmarkExtractor().Extract(context.Background(), doc)

	assert.True(t, res.Success, res.Error)
	assert.Equal(t, 0, res.TotalEntries)
}

func TestDefaultExtractors_BookmarksWinWhenBothReadersSucceed(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	sel := NewSelector(quiet, nil, DefaultExtractors(500, parser.Options{})...)

	for name, data := range map[string][]byte{
		"outlined":   outlinedPDF(),
		"containers": containerPDF(),
	} {
		t.Run(name, func(t *testing.T) {
			doc := &Document{Filename: name + ".pdf", Data: data}

			embedded := NewOutlineExtractor().Extract(context.Background(), doc)
			require.True(t, embedded.Success, embedded.Error)
			require.Equal(t, 4, embedded.TotalEntries)

			res := sel.Select(context.Background(), doc, nil)

			assert.Equal(t, MethodBookmarks, res.Method)
			assert.Equal(t, 4, res.TotalEntries)
			assert.Equal(t, flatten(embedded.Entries), flatten(res.Entries))
		})
	}
}

func TestOutlineExtractor_ResolvesDestinations(t *testing.T) {
	doc := &Document{ID: "d1", Filename: "book.pdf", Data: outlinedPDF()}

	res := NewOutlineExtractor().Extract(context.Background(), doc)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, MethodOutline, res.Method)
	assert.Equal(t, 4, res.TotalEntries)
	assert.Equal(t, 1, res.MaxDepth)
	assert.Equal(t, 3, res.Metadata["page_count"])
	assert.Equal(t, false, res.Metadata["encrypted"])

	require.Len(t, res.Entries, 2)
	ch1, ch2 := res.Entries[0], res.Entries[1]

	assert.Equal(t, "Chapter 1", ch1.Title)
	require.NotNil(t, ch1.Page)
	assert.Equal(t, 1, *ch1.Page)

	require.Len(t, ch1.Children, 1)
	assert.Equal(t, "Section 1.1", ch1.Children[0].Title)
	assert.Equal(t, 1, ch1.Children[0].Level)
	require.NotNil(t, ch1.Children[0].Page)
	assert.Equal(t, 2, *ch1.Children[0].Page, "GoTo action")

	assert.Equal(t, "Chapter 2", ch2.Title)
	require.NotNil(t, ch2.Page)
	assert.Equal(t, 3, *ch2.Page, "named destination")

	require.Len(t, ch2.Children, 1)
	assert.Equal(t, "Loose end", ch2.Children[0].Title)
	require.NotNil(t, ch2.Children[0].Page)
	assert.Equal(t, 3, *ch2.Children[0].Page, "inherits enclosing page")
}

func TestOutlineExtractor_NoOutlineIsEmptySuccess(t *testing.T) {
	doc := &Document{Filename: "plain.pdf", Data: pagedPDF([]string{textLineOp(11, 700, "only")}, "")}

	res := NewOutlineExtractor().Extract(context.Background(), doc)

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.TotalEntries)
	assert.Empty(t, res.Entries)
}

func TestEmbeddedMethods_RejectNonPDF(t *testing.T) {
	doc := &Document{Filename: "notes.md", Data: []byte("# Title\n")}

	for _, ex := range []Extractor{NewBookmarkExtractor(), NewOutlineExtractor()} {
		res := ex.Extract(context.Background(), doc)
		assert.False(t, res.Success, ex.Method())
		assert.Contains(t, res.Error, "unsupported format")
		assert.NotNil(t, res.Entries)
	}
}

func TestEmbeddedMethods_MalformedPDF(t *testing.T) {
	doc := &Document{Filename: "broken.pdf", Data: []byte("%PDF-1.4\nthis is not a pdf body")}

	for _, ex := range []Extractor{NewBookmarkExtractor(), NewOutlineExtractor()} {
		res := ex.Extract(context.Background(), doc)
		assert.False(t, res.Success, ex.Method())
		assert.NotEmpty(t, res.Error)
	}
}
