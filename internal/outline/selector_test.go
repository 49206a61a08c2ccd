package outline_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dgallion1/docstruct/internal/outline"
	"github.com/dgallion1/docstruct/internal/outline/mocks"
	"github.com/dgallion1/docstruct/internal/parser"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func parserOptions() parser.Options { return parser.Options{} }

func mockMethod(ctrl *gomock.Controller, m outline.Method) *mocks.MockExtractor {
	ex := mocks.NewMockExtractor(ctrl)
	ex.EXPECT().Method().Return(m).AnyTimes()
	return ex
}

func okResult(m outline.Method, n int) outline.ExtractionResult {
	entries := make([]outline.Entry, n)
	for i := range entries {
		entries[i] = outline.Entry{Title: "E", Page: outline.IntPtr(i + 1)}
	}
	return outline.ExtractionResult{Method: m, Success: true, Entries: entries, TotalEntries: n}
}

func TestSelect_FirstMethodWinsAndShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mockMethod(ctrl, outline.MethodBookmarks)
	b := mockMethod(ctrl, outline.MethodOutline)
	c := mockMethod(ctrl, outline.MethodInferred)

	a.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(okResult(outline.MethodBookmarks, 3))
	b.EXPECT().Extract(gomock.Any(), gomock.Any()).Times(0)
	c.EXPECT().Extract(gomock.Any(), gomock.Any()).Times(0)

	sel := outline.NewSelector(discard, nil, a, b, c)
	res := sel.Select(context.Background(), &outline.Document{Filename: "x.pdf"}, nil)

	assert.Equal(t, outline.MethodBookmarks, res.Method)
	assert.Equal(t, 3, res.TotalEntries)
}

func TestSelect_FallsThroughEmptyAndFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mockMethod(ctrl, outline.MethodBookmarks)
	b := mockMethod(ctrl, outline.MethodOutline)
	c := mockMethod(ctrl, outline.MethodInferred)

	gomock.InOrder(
		a.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(outline.ExtractionResult{
			Method: outline.MethodBookmarks, Success: false, Error: "no bookmarks",
		}),
		// success with zero entries does not count
		b.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(outline.ExtractionResult{
			Method: outline.MethodOutline, Success: true, Entries: []outline.Entry{},
		}),
		c.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(okResult(outline.MethodInferred, 12)),
	)

	sel := outline.NewSelector(discard, nil, a, b, c)
	res := sel.Select(context.Background(), &outline.Document{Filename: "x.pdf"}, nil)

	assert.Equal(t, outline.MethodInferred, res.Method)
	assert.Equal(t, 12, res.TotalEntries)
}

func TestSelect_NothingFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	var exs []outline.Extractor
	for _, m := range []outline.Method{outline.MethodBookmarks, outline.MethodOutline, outline.MethodInferred} {
		ex := mockMethod(ctrl, m)
		ex.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(outline.ExtractionResult{Method: m, Error: "nope"})
		exs = append(exs, ex)
	}

	sel := outline.NewSelector(discard, nil, exs...)
	res := sel.Select(context.Background(), &outline.Document{Filename: "scan.pdf"}, nil)

	assert.Equal(t, outline.MethodNone, res.Method)
	assert.False(t, res.Success)
	assert.Equal(t, outline.NoOutlineError, res.Error)
	assert.NotNil(t, res.Entries)
	assert.Len(t, res.Metadata["attempts"], 3)
}

func TestSelect_PanickingMethodIsIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mockMethod(ctrl, outline.MethodBookmarks)
	b := mockMethod(ctrl, outline.MethodOutline)

	a.EXPECT().Extract(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *outline.Document) outline.ExtractionResult {
			panic("corrupt xref")
		})
	b.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(okResult(outline.MethodOutline, 1))

	sel := outline.NewSelector(discard, nil, a, b)
	res := sel.Select(context.Background(), &outline.Document{Filename: "x.pdf"}, nil)

	assert.Equal(t, outline.MethodOutline, res.Method)
}

func TestSelect_ObserverAndStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mockMethod(ctrl, outline.MethodBookmarks)
	b := mockMethod(ctrl, outline.MethodOutline)

	a.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(outline.ExtractionResult{Method: outline.MethodBookmarks})
	b.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(okResult(outline.MethodOutline, 2))

	stats := outline.NewMethodStats(time.Hour)
	sel := outline.NewSelector(discard, stats, a, b)

	var seen []outline.Attempt
	sel.Select(context.Background(), &outline.Document{Filename: "x.pdf"}, func(at outline.Attempt) {
		seen = append(seen, at)
	})

	require.Len(t, seen, 4)
	assert.Nil(t, seen[0].Result)
	assert.Equal(t, outline.MethodBookmarks, seen[1].Method)
	require.NotNil(t, seen[1].Result)
	assert.False(t, seen[1].Result.Success)
	assert.Equal(t, 1, seen[3].Index)
	assert.Equal(t, 2, seen[3].Total)

	snap := stats.Snapshot()
	assert.Equal(t, 0, snap[outline.MethodBookmarks].Successes)
	assert.Equal(t, 1, snap[outline.MethodOutline].Successes)
}

func TestSelect_DefaultOrder(t *testing.T) {
	sel := outline.NewSelector(discard, nil, outline.DefaultExtractors(10, parserOptions())...)
	assert.Equal(t, []outline.Method{
		outline.MethodBookmarks,
		outline.MethodOutline,
		outline.MethodInferred,
	}, sel.Methods())
}

func TestSelect_MarkdownFallsBackToInference(t *testing.T) {
	sel := outline.NewSelector(discard, nil, outline.DefaultExtractors(10, parserOptions())...)
	doc := &outline.Document{Filename: "readme.md", Data: []byte("# Install\n\nsteps\n\n# Usage\n\nrun it\n")}

	res := sel.Select(context.Background(), doc, nil)

	assert.Equal(t, outline.MethodInferred, res.Method)
	assert.Equal(t, 2, res.TotalEntries)
}
