package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_FlatRebasesLevels(t *testing.T) {
	entries := []Entry{
		{Title: "  Intro\n ", Level: 2, Page: IntPtr(1)},
		{Title: "Detail", Level: 3, Page: IntPtr(2)},
		{Title: "Next", Level: 2, Page: IntPtr(3)},
	}

	got := Normalize(entries, 10)

	require.Len(t, got, 3)
	assert.Equal(t, "Intro", got[0].Title)
	assert.Equal(t, []int{0, 1, 0}, []int{got[0].Level, got[1].Level, got[2].Level})
}

func TestNormalize_NegativeLevelsClamp(t *testing.T) {
	got := Normalize([]Entry{{Title: "A", Level: -3}, {Title: "B", Level: 1}}, 0)
	assert.Equal(t, 0, got[0].Level)
	assert.Equal(t, 1, got[1].Level)
}

func TestNormalize_DropsUntitledAndPromotesChildren(t *testing.T) {
	entries := []Entry{
		{Title: "   ", Children: []Entry{
			{Title: "Orphan", Level: 5},
		}},
		{Title: "Kept", Children: []Entry{
			{Title: "\t"},
			{Title: "Child"},
		}},
	}

	got := Normalize(entries, 0)

	require.Len(t, got, 2)
	assert.Equal(t, "Orphan", got[0].Title)
	assert.Equal(t, 0, got[0].Level)
	require.Len(t, got[1].Children, 1)
	assert.Equal(t, "Child", got[1].Children[0].Title)
	assert.Equal(t, 1, got[1].Children[0].Level)
}

func TestNormalize_ClampsPages(t *testing.T) {
	entries := []Entry{
		{Title: "zero", Page: IntPtr(0)},
		{Title: "negative", Page: IntPtr(-4)},
		{Title: "past end", Page: IntPtr(99)},
		{Title: "ok", Page: IntPtr(5)},
	}

	got := Normalize(entries, 10)

	assert.Nil(t, got[0].Page)
	assert.Nil(t, got[1].Page)
	require.NotNil(t, got[2].Page)
	assert.Equal(t, 10, *got[2].Page)
	assert.Equal(t, 5, *got[3].Page)
}

func TestNormalize_EmptyInput(t *testing.T) {
	got := Normalize(nil, 3)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSucceeded_CountsNestedEntries(t *testing.T) {
	res := succeeded(MethodBookmarks, []Entry{
		{Title: "A", Children: []Entry{
			{Title: "A.1", Children: []Entry{{Title: "A.1.a"}}},
		}},
		{Title: "B"},
	}, 0, nil)

	assert.True(t, res.Success)
	assert.Equal(t, 4, res.TotalEntries)
	assert.Equal(t, 2, res.MaxDepth)
}

func TestFillEnclosingPages(t *testing.T) {
	entries := []Entry{
		{Title: "Ch1", Level: 0, Page: IntPtr(3), Children: []Entry{
			{Title: "missing", Level: 1},
			{Title: "S2", Level: 1, Page: IntPtr(5)},
		}},
		{Title: "Ch2", Level: 0},
	}

	fillEnclosingPages(entries)

	require.NotNil(t, entries[0].Children[0].Page)
	assert.Equal(t, 3, *entries[0].Children[0].Page, "inherits parent page")
	require.NotNil(t, entries[1].Page)
	assert.Equal(t, 5, *entries[1].Page, "root without parent takes the previous page")
}

func TestNormalize_PromotedChildrenStaySiblings(t *testing.T) {
	entries := []Entry{
		{Title: "A", Level: 0},
		{Title: "", Level: 0, Children: []Entry{
			{Title: "B", Level: 1},
		}},
	}

	got := Normalize(entries, 0)

	require.Len(t, got, 2)
	assert.Equal(t, "B", got[1].Title)
	assert.Equal(t, 0, got[1].Level, "B replaces its untitled parent at the root")
	assert.Empty(t, got[0].Children)
}

func TestNormalize_PromotedSubtreeIsRebased(t *testing.T) {
	entries := []Entry{
		{Title: "A", Children: []Entry{
			{Title: "", Children: []Entry{
				{Title: "B", Children: []Entry{{Title: "B.1"}}},
			}},
		}},
	}

	got := Normalize(entries, 0)

	require.Len(t, got, 1)
	require.Len(t, got[0].Children, 1)
	b := got[0].Children[0]
	assert.Equal(t, 1, b.Level)
	require.Len(t, b.Children, 1)
	assert.Equal(t, 2, b.Children[0].Level)
}

func TestFillEnclosingPages_ContainerTakesFirstChildPage(t *testing.T) {
	entries := []Entry{
		{Title: "Part I", Level: 0, Children: []Entry{
			{Title: "Chapter 1", Level: 1, Page: IntPtr(2)},
			{Title: "Chapter 2", Level: 1, Page: IntPtr(4)},
		}},
		{Title: "Appendix", Level: 0, Page: IntPtr(6)},
	}

	fillEnclosingPages(entries)

	require.NotNil(t, entries[0].Page)
	assert.Equal(t, 2, *entries[0].Page)
	assert.Equal(t, 4, *entries[0].Children[1].Page)
}
