package outline

import (
	"strings"
	"unicode"
)

// succeeded normalizes entries and wraps them in a successful result.
func succeeded(m Method, entries []Entry, pageCount int, meta map[string]any) ExtractionResult {
	entries = Normalize(entries, pageCount)
	total, depth := measure(entries)
	return ExtractionResult{
		Method:       m,
		Success:      true,
		Entries:      entries,
		TotalEntries: total,
		MaxDepth:     depth,
		Metadata:     meta,
	}
}

// Normalize cleans titles, drops untitled entries (promoting their
// children), clamps levels to >= 0 and re-bases them so the shallowest
// becomes 0, and clamps pages into [1, pageCount]. Nested input has its
// levels recomputed from the nesting, so children promoted out of a dropped
// entry take its place. pageCount <= 0 disables the upper clamp.
func Normalize(entries []Entry, pageCount int) []Entry {
	nested := isNested(entries)
	entries = dropUntitled(entries, pageCount)
	if len(entries) == 0 {
		return []Entry{}
	}

	if nested {
		relevel(entries, 0)
		return entries
	}

	minLevel := -1
	for i := range entries {
		if entries[i].Level < 0 {
			entries[i].Level = 0
		}
		if minLevel < 0 || entries[i].Level < minLevel {
			minLevel = entries[i].Level
		}
	}
	for i := range entries {
		entries[i].Level -= minLevel
	}
	return entries
}

func dropUntitled(entries []Entry, pageCount int) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Title = cleanTitle(e.Title)
		e.Page = clampPage(e.Page, pageCount)
		e.Children = dropUntitled(e.Children, pageCount)
		if e.Title == "" {
			out = append(out, e.Children...)
			continue
		}
		out = append(out, e)
	}
	return out
}

func cleanTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func clampPage(p *int, pageCount int) *int {
	if p == nil || *p < 1 {
		return nil
	}
	if pageCount > 0 && *p > pageCount {
		return IntPtr(pageCount)
	}
	return IntPtr(*p)
}

func isNested(entries []Entry) bool {
	for _, e := range entries {
		if len(e.Children) > 0 {
			return true
		}
	}
	return false
}

func relevel(entries []Entry, level int) {
	for i := range entries {
		entries[i].Level = level
		relevel(entries[i].Children, level+1)
	}
}

// measure returns the total entry count (nested included) and the deepest
// level.
func measure(entries []Entry) (total, maxDepth int) {
	var walk func([]Entry)
	walk = func(es []Entry) {
		for _, e := range es {
			total++
			if e.Level > maxDepth {
				maxDepth = e.Level
			}
			walk(e.Children)
		}
	}
	walk(entries)
	return total, maxDepth
}

// fillEnclosingPages gives entries without a resolvable page the page of
// their nearest enclosing entry (the closest preceding entry at a lower
// level), falling back to the previous entry's page. A container that is
// still pageless after that takes its first child's page. Works for both
// flat and nested lists since levels agree with nesting.
func fillEnclosingPages(entries []Entry) {
	type open struct {
		level int
		page  *int
	}
	var stack []open
	var prev *int

	var walk func([]Entry)
	walk = func(es []Entry) {
		for i := range es {
			e := &es[i]
			for len(stack) > 0 && stack[len(stack)-1].level >= e.Level {
				stack = stack[:len(stack)-1]
			}
			if e.Page == nil {
				for j := len(stack) - 1; j >= 0; j-- {
					if stack[j].page != nil {
						e.Page = IntPtr(*stack[j].page)
						break
					}
				}
				if e.Page == nil && prev != nil {
					e.Page = IntPtr(*prev)
				}
			}
			if e.Page != nil {
				prev = e.Page
			}
			stack = append(stack, open{level: e.Level, page: e.Page})
			walk(e.Children)
			if e.Page == nil && len(e.Children) > 0 && e.Children[0].Page != nil {
				e.Page = IntPtr(*e.Children[0].Page)
			}
		}
	}
	walk(entries)
}
