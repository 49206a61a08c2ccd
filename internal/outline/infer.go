package outline

import (
	"bytes"
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/dgallion1/docstruct/internal/doctree"
	"github.com/dgallion1/docstruct/internal/parser"
)

const (
	headingSizeRatio  = 1.15 // heading font size relative to body text
	minHeadingRunes   = 2
	maxHeadingRunes   = 120
	maxHeadingWords   = 15
	sizeMergeTolerant = 0.5 // points; sizes closer than this share a level
	maxInferredLevels = 6
	markupConfidence  = 0.9
)

// InferenceExtractor recovers structure from the document body: font-size
// heuristics for PDFs and heading markup for Markdown, HTML and DOCX.
// Formats without any structural signal fail.
type InferenceExtractor struct {
	// MaxPages caps how many PDF pages are scanned. 0 means no cap.
	MaxPages      int
	ParserOptions parser.Options
}

// NewInferenceExtractor returns the structure-inference method.
func NewInferenceExtractor(maxPages int, opts parser.Options) *InferenceExtractor {
	return &InferenceExtractor{MaxPages: maxPages, ParserOptions: opts}
}

func (e *InferenceExtractor) Method() Method { return MethodInferred }

func (e *InferenceExtractor) Extract(ctx context.Context, doc *Document) (res ExtractionResult) {
	defer recoverResult(MethodInferred, &res)

	switch {
	case doc.IsPDF():
		return e.inferPDF(ctx, doc)
	case parser.HasHeadingMarkup(doc.Filename):
		return e.inferMarkup(doc)
	default:
		return failed(MethodInferred, "no structural signal in %s documents", parser.Ext(doc.Filename))
	}
}

func (e *InferenceExtractor) inferMarkup(doc *Document) ExtractionResult {
	p, err := parser.ForFile(doc.Filename, e.ParserOptions)
	if err != nil {
		return failed(MethodInferred, "%v", err)
	}
	tree, err := p.Parse(bytes.NewReader(doc.Data), doc.Filename)
	if err != nil {
		return failed(MethodInferred, "parse: %v", err)
	}

	entries := headingEntries(tree.Children, 0)
	if len(entries) == 0 {
		return failed(MethodInferred, "no headings found")
	}
	return succeeded(MethodInferred, entries, tree.Pages, map[string]any{
		"page_count": tree.Pages,
		"source":     "markup",
		"confidence": markupConfidence,
	})
}

// headingEntries converts heading nodes to nested entries. Non-heading nodes
// (preamble text) are skipped and their heading descendants lifted.
func headingEntries(nodes []*doctree.DocNode, level int) []Entry {
	var out []Entry
	for _, n := range nodes {
		if !n.Heading {
			out = append(out, headingEntries(n.Children, level)...)
			continue
		}
		e := Entry{Title: n.Title, Level: level}
		if n.Page > 0 {
			e.Page = IntPtr(n.Page)
		}
		e.Children = headingEntries(n.Children, level+1)
		out = append(out, e)
	}
	return out
}

// textLine is a run of text sharing a baseline.
type textLine struct {
	page  int
	text  string
	size  float64
	runes int
}

func (e *InferenceExtractor) inferPDF(ctx context.Context, doc *Document) ExtractionResult {
	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return failed(MethodInferred, "open pdf: %v", err)
	}

	total := r.NumPage()
	scan := total
	if e.MaxPages > 0 && scan > e.MaxPages {
		scan = e.MaxPages
	}

	var lines []textLine
	for i := 1; i <= scan; i++ {
		if ctx.Err() != nil {
			return failed(MethodInferred, "cancelled: %v", context.Cause(ctx))
		}
		lines = append(lines, pageLines(r.Page(i), i)...)
	}

	body := bodyFontSize(lines)
	if body == 0 {
		return failed(MethodInferred, "no text layer")
	}

	candidates := headingCandidates(lines, body)
	candidates = dropRunningHeads(candidates, scan)
	if len(candidates) == 0 {
		return failed(MethodInferred, "no headings found")
	}

	levels := headingLevels(candidates)
	entries := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, Entry{
			Title: c.text,
			Level: levelFor(levels, c.size),
			Page:  IntPtr(c.page),
		})
	}

	return succeeded(MethodInferred, entries, total, map[string]any{
		"page_count":     total,
		"pages_scanned":  scan,
		"source":         "font_size",
		"body_font_size": body,
		"heading_levels": len(levels),
		"confidence":     inferConfidence(len(levels), len(entries), scan),
	})
}

// pageLines groups a page's text runs into lines. A malformed content stream
// yields no lines rather than failing the whole document.
func pageLines(p pdf.Page, num int) (lines []textLine) {
	defer func() {
		if recover() != nil {
			lines = nil
		}
	}()
	if p.V.IsNull() {
		return nil
	}

	var (
		cur     strings.Builder
		curY    float64
		curSize float64
		endX    float64
		open    bool
	)
	flush := func() {
		if !open {
			return
		}
		text := strings.Join(strings.Fields(cur.String()), " ")
		if text != "" {
			lines = append(lines, textLine{page: num, text: text, size: curSize, runes: utf8.RuneCountInString(text)})
		}
		cur.Reset()
		curSize = 0
		open = false
	}

	for _, t := range p.Content().Text {
		if open && math.Abs(t.Y-curY) > 2 {
			flush()
		}
		if !open {
			curY = t.Y
			open = true
		} else if t.X-endX > 0.25*t.FontSize {
			cur.WriteByte(' ')
		}
		cur.WriteString(t.S)
		endX = t.X + t.W
		if strings.TrimSpace(t.S) != "" && t.FontSize > curSize {
			curSize = t.FontSize
		}
	}
	flush()
	return lines
}

// bodyFontSize is the character-weighted most common font size, rounded to
// half points. Ties go to the smaller size.
func bodyFontSize(lines []textLine) float64 {
	weight := make(map[float64]int)
	for _, l := range lines {
		if l.size <= 0 {
			continue
		}
		weight[math.Round(l.size*2)/2] += l.runes
	}
	var best float64
	bestW := 0
	for size, w := range weight {
		if w > bestW || (w == bestW && size < best) {
			best, bestW = size, w
		}
	}
	return best
}

func headingCandidates(lines []textLine, body float64) []textLine {
	var out []textLine
	for _, l := range lines {
		if l.size < body*headingSizeRatio {
			continue
		}
		if l.runes < minHeadingRunes || l.runes > maxHeadingRunes {
			continue
		}
		if len(strings.Fields(l.text)) > maxHeadingWords {
			continue
		}
		if !strings.ContainsFunc(l.text, unicode.IsLetter) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// dropRunningHeads removes lines that repeat on more than half of the
// scanned pages (page headers and footers set in a large font).
func dropRunningHeads(lines []textLine, pages int) []textLine {
	if pages < 4 {
		return lines
	}
	seen := make(map[string]map[int]bool)
	for _, l := range lines {
		k := strings.ToLower(l.text)
		if seen[k] == nil {
			seen[k] = make(map[int]bool)
		}
		seen[k][l.page] = true
	}
	out := lines[:0:0]
	for _, l := range lines {
		if len(seen[strings.ToLower(l.text)])*2 > pages {
			continue
		}
		out = append(out, l)
	}
	return out
}

// headingLevels returns the distinct heading sizes, largest first, with
// near-equal sizes merged.
func headingLevels(lines []textLine) []float64 {
	sizes := make([]float64, 0, len(lines))
	for _, l := range lines {
		sizes = append(sizes, l.size)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))

	var levels []float64
	for _, s := range sizes {
		if len(levels) > 0 && levels[len(levels)-1]-s < sizeMergeTolerant {
			continue
		}
		levels = append(levels, s)
	}
	return levels
}

func levelFor(levels []float64, size float64) int {
	lvl := 0
	for i, s := range levels {
		if size >= s-sizeMergeTolerant {
			lvl = i
			break
		}
		lvl = i
	}
	if lvl >= maxInferredLevels {
		lvl = maxInferredLevels - 1
	}
	return lvl
}

func inferConfidence(levels, entries, pages int) float64 {
	c := 0.9
	if levels > 3 {
		c -= 0.1
	}
	if pages > 0 && entries > pages*8 {
		c -= 0.15
	}
	if entries < 2 {
		c -= 0.1
	}
	return math.Max(0.5, math.Min(0.9, c))
}
