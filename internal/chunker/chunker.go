package chunker

import (
	"strings"

	"github.com/dgallion1/docstruct/internal/doctree"
)

// Config controls chunking behavior. Sizes are in estimated tokens.
type Config struct {
	ChunkSize    int // target chunk size
	ChunkOverlap int // carried over from the end of the previous chunk
	MinChunk     int // smaller chunks are dropped
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = d.ChunkOverlap
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 4
	}
	if c.MinChunk <= 0 {
		c.MinChunk = d.MinChunk
	}
	return c
}

// ChunkTree splits the text of every section into chunks. A chunk never
// spans two sections, so each one belongs to exactly one page. Breadcrumbs
// hold heading titles only; synthetic labels such as "Page 3" are left out.
func ChunkTree(tree *doctree.DocTree, cfg Config) []doctree.Chunk {
	s := &splitter{cfg: cfg.withDefaults()}

	var trail []string
	tree.Walk(func(n *doctree.DocNode, depth int) {
		trail = trail[:min(depth, len(trail))]
		label := ""
		if n.Heading {
			label = n.Title
		}
		trail = append(trail, label)

		if n.Text != "" {
			s.section(n.Text, n.Page, breadcrumb(trail))
		}
	})
	return s.out
}

func breadcrumb(trail []string) []string {
	var bc []string
	for _, t := range trail {
		if t != "" {
			bc = append(bc, t)
		}
	}
	return bc
}

type splitter struct {
	cfg Config
	out []doctree.Chunk
}

func (s *splitter) section(text string, page int, bc []string) {
	for _, piece := range s.pieces(text) {
		if EstimateTokens(piece) < s.cfg.MinChunk {
			continue
		}
		s.out = append(s.out, doctree.Chunk{
			Text:       piece,
			Index:      len(s.out),
			Breadcrumb: bc,
			PageStart:  page,
			PageEnd:    page,
		})
	}
}

// segment is a packable run of text and the separator placed before it.
type segment struct {
	text string
	sep  string
}

// pieces splits text on paragraph boundaries, falling back to sentence
// boundaries inside paragraphs that alone exceed the target size.
func (s *splitter) pieces(text string) []string {
	if EstimateTokens(text) <= s.cfg.ChunkSize {
		return []string{strings.TrimSpace(text)}
	}

	var segs []segment
	for _, para := range paragraphs(text) {
		if EstimateTokens(para) <= s.cfg.ChunkSize {
			segs = append(segs, segment{text: para, sep: "\n\n"})
			continue
		}
		for i, sent := range sentences(para) {
			sep := " "
			if i == 0 {
				sep = "\n\n"
			}
			segs = append(segs, segment{text: sent, sep: sep})
		}
	}
	return pack(segs, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
}

// pack fills chunks greedily up to size. Each new chunk starts with the
// last overlap tokens of the previous one.
func pack(segs []segment, size, overlap int) []string {
	var out []string
	var buf strings.Builder
	tokens := 0

	for _, sg := range segs {
		t := EstimateTokens(sg.text)
		if tokens > 0 && tokens+t > size {
			chunk := buf.String()
			out = append(out, chunk)
			buf.Reset()
			tokens = 0
			if tail := tailWords(chunk, overlap); tail != "" {
				buf.WriteString(tail)
				tokens = EstimateTokens(tail)
			}
		}
		if buf.Len() > 0 {
			buf.WriteString(sg.sep)
		}
		buf.WriteString(sg.text)
		tokens += t
	}
	if tokens > 0 {
		out = append(out, buf.String())
	}
	return out
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences splits after words ending in '.', '!' or '?'.
func sentences(text string) []string {
	var out []string
	var words []string
	for _, w := range strings.Fields(text) {
		words = append(words, w)
		if strings.ContainsAny(w[len(w)-1:], ".!?") {
			out = append(out, strings.Join(words, " "))
			words = words[:0]
		}
	}
	if len(words) > 0 {
		out = append(out, strings.Join(words, " "))
	}
	return out
}
