package outline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docstruct/internal/parser"
)

// Attempt describes one step of a selection run. Result is nil when the
// method is about to start.
type Attempt struct {
	Index  int // 0-based position in the priority order
	Total  int
	Method Method
	Result *ExtractionResult
}

// Observer receives selection progress.
type Observer func(Attempt)

// Selector runs extraction methods in a fixed priority order and returns
// the first result that succeeded with at least one entry.
type Selector struct {
	extractors []Extractor
	stats      *MethodStats
	log        *slog.Logger
}

// NewSelector creates a selector over extractors in priority order. stats
// may be nil.
func NewSelector(log *slog.Logger, stats *MethodStats, extractors ...Extractor) *Selector {
	return &Selector{extractors: extractors, stats: stats, log: log}
}

// DefaultExtractors returns the standard priority order: embedded bookmarks,
// then the raw outline walk, then structure inference.
func DefaultExtractors(inferMaxPages int, opts parser.Options) []Extractor {
	return []Extractor{
		NewBookmarkExtractor(),
		NewOutlineExtractor(),
		NewInferenceExtractor(inferMaxPages, opts),
	}
}

// Methods lists the configured methods in priority order.
func (s *Selector) Methods() []Method {
	out := make([]Method, len(s.extractors))
	for i, ex := range s.extractors {
		out[i] = ex.Method()
	}
	return out
}

// Select runs the waterfall. Methods after the first success are not
// invoked. When every method fails or returns nothing, the result has
// Method MethodNone and Error NoOutlineError; the per-method errors are in
// Metadata["attempts"]. observe may be nil.
func (s *Selector) Select(ctx context.Context, doc *Document, observe Observer) ExtractionResult {
	var attempts []map[string]any

	for i, ex := range s.extractors {
		m := ex.Method()
		if observe != nil {
			observe(Attempt{Index: i, Total: len(s.extractors), Method: m})
		}

		start := time.Now()
		res := runExtractor(ctx, ex, doc)
		elapsed := time.Since(start)
		accepted := res.Success && res.TotalEntries > 0

		if s.stats != nil {
			s.stats.Record(m, elapsed.Milliseconds(), accepted)
		}
		s.log.Debug("outline method finished",
			"doc_id", doc.ID,
			"method", m,
			"success", res.Success,
			"entries", res.TotalEntries,
			"duration_ms", elapsed.Milliseconds(),
			"error", res.Error,
		)
		if observe != nil {
			r := res
			observe(Attempt{Index: i, Total: len(s.extractors), Method: m, Result: &r})
		}

		if accepted {
			return res
		}
		attempts = append(attempts, map[string]any{
			"method":  m,
			"success": res.Success,
			"entries": res.TotalEntries,
			"error":   res.Error,
		})
	}

	res := ExtractionResult{
		Method:  MethodNone,
		Success: false,
		Entries: []Entry{},
		Error:   NoOutlineError,
	}
	if len(attempts) > 0 {
		res.Metadata = map[string]any{"attempts": attempts}
	}
	return res
}

// runExtractor isolates the selector from a misbehaving method.
func runExtractor(ctx context.Context, ex Extractor, doc *Document) (res ExtractionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = failed(ex.Method(), "method panicked: %v", rec)
		}
	}()
	res = ex.Extract(ctx, doc)
	if res.Method == "" {
		res.Method = ex.Method()
	}
	if res.Entries == nil {
		res.Entries = []Entry{}
	}
	return res
}

// String renders a one-line summary for logs.
func (r ExtractionResult) String() string {
	if !r.Success {
		return fmt.Sprintf("%s: failed: %s", r.Method, r.Error)
	}
	return fmt.Sprintf("%s: %d entries, depth %d", r.Method, r.TotalEntries, r.MaxDepth)
}
