package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/docstruct/internal/content"
	"github.com/dgallion1/docstruct/internal/outline"
	"github.com/dgallion1/docstruct/internal/parser"
	"github.com/dgallion1/docstruct/internal/store"
	"github.com/dgallion1/docstruct/internal/tree"
)

// NoOutlineMessage is the user-facing message of a build that found no
// structure.
const NoOutlineMessage = "no outline found: define the structure manually"

// Worker runs queued jobs one stage at a time.
type Worker struct {
	o   *Orchestrator
	log *slog.Logger
}

func NewWorker(o *Orchestrator, log *slog.Logger) *Worker {
	return &Worker{o: o, log: log}
}

// Process runs job to completion. Stages run detached from the job's
// cancellation; a cancel request takes effect at the next stage boundary.
func (w *Worker) Process(job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "kind", job.Kind)

	unlock := w.o.lockDocument(job.DocID)
	defer unlock()
	if job.Kind == KindTree {
		defer w.o.releaseTree(job)
	}

	start := time.Now()
	ctx := context.WithoutCancel(job.Context())
	switch job.Kind {
	case KindTree:
		w.processTree(ctx, job, log)
	case KindContent:
		w.processContent(ctx, job, log)
	default:
		job.finish(StatusFailed, Result{Outcome: OutcomeFailed}, fmt.Sprintf("unknown job kind %q", job.Kind))
	}

	snap := job.Snapshot()
	attrs := []any{"status", snap.Status, "duration_ms", time.Since(start).Milliseconds()}
	if snap.Result != nil {
		attrs = append(attrs, "outcome", snap.Result.Outcome)
	}
	log.Info("job finished", attrs...)
}

func (w *Worker) processTree(ctx context.Context, job *Job, log *slog.Logger) {
	res := Result{Warnings: []string{}}

	if w.stopped(job, &res, log) {
		return
	}
	job.Report(Event{Progress: 5, Step: "load", Message: "loading document"})
	doc, err := w.o.store.GetDocument(ctx, job.DocID)
	if err != nil {
		w.fail(job, res, log, "load", err)
		return
	}

	if w.stopped(job, &res, log) {
		return
	}
	sel := w.o.selector.Select(ctx, &outline.Document{
		ID:        doc.ID,
		Filename:  doc.Filename,
		Data:      doc.Data,
		PageCount: doc.PageCount,
	}, func(a outline.Attempt) {
		current, total := a.Index+1, a.Total
		if a.Result == nil {
			job.Report(Event{
				Progress: 10 + a.Index*15,
				Step:     "extract",
				Message:  fmt.Sprintf("trying %s", a.Method),
				Current:  &current,
				Total:    &total,
			})
			return
		}
		if !a.Result.Success || a.Result.TotalEntries == 0 {
			log.Warn("outline method produced nothing", "method", a.Method, "error", a.Result.Error)
		}
		job.Report(Event{
			Progress: 10 + a.Index*15 + 10,
			Step:     "extract",
			Message:  fmt.Sprintf("%s: %s", a.Method, a.Result),
			Current:  &current,
			Total:    &total,
		})
	})

	if sel.Method == outline.MethodNone {
		res.Outcome = OutcomeNoOutline
		res.Method = outline.MethodNone
		res.Message = NoOutlineMessage
		job.finish(StatusCompleted, res, "")
		return
	}
	res.Method = sel.Method
	res.Confidence = sel.Confidence()
	res.NeedsReview = sel.Method == outline.MethodInferred && res.Confidence < w.o.cfg.InferReviewThreshold

	if w.stopped(job, &res, log) {
		return
	}
	job.Report(Event{Progress: 60, Step: "build", Message: fmt.Sprintf("building tree from %d entries", sel.TotalEntries)})
	t := tree.Build(sel.Entries, tree.Options{
		MaxDepth:  w.o.maxDepth(job.Request),
		LastPage:  doc.PageCount,
		ProjectID: doc.ProjectID,
		DocID:     doc.ID,
		Source:    tree.SourceDocumentTOC,
	})
	res.Stats = t.Stats

	if w.stopped(job, &res, log) {
		return
	}
	job.Report(Event{Progress: 75, Step: "persist", Message: fmt.Sprintf("saving %d categories", t.Len())})
	if err := w.o.store.ReplaceTree(ctx, doc.ID, t); err != nil {
		w.fail(job, res, log, "persist", err)
		return
	}

	if w.o.publisher != nil {
		if w.stopped(job, &res, log) {
			return
		}
		job.Report(Event{Progress: 85, Step: "publish", Message: "publishing tree"})
		if err := w.o.publisher.PublishTree(ctx, doc.ProjectID, doc.ID, t.Export()); err != nil {
			log.Warn("publish failed", "error", err)
			res.Warnings = append(res.Warnings, "publish: "+err.Error())
		}
	}

	if job.Request.AutoAssign {
		if w.stopped(job, &res, log) {
			return
		}
		if doc.ContentStatus == store.ContentReady {
			job.Report(Event{Progress: 90, Step: "bind", Message: "assigning content to categories"})
			summary, err := w.o.bindLocked(ctx, doc.ID)
			if err != nil {
				log.Warn("bind failed", "error", err)
				res.Warnings = append(res.Warnings, "bind: "+err.Error())
			} else {
				res.Binding = summary
			}
		} else {
			job.Report(Event{Progress: 90, Step: "bind", Message: "content not ready, binding deferred"})
			w.o.deferBind(doc.ID)
			res.Binding = &BindSummary{Deferred: true}
		}
	}

	res.Success = true
	res.Outcome = OutcomeCompleted
	if t.Stats.SkippedDepth > 0 {
		res.Outcome = OutcomeCompletedWithSkips
	}
	res.Message = treeMessage(res)
	job.finish(StatusCompleted, res, "")
}

func treeMessage(res Result) string {
	parts := []string{fmt.Sprintf("created %d categories from %s outline", res.Stats.TotalCreated, res.Method)}
	if res.Stats.SkippedDepth > 0 {
		parts = append(parts, fmt.Sprintf("%d entries skipped beyond the depth limit", res.Stats.SkippedDepth))
	}
	if res.NeedsReview {
		parts = append(parts, fmt.Sprintf("inferred structure has confidence %.2f, review recommended", res.Confidence))
	}
	return strings.Join(parts, "; ")
}

func (w *Worker) processContent(ctx context.Context, job *Job, log *slog.Logger) {
	res := Result{Warnings: []string{}}
	cfg := w.o.cfg

	if w.stopped(job, &res, log) {
		return
	}
	job.Report(Event{Progress: 5, Step: "load", Message: "loading document"})
	doc, err := w.o.store.GetDocument(ctx, job.DocID)
	if err != nil {
		w.fail(job, res, log, "load", err)
		return
	}

	if w.stopped(job, &res, log) {
		return
	}
	job.Report(Event{Progress: 20, Step: "extract", Message: "extracting content units"})
	out, err := content.Extract(ctx, doc.ID, doc.Filename, doc.Data, content.Options{
		ChunkSize:    cfg.DefaultChunkSize,
		ChunkOverlap: cfg.DefaultChunkOverlap,
		Parser:       parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
	})
	if err != nil {
		if serr := w.o.store.SetContentStatus(ctx, doc.ID, store.ContentFailed, err.Error()); serr != nil {
			log.Warn("set content status failed", "error", serr)
		}
		w.fail(job, res, log, "extract", err)
		return
	}
	res.Content = out.Counts()

	if w.stopped(job, &res, log) {
		return
	}
	job.Report(Event{Progress: 75, Step: "persist", Message: fmt.Sprintf("saving %d content units", len(out.Units))})
	if err := w.o.store.ReplaceContentUnits(ctx, doc.ID, out.Units); err != nil {
		w.fail(job, res, log, "persist", err)
		return
	}
	if err := w.o.store.SetContentStatus(ctx, doc.ID, store.ContentReady, ""); err != nil {
		w.fail(job, res, log, "persist", err)
		return
	}

	// Fresh units carry no category, so an existing tree is re-applied.
	rebind := w.o.takePendingBind(doc.ID)
	if !rebind {
		t, err := w.o.store.LoadTree(ctx, doc.ID)
		if err != nil {
			log.Warn("load tree for rebind failed", "error", err)
			res.Warnings = append(res.Warnings, "bind: "+err.Error())
		} else {
			rebind = len(t.Nodes) > 0
		}
	}
	if rebind {
		job.Report(Event{Progress: 90, Step: "bind", Message: "assigning content to categories"})
		summary, err := w.o.bindLocked(ctx, doc.ID)
		if err != nil {
			log.Warn("content bind failed", "error", err)
			res.Warnings = append(res.Warnings, "bind: "+err.Error())
		} else {
			res.Binding = summary
		}
	}

	res.Success = true
	res.Outcome = OutcomeCompleted
	res.Message = fmt.Sprintf("extracted %d content units", len(out.Units))
	job.finish(StatusCompleted, res, "")
}

// stopped finishes the job as cancelled when a cancel was requested. It is
// the stage boundary check.
func (w *Worker) stopped(job *Job, res *Result, log *slog.Logger) bool {
	if job.Context().Err() == nil {
		return false
	}
	cause := context.Cause(job.Context())
	if cause == nil || errors.Is(cause, context.Canceled) {
		cause = ErrCancelled
	}
	log.Info("job cancelled", "cause", cause)
	r := *res
	r.Success = false
	r.Outcome = OutcomeCancelled
	r.Message = "cancelled: " + cause.Error()
	job.finish(StatusFailed, r, cause.Error())
	return true
}

func (w *Worker) fail(job *Job, res Result, log *slog.Logger, step string, err error) {
	log.Error("job failed", "step", step, "error", err)
	res.Success = false
	res.Outcome = OutcomeFailed
	res.Message = fmt.Sprintf("%s failed: %s", step, err)
	job.finish(StatusFailed, res, err.Error())
}
