package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docstruct/internal/binder"
	"github.com/dgallion1/docstruct/internal/config"
	"github.com/dgallion1/docstruct/internal/outline"
	"github.com/dgallion1/docstruct/internal/pathstore"
	"github.com/dgallion1/docstruct/internal/store"
)

var (
	// ErrQueueFull is returned when no more jobs can be queued.
	ErrQueueFull = errors.New("job queue is full")
	// ErrUnknownDocument is returned for a document id the store lacks.
	ErrUnknownDocument = errors.New("unknown document")
	// ErrSuperseded is the cancellation cause of a build replaced by a newer
	// one for the same document.
	ErrSuperseded = errors.New("superseded by a newer build")
	// ErrCancelled is the cancellation cause of a caller's cancel request.
	ErrCancelled = errors.New("cancelled by request")
	// ErrShuttingDown is the cancellation cause used on Stop.
	ErrShuttingDown = errors.New("server shutting down")
)

// Orchestrator queues tree and content jobs onto a worker pool. Work for one
// document is serialized by a per-document lock, and at most one tree build
// per document is active: a new submission supersedes the previous one.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	store     *store.Store
	selector  *outline.Selector
	publisher *pathstore.Publisher
	log       *slog.Logger
	cfg       config.Config

	baseCtx context.Context
	cancel  context.CancelCauseFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	activeTree  map[string]*Job
	docLocks    map[string]*docLock
	pendingBind map[string]bool
}

type docLock struct {
	sync.Mutex
	refs int
}

// NewOrchestrator creates the pipeline. publisher may be nil.
func NewOrchestrator(cfg config.Config, st *store.Store, sel *outline.Selector, pub *pathstore.Publisher, log *slog.Logger) *Orchestrator {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Orchestrator{
		jobs:        NewJobStore(cfg.JobTTL),
		queue:       make(chan *Job, cfg.MaxQueueSize),
		store:       st,
		selector:    sel,
		publisher:   pub,
		log:         log,
		cfg:         cfg,
		baseCtx:     ctx,
		cancel:      cancel,
		activeTree:  make(map[string]*Job),
		docLocks:    make(map[string]*docLock),
		pendingBind: make(map[string]bool),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { o.cancel(ErrShuttingDown) })

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o, o.log)
			for {
				select {
				case <-o.baseCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer stop()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-o.baseCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels running jobs and waits for workers to exit. Queued jobs that
// never started are failed.
func (o *Orchestrator) Stop() {
	o.cancel(ErrShuttingDown)
	o.wg.Wait()
	for {
		select {
		case job := <-o.queue:
			job.finish(StatusFailed, Result{
				Outcome: OutcomeCancelled,
				Message: "cancelled: " + ErrShuttingDown.Error(),
			}, ErrShuttingDown.Error())
		default:
			return
		}
	}
}

// SubmitTree queues a tree build. Any active build for the same document is
// cancelled and finishes at its next stage boundary.
func (o *Orchestrator) SubmitTree(ctx context.Context, req TreeRequest) (*Job, error) {
	if err := o.checkDocument(ctx, req.DocID); err != nil {
		return nil, err
	}

	job := newJob(o.baseCtx, KindTree, req.DocID)
	job.Request = req

	o.mu.Lock()
	if prev := o.activeTree[req.DocID]; prev != nil && !prev.Status().Terminal() {
		prev.Cancel(ErrSuperseded)
		o.log.Info("superseding tree build", "doc_id", req.DocID, "previous_job", prev.ID, "job_id", job.ID)
	}
	o.activeTree[req.DocID] = job
	o.mu.Unlock()

	if err := o.enqueue(job); err != nil {
		o.mu.Lock()
		if o.activeTree[req.DocID] == job {
			delete(o.activeTree, req.DocID)
		}
		o.mu.Unlock()
		return job, err
	}
	return job, nil
}

// SubmitContent queues content extraction for a document.
func (o *Orchestrator) SubmitContent(ctx context.Context, docID string) (*Job, error) {
	if err := o.checkDocument(ctx, docID); err != nil {
		return nil, err
	}
	job := newJob(o.baseCtx, KindContent, docID)
	return job, o.enqueue(job)
}

func (o *Orchestrator) checkDocument(ctx context.Context, docID string) error {
	ok, err := o.store.HasDocument(ctx, docID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	return nil
}

func (o *Orchestrator) enqueue(job *Job) error {
	o.jobs.Put(job)
	if o.baseCtx.Err() != nil {
		job.finish(StatusFailed, Result{
			Outcome: OutcomeCancelled,
			Message: "cancelled: " + ErrShuttingDown.Error(),
		}, ErrShuttingDown.Error())
		return ErrShuttingDown
	}
	select {
	case o.queue <- job:
		return nil
	default:
		err := fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
		job.finish(StatusFailed, Result{Outcome: OutcomeFailed, Message: err.Error()}, err.Error())
		return err
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// CancelJob requests cancellation. It reports false for unknown or already
// finished jobs.
func (o *Orchestrator) CancelJob(id string) bool {
	job := o.jobs.Get(id)
	if job == nil || job.Status().Terminal() {
		return false
	}
	job.Cancel(ErrCancelled)
	return true
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Bind assigns a document's content units to its categories now.
func (o *Orchestrator) Bind(ctx context.Context, docID string) (*BindSummary, error) {
	if err := o.checkDocument(ctx, docID); err != nil {
		return nil, err
	}
	unlock := o.lockDocument(docID)
	defer unlock()
	return o.bindLocked(ctx, docID)
}

// ForgetDocument cancels work for a deleted document and removes its
// published tree.
func (o *Orchestrator) ForgetDocument(ctx context.Context, projectID, docID string) {
	o.mu.Lock()
	if job := o.activeTree[docID]; job != nil {
		job.Cancel(ErrUnknownDocument)
		delete(o.activeTree, docID)
	}
	delete(o.pendingBind, docID)
	o.mu.Unlock()

	if o.publisher != nil {
		if err := o.publisher.RemoveDocument(ctx, projectID, docID); err != nil {
			o.log.Warn("remove published tree failed", "doc_id", docID, "error", err)
		}
	}
}

// bindLocked runs the binder over persisted state. The caller holds the
// document lock.
func (o *Orchestrator) bindLocked(ctx context.Context, docID string) (*BindSummary, error) {
	t, err := o.store.LoadTree(ctx, docID)
	if err != nil {
		return nil, err
	}
	units, err := o.store.ListContentUnits(ctx, docID)
	if err != nil {
		return nil, err
	}

	in := make([]binder.Unit, len(units))
	for i, u := range units {
		in[i] = binder.Unit{ID: u.ID, PageNumber: u.PageNumber}
	}
	res := binder.Bind(t.Nodes, in)
	if err := o.store.ApplyAssignments(ctx, docID, res.Assignments); err != nil {
		return nil, err
	}

	for _, d := range res.Diagnostics {
		o.log.Warn("ambiguous binding", "doc_id", docID, "unit_id", d.UnitID, "page", d.Page, "chosen", d.Chosen, "tied", d.Tied)
	}
	o.log.Info("bound content", "doc_id", docID, "assigned", res.Assigned, "unassigned", res.Unassigned)

	return &BindSummary{
		Assigned:    res.Assigned,
		Unassigned:  res.Unassigned,
		Diagnostics: res.Diagnostics,
	}, nil
}

// lockDocument serializes work on one document and returns the unlock func.
func (o *Orchestrator) lockDocument(docID string) func() {
	o.mu.Lock()
	l := o.docLocks[docID]
	if l == nil {
		l = &docLock{}
		o.docLocks[docID] = l
	}
	l.refs++
	o.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.docLocks, docID)
		}
		o.mu.Unlock()
	}
}

func (o *Orchestrator) deferBind(docID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pendingBind[docID] = true
}

func (o *Orchestrator) takePendingBind(docID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	pending := o.pendingBind[docID]
	delete(o.pendingBind, docID)
	return pending
}

// releaseTree drops job from the active set if it is still the active one.
func (o *Orchestrator) releaseTree(job *Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeTree[job.DocID] == job {
		delete(o.activeTree, job.DocID)
	}
}

// maxDepth resolves the depth limit for a request.
func (o *Orchestrator) maxDepth(req TreeRequest) int {
	ceiling := o.cfg.MaxTreeDepth
	if req.ValidateDepth && req.MaxDepth > 0 && req.MaxDepth < ceiling {
		return req.MaxDepth
	}
	return ceiling
}

// Methods lists the outline methods in priority order.
func (o *Orchestrator) Methods() []outline.Method {
	return o.selector.Methods()
}
