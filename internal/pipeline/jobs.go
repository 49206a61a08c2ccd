package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docstruct/internal/binder"
	"github.com/dgallion1/docstruct/internal/content"
	"github.com/dgallion1/docstruct/internal/outline"
	"github.com/dgallion1/docstruct/internal/tree"
)

// JobKind distinguishes tree generation from content extraction.
type JobKind string

const (
	KindTree    JobKind = "tree"
	KindContent JobKind = "content"
)

// JobStatus is the coarse job state carried on every event.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further events follow s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Outcome separates the terminal states a caller acts on differently.
type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeCompletedWithSkips Outcome = "completed_with_skips"
	OutcomeNoOutline          Outcome = "no_outline"
	OutcomeFailed             Outcome = "failed"
	OutcomeCancelled          Outcome = "cancelled"
)

// Event is one progress report.
type Event struct {
	Seq      int       `json:"seq"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Step     string    `json:"step"`
	Message  string    `json:"message"`
	Current  *int      `json:"current,omitempty"`
	Total    *int      `json:"total,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// ProgressReporter receives progress events at pipeline checkpoints.
type ProgressReporter interface {
	Report(ev Event)
}

// TreeRequest asks for a document's category tree to be generated.
type TreeRequest struct {
	DocID      string `json:"doc_id"`
	AutoAssign bool   `json:"auto_assign_document"`
	// ValidateDepth applies MaxDepth; otherwise only the configured ceiling
	// limits depth.
	ValidateDepth bool `json:"validate_depth"`
	MaxDepth      int  `json:"max_depth,omitempty"`
}

// BindSummary reports a binding run.
type BindSummary struct {
	Assigned    int                 `json:"assigned"`
	Unassigned  int                 `json:"unassigned"`
	Diagnostics []binder.Diagnostic `json:"diagnostics"`
	Deferred    bool                `json:"deferred,omitempty"`
}

// Result is the final answer of a job.
type Result struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message"`
	Outcome     Outcome              `json:"outcome"`
	NeedsReview bool                 `json:"needs_review"`
	Method      outline.Method       `json:"method,omitempty"`
	Confidence  float64              `json:"confidence,omitempty"`
	Stats       tree.Stats           `json:"stats"`
	Warnings    []string             `json:"warnings"`
	Binding     *BindSummary         `json:"binding,omitempty"`
	Content     map[content.Kind]int `json:"content,omitempty"`
}

// Job tracks one unit of queued work and its full event history.
type Job struct {
	mu sync.Mutex

	ID      string
	Kind    JobKind
	DocID   string
	Request TreeRequest

	status    JobStatus
	progress  int
	events    []Event
	changed   chan struct{}
	done      chan struct{}
	result    *Result
	createdAt time.Time
	updatedAt time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newJob(parent context.Context, kind JobKind, docID string) *Job {
	ctx, cancel := context.WithCancelCause(parent)
	now := time.Now()
	j := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		DocID:     docID,
		status:    StatusPending,
		changed:   make(chan struct{}),
		done:      make(chan struct{}),
		createdAt: now,
		updatedAt: now,
		ctx:       ctx,
		cancel:    cancel,
	}
	j.Report(Event{Status: StatusPending, Step: "queued", Message: "waiting for a worker"})
	return j
}

// Report appends an event. Progress never decreases: a lower value is
// raised to the last reported one. Events after a terminal event are
// dropped.
func (j *Job) Report(ev Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appendLocked(ev)
}

func (j *Job) appendLocked(ev Event) {
	if j.status.Terminal() {
		return
	}
	if ev.Status == "" {
		ev.Status = StatusInProgress
	}
	ev.Progress = max(0, min(100, ev.Progress))
	if ev.Progress < j.progress {
		ev.Progress = j.progress
	}
	ev.Seq = len(j.events)
	ev.Time = time.Now()

	j.events = append(j.events, ev)
	j.status = ev.Status
	j.progress = ev.Progress
	j.updatedAt = ev.Time

	close(j.changed)
	j.changed = make(chan struct{})
	if j.status.Terminal() {
		close(j.done)
	}
}

// finish records the result and emits the terminal event. Only the first
// call has any effect.
func (j *Job) finish(status JobStatus, res Result, errMsg string) {
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	j.mu.Lock()
	if !j.status.Terminal() {
		j.result = &res
		progress := j.progress
		if status == StatusCompleted {
			progress = 100
		}
		j.appendLocked(Event{
			Status:   status,
			Progress: progress,
			Step:     "done",
			Message:  res.Message,
			Error:    errMsg,
		})
	}
	j.mu.Unlock()

	j.cancel(nil)
}

// Cancel asks the job to stop at its next stage boundary.
func (j *Job) Cancel(cause error) {
	j.cancel(cause)
}

// Context is the job's cancellation scope.
func (j *Job) Context() context.Context {
	return j.ctx
}

// Done is closed after the terminal event.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// EventsSince returns events from seq onward, a channel closed on the next
// change, and whether the job has reached a terminal state.
func (j *Job) EventsSince(seq int) ([]Event, <-chan struct{}, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Event
	if seq < len(j.events) {
		out = append(out, j.events[max(seq, 0):]...)
	}
	return out, j.changed, j.status.Terminal()
}

// Result returns the job result, or nil while running.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Status returns the current status.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string       `json:"job_id"`
	Kind      JobKind      `json:"kind"`
	DocID     string       `json:"doc_id"`
	Status    JobStatus    `json:"status"`
	Progress  int          `json:"progress"`
	Last      Event        `json:"last_event"`
	Events    int          `json:"events"`
	Request   *TreeRequest `json:"request,omitempty"`
	Result    *Result      `json:"result,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:        j.ID,
		Kind:      j.Kind,
		DocID:     j.DocID,
		Status:    j.status,
		Progress:  j.progress,
		Events:    len(j.events),
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
	if len(j.events) > 0 {
		snap.Last = j.events[len(j.events)-1]
	}
	if j.Kind == KindTree {
		req := j.Request
		snap.Request = &req
	}
	if j.result != nil {
		res := *j.result
		snap.Result = &res
	}
	return snap
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs idle for longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.status.Terminal() && now.Sub(job.updatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
