package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dgallion1/docstruct/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleGenerateTree queues a tree build. With ?wait=true the response is
// the final result instead of the job handle.
func (s *Server) handleGenerateTree(w http.ResponseWriter, r *http.Request) {
	req := pipeline.TreeRequest{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	req.DocID = chi.URLParam(r, "docID")
	if req.MaxDepth < 0 {
		jsonError(w, "max_depth must not be negative", http.StatusBadRequest)
		return
	}

	job, err := s.orchestrator.SubmitTree(r.Context(), req)
	if err != nil {
		s.submitError(w, err)
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, jobAccepted(job))
		return
	}

	select {
	case <-job.Done():
	case <-r.Context().Done():
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"result": job.Result(),
	})
}

func (s *Server) handleBind(w http.ResponseWriter, r *http.Request) {
	summary, err := s.orchestrator.Bind(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		if errors.Is(err, pipeline.ErrUnknownDocument) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		s.log.Error("bind failed", "error", err)
		jsonError(w, "failed to bind content", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if !s.orchestrator.CancelJob(jobID) {
		jsonError(w, "job already finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "cancel_requested": true})
}

// handleJobEvents streams a job's progress as server-sent events. The
// history is replayed first (after Last-Event-ID when given) and the stream
// ends after the terminal event.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	seq := 0
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			seq = n + 1
		}
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		events, changed, terminal := job.EventsSince(seq)
		for _, ev := range events {
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, eventName(ev), data); err != nil {
				return
			}
			seq = ev.Seq + 1
		}
		if err := rc.Flush(); err != nil {
			s.log.Debug("event stream flush failed", "error", err)
		}
		if terminal {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-changed:
		}
	}
}

func eventName(ev pipeline.Event) string {
	if ev.Status.Terminal() {
		return string(ev.Status)
	}
	return "progress"
}

func jobAccepted(job *pipeline.Job) map[string]any {
	return map[string]any{
		"job_id":     job.ID,
		"doc_id":     job.DocID,
		"kind":       job.Kind,
		"status":     job.Status(),
		"poll_url":   fmt.Sprintf("/api/jobs/%s", job.ID),
		"events_url": fmt.Sprintf("/api/jobs/%s/events", job.ID),
	}
}
