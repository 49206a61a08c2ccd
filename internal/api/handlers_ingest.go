package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docstruct/internal/content"
	"github.com/dgallion1/docstruct/internal/parser"
	"github.com/dgallion1/docstruct/internal/pipeline"
	"github.com/dgallion1/docstruct/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleUpload stores a document and queues its content extraction.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	projectID := r.FormValue("project_id")
	if projectID == "" {
		jsonError(w, "project_id is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	pages, err := content.PageCount(filename, data, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, "unreadable document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	hash := pipeline.ContentHashHex(data)
	docID := r.FormValue("doc_id")
	if docID == "" {
		docID = hash[:16]
	}
	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	doc := &store.Document{
		ID:        docID,
		ProjectID: projectID,
		Filename:  filename,
		Title:     title,
		Size:      int64(len(data)),
		PageCount: pages,
		SHA256:    hash,
		Data:      data,
	}
	if err := s.store.PutDocument(r.Context(), doc); err != nil {
		s.log.Error("store document failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	job, err := s.orchestrator.SubmitContent(r.Context(), docID)
	if err != nil {
		s.submitError(w, err)
		return
	}

	s.log.Info("document stored", "doc_id", docID, "project_id", projectID, "filename", filename, "pages", pages)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"doc_id":         docID,
		"project_id":     projectID,
		"page_count":     pages,
		"content_job_id": job.ID,
		"poll_url":       fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

// handleExtractContent re-runs content extraction for a stored document.
func (s *Server) handleExtractContent(w http.ResponseWriter, r *http.Request) {
	job, err := s.orchestrator.SubmitContent(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		s.submitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted(job))
}

func (s *Server) submitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrUnknownDocument):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrShuttingDown):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error("submit job failed", "error", err)
		jsonError(w, "failed to queue job", http.StatusInternalServerError)
	}
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
