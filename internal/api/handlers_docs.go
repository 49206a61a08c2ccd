package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/docstruct/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists documents, optionally for one project.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		s.log.Error("list documents failed", "error", err)
		jsonError(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		s.storeError(w, "document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument deletes a document with its categories and content,
// then drops its published tree.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		s.storeError(w, "document", err)
		return
	}
	if err := s.store.DeleteDocument(ctx, docID); err != nil {
		s.storeError(w, "document", err)
		return
	}
	s.orchestrator.ForgetDocument(ctx, doc.ProjectID, docID)

	s.log.Info("document deleted", "doc_id", docID, "project_id", doc.ProjectID)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}

// handleGetTree returns the document's category tree, nested.
func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		s.storeError(w, "document", err)
		return
	}
	t, err := s.store.LoadTree(ctx, docID)
	if err != nil {
		s.storeError(w, "tree", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": docID,
		"total":  t.Len(),
		"tree":   t.Export(),
	})
}

func (s *Server) handleUnassignedContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		s.storeError(w, "document", err)
		return
	}
	units, err := s.store.UnassignedContent(ctx, docID)
	if err != nil {
		s.storeError(w, "content", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": docID,
		"units":  units,
		"total":  len(units),
	})
}

// handleGetCategory returns one category with its subtree.
func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	node, err := s.store.GetCategory(ctx, id)
	if err != nil {
		s.storeError(w, "category", err)
		return
	}
	t, err := s.store.LoadTree(ctx, node.DocID)
	if err != nil {
		s.storeError(w, "tree", err)
		return
	}
	sub, ok := t.ExportSubtree(id)
	if !ok {
		jsonError(w, "category not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleCategoryContent(w http.ResponseWriter, r *http.Request) {
	id, ok := categoryID(w, r)
	if !ok {
		return
	}
	out, err := s.store.GetCategoryContent(r.Context(), id)
	if err != nil {
		s.storeError(w, "category", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func categoryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid category id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) storeError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, what+" not found", http.StatusNotFound)
		return
	}
	s.log.Error("store query failed", "what", what, "error", err)
	jsonError(w, "failed to load "+what, http.StatusInternalServerError)
}
