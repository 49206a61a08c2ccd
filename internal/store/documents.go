package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ContentStatus tracks the content extraction stage for a document.
type ContentStatus string

const (
	ContentPending ContentStatus = "pending"
	ContentReady   ContentStatus = "ready"
	ContentFailed  ContentStatus = "failed"
)

// Document is an uploaded source file.
type Document struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	Filename      string        `json:"filename"`
	Title         string        `json:"title"`
	Size          int64         `json:"size"`
	PageCount     int           `json:"page_count"`
	SHA256        string        `json:"sha256"`
	ContentStatus ContentStatus `json:"content_status"`
	ContentError  string        `json:"content_error,omitempty"`
	Data          []byte        `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// PutDocument inserts doc or replaces the stored file of an existing
// document with the same id. Content status resets to pending.
func (s *Store) PutDocument(ctx context.Context, doc *Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.ContentStatus = ContentPending
	doc.ContentError = ""

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, project_id, filename, title, size, page_count, sha256,
			content_status, content_error, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			filename = excluded.filename,
			title = excluded.title,
			size = excluded.size,
			page_count = excluded.page_count,
			sha256 = excluded.sha256,
			content_status = excluded.content_status,
			content_error = '',
			data = excluded.data,
			updated_at = excluded.updated_at`,
		doc.ID, doc.ProjectID, doc.Filename, doc.Title, doc.Size, doc.PageCount, doc.SHA256,
		doc.ContentStatus, doc.Data, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

const documentColumns = `id, project_id, filename, title, size, page_count, sha256,
	content_status, content_error, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }, extra ...any) (*Document, error) {
	var d Document
	dest := []any{&d.ID, &d.ProjectID, &d.Filename, &d.Title, &d.Size, &d.PageCount, &d.SHA256,
		&d.ContentStatus, &d.ContentError, &d.CreatedAt, &d.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDocument returns a document with its file bytes.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+`, data FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	d.Data = data
	return d, nil
}

// ListDocuments returns a project's documents without file bytes, newest
// first. An empty projectID lists all documents.
func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document with its categories and content units.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetContentStatus records the outcome of content extraction.
func (s *Store) SetContentStatus(ctx context.Context, id string, status ContentStatus, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET content_status = ?, content_error = ?, updated_at = ? WHERE id = ?`,
		status, msg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set content status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// HasDocument reports whether a document exists.
func (s *Store) HasDocument(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("has document: %w", err)
	}
	return n > 0, nil
}
