package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/docstruct/internal/tree"
)

// ReplaceTree atomically swaps a document's document_toc categories for the
// nodes of t. Content units that pointed at removed categories become
// unassigned. On success t's node ids are the persisted ids.
func (s *Store) ReplaceTree(ctx context.Context, docID string, t *tree.Tree) error {
	ids := make(map[int64]int64, t.Len())

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE content_units SET category_id = NULL
			 WHERE doc_id = ? AND category_id IN (SELECT id FROM categories WHERE doc_id = ? AND source = ?)`,
			docID, docID, tree.SourceDocumentTOC); err != nil {
			return fmt.Errorf("detach content: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM categories WHERE doc_id = ? AND source = ?`,
			docID, tree.SourceDocumentTOC); err != nil {
			return fmt.Errorf("delete categories: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO categories (project_id, doc_id, parent_id, name, slug, depth, position,
				page_start, page_end, source, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		now := time.Now().UTC()
		// Arena order is preorder, so parents are inserted before children.
		for _, n := range t.Nodes {
			var parent sql.NullInt64
			if n.ParentID != nil {
				pid, ok := ids[*n.ParentID]
				if !ok {
					return fmt.Errorf("node %d: parent %d not yet inserted", n.ID, *n.ParentID)
				}
				parent = sql.NullInt64{Int64: pid, Valid: true}
			}
			meta, err := json.Marshal(metadataOrEmpty(n.Metadata))
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			res, err := stmt.ExecContext(ctx,
				n.ProjectID, docID, parent, n.Name, n.Slug, n.Depth, n.Position,
				nullInt(n.PageStart), nullInt(n.PageEnd), n.Source, string(meta), now)
			if err != nil {
				return fmt.Errorf("insert category %q: %w", n.Name, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("category id: %w", err)
			}
			ids[n.ID] = id
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.Renumber(ids)
	for i := range t.Nodes {
		t.Nodes[i].DocID = docID
	}
	return nil
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

const categoryColumns = `id, project_id, doc_id, parent_id, name, slug, depth, position,
	page_start, page_end, source, metadata`

func scanCategory(row interface{ Scan(...any) error }) (tree.Node, error) {
	var (
		n                  tree.Node
		parent, start, end sql.NullInt64
		meta               string
	)
	if err := row.Scan(&n.ID, &n.ProjectID, &n.DocID, &parent, &n.Name, &n.Slug, &n.Depth,
		&n.Position, &start, &end, &n.Source, &meta); err != nil {
		return n, err
	}
	n.ParentID = int64Ptr(parent)
	n.PageStart = intPtr(start)
	n.PageEnd = intPtr(end)
	n.Metadata = map[string]any{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &n.Metadata); err != nil {
			return n, fmt.Errorf("category %d metadata: %w", n.ID, err)
		}
	}
	return n, nil
}

// LoadTree returns all categories of a document as a tree. A document with
// no categories yields an empty tree.
func (s *Store) LoadTree(ctx context.Context, docID string) (*tree.Tree, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE doc_id = ? ORDER BY id`, docID)
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var nodes []tree.Node
	for rows.Next() {
		n, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tree.FromNodes(nodes), nil
}

// GetCategory returns one category.
func (s *Store) GetCategory(ctx context.Context, id int64) (*tree.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	n, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &n, nil
}
