package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docstruct/internal/content"
)

// ReplaceContentUnits swaps a document's content units for units. Unit ids
// are set to the persisted ids.
func (s *Store) ReplaceContentUnits(ctx context.Context, docID string, units []content.Unit) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM content_units WHERE doc_id = ?`, docID); err != nil {
			return fmt.Errorf("delete content units: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO content_units (doc_id, kind, unit_index, page_number, text, breadcrumb, category_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for i := range units {
			u := &units[i]
			u.DocID = docID
			bc, err := json.Marshal(breadcrumbOrEmpty(u.Breadcrumb))
			if err != nil {
				return fmt.Errorf("marshal breadcrumb: %w", err)
			}
			res, err := stmt.ExecContext(ctx, docID, u.Kind, u.Index, u.PageNumber, u.Text, string(bc), nullInt64(u.CategoryID))
			if err != nil {
				return fmt.Errorf("insert content unit: %w", err)
			}
			if u.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("content unit id: %w", err)
			}
		}
		return nil
	})
}

func breadcrumbOrEmpty(bc []string) []string {
	if bc == nil {
		return []string{}
	}
	return bc
}

const unitColumns = `id, doc_id, kind, unit_index, page_number, text, breadcrumb, category_id`

func (s *Store) queryUnits(ctx context.Context, where string, args ...any) ([]content.Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+unitColumns+` FROM content_units WHERE `+where+` ORDER BY kind, unit_index, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query content units: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	units := []content.Unit{}
	for rows.Next() {
		var (
			u        content.Unit
			bc       string
			category sql.NullInt64
		)
		if err := rows.Scan(&u.ID, &u.DocID, &u.Kind, &u.Index, &u.PageNumber, &u.Text, &bc, &category); err != nil {
			return nil, fmt.Errorf("scan content unit: %w", err)
		}
		if bc != "" && bc != "[]" {
			if err := json.Unmarshal([]byte(bc), &u.Breadcrumb); err != nil {
				return nil, fmt.Errorf("content unit %d breadcrumb: %w", u.ID, err)
			}
		}
		u.CategoryID = int64Ptr(category)
		units = append(units, u)
	}
	return units, rows.Err()
}

// ListContentUnits returns all units of a document.
func (s *Store) ListContentUnits(ctx context.Context, docID string) ([]content.Unit, error) {
	return s.queryUnits(ctx, `doc_id = ?`, docID)
}

// UnassignedContent returns a document's units that belong to no category.
func (s *Store) UnassignedContent(ctx context.Context, docID string) ([]content.Unit, error) {
	return s.queryUnits(ctx, `doc_id = ? AND category_id IS NULL`, docID)
}

// CategoryContent groups the units bound to one category by kind.
type CategoryContent struct {
	Chunks        []content.Unit `json:"chunks"`
	Tables        []content.Unit `json:"tables"`
	Formulas      []content.Unit `json:"formulas"`
	TotalChunks   int            `json:"total_chunks"`
	TotalTables   int            `json:"total_tables"`
	TotalFormulas int            `json:"total_formulas"`
}

// GetCategoryContent returns the units bound to categoryID.
func (s *Store) GetCategoryContent(ctx context.Context, categoryID int64) (*CategoryContent, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	units, err := s.queryUnits(ctx, `category_id = ?`, categoryID)
	if err != nil {
		return nil, err
	}

	out := &CategoryContent{
		Chunks:   []content.Unit{},
		Tables:   []content.Unit{},
		Formulas: []content.Unit{},
	}
	for _, u := range units {
		switch u.Kind {
		case content.KindChunk:
			out.Chunks = append(out.Chunks, u)
		case content.KindTable:
			out.Tables = append(out.Tables, u)
		case content.KindFormula:
			out.Formulas = append(out.Formulas, u)
		}
	}
	out.TotalChunks = len(out.Chunks)
	out.TotalTables = len(out.Tables)
	out.TotalFormulas = len(out.Formulas)
	return out, nil
}

// ApplyAssignments writes category ids for a document's units. Units not in
// assignments are left untouched; a nil value unassigns.
func (s *Store) ApplyAssignments(ctx context.Context, docID string, assignments map[int64]*int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE content_units SET category_id = ? WHERE id = ? AND doc_id = ?`)
		if err != nil {
			return fmt.Errorf("prepare update: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for unitID, categoryID := range assignments {
			if _, err := stmt.ExecContext(ctx, nullInt64(categoryID), unitID, docID); err != nil {
				return fmt.Errorf("assign unit %d: %w", unitID, err)
			}
		}
		return nil
	})
}
