package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docstruct/internal/doctree"
)

// csvRowsPerPage is how many data rows make up one logical page.
const csvRowsPerPage = 20

// CSVParser renders CSV files as pipe tables, one logical page per batch of
// rows. Every page repeats the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	tree := &doctree.DocTree{Title: strings.TrimSuffix(filename, ".csv")}

	var header []string
	var batch [][]string
	first := 2 // spreadsheet row number of the batch's first data row
	emit := func() {
		if len(batch) == 0 {
			return
		}
		page := len(tree.Children) + 1
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Rows %d-%d", first, first+len(batch)-1),
			Text:  pipeTable(append([][]string{header}, batch...)),
			Page:  page,
		})
		first += len(batch)
		batch = batch[:0]
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if header == nil {
			header = rec
			continue
		}
		batch = append(batch, rec)
		if len(batch) == csvRowsPerPage {
			emit()
		}
	}
	emit()

	tree.Pages = len(tree.Children)
	return tree, nil
}
