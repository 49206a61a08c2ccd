package content

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/docstruct/internal/parser"
)

func init() {
	api.DisableConfigDir()
}

// PageCount returns the number of pages a document addresses: physical
// pages for PDFs, logical section pages for everything else.
func PageCount(filename string, data []byte, opts parser.Options) (n int, err error) {
	if parser.IsPDF(filename) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("count pages: %v", rec)
			}
		}()
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		return api.PageCount(bytes.NewReader(data), conf)
	}

	p, err := parser.ForFile(filename, opts)
	if err != nil {
		return 0, err
	}
	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filename, err)
	}
	return tree.Pages, nil
}
