package parser

import (
	"strings"
	"testing"
)

func TestPDFParser_RejectsGarbage(t *testing.T) {
	_, err := (&PDFParser{}).Parse(strings.NewReader("%PDF-1.4 truncated"), "bad.pdf")
	if err == nil {
		t.Fatal("expected an error for a truncated pdf")
	}
	if !strings.Contains(err.Error(), "extract pdf text") {
		t.Errorf("unexpected error %q", err)
	}
}
