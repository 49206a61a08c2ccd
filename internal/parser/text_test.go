package parser

import (
	"strings"
	"testing"
)

func TestTextParser_Paragraphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
		pages int
	}{
		{"empty", "", nil, 0},
		{"blank only", "  \n\n\t\n", nil, 0},
		{"single line", "Hello world", []string{"Hello world"}, 1},
		{
			"multi-line paragraph",
			"Line one.\nLine two.  \n\nSecond.",
			[]string{"Line one.\nLine two.", "Second."},
			1,
		},
		{"repeated blank lines", "One.\n\n\n\nTwo.", []string{"One.", "Two."}, 1},
		{"whitespace-only separator", "One.\n   \nTwo.", []string{"One.", "Two."}, 1},
		{"crlf", "One.\r\n\r\nTwo.", []string{"One.", "Two."}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := (&TextParser{}).Parse(strings.NewReader(tc.input), "notes.txt")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tree.Title != "notes" {
				t.Errorf("expected title %q, got %q", "notes", tree.Title)
			}
			if tree.Pages != tc.pages {
				t.Errorf("expected %d pages, got %d", tc.pages, tree.Pages)
			}
			if len(tree.Children) != len(tc.want) {
				t.Fatalf("expected %d paragraphs, got %d", len(tc.want), len(tree.Children))
			}
			for i, w := range tc.want {
				c := tree.Children[i]
				if c.Text != w || c.Heading || c.Page != 1 {
					t.Errorf("child[%d]: got %+v, want text %q on page 1", i, c, w)
				}
			}
		})
	}
}

func TestTextParser_FormFeedPages(t *testing.T) {
	input := "Cover.\fChapter text.\n\nMore text.\f\fLast page.\f"

	tree, err := (&TextParser{}).Parse(strings.NewReader(input), "export.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Pages != 4 {
		t.Fatalf("expected 4 pages including the blank one, got %d", tree.Pages)
	}
	wantPages := []int{1, 2, 2, 4}
	if len(tree.Children) != len(wantPages) {
		t.Fatalf("expected %d paragraphs, got %d", len(wantPages), len(tree.Children))
	}
	for i, p := range wantPages {
		if tree.Children[i].Page != p {
			t.Errorf("child[%d]: expected page %d, got %d", i, p, tree.Children[i].Page)
		}
	}
}

func TestCSVParser_BatchesArePipeTables(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,value\n")
	for range 45 {
		b.WriteString("row,1\n")
	}

	tree, err := (&CSVParser{}).Parse(strings.NewReader(b.String()), "data.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 3 || tree.Pages != 3 {
		t.Fatalf("expected 3 batches/pages, got %d children, %d pages", len(tree.Children), tree.Pages)
	}

	last := tree.Children[2]
	if last.Page != 3 || last.Title != "Rows 42-46" || last.Heading {
		t.Errorf("unexpected last batch %q page %d heading %v", last.Title, last.Page, last.Heading)
	}
	lines := strings.Split(last.Text, "\n")
	if len(lines) != 7 {
		t.Fatalf("expected header, rule and 5 rows, got %d lines", len(lines))
	}
	if lines[0] != "| name | value |" || lines[1] != "| --- | --- |" || lines[2] != "| row | 1 |" {
		t.Errorf("unexpected table head %q", lines[:3])
	}
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	tree, err := (&CSVParser{}).Parse(strings.NewReader("a,b\n"), "h.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 0 || tree.Pages != 0 {
		t.Errorf("expected no pages, got %d", tree.Pages)
	}
}

func TestPipeTable(t *testing.T) {
	got := pipeTable([][]string{
		{"Key", "Notes"},
		{"a|b", "line\none", "extra"},
		{"short"},
	})
	want := strings.Join([]string{
		"| Key | Notes |  |",
		"| --- | --- | --- |",
		`| a\|b | line one | extra |`,
		"| short |  |  |",
	}, "\n")
	if got != want {
		t.Errorf("pipeTable mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if pipeTable(nil) != "" {
		t.Error("expected empty output for no rows")
	}
}
