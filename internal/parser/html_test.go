package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_Headings(t *testing.T) {
	input := `<html><head><title> Guide </title></head><body>
<nav><a href="/">Home</a></nav>
<div class="content">
<h1>Intro</h1><p>Hello <b>there</b>.</p>
<h2>Setup</h2><p>Install it.</p>
<script>ignored()</script>
</div>
<h1>Usage</h1><ul><li>Run it.</li><li>Stop it.</li></ul>
</body></html>`

	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Guide" {
		t.Errorf("expected title from <title>, got %q", tree.Title)
	}

	want := "Intro @1\n  Setup @2\nUsage @3\n"
	if got := shape(tree); got != want {
		t.Errorf("unexpected outline:\n%s\nwant:\n%s", got, want)
	}
	intro := tree.Children[0]
	if intro.Text != "Hello there." {
		t.Errorf("unexpected intro text %q", intro.Text)
	}
	if strings.Contains(intro.Children[0].Text, "ignored") || strings.Contains(intro.Text, "Home") {
		t.Errorf("non-content text leaked: %q / %q", intro.Text, intro.Children[0].Text)
	}
	if tree.Children[1].Text != "Run it.\n\nStop it." {
		t.Errorf("unexpected list text %q", tree.Children[1].Text)
	}
}

func TestHTMLParser_TablesBecomePipeTables(t *testing.T) {
	input := `<body><h1>Data</h1>
<table><thead><tr><th>Name</th><th>Score</th></tr></thead>
<tbody><tr><td>Ada</td><td>9</td></tr><tr><td>Bob</td><td>7</td></tr></tbody></table>
</body>`

	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "data.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "| Name | Score |\n| --- | --- |\n| Ada | 9 |\n| Bob | 7 |"
	if got := tree.Children[0].Text; got != want {
		t.Errorf("unexpected table text:\n%s\nwant:\n%s", got, want)
	}
}

func TestHTMLParser_Fragment(t *testing.T) {
	tree, err := (&HTMLParser{}).Parse(strings.NewReader("<h2>Only</h2><p>x</p>"), "frag.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "frag" || len(tree.Children) != 1 || tree.Children[0].Title != "Only" {
		t.Errorf("unexpected tree %+v", tree)
	}
}
