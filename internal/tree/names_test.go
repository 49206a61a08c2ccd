package tree

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Introduction", "introduction"},
		{"  Chapter 1: Getting Started  ", "chapter-1-getting-started"},
		{"Résumé & Références", "resume-references"},
		{"Introduction (1)", "introduction-1"},
		{"---", ""},
		{"ﬁle", "file"},
	}
	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugify_Truncates(t *testing.T) {
	got := Slugify("a very long section title that keeps going well past the fifty character limit")
	if len(got) > maxSlugLen {
		t.Fatalf("slug too long: %d", len(got))
	}
	if got[len(got)-1] == '-' {
		t.Fatalf("slug ends with dash: %q", got)
	}
}

func TestNameKey(t *testing.T) {
	if nameKey("Ｉｎｔｒｏ  Text") != nameKey("intro text") {
		t.Fatal("expected full-width and spacing variants to compare equal")
	}
}
