package tree

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	dashRuns     = regexp.MustCompile(`-+`)
)

const (
	maxSlugLen   = 50
	fallbackSlug = "section"
)

// Slugify converts a string to a URL/path-safe slug. Accents are folded to
// their base letters first so "Résumé" becomes "resume".
func Slugify(s string) string {
	s = foldAccents(strings.ToLower(strings.TrimSpace(s)))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}

func foldAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// nameKey is the form two sibling names are compared in.
func nameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFKC.String(name))), " ")
}

// siblingNames tracks the names and slugs already used under one parent.
type siblingNames struct {
	names map[string]bool
	slugs map[string]bool
}

func newSiblingNames() *siblingNames {
	return &siblingNames{names: make(map[string]bool), slugs: make(map[string]bool)}
}

// claim returns a name and slug unique among the siblings seen so far. The
// second and later occurrences of a name get " (1)", " (2)", ... appended;
// slug collisions that remain get "-1", "-2", ...
func (s *siblingNames) claim(title string) (name, slug string) {
	name = title
	for n := 1; s.names[nameKey(name)]; n++ {
		name = fmt.Sprintf("%s (%d)", title, n)
	}
	s.names[nameKey(name)] = true

	base := Slugify(name)
	if base == "" {
		base = fallbackSlug
	}
	slug = base
	for n := 1; s.slugs[slug]; n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	s.slugs[slug] = true
	return name, slug
}
