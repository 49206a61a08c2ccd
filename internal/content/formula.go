package content

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const mathSymbols = "=+-*/^()[]{}<>|≤≥≠≈±×÷∑∏∫√∞∂πΔλμσ"

// IsFormula reports whether line looks like a standalone equation: short,
// containing a relation, few prose words and a high share of math symbols.
func IsFormula(line string) bool {
	n := utf8.RuneCountInString(line)
	if n < 3 || n > 200 {
		return false
	}
	if !strings.ContainsAny(line, "=≤≥≠≈") || strings.Contains(line, "://") {
		return false
	}
	if strings.HasPrefix(line, "|") {
		return false
	}

	symbols, visible := 0, 0
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		visible++
		if strings.ContainsRune(mathSymbols, r) {
			symbols++
		}
	}

	prose := 0
	for _, w := range strings.Fields(line) {
		letters := 0
		for _, r := range w {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if letters > 3 {
			prose++
		}
	}

	return prose <= 3 && float64(symbols)/float64(visible) >= 0.15
}
