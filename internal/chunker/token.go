package chunker

import "strings"

// EstimateTokens approximates a tokenizer at four tokens per three words,
// rounded up. Any non-blank text counts as at least one token.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return (4*words + 2) / 3
}

// tailWords returns the trailing words of text worth about tokens tokens,
// or "" when text is not longer than that.
func tailWords(text string, tokens int) string {
	words := strings.Fields(text)
	n := tokens * 3 / 4
	if n <= 0 || len(words) <= n {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}
