package renderer

import (
	"maps"
	"text/template"
	"unicode/utf8"

	"github.com/Masterminds/sprig/v3"
)

// funcMap returns sprig's text functions plus the truncation helpers.
func funcMap(tc TokenCounter) template.FuncMap {
	if tc == nil {
		tc = &CharFallbackCounter{}
	}
	fm := sprig.TxtFuncMap()
	maps.Copy(fm, template.FuncMap{
		"truncate_chars":  truncateChars,
		"truncate_tokens": makeTruncateTokens(tc),
	})
	return fm
}

// truncateChars truncates text to at most maxChars runes.
// Uses RuneCountInString for early exit to avoid allocating []rune when no truncation is needed.
func truncateChars(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars])
}

// makeTruncateTokens returns a function that truncates text to at most maxTokens using the given TokenCounter.
func makeTruncateTokens(tc TokenCounter) func(string, int) (string, error) {
	return func(text string, maxTokens int) (string, error) {
		if maxTokens <= 0 {
			return "", nil
		}
		n, err := tc.Count(text)
		if err != nil {
			return "", err
		}
		if n <= maxTokens {
			return text, nil
		}
		runes := []rune(text)
		lo, hi := 0, len(runes)
		for lo < hi {
			mid := (lo + hi + 1) / 2
			n, err = tc.Count(string(runes[:mid]))
			if err != nil {
				return "", err
			}
			if n <= maxTokens {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return string(runes[:lo]), nil
	}
}
