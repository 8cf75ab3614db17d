package similarity

import "strings"

// trailingPunct is the sentence punctuation dropped from the end of a query.
// Internal punctuation is kept ("c++", "q&a", "v1.2").
const trailingPunct = ".!?"

// Normalize returns the canonical form of text used for every comparison:
// lower-cased, whitespace runs collapsed to one space, trimmed, and without
// trailing '.', '!' or '?'. Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")

	// "done. !" must end up as "done", so strip until stable.
	for {
		stripped := strings.TrimSpace(strings.TrimRight(normalized, trailingPunct))
		if stripped == normalized {
			return normalized
		}
		normalized = stripped
	}
}

// Tokenize splits text into whitespace-delimited tokens after normalization.
// Punctuation inside a token is part of the token.
func Tokenize(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}
