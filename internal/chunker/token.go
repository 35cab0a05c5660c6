package chunker

import "unicode/utf8"

// EstimateTokenCount approximates the token count of text at four characters
// per token, rounded up. It drives sizing decisions only, never billing.
func EstimateTokenCount(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// MaxTokensFor returns the token budget equivalent to a chunk of chunkSize
// characters.
func MaxTokensFor(chunkSize int) float64 {
	return float64(chunkSize) / CharsPerToken
}
