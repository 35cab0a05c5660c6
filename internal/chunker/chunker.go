// Package chunker splits documents into bounded-size chunks that end at
// natural language boundaries where possible.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the default character budget of a single chunk.
	DefaultChunkSize = 4000

	// DefaultChunkOverlap is the default number of characters shared by
	// consecutive chunks.
	DefaultChunkOverlap = 200

	// CharsPerToken is the fixed heuristic used for all sizing decisions.
	CharsPerToken = 4

	// sentenceWindowRatio is the tail fraction of a chunk searched for a
	// sentence terminator.
	sentenceWindowRatio = 0.2

	// wordWindow is how many characters before the cut are searched for a space.
	wordWindow = 50
)

// Errors returned by Options.Validate.
var (
	ErrInvalidChunkSize    = errors.New("chunk size must be a positive integer")
	ErrInvalidChunkOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk size")
)

// Options controls how text is split.
type Options struct {
	ChunkSize    int `json:"chunk_size"`    // Character budget per chunk.
	ChunkOverlap int `json:"chunk_overlap"` // Characters carried over from the previous chunk.
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

// Validate rejects options callers must not hand to ChunkText.
func (o Options) Validate() error {
	if o.ChunkSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, o.ChunkSize)
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		return fmt.Errorf("%w: overlap %d, size %d", ErrInvalidChunkOverlap, o.ChunkOverlap, o.ChunkSize)
	}
	return nil
}

// ChunkText splits text into ordered, trimmed, non-empty chunks of at most
// opts.ChunkSize characters. Text that already fits is returned unchanged as
// a single chunk, even when empty.
//
// Every iteration moves the cursor forward, so the loop terminates even when
// ChunkOverlap is not smaller than ChunkSize.
func ChunkText(text string, opts Options) []string {
	size := opts.ChunkSize
	if size < 1 {
		size = 1
	}

	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	runes := []rune(text)
	n := len(runes)

	var chunks []string
	start := 0
	for start < n {
		end := start + size

		if end < n {
			if b := sentenceBoundary(runes, start, end, size); b > 0 {
				end = b
			} else if b := wordBoundary(runes, start, end); b > 0 {
				end = b
			}
		}
		if end >= n {
			end = n
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}

		next := end - opts.ChunkOverlap
		if next <= start {
			start = end
		} else {
			start = next
		}
	}

	return chunks
}

// sentenceBoundary returns the index just past the last sentence terminator
// in the tail window of [start, end), or -1.
func sentenceBoundary(runes []rune, start, end, size int) int {
	from := end - int(sentenceWindowRatio*float64(size))
	if from < start {
		from = start
	}
	for i := end - 1; i >= from; i-- {
		if !isTerminator(runes[i]) || i+1 >= len(runes) {
			continue
		}
		if next := runes[i+1]; next == ' ' || next == '\n' {
			return i + 1
		}
	}
	return -1
}

// wordBoundary returns the index just past the last space in the 50
// characters before end, or -1.
func wordBoundary(runes []rune, start, end int) int {
	from := end - wordWindow
	if from < start {
		from = start
	}
	for i := end - 1; i >= from; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	return -1
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
