package services

import "unicode/utf8"

// Chunk is a contiguous window of document text with the byte offset of
// its start in the original text.
type Chunk struct {
	Text   string
	Offset int
}

const DefaultChunkSize = 800

// ChunkText splits text into non-overlapping windows of at most maxChars
// bytes; the last window may be shorter. A window never splits a multibyte
// rune: when the byte boundary lands inside one, the window ends at the
// preceding rune start. Empty text yields no chunks.
func ChunkText(text string, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}

	var chunks []Chunk
	for i := 0; i < len(text); {
		end := i + maxChars
		if end >= len(text) {
			end = len(text)
		} else {
			for end > i && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == i {
				// A single rune wider than the window; emit it whole.
				_, size := utf8.DecodeRuneInString(text[i:])
				end = i + size
			}
		}
		chunks = append(chunks, Chunk{Text: text[i:end], Offset: i})
		i = end
	}
	return chunks
}
