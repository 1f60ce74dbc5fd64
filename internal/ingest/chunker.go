package ingest

import "strings"

const (
	DefaultWindowWords  = 900
	DefaultOverlapWords = 150
)

// Chunk splits text into windows of size words that start every
// size-overlap words. The last window may be shorter.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultWindowWords
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	words := strings.Fields(text)
	step := size - overlap

	var out []string
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}
