package chunking

import "strings"

// WordCounter approximates token counts by whitespace-delimited words. It is
// the default strategy when no real tokenizer is wired in; chunk metadata
// records the counter name so the degraded precision stays visible.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func (WordCounter) Name() string {
	return "words"
}
