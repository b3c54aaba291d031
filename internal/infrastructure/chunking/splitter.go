package chunking

import (
	"strings"
	"unicode"

	"github.com/kirillkom/docsearch/internal/core/domain"
	"github.com/kirillkom/docsearch/internal/core/ports"
)

// Splitter accumulates paragraphs greedily under a token budget and seeds
// each following chunk with a trailing overlap of the one just flushed.
// Paragraphs that alone exceed the budget are re-split into sentences and
// run through the same accumulation at sentence granularity.
type Splitter struct {
	chunkSize int
	overlap   int
	counter   ports.TokenCounter
}

func NewSplitter(chunkSize, overlap int, counter ports.TokenCounter) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	if counter == nil {
		counter = WordCounter{}
	}
	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
		counter:   counter,
	}
}

func (s *Splitter) CounterName() string {
	return s.counter.Name()
}

type unit struct {
	text     string
	tokens   int
	sentence bool
}

func (s *Splitter) Chunk(text string) []domain.ChunkDraft {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var (
		drafts    []domain.ChunkDraft
		buf       []unit
		bufTokens int
	)

	flush := func(seedOverlap bool) {
		if len(buf) == 0 {
			return
		}
		drafts = append(drafts, domain.ChunkDraft{
			Content:    joinUnits(buf),
			TokenCount: bufTokens,
			ChunkIndex: len(drafts),
		})
		if !seedOverlap || s.overlap == 0 {
			buf, bufTokens = nil, 0
			return
		}
		// Trailing subset whose cumulative token count stays within the
		// overlap budget.
		var tail []unit
		tailTokens := 0
		for i := len(buf) - 1; i >= 0; i-- {
			if tailTokens+buf[i].tokens > s.overlap {
				break
			}
			tailTokens += buf[i].tokens
			tail = append([]unit{buf[i]}, tail...)
		}
		buf, bufTokens = tail, tailTokens
	}

	add := func(u unit) {
		if bufTokens+u.tokens > s.chunkSize {
			flush(true)
		}
		buf = append(buf, u)
		bufTokens += u.tokens
	}

	for _, paragraph := range paragraphs {
		tokens := s.counter.Count(paragraph)
		if tokens <= s.chunkSize {
			add(unit{text: paragraph, tokens: tokens})
			continue
		}

		// Oversized paragraph: emit whatever is pending as-is, then work at
		// sentence granularity.
		flush(false)
		for _, sentence := range splitSentences(paragraph) {
			st := s.counter.Count(sentence)
			if st > s.chunkSize {
				flush(false)
				drafts = append(drafts, domain.ChunkDraft{
					Content:    sentence,
					TokenCount: st,
					ChunkIndex: len(drafts),
				})
				continue
			}
			add(unit{text: sentence, tokens: st, sentence: true})
		}
	}

	flush(false)
	return drafts
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}

// splitSentences breaks on '.', '!', or '?' followed by whitespace, keeping
// the terminator with the sentence.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func joinUnits(units []unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			if u.sentence && units[i-1].sentence {
				b.WriteString(" ")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(u.text)
	}
	return b.String()
}
