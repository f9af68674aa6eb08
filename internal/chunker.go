package internal

import (
	"fmt"
	"strings"
)

// Chunk is one bounded slice of a transcript, processed independently.
type Chunk struct {
	Index int
	Text  string
}

// ChunkingError indicates the transcript itself is unusable. It is fatal:
// the caller must not retry, the input will never become valid.
type ChunkingError struct {
	Reason string
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking transcript: %s", e.Reason)
}

// SplitTranscript splits a transcript into ordered chunks of at most maxChars
// characters. Splits happen at sentence boundaries; a sentence longer than
// maxChars is split at word boundaries instead, so multi-byte characters are
// never cut. A single word longer than maxChars is kept intact.
//
// The function is pure: the same input always yields the same chunks.
func SplitTranscript(text string, maxChars int) ([]Chunk, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &ChunkingError{Reason: "transcript is empty"}
	}
	if maxChars <= 0 {
		return nil, &ChunkingError{Reason: fmt.Sprintf("invalid max chunk size %d", maxChars)}
	}

	if len(trimmed) <= maxChars {
		return []Chunk{{Index: 0, Text: trimmed}}, nil
	}

	var texts []string
	var buf strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(buf.String())
		if chunk != "" {
			texts = append(texts, chunk)
		}
		buf.Reset()
	}

	for _, sentence := range splitSentences(trimmed) {
		pieces := []string{sentence}
		if len(sentence) > maxChars {
			pieces = splitWords(sentence, maxChars)
		}

		for _, piece := range pieces {
			// +1 for the joining space
			if buf.Len() > 0 && buf.Len()+len(piece)+1 > maxChars {
				flush()
			}
			if buf.Len() > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(piece)
		}
	}
	flush()

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Index: i, Text: t}
	}
	return chunks, nil
}

// splitSentences splits text after `.`, `!` or `?` followed by whitespace.
// The terminator stays attached to its sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !isSpace(runes[i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

// splitWords breaks an oversized sentence into pieces of at most maxChars,
// only ever cutting between words. A single word longer than maxChars is
// returned as its own piece, intact.
func splitWords(sentence string, maxChars int) []string {
	var pieces []string
	var buf strings.Builder

	for _, word := range strings.Fields(sentence) {
		if buf.Len() > 0 && buf.Len()+len(word)+1 > maxChars {
			pieces = append(pieces, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(word)
	}
	if buf.Len() > 0 {
		pieces = append(pieces, buf.String())
	}

	return pieces
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
