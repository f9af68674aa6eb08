package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitTranscript_SingleChunk(t *testing.T) {
	chunks, err := SplitTranscript("Just a short transcript.", 7000)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].Text != "Just a short transcript." {
		t.Fatalf("unexpected chunk: %+v", chunks[0])
	}
}

func TestSplitTranscript_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t\n"} {
		_, err := SplitTranscript(input, 7000)
		var chunkErr *ChunkingError
		if !errors.As(err, &chunkErr) {
			t.Fatalf("input %q: expected ChunkingError, got %v", input, err)
		}
	}
}

func TestSplitTranscript_ThreeChunksAt15k(t *testing.T) {
	// 417 sentences of 34 chars ≈ 15k chars; packs into 3 chunks at 7000.
	transcript := strings.TrimSpace(strings.Repeat("This is a sentence about the topic. ", 417))
	if len(transcript) < 14000 || len(transcript) > 16000 {
		t.Fatalf("test transcript has unexpected length %d", len(transcript))
	}

	chunks, err := SplitTranscript(transcript, 7000)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk.Text) > 7000 {
			t.Fatalf("chunk %d exceeds limit: %d chars", chunk.Index, len(chunk.Text))
		}
		if strings.TrimSpace(chunk.Text) == "" {
			t.Fatalf("chunk %d is empty", chunk.Index)
		}
	}
}

func TestSplitTranscript_Reconstruction(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		maxChars int
	}{
		{"sentences", "First one. Second one! Third one? And a trailing fragment", 20},
		{"long sentence", "word " + strings.Repeat("filler ", 50) + "end.", 40},
		{"mixed", strings.Repeat("Short. ", 30) + strings.Repeat("muchlongerwords everywhere here ", 20), 60},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks, err := SplitTranscript(tc.text, tc.maxChars)
			if err != nil {
				t.Fatalf("split: %v", err)
			}

			var joined []string
			for i, chunk := range chunks {
				if chunk.Index != i {
					t.Fatalf("chunk %d has index %d", i, chunk.Index)
				}
				joined = append(joined, chunk.Text)
			}

			got := strings.Join(strings.Fields(strings.Join(joined, " ")), " ")
			want := strings.Join(strings.Fields(tc.text), " ")
			if got != want {
				t.Fatalf("reconstruction mismatch:\n got: %q\nwant: %q", got, want)
			}
		})
	}
}

func TestSplitTranscript_WordBoundaries(t *testing.T) {
	// One sentence far over the limit must split between words.
	sentence := strings.TrimSpace(strings.Repeat("seven77 ", 40)) + "."
	chunks, err := SplitTranscript(sentence, 30)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk.Text) > 30 {
			t.Fatalf("chunk %d exceeds limit: %q", chunk.Index, chunk.Text)
		}
		for _, word := range strings.Fields(chunk.Text) {
			if word != "seven77" && word != "seven77." {
				t.Fatalf("word was cut mid-way: %q", word)
			}
		}
	}
}

func TestSplitTranscript_OversizedWordKeptIntact(t *testing.T) {
	word := strings.Repeat("x", 50)
	chunks, err := SplitTranscript("Tiny intro. "+word+" outro.", 20)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk.Text, word) {
			found = true
		}
	}
	if !found {
		t.Fatalf("oversized word was broken apart: %+v", chunks)
	}
}

func TestSplitTranscript_Deterministic(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta. Epsilon zeta! Eta theta? ", 100)

	first, err := SplitTranscript(text, 200)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	second, err := SplitTranscript(text, 200)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitTranscript_MultiByteSafe(t *testing.T) {
	text := strings.Repeat("Überraschung für alle Zuschauer. ", 40)
	chunks, err := SplitTranscript(text, 100)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for _, chunk := range chunks {
		if !strings.HasPrefix(chunk.Text, "Über") {
			t.Fatalf("chunk %d starts mid-sentence: %q", chunk.Index, chunk.Text[:12])
		}
	}
}
