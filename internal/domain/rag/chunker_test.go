package rag

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkEmptyText(t *testing.T) {
	c := NewChunker(100, 10)
	if got := c.Chunk(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	if got := c.Chunk("   \n\n  "); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := NewChunker(100, 10)
	chunks := c.Chunk("Savings accounts earn interest.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Savings accounts earn interest." {
		t.Fatalf("chunk = %q", chunks[0])
	}
}

func TestChunkRespectsSizeLimit(t *testing.T) {
	c := NewChunker(50, 10)
	paragraphs := []string{
		"First paragraph about savings accounts.",
		"Second paragraph about loan products.",
		"Third paragraph about forex services.",
	}
	chunks := c.Chunk(strings.Join(paragraphs, "\n"))

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if utf8.RuneCountInString(ch) > 50 {
			t.Errorf("chunk %d exceeds size limit: %d runes", i, utf8.RuneCountInString(ch))
		}
	}
}

func TestChunkOverlapCarriesTail(t *testing.T) {
	c := NewChunker(20, 5)
	chunks := c.Chunk("first-paragraph\nsecond-paragraph")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	prev := []rune(chunks[0])
	tail := string(prev[len(prev)-5:])
	if !strings.HasPrefix(chunks[1], tail) {
		t.Fatalf("chunk 2 %q does not start with tail %q of chunk 1", chunks[1], tail)
	}
}

func TestChunkHardSplitsLongParagraph(t *testing.T) {
	c := NewChunker(20, 5)
	long := strings.Repeat("a", 50)
	chunks := c.Chunk(long)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for 50 runes at size 20 step 15, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if utf8.RuneCountInString(ch) > 20 {
			t.Errorf("chunk %d exceeds size limit: %q", i, ch)
		}
	}
}
