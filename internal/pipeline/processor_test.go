package pipeline

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	if got := splitText("", 1000, 100); got != nil {
		t.Fatalf("empty text should produce no chunks, got %v", got)
	}

	short := "short report text"
	chunks := splitText(short, 1000, 100)
	if len(chunks) != 1 || chunks[0] != short {
		t.Fatalf("short text should be a single chunk, got %v", chunks)
	}

	long := strings.Repeat("a", 2500)
	chunks = splitText(long, 1000, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 {
		t.Fatalf("unexpected first chunk size: %d", len(chunks[0]))
	}
	// 相邻分块重叠 100 字符
	if chunks[0][900:] != chunks[1][:100] {
		t.Fatal("chunks should overlap by 100 runes")
	}
}

func TestSplitTextInvalidOverlap(t *testing.T) {
	// overlap >= size 时退化为无重叠切分，不得死循环
	chunks := splitText(strings.Repeat("b", 30), 10, 10)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
}
