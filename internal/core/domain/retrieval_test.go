package domain

import "testing"

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("acme", "doc.txt", 0, "content body")
	b := ChunkID("acme", "doc.txt", 0, "content body")
	if a != b {
		t.Fatalf("same inputs must yield the same id: %q vs %q", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected a 32-hex-char id, got %d chars", len(a))
	}
}

func TestChunkIDVariesByComponent(t *testing.T) {
	base := ChunkID("acme", "doc.txt", 0, "content body")

	if ChunkID("other", "doc.txt", 0, "content body") == base {
		t.Fatalf("tenant must contribute to the id")
	}
	if ChunkID("acme", "other.txt", 0, "content body") == base {
		t.Fatalf("source file must contribute to the id")
	}
	if ChunkID("acme", "doc.txt", 1, "content body") == base {
		t.Fatalf("chunk index must contribute to the id")
	}
	if ChunkID("acme", "doc.txt", 0, "different body") == base {
		t.Fatalf("content must contribute to the id")
	}
}

func TestChunkIDUsesContentPrefixOnly(t *testing.T) {
	shared := "this prefix is exactly thirty-tw"
	a := ChunkID("acme", "doc.txt", 0, shared+"o characters plus tail one")
	b := ChunkID("acme", "doc.txt", 0, shared+"o characters plus tail two")
	if a != b {
		t.Fatalf("content beyond the prefix must not change the id")
	}
}
