package util

import (
	"testing"
	"time"
)

func TestGenerateHash(t *testing.T) {
	a := GenerateHash("some text", 1)
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", a)
	}
	if a != GenerateHash("some text", 1) {
		t.Error("expected hash to be deterministic")
	}
	if a == GenerateHash("some text", 2) {
		t.Error("expected timestamp to change the hash")
	}
	if a == GenerateHash("other text", 1) {
		t.Error("expected text to change the hash")
	}
}

func TestNewRecordID(t *testing.T) {
	now := time.Unix(1700000000, 42)
	if got, want := NewRecordID("doc", now), GenerateHash("doc", now.UnixNano()); got != want {
		t.Errorf("NewRecordID() = %q, want %q", got, want)
	}
}
