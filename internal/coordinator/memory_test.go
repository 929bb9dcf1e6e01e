package coordinator

import (
	"path/filepath"
	"testing"
)

func TestJoinMemoryPromptsPerDistinctCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "join.json")
	m := OpenJoinMemory(path)

	if !m.NeedsPrompt("AB12CD") {
		t.Fatalf("fresh memory must prompt")
	}
	if m.PlayerName() != "" {
		t.Fatalf("fresh memory has a name: %q", m.PlayerName())
	}

	if err := m.Remember("ab12cd", " alice "); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if m.NeedsPrompt("AB12CD") || m.NeedsPrompt("ab12cd") {
		t.Fatalf("remembered code must not re-prompt")
	}
	if m.PlayerName() != "alice" {
		t.Fatalf("name = %q, want alice", m.PlayerName())
	}

	// A different invite always prompts again.
	if !m.NeedsPrompt("ZZ99XX") {
		t.Fatalf("new code must prompt")
	}
}

func TestJoinMemorySurvivesMissingFile(t *testing.T) {
	m := OpenJoinMemory(filepath.Join(t.TempDir(), "missing", "join.json"))
	if !m.NeedsPrompt("AB12CD") || m.PlayerName() != "" {
		t.Fatalf("unreadable memory must behave as empty")
	}
}
