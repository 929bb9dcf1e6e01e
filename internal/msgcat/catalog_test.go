package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Render("reject.not_your_turn", nil); !strings.Contains(got, "turn") {
		t.Fatalf("unexpected message: %q", got)
	}
	got := c.Render("finished.timeout", map[string]string{"By": "alice", "Winner": "bob"})
	if !strings.Contains(got, "alice") || !strings.Contains(got, "bob") {
		t.Fatalf("template fields not rendered: %q", got)
	}
}

func TestUnknownKeyFallsBackToKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Render("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	override := "reject:\n  illegal_move: \"Nope.\"\n"
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(override), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Render("reject.illegal_move", nil); got != "Nope." {
		t.Fatalf("override not applied: %q", got)
	}
	// Untouched keys keep their defaults.
	if got := c.Render("reject.no_offer", nil); got == "reject.no_offer" {
		t.Fatalf("default lost after override")
	}
}
