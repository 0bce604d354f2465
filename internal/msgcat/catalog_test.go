package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRendersNotes(t *testing.T) {
	c := Default()
	got := c.Text("coherence.sot_below_goals", map[string]string{"Side": "Uploader"})
	if got != "Uploader shots on target less than goals" {
		t.Fatalf("unexpected note: %q", got)
	}
	if c.Text("coherence.possession_sum", nil) != "Possession does not sum to ~100" {
		t.Fatalf("unexpected possession note")
	}
}

func TestTextFallsBackToKey(t *testing.T) {
	c := Default()
	if got := c.Text("coherence.nope", nil); got != "coherence.nope" {
		t.Fatalf("expected key fallback, got %q", got)
	}
	// missing template data is an execution error
	if got := c.Text("coherence.sot_below_goals", map[string]string{}); got != "coherence.sot_below_goals" {
		t.Fatalf("expected key fallback on missing data, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("coherence:\n  possession_sum: \"Ballbesitz passt nicht\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("coherence.possession_sum", nil); got != "Ballbesitz passt nicht" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("side.uploader", nil); got != "Uploader" {
		t.Fatalf("embedded keys must survive overrides: %q", got)
	}
}

func TestOverrideDuplicateKeyRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("side:\n  a: \"Left\"\n")
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}
