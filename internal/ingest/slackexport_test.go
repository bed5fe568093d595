package ingest

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeExport(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadSlackExports(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeExport(t, dir, "support.json", `[
		{"parent_message": "ESC beeps three times on power-up, what gives?",
		 "replies": ["That's the cell-count announcement.", "Normal for a 3S pack."]},
		{"parent_message": "", "replies": ["orphan reply"]},
		{"parent_message": "Anyone have the arm torque value?", "replies": []}
	]`)
	writeExport(t, dir, "notes.txt", "not an export")

	units, err := LoadSlackExports(dir, slog.Default())
	if err != nil {
		t.Fatalf("LoadSlackExports failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}

	first := units[0]
	if !first.Atomic {
		t.Error("export units must be atomic")
	}
	if first.Source != "support.json" {
		t.Errorf("Source = %q, want support.json", first.Source)
	}
	if !strings.HasPrefix(first.Text, "Question/Issue: ESC beeps") {
		t.Errorf("unexpected question rendering: %q", first.Text)
	}
	if !strings.Contains(first.Text, "Answer/Reply: That's the cell-count announcement. Normal for a 3S pack.") {
		t.Errorf("replies not joined: %q", first.Text)
	}
	if first.Metadata["doc_type"] != "slack_export" {
		t.Errorf("doc_type = %q", first.Metadata["doc_type"])
	}

	// A question without replies keeps the question only.
	second := units[1]
	if strings.Contains(second.Text, "Answer/Reply") {
		t.Errorf("reply-less thread should have no answer section: %q", second.Text)
	}
}

func TestLoadSlackExports_MalformedFileSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeExport(t, dir, "bad.json", `{not json`)
	writeExport(t, dir, "good.json", `[{"parent_message": "Q", "replies": ["A"]}]`)

	units, err := LoadSlackExports(dir, slog.Default())
	if err != nil {
		t.Fatalf("LoadSlackExports failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit from the good file, got %d", len(units))
	}
}

func TestLoadSlackExports_MissingDir(t *testing.T) {
	t.Parallel()

	if _, err := LoadSlackExports(filepath.Join(t.TempDir(), "nope"), slog.Default()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
